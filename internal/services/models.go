package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

// DefaultColor is used for services created without a colour.
const DefaultColor = "#4A6FA5"

type Service struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"not null;default:'#4A6FA5'" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Service) TableName() string {
	return "clientmap.services"
}

// Refs maps services onto what the availability projection needs.
func Refs(list []Service) []slots.ServiceRef {
	out := make([]slots.ServiceRef, len(list))
	for i, s := range list {
		out[i] = slots.ServiceRef{ID: s.ID, Name: s.Name, Color: s.Color}
	}
	return out
}
