package clients

import (
	"time"

	"github.com/google/uuid"
)

// Client is a business shown on the map. Lng keeps the historical "lang"
// column and JSON key.
type Client struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	BusinessName string     `gorm:"not null;index" json:"business_name"`
	Address      string     `gorm:"not null;default:''" json:"address"`
	Postcode     string     `gorm:"not null;default:''" json:"postcode"`
	Country      string     `gorm:"not null;default:''" json:"country"`
	Lat          *float64   `json:"lat"`
	Lng          *float64   `gorm:"column:lang" json:"lang"`
	LocationID   *uuid.UUID `gorm:"type:uuid;index" json:"location_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Client) TableName() string {
	return "clientmap.clients"
}

// HasCoordinates reports whether the client can be placed on the map.
func (c Client) HasCoordinates() bool {
	return c.Lat != nil && c.Lng != nil && validLat(*c.Lat) && validLng(*c.Lng)
}

type ClientService struct {
	ClientID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_client_service,priority:1" json:"client_id"`
	ServiceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_client_service,priority:2;index" json:"service_id"`
}

func (ClientService) TableName() string {
	return "clientmap.client_services"
}

// View is a client with its service ids.
type View struct {
	Client
	ServiceIDs []uuid.UUID `json:"service_ids"`
}
