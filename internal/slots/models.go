package slots

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
)

// LocationSlot is one provider position for a service at a location.
// SlotNumber is 1-based and unique per (location, service).
type LocationSlot struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	LocationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_slot_pair_number,priority:1" json:"location_id"`
	ServiceID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_slot_pair_number,priority:2;index" json:"service_id"`
	SlotNumber int        `gorm:"not null;uniqueIndex:idx_slot_pair_number,priority:3" json:"slot_number"`
	Status     Status     `gorm:"type:text;not null;default:'available'" json:"status"`
	ClientID   *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (LocationSlot) TableName() string {
	return "clientmap.location_slots"
}

// Occupied reports whether the slot is bound to a client.
func (s LocationSlot) Occupied() bool {
	return s.Status == StatusOccupied && s.ClientID != nil
}

// OccupancyRow is a slot joined with its client's display name.
type OccupancyRow struct {
	LocationID   uuid.UUID
	ServiceID    uuid.UUID
	SlotNumber   int
	Status       Status
	ClientID     *uuid.UUID
	BusinessName *string
}

// ClientIDValue returns the bound client, or uuid.Nil.
func (s LocationSlot) ClientIDValue() uuid.UUID {
	if s.ClientID == nil {
		return uuid.Nil
	}
	return *s.ClientID
}
