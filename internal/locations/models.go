package locations

import (
	"time"

	"github.com/google/uuid"
)

// Location is a postcode area with the region it is shown under.
type Location struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	PostcodeInitials string    `gorm:"uniqueIndex;not null" json:"postcode_initials"`
	Region           string    `gorm:"not null;default:''" json:"region"`
	CityName         string    `json:"city_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Location) TableName() string {
	return "clientmap.locations"
}
