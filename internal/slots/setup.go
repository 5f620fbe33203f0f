package slots

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
)

const Schema = "clientmap"

// Migrate creates the slot table and its pair index.
func Migrate(conn *gorm.DB) error {
	if err := db.EnsureSchema(conn, Schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", Schema, err)
	}
	if err := db.EnsureUUIDExtension(conn); err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	if err := conn.AutoMigrate(&LocationSlot{}); err != nil {
		return fmt.Errorf("migrate location slots: %w", err)
	}
	return nil
}
