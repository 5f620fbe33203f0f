package services

import (
	"fmt"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
)

func Init() error {
	if err := db.EnsureSchema(db.DB, "clientmap"); err != nil {
		return fmt.Errorf("ensure schema clientmap: %w", err)
	}
	if err := db.EnsureUUIDExtension(db.DB); err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	if err := db.DB.AutoMigrate(&Service{}); err != nil {
		return fmt.Errorf("auto-migrate services: %w", err)
	}
	return nil
}
