package auth

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
)

// Init migrates the auth tables. secure marks session cookies Secure and
// SameSite=None for cross-site dashboards served over HTTPS.
func Init(secure bool) error {
	secureCookies = secure

	if err := db.EnsureSchema(db.DB, "app_auth"); err != nil {
		return fmt.Errorf("ensure schema app_auth: %w", err)
	}
	if err := db.DB.AutoMigrate(&User{}, &Session{}); err != nil {
		return fmt.Errorf("auto-migrate auth tables: %w", err)
	}
	return nil
}

// EnsureAdmin creates the first admin account when none exists.
func EnsureAdmin(username, password string, log *zap.Logger) error {
	if username == "" || password == "" {
		return nil
	}
	var count int64
	if err := db.DB.Model(&User{}).Where("role = ?", RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := CreateUser(username, password, RoleAdmin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info("Created bootstrap admin", zap.String("username", username))
	return nil
}
