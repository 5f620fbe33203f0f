package auth

import (
	"time"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/utils"
)

// SessionInfo resolves session cookies against app_auth.sessions.
type SessionInfo struct{}

func (SessionInfo) FindSessionByID(id string) (utils.SessionData, error) {
	var row struct {
		UserID    string
		Role      string
		ExpiresAt time.Time
	}
	err := db.DB.Table("app_auth.sessions AS s").
		Select("s.user_id, u.role, s.expires_at").
		Joins("JOIN app_auth.users u ON u.user_id = s.user_id").
		Where("s.session_id = ?", id).
		Take(&row).Error
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		UserID:    row.UserID,
		Role:      row.Role,
		ExpiresAt: row.ExpiresAt,
	}, nil
}
