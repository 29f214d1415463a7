package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserPresence is the server-side presence cache, upserted whenever a user's
// status changes. It corroborates the live channel signal; the row is the
// authoritative record for offline transitions.
type UserPresence struct {
	UserID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	WorkspaceID uuid.UUID  `gorm:"type:uuid;not null;index:idx_presence_workspace" json:"workspace_id"`
	Status      UserStatus `gorm:"type:varchar(20);default:'online';index:idx_presence_workspace" json:"status"`
	LastSeen    time.Time  `gorm:"not null" json:"last_seen"`
}

// TableName specifies the table name for UserPresence
func (UserPresence) TableName() string {
	return "user_presence"
}
