package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus represents the processing state of an invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// InvitationTTL is how long an invitation stays valid after creation.
const InvitationTTL = 7 * 24 * time.Hour

// WorkspaceInvitation represents a pending invite to join a workspace
type WorkspaceInvitation struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkspaceID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"workspace_id"`
	InvitedEmail string           `gorm:"not null;index" json:"invited_email"`
	InvitedBy    uuid.UUID        `gorm:"type:uuid;not null" json:"invited_by"`
	Role         MemberRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Token        string           `gorm:"uniqueIndex;not null" json:"-"`
	Status       InvitationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ExpiresAt    time.Time        `gorm:"not null" json:"expires_at"`
	CreatedAt    time.Time        `gorm:"not null" json:"created_at"`

	// Relations
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Inviter   *User      `gorm:"foreignKey:InvitedBy" json:"inviter,omitempty"`
}

// TableName specifies the table name for WorkspaceInvitation
func (WorkspaceInvitation) TableName() string {
	return "workspace_invitations"
}

// Expired reports whether the invitation's deadline has passed.
func (i *WorkspaceInvitation) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}

// CreateInvitationRequest represents the request to invite someone
type CreateInvitationRequest struct {
	Email string     `json:"email"`
	Role  MemberRole `json:"role"`
}

// RespondInvitationRequest represents accepting or rejecting an invitation
type RespondInvitationRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"` // "accept" or "reject"
}

// InvitationVerifyResponse is what the accept page renders before the user
// decides.
type InvitationVerifyResponse struct {
	ID           uuid.UUID        `json:"id"`
	WorkspaceID  uuid.UUID        `json:"workspace_id"`
	InvitedEmail string           `json:"invited_email"`
	Role         MemberRole       `json:"role"`
	Status       InvitationStatus `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Workspace    *Workspace       `json:"workspace,omitempty"`
}
