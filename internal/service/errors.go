package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors the handlers translate into stable API error codes.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNotMember       = errors.New("not a member of this workspace")
	ErrNotParticipant  = errors.New("not a participant of this room")
	ErrRoomFull        = errors.New("room has reached its capacity")
	ErrDuplicate       = errors.New("resource already exists")
	ErrInviteExpired   = errors.New("invitation has expired")
	ErrInviteProcessed = errors.New("invitation has already been processed")
	ErrOwnerImmutable  = errors.New("the workspace owner cannot be removed or demoted")
)

// ValidationError carries per-field messages for a VALIDATION response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d invalid field(s)", len(e.Fields))
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// translateDB maps driver-level not-found onto the service sentinel so
// handlers never see gorm errors.
func translateDB(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
