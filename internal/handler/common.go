// Package handler exposes the HTTP surface. Every response uses the
// standard envelope: {"success": true, "data": ...} on success and
// {"success": false, "error": {"code", "message", "details"}} on failure.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nimbo/internal/middleware"
	"nimbo/internal/service"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

func respondValidation(c *gin.Context, verr *service.ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION",
			"message": "Request validation failed",
			"details": verr.Fields,
		},
	})
}

// respondServiceError maps service sentinels onto stable API error codes.
func respondServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		respondValidation(c, verr)
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, service.ErrNotMember):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Not a member of this workspace")
	case errors.Is(err, service.ErrNotParticipant):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Not a participant of this room")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Not allowed")
	case errors.Is(err, service.ErrOwnerImmutable):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "The workspace owner cannot be removed or demoted")
	case errors.Is(err, service.ErrRoomFull):
		respondError(c, http.StatusConflict, "INVALID_STATE", "Room has reached its capacity")
	case errors.Is(err, service.ErrDuplicate):
		respondError(c, http.StatusConflict, "DUPLICATE", "Resource already exists")
	case errors.Is(err, service.ErrInviteExpired):
		respondError(c, http.StatusGone, "EXPIRED", "Invitation has expired")
	case errors.Is(err, service.ErrInviteProcessed):
		respondError(c, http.StatusConflict, "INVALID_STATE", "Invitation has already been processed")
	default:
		respondError(c, http.StatusInternalServerError, "DATABASE", "Internal server error")
	}
}

// authedUser pulls the authenticated user id, answering 401 itself when the
// middleware did not run.
func authedUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}

// pathUUID parses a :param path segment as a UUID, answering 400 itself on
// malformed input.
func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}
