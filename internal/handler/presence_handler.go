package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nimbo/internal/domain"
	"nimbo/internal/service"
)

type PresenceHandler struct {
	presenceService service.PresenceService
}

func NewPresenceHandler(presenceService service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

type heartbeatRequest struct {
	WorkspaceID uuid.UUID         `json:"workspace_id" binding:"required"`
	Status      domain.UserStatus `json:"status"`
}

// Heartbeat refreshes the caller's presence row. Clients send one on
// connect, on status change, and periodically while active.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}
	if req.Status == "" {
		req.Status = domain.StatusOnline
	}

	if err := h.presenceService.SetStatus(c.Request.Context(), userID, req.WorkspaceID, req.Status); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"status": req.Status})
}

func (h *PresenceHandler) Offline(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	if err := h.presenceService.SetOffline(c.Request.Context(), userID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"status": domain.StatusOffline})
}

func (h *PresenceHandler) GetUserStatus(c *gin.Context) {
	if _, ok := authedUser(c); !ok {
		return
	}
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	presence, err := h.presenceService.GetUserStatus(targetID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, presence)
}

func (h *PresenceHandler) ListOnline(c *gin.Context) {
	if _, ok := authedUser(c); !ok {
		return
	}

	var workspaceID *uuid.UUID
	if raw := c.Query("workspace_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid workspace_id")
			return
		}
		workspaceID = &id
	}

	online, err := h.presenceService.GetOnlineUsers(workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, online)
}
