package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nimbo/internal/domain"
	"nimbo/internal/service"
)

type InvitationHandler struct {
	invitationService service.InvitationService
}

func NewInvitationHandler(invitationService service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req domain.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	invitation, err := h.invitationService.CreateInvitation(userID, workspaceID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	// The token is excluded from the model's JSON; surface it once here so
	// the caller can build the invite link.
	respondCreated(c, gin.H{"invitation": invitation, "token": invitation.Token})
}

func (h *InvitationHandler) ListPending(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListPending(userID, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, invitations)
}

func (h *InvitationHandler) RevokeInvitation(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	invitationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.invitationService.RevokeInvitation(userID, invitationID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"revoked": true})
}

// VerifyInvitation resolves an invite token for the accept page. It only
// needs the token, not a session, so it sits outside the auth group.
func (h *InvitationHandler) VerifyInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Missing token")
		return
	}

	verification, err := h.invitationService.VerifyInvitation(token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, verification)
}

func (h *InvitationHandler) RespondInvitation(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req domain.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	invitation, err := h.invitationService.RespondInvitation(userID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, invitation)
}
