package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nimbo/internal/domain"
	"nimbo/internal/service"
)

type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
}

func NewWorkspaceHandler(workspaceService service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req domain.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(userID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, workspace)
}

func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceService.GetWorkspace(userID, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, workspace)
}

func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	workspaces, err := h.workspaceService.ListWorkspaces(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, workspaces)
}

func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	workspace, err := h.workspaceService.UpdateWorkspace(userID, workspaceID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, workspace)
}

func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(userID, workspaceID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

func (h *WorkspaceHandler) ListMembers(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	members, err := h.workspaceService.ListMembers(userID, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, members)
}

func (h *WorkspaceHandler) UpdateMemberRole(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}

	var req domain.UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	if err := h.workspaceService.UpdateMemberRole(userID, workspaceID, targetID, req.Role); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"updated": true})
}

func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	targetID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(userID, workspaceID, targetID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"removed": true})
}
