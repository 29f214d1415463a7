package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nimbo/internal/domain"
	"nimbo/internal/service"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	if _, ok := authedUser(c); !ok {
		return
	}
	targetID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(targetID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	if _, ok := authedUser(c); !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if query := c.Query("q"); query != "" {
		users, err := h.userService.SearchUsers(query, limit)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, users)
		return
	}

	users, err := h.userService.ListUsers(limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, users)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(userID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, user)
}

func (h *UserHandler) UpdateStatus(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}

	var req domain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	user, err := h.userService.UpdateStatus(userID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, user)
}
