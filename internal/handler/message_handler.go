package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"nimbo/internal/domain"
	"nimbo/internal/middleware"
	"nimbo/internal/service"
)

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), userID, roomID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	middleware.RecordMessageSent()
	respondCreated(c, message.ToResponse())
}

// ListMessages returns the room's history newest first, paginated by the
// before cursor (RFC 3339 timestamp of the oldest message on the previous
// page).
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid limit")
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid before cursor")
			return
		}
		before = &t
	}

	messages, err := h.messageService.ListMessages(c.Request.Context(), userID, roomID, limit, before)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, messages)
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}
