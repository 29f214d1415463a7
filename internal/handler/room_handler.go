package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nimbo/internal/domain"
	"nimbo/internal/middleware"
	"nimbo/internal/service"
)

type RoomHandler struct {
	roomService service.RoomService
}

func NewRoomHandler(roomService service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, workspaceID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, room)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	rooms, err := h.roomService.ListRooms(c.Request.Context(), userID, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, rooms)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), userID, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, room)
}

func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	room, err := h.roomService.UpdateRoom(c.Request.Context(), userID, roomID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, room)
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.roomService.DeleteRoom(c.Request.Context(), userID, roomID); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	participant, err := h.roomService.JoinRoom(c.Request.Context(), userID, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	middleware.RecordRoomJoin()
	respondOK(c, participant.ToResponse())
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	left, err := h.roomService.LeaveRoom(c.Request.Context(), userID, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if left {
		middleware.RecordRoomLeave()
	}
	respondOK(c, gin.H{"left": left})
}

func (h *RoomHandler) ListParticipants(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	participants, err := h.roomService.ListParticipants(c.Request.Context(), userID, roomID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, participants)
}

func (h *RoomHandler) UpdateMedia(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	roomID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req domain.UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "Invalid request body")
		return
	}

	participant, err := h.roomService.UpdateMedia(c.Request.Context(), userID, roomID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, participant.ToResponse())
}
