package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"nimbo/internal/domain"
)

// APIClient is the HTTP DataClient. It speaks the standard response
// envelope and surfaces the server's error code and message verbatim.
type APIClient struct {
	BaseURL    string // e.g. "http://localhost:8083"
	Token      string
	HTTPClient *http.Client
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *APIClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "INTERNAL", Message: "unknown error"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (c *APIClient) ListRooms(ctx context.Context, workspaceID uuid.UUID) ([]domain.RoomResponse, error) {
	var rooms []domain.RoomResponse
	err := c.do(ctx, http.MethodGet, "/api/workspaces/"+workspaceID.String()+"/rooms", nil, &rooms)
	return rooms, err
}

func (c *APIClient) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.RoomResponse, error) {
	var room domain.RoomResponse
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID.String(), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *APIClient) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]domain.ParticipantResponse, error) {
	var participants []domain.ParticipantResponse
	err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID.String()+"/participants", nil, &participants)
	return participants, err
}

func (c *APIClient) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.MessageResponse, error) {
	path := "/api/rooms/" + roomID.String() + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var messages []domain.MessageResponse
	err := c.do(ctx, http.MethodGet, path, nil, &messages)
	return messages, err
}

func (c *APIClient) JoinRoom(ctx context.Context, roomID uuid.UUID) (*domain.ParticipantResponse, error) {
	var seat domain.ParticipantResponse
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID.String()+"/join", nil, &seat); err != nil {
		return nil, err
	}
	return &seat, nil
}

func (c *APIClient) LeaveRoom(ctx context.Context, roomID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/rooms/"+roomID.String()+"/leave", nil, nil)
}

func (c *APIClient) UpdateMedia(ctx context.Context, roomID uuid.UUID, req domain.UpdateMediaRequest) (*domain.ParticipantResponse, error) {
	var seat domain.ParticipantResponse
	if err := c.do(ctx, http.MethodPut, "/api/rooms/"+roomID.String()+"/media", req, &seat); err != nil {
		return nil, err
	}
	return &seat, nil
}

func (c *APIClient) SendMessage(ctx context.Context, roomID uuid.UUID, content string) (*domain.MessageResponse, error) {
	var msg domain.MessageResponse
	body := domain.SendMessageRequest{Content: content}
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID.String()+"/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
