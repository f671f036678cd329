package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/chat"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ChatService manages tutoring conversations
type ChatService interface {
	Create(ctx context.Context, userID uuid.UUID, req chat.CreateRequest) (*domain.ChatSession, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.ChatSession, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.ChatSession, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Send(ctx context.Context, userID, id uuid.UUID, content string) (*domain.ChatMessage, *domain.ChatSession, error)
}

// ChatHandler handles chat endpoints
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// CreateChatRequest opens a chat, optionally about a problem
type CreateChatRequest struct {
	ProblemID *string  `json:"problem_id" validate:"omitempty,max=64"`
	Title     string   `json:"title" validate:"max=120"`
	Hints     []string `json:"hints" validate:"max=10,dive,max=2000"`
}

// SendMessageRequest carries one user message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=8000"`
}

// Create opens a chat
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	c, err := h.service.Create(r.Context(), userID(r), chat.CreateRequest{
		ProblemID: req.ProblemID,
		Title:     req.Title,
		Hints:     req.Hints,
	})
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"chat": c})
}

// List returns the user's chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.service.List(r.Context(), userID(r))
	if err != nil {
		Error(w, r, err)
		return
	}
	if chats == nil {
		chats = []domain.ChatSession{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// Get returns one chat with its messages
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	c, err := h.service.Get(r.Context(), userID(r), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"chat": c})
}

// Delete removes a chat
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if err := h.service.Delete(r.Context(), userID(r), id); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send posts a message and returns the tutor's reply
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	var req SendMessageRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	reply, c, err := h.service.Send(r.Context(), userID(r), id, req.Content)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"reply": reply, "chat": c})
}
