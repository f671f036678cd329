package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/practice"
)

// PracticeService runs timed practice sessions
type PracticeService interface {
	Schedule() domain.HintSchedule
	Start(ctx context.Context, userID uuid.UUID, problemID string, limit time.Duration) (*domain.PracticeSession, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PracticeSession, error)
	Save(ctx context.Context, userID, id uuid.UUID, req practice.SaveRequest) (*domain.PracticeSession, error)
	RevealHint(ctx context.Context, userID, id uuid.UUID) (*practice.RevealedHint, *domain.PracticeSession, error)
	CheckSubmission(ctx context.Context, userID, id uuid.UUID) (*practice.CheckResult, error)
	MarkSolved(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error)
}

// PracticeHandler handles practice session endpoints
type PracticeHandler struct {
	service PracticeService
}

// NewPracticeHandler creates a new practice handler
func NewPracticeHandler(service PracticeService) *PracticeHandler {
	return &PracticeHandler{service: service}
}

// StartPracticeRequest starts a session; zero seconds is untimed
type StartPracticeRequest struct {
	ProblemID        string `json:"problem_id" validate:"required,max=64"`
	TimeLimitSeconds int    `json:"time_limit_seconds" validate:"min=0,max=21600"`
}

// SavePracticeRequest reports client timer progress
type SavePracticeRequest struct {
	ElapsedSeconds int  `json:"elapsed_seconds" validate:"min=0"`
	HintsUsed      int  `json:"hints_used" validate:"min=0,max=10"`
	Paused         bool `json:"paused"`
}

// PracticeView is a session plus the timer state derived from it
type PracticeView struct {
	*domain.PracticeSession
	TimeLimitSeconds  int64  `json:"time_limit_seconds"`
	ElapsedSeconds    int64  `json:"elapsed_seconds"`
	RemainingSeconds  int64  `json:"remaining_seconds"`
	UnlockedHints     int    `json:"unlocked_hints"`
	TotalHints        int    `json:"total_hints"`
	NextUnlockSeconds *int64 `json:"next_unlock_seconds,omitempty"`
}

func (h *PracticeHandler) view(p *domain.PracticeSession) PracticeView {
	schedule := h.service.Schedule()
	v := PracticeView{
		PracticeSession:  p,
		TimeLimitSeconds: int64(p.TimeLimit / time.Second),
		ElapsedSeconds:   int64(p.Elapsed / time.Second),
		RemainingSeconds: int64(p.Remaining() / time.Second),
		UnlockedHints:    p.UnlockedHints(schedule),
		TotalHints:       schedule.Count(),
	}
	if next, ok := schedule.NextUnlock(p.Elapsed, p.TimeLimit); ok && !p.Finished() {
		secs := int64((next + time.Second - 1) / time.Second)
		v.NextUnlockSeconds = &secs
	}
	return v
}

// Start begins a session
func (h *PracticeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartPracticeRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	limit := time.Duration(req.TimeLimitSeconds) * time.Second
	p, err := h.service.Start(r.Context(), userID(r), req.ProblemID, limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"session": h.view(p)})
}

// List returns recent sessions
func (h *PracticeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := queryInt(r, "limit", 0)
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	sessions, err := h.service.List(r.Context(), userID(r), limit)
	if err != nil {
		Error(w, r, err)
		return
	}

	views := make([]PracticeView, 0, len(sessions))
	for i := range sessions {
		views = append(views, h.view(&sessions[i]))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// Get returns one session
func (h *PracticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	p, err := h.service.Get(r.Context(), userID(r), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": h.view(p)})
}

// Save stores timer progress; elapsed time and hints used never go back
func (h *PracticeHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	var req SavePracticeRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	p, err := h.service.Save(r.Context(), userID(r), id, practice.SaveRequest{
		Elapsed:   time.Duration(req.ElapsedSeconds) * time.Second,
		HintsUsed: req.HintsUsed,
		Paused:    req.Paused,
	})
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": h.view(p)})
}

// RevealHint hands out the next unlocked hint
func (h *PracticeHandler) RevealHint(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	hint, p, err := h.service.RevealHint(r.Context(), userID(r), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"hint": hint, "session": h.view(p)})
}

// Check looks for an accepted submission on the judge
func (h *PracticeHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	res, err := h.service.CheckSubmission(r.Context(), userID(r), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"solved":     res.Solved,
		"submission": res.Submission,
		"session":    h.view(res.Session),
		"praise":     res.Praise,
	})
}

// MarkSolved records a solve the user reports themselves, for users
// without a judge handle
func (h *PracticeHandler) MarkSolved(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	p, err := h.service.MarkSolved(r.Context(), userID(r), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"session": h.view(p)})
}
