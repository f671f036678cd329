package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// Catalog serves problem and contest metadata
type Catalog interface {
	Problem(ctx context.Context, id string) (*domain.Problem, error)
	Problems(ctx context.Context, f domain.ProblemFilter) ([]domain.Problem, error)
	Contests(ctx context.Context, limit int) ([]domain.Contest, error)
	ContestProblems(ctx context.Context, contestID string) ([]domain.Problem, error)
}

// Tutor produces AI hints and translations
type Tutor interface {
	Hints(ctx context.Context, userID uuid.UUID, problemID string) ([]string, error)
	Translate(ctx context.Context, userID uuid.UUID, problemID, lang string) (string, error)
}

// ProblemHandler handles problem and contest endpoints
type ProblemHandler struct {
	catalog Catalog
	tutor   Tutor
}

// NewProblemHandler creates a new problem handler
func NewProblemHandler(catalog Catalog, tutor Tutor) *ProblemHandler {
	return &ProblemHandler{catalog: catalog, tutor: tutor}
}

// TranslateRequest selects the target language
type TranslateRequest struct {
	Lang string `json:"lang" validate:"required,min=2,max=16"`
}

// List searches the catalog
func (h *ProblemHandler) List(w http.ResponseWriter, r *http.Request) {
	f := domain.ProblemFilter{
		Query:     r.URL.Query().Get("q"),
		ContestID: r.URL.Query().Get("contest"),
	}
	var apiErr *APIError
	if f.MinDifficulty, apiErr = queryIntPtr(r, "min"); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if f.MaxDifficulty, apiErr = queryIntPtr(r, "max"); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if f.Limit, apiErr = queryInt(r, "limit", 0); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if f.Offset, apiErr = queryInt(r, "offset", 0); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	problems, err := h.catalog.Problems(r.Context(), f)
	if err != nil {
		Error(w, r, err)
		return
	}
	if problems == nil {
		problems = []domain.Problem{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"problems": problems})
}

// Get returns one problem, scraping its statement on first access
func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Problem(r.Context(), r.PathValue("id"))
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"problem": p,
		"color":   domain.RatingColor(p.DifficultyOr(0)),
	})
}

// Translate returns the statement in another language
func (h *ProblemHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if apiErr := decode(w, r, &req); apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	id := r.PathValue("id")
	text, err := h.tutor.Translate(r.Context(), userID(r), id, req.Lang)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"problem_id":  id,
		"lang":        req.Lang,
		"translation": text,
	})
}

// Hints returns the problem's progressive hints, generating them if needed
func (h *ProblemHandler) Hints(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hints, err := h.tutor.Hints(r.Context(), userID(r), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"problem_id": id, "hints": hints})
}

// Contests lists recent contests
func (h *ProblemHandler) Contests(w http.ResponseWriter, r *http.Request) {
	limit, apiErr := queryInt(r, "limit", 0)
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	contests, err := h.catalog.Contests(r.Context(), limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	if contests == nil {
		contests = []domain.Contest{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"contests": contests})
}

// ContestProblems lists one contest's problems in index order
func (h *ProblemHandler) ContestProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.catalog.ContestProblems(r.Context(), r.PathValue("id"))
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"problems": problems})
}
