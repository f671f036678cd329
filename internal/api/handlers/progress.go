package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/progress"
	"github.com/felixgeelhaar/solvehelper/internal/recommend"
)

// Recommender picks problems to practice
type Recommender interface {
	Recommend(ctx context.Context, userID uuid.UUID, count int) (*recommend.Result, error)
	ReviewQueue(ctx context.Context, userID uuid.UUID) ([]recommend.ReviewItem, error)
}

// ProgressReporter summarizes practice history
type ProgressReporter interface {
	Overview(ctx context.Context, userID uuid.UUID, days int) (*progress.Overview, error)
}

// ProgressHandler handles recommendation and progress endpoints
type ProgressHandler struct {
	recommend Recommender
	progress  ProgressReporter
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(recommend Recommender, progress ProgressReporter) *ProgressHandler {
	return &ProgressHandler{recommend: recommend, progress: progress}
}

// Recommendations returns unsolved problems near the user's rating
func (h *ProgressHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	count, apiErr := queryInt(r, "count", 10)
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	res, err := h.recommend.Recommend(r.Context(), userID(r), count)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Reviews returns solved problems due for review
func (h *ProgressHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.recommend.ReviewQueue(r.Context(), userID(r))
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"reviews": items})
}

// Progress returns totals over the last days days
func (h *ProgressHandler) Progress(w http.ResponseWriter, r *http.Request) {
	days, apiErr := queryInt(r, "days", 30)
	if apiErr != nil {
		WriteError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	ov, err := h.progress.Overview(r.Context(), userID(r), days)
	if err != nil {
		Error(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ov)
}
