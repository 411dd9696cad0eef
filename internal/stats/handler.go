package stats

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vikal-platform/vikal/internal/api"
)

// Handler serves the daily usage endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a new stats Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetDaily returns the record for ?date=YYYY-MM-DD, defaulting to today (UTC).
func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	date := h.svc.now()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.Parse(time.DateOnly, q)
		if err != nil {
			api.HandleError(w, api.NewValidationError("date must be formatted as YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	daily, err := h.svc.Daily(r.Context(), date)
	if errors.Is(err, ErrNotFound) {
		api.HandleError(w, api.NewNotFoundError(err.Error()))
		return
	}
	if err != nil {
		slog.Error("stats: loading daily record", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, daily)
}
