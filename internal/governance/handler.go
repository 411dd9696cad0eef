package governance

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vikal-platform/vikal/internal/api"
	"github.com/vikal-platform/vikal/internal/auth"
	"github.com/vikal-platform/vikal/internal/governance/quota"
)

// Handler provides HTTP handlers for quota endpoints.
type Handler struct {
	ledger *quota.Ledger
}

// NewHandler creates a new governance Handler.
func NewHandler(ledger *quota.Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// GetQuota returns the authenticated user's current quota status.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.ledger.Status(r.Context(), id.UserID, id.Email)
	if err != nil {
		slog.Error("governance: loading quota", "user_id", id.UserID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}

// Upgrade moves a user to the pro tier. Mounted behind the admin key.
func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		api.HandleError(w, api.NewBadRequestError("user id is required"))
		return
	}

	if err := h.ledger.Upgrade(r.Context(), userID); err != nil {
		slog.Error("governance: upgrading user", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	status, err := h.ledger.Status(r.Context(), userID, "")
	if err != nil {
		slog.Error("governance: loading quota after upgrade", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}
