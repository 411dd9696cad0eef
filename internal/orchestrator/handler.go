package orchestrator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vikal-platform/vikal/internal/api"
	"github.com/vikal-platform/vikal/internal/auth"
	"github.com/vikal-platform/vikal/internal/governance/quota"
	"github.com/vikal-platform/vikal/internal/study"
)

// maxBodyBytes bounds request bodies; transcripts are fetched server side.
const maxBodyBytes = 64 << 10

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	id, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	res, err := h.svc.Explain(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) Solve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	id, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	res, err := h.svc.Solve(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	id, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	res, err := h.svc.Summarize(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	id, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	res, err := h.svc.Chat(r.Context(), id, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) (id study.Identity, ok bool) {
	id, ok = auth.IdentityFrom(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return id, false
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return id, false
	}

	if err := h.validate.Struct(dst); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return id, false
	}
	return id, true
}

// fail maps pipeline errors onto the API error codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		verr *ValidationError
		xerr *ExternalServiceError
	)
	switch {
	case errors.As(err, &verr):
		api.HandleError(w, api.NewValidationError(verr.Error()))
	case errors.Is(err, quota.ErrQuotaExceeded):
		api.HandleError(w, api.ErrQuotaExceeded)
	case errors.As(err, &xerr) && xerr.Service == ServiceTranscript:
		api.HandleError(w, api.NewUpstreamError(api.CodeTranscriptFailed, "could not fetch the video transcript"))
	case errors.As(err, &xerr):
		api.HandleError(w, api.NewUpstreamError(api.CodeCompletionFailed, "the language model did not answer, please try again"))
	default:
		slog.Error("orchestrator: request failed", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
