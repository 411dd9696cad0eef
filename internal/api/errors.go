package api

import (
	"errors"
	"log/slog"
	"net/http"
)

// Error codes returned in the "code" field of every error response.
const (
	CodeBadRequest       = "bad_request"
	CodeValidation       = "validation_error"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeQuotaExceeded    = "quota_exceeded"
	CodeCompletionFailed = "completion_failed"
	CodeTranscriptFailed = "transcript_failed"
	CodeInternal         = "internal_error"
)

type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: "bad request"}
	ErrUnauthorized   = &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidToken   = &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "invalid or expired token"}
	ErrForbidden      = &AppError{Status: http.StatusForbidden, Code: CodeForbidden, Message: "forbidden"}
	ErrNotFound       = &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "not found"}
	ErrQuotaExceeded  = &AppError{Status: http.StatusForbidden, Code: CodeQuotaExceeded, Message: "free limit reached, upgrade to pro to continue"}
	ErrInternalServer = &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

// NewUpstreamError reports a failed call to an external service.
func NewUpstreamError(code, msg string) *AppError {
	return &AppError{Status: http.StatusBadGateway, Code: code, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorCode(w, appErr.Status, appErr.Code, appErr.Message)
		return
	}
	slog.Error("api: unhandled error", "error", err)
	JSONErrorCode(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}
