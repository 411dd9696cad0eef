package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikal-platform/vikal/internal/auth"
	"github.com/vikal-platform/vikal/internal/governance/quota"
	"github.com/vikal-platform/vikal/internal/transcript"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func serve(t *testing.T, h http.HandlerFunc, body string, authenticated bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req = req.WithContext(auth.WithIdentity(req.Context(), alice))
	}
	rec := httptest.NewRecorder()
	h(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandler_Solve(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)

	rec, env := serve(t, h.Solve, `{"problem":"4V across 2 ohm","style":"smart"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Notes     string `json:"notes"`
		Resources []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"resources"`
		ExamTips []string `json:"exam_tips"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Use V=IR.", got.Notes)
	assert.Len(t, got.Resources, 2)
	assert.NotNil(t, got.ExamTips)
}

func TestHandler_ErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *fixture)
		handler    func(h *Handler) http.HandlerFunc
		body       string
		anonymous  bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unauthenticated",
			handler:    func(h *Handler) http.HandlerFunc { return h.Explain },
			body:       `{"topic":"x"}`,
			anonymous:  true,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "malformed json",
			handler:    func(h *Handler) http.HandlerFunc { return h.Explain },
			body:       `{"topic":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "missing field",
			handler:    func(h *Handler) http.HandlerFunc { return h.Solve },
			body:       `{"style":"step"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "no transcript",
			setup:      func(f *fixture) { f.fetcher.segments = nil },
			handler:    func(h *Handler) http.HandlerFunc { return h.Summarize },
			body:       `{"video_id":"vid1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name: "quota exhausted",
			setup: func(f *fixture) {
				for i := 0; i < quota.DefaultFreeLimit; i++ {
					_, _ = f.store.FindOrCreate(context.Background(), alice.UserID, "")
					_, _ = f.store.IncrementIfNotPro(context.Background(), alice.UserID, quota.DefaultFreeLimit)
				}
			},
			handler:    func(h *Handler) http.HandlerFunc { return h.Chat },
			body:       `{"message":"hi"}`,
			wantStatus: http.StatusForbidden,
			wantCode:   "quota_exceeded",
		},
		{
			name:       "completion down",
			setup:      func(f *fixture) { f.completer.err = errors.New("503") },
			handler:    func(h *Handler) http.HandlerFunc { return h.Explain },
			body:       `{"topic":"x"}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   "completion_failed",
		},
		{
			name:       "transcript down",
			setup:      func(f *fixture) { f.fetcher.err = transcript.ErrTranscript },
			handler:    func(h *Handler) http.HandlerFunc { return h.Summarize },
			body:       `{"video_id":"vid1"}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   "transcript_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			h := NewHandler(f.svc)

			rec, env := serve(t, tt.handler(h), tt.body, !tt.anonymous)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}
