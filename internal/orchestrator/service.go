// Package orchestrator runs one study request end to end: quota gate,
// prompt rendering, completion, parsing, and consumption accounting.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vikal-platform/vikal/internal/governance/quota"
	"github.com/vikal-platform/vikal/internal/metrics"
	"github.com/vikal-platform/vikal/internal/parser"
	"github.com/vikal-platform/vikal/internal/prompt"
	"github.com/vikal-platform/vikal/internal/study"
	"github.com/vikal-platform/vikal/internal/transcript"
)

// Ledger is the part of *quota.Ledger the orchestrator uses.
type Ledger interface {
	EnsureUser(ctx context.Context, userID, emailHint string) (*quota.Record, error)
	CheckAllowed(rec *quota.Record) bool
	RecordConsumption(ctx context.Context, userID string) error
}

type Renderer interface {
	Render(req prompt.Request) string
}

type Completer interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int, modelID string) (string, error)
}

// UsageRecorder updates the daily usage statistics.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, userID string, kind study.Kind) error
}

// History stores chat turns per user and video.
type History interface {
	Recent(ctx context.Context, userID, videoID string) ([]study.Turn, error)
	Append(ctx context.Context, userID, videoID string, turns ...study.Turn) error
}

// Deps are the collaborators of a Service. Usage and History may be nil.
type Deps struct {
	Ledger      Ledger
	Renderer    Renderer
	Completer   Completer
	Transcripts transcript.Fetcher
	Usage       UsageRecorder
	History     History
}

// Config holds per-kind completion settings.
type Config struct {
	Model              string
	MaxTokens          map[study.Kind]int
	TranscriptMaxChars int
}

// Service sequences the pipeline. It owns no state between requests.
type Service struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

// NewService creates a new orchestrator Service.
func NewService(deps Deps, cfg Config) *Service {
	return &Service{deps: deps, cfg: cfg, now: time.Now}
}

// ExplainRequest asks for a structured explanation of a topic.
type ExplainRequest struct {
	Topic    string `json:"topic" validate:"required,max=500"`
	Category string `json:"category" validate:"omitempty,max=32"`
}

// SolveRequest asks for a solution to a problem in a given style.
type SolveRequest struct {
	Problem  string `json:"problem" validate:"required,max=4000"`
	Category string `json:"category" validate:"omitempty,max=32"`
	Style    string `json:"style" validate:"omitempty,max=32"`
}

// SummarizeRequest asks for a summary of a video's transcript.
type SummarizeRequest struct {
	VideoID string `json:"video_id" validate:"required,max=64"`
	Title   string `json:"title" validate:"max=300"`
}

// ChatRequest is a free-form question, optionally about a video.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	VideoID string `json:"video_id" validate:"omitempty,max=64"`
}

// job is one pass through the pipeline.
type job struct {
	kind     study.Kind
	req      prompt.Request
	videoID  string
	question string
}

func (s *Service) Explain(ctx context.Context, id study.Identity, req ExplainRequest) (parser.Explanation, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return parser.Explanation{}, s.invalid(study.KindExplanation, &ValidationError{Field: "topic", Reason: "is required"})
	}

	res, err := s.run(ctx, id, job{
		kind: study.KindExplanation,
		req: prompt.Request{
			Kind:     study.KindExplanation,
			Category: study.ParseCategory(req.Category),
			Subject:  topic,
		},
	})
	if err != nil {
		return parser.Explanation{}, err
	}
	return res.(parser.Explanation), nil
}

func (s *Service) Solve(ctx context.Context, id study.Identity, req SolveRequest) (parser.Solution, error) {
	problem := strings.TrimSpace(req.Problem)
	if problem == "" {
		return parser.Solution{}, s.invalid(study.KindSolution, &ValidationError{Field: "problem", Reason: "is required"})
	}

	res, err := s.run(ctx, id, job{
		kind: study.KindSolution,
		req: prompt.Request{
			Kind:     study.KindSolution,
			Category: study.ParseCategory(req.Category),
			Style:    study.ParseStyle(req.Style),
			Subject:  problem,
		},
	})
	if err != nil {
		return parser.Solution{}, err
	}
	return res.(parser.Solution), nil
}

func (s *Service) Summarize(ctx context.Context, id study.Identity, req SummarizeRequest) (parser.Summary, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return parser.Summary{}, s.invalid(study.KindSummary, &ValidationError{Field: "video_id", Reason: "is required"})
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = videoID
	}

	res, err := s.run(ctx, id, job{
		kind:    study.KindSummary,
		req:     prompt.Request{Kind: study.KindSummary, Subject: title},
		videoID: videoID,
	})
	if err != nil {
		return parser.Summary{}, err
	}
	return res.(parser.Summary), nil
}

func (s *Service) Chat(ctx context.Context, id study.Identity, req ChatRequest) (parser.Chat, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return parser.Chat{}, s.invalid(study.KindChat, &ValidationError{Field: "message", Reason: "is required"})
	}

	res, err := s.run(ctx, id, job{
		kind:     study.KindChat,
		req:      prompt.Request{Kind: study.KindChat, Subject: message},
		videoID:  strings.TrimSpace(req.VideoID),
		question: message,
	})
	if err != nil {
		return parser.Chat{}, err
	}
	return res.(parser.Chat), nil
}

// run is the single pipeline every action goes through. The quota is
// checked before anything is spent and charged only after the completion
// succeeded and was parsed.
func (s *Service) run(ctx context.Context, id study.Identity, j job) (parser.Result, error) {
	kind := string(j.kind)
	if strings.TrimSpace(id.UserID) == "" {
		return nil, s.invalid(j.kind, &ValidationError{Field: "user_id", Reason: "is required"})
	}

	rec, err := s.deps.Ledger.EnsureUser(ctx, id.UserID, id.Email)
	if err != nil {
		metrics.StudyActionsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("loading quota: %w", err)
	}
	if !s.deps.Ledger.CheckAllowed(rec) {
		metrics.StudyActionsTotal.WithLabelValues(kind, metrics.OutcomeQuotaExceeded).Inc()
		metrics.QuotaDenialsTotal.WithLabelValues(kind).Inc()
		slog.Info("orchestrator: quota exceeded", "user_id", id.UserID, "kind", kind, "chat_count", rec.ChatCount)
		return nil, quota.ErrQuotaExceeded
	}

	if j.videoID != "" {
		text, err := s.transcript(ctx, j.videoID)
		if err != nil {
			metrics.StudyActionsTotal.WithLabelValues(kind, metrics.OutcomeUpstreamError).Inc()
			return nil, err
		}
		if text == "" && j.kind == study.KindSummary {
			return nil, s.invalid(j.kind, ErrNoTranscript)
		}
		j.req.Transcript = text
	}

	if j.kind == study.KindChat && s.deps.History != nil {
		turns, err := s.deps.History.Recent(ctx, id.UserID, j.videoID)
		if err != nil {
			slog.Warn("orchestrator: loading chat history failed", "user_id", id.UserID, "error", err)
		}
		j.req.History = turns
	}

	text := s.deps.Renderer.Render(j.req)

	start := s.now()
	raw, err := s.deps.Completer.Complete(ctx, text, s.cfg.MaxTokens[j.kind], s.cfg.Model)
	metrics.CompletionDuration.WithLabelValues(kind).Observe(s.now().Sub(start).Seconds())
	if err != nil {
		metrics.StudyActionsTotal.WithLabelValues(kind, metrics.OutcomeUpstreamError).Inc()
		slog.Error("orchestrator: completion failed", "user_id", id.UserID, "kind", kind, "error", err)
		return nil, &ExternalServiceError{Service: ServiceCompletion, Err: err}
	}

	result := parser.Parse(j.kind, raw)
	if missing := parser.Missing(j.kind, raw); len(missing) > 0 {
		for _, section := range missing {
			metrics.ParseMissingSectionsTotal.WithLabelValues(kind, section).Inc()
		}
		slog.Debug("orchestrator: reply is missing sections", "kind", kind, "sections", missing)
	}

	// The action already succeeded; a failed charge is logged, not returned.
	if err := s.deps.Ledger.RecordConsumption(ctx, id.UserID); err != nil {
		slog.Warn("orchestrator: recording consumption failed", "user_id", id.UserID, "error", err)
	}

	if s.deps.Usage != nil {
		if err := s.deps.Usage.RecordUsage(ctx, id.UserID, j.kind); err != nil {
			slog.Warn("orchestrator: recording usage stats failed", "user_id", id.UserID, "error", err)
		}
	}

	if j.kind == study.KindChat && s.deps.History != nil {
		now := s.now().UTC()
		err := s.deps.History.Append(ctx, id.UserID, j.videoID,
			study.Turn{Role: "user", Content: j.question, Timestamp: now},
			study.Turn{Role: "assistant", Content: raw, Timestamp: now},
		)
		if err != nil {
			slog.Warn("orchestrator: saving chat history failed", "user_id", id.UserID, "error", err)
		}
	}

	metrics.StudyActionsTotal.WithLabelValues(kind, metrics.OutcomeSuccess).Inc()
	return result, nil
}

func (s *Service) transcript(ctx context.Context, videoID string) (string, error) {
	if s.deps.Transcripts == nil {
		return "", &ExternalServiceError{Service: ServiceTranscript, Err: errors.New("transcript service not configured")}
	}
	segments, err := s.deps.Transcripts.FetchTranscript(ctx, videoID)
	if err != nil {
		slog.Error("orchestrator: transcript fetch failed", "video_id", videoID, "error", err)
		return "", &ExternalServiceError{Service: ServiceTranscript, Err: err}
	}
	return transcript.Join(segments, s.cfg.TranscriptMaxChars), nil
}

func (s *Service) invalid(kind study.Kind, err *ValidationError) error {
	metrics.StudyActionsTotal.WithLabelValues(string(kind), metrics.OutcomeInvalid).Inc()
	return err
}
