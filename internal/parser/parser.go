// Package parser turns a model's free-text reply into typed study results.
//
// A reply is split on the header marker ("### "). Each expected header is
// matched against the first segment that starts with its name. Matching is a
// plain prefix check, so a segment whose body happens to begin with a
// different header's name is attributed to that header. Absent sections
// produce empty values; parsing never fails.
package parser

import (
	"strings"

	"github.com/vikal-platform/vikal/internal/sections"
	"github.com/vikal-platform/vikal/internal/study"
)

const (
	maxFlashcards         = 5
	maxNoteBullets        = 10
	maxResources          = 3
	maxSolutionResources  = 5
	resourceSeparator     = " - "
	summaryAnalogyLabel   = "Analogy: "
	summaryKeyPointsLabel = "Key Points:\n"
)

// Resource is a titled link recommended by the model.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Result is implemented by the per-kind result types.
type Result interface {
	Kind() study.Kind
}

type Explanation struct {
	Notes      string     `json:"notes"`
	Flashcards []string   `json:"flashcards"`
	Resources  []Resource `json:"resources"`
	ExamTips   []string   `json:"exam_tips"`
}

type Summary struct {
	Notes      string     `json:"notes"`
	Flashcards []string   `json:"flashcards"`
	Resources  []Resource `json:"resources"`
	Keywords   []string   `json:"keywords"`
	ExamTips   []string   `json:"exam_tips"`
}

type Solution struct {
	Notes     string     `json:"notes"`
	Resources []Resource `json:"resources"`
	ExamTips  []string   `json:"exam_tips"`
}

type Chat struct {
	ResponseText string `json:"response_text"`
}

func (Explanation) Kind() study.Kind { return study.KindExplanation }
func (Summary) Kind() study.Kind     { return study.KindSummary }
func (Solution) Kind() study.Kind    { return study.KindSolution }
func (Chat) Kind() study.Kind        { return study.KindChat }

// Parse dispatches on kind. Unknown kinds are parsed as solutions.
func Parse(kind study.Kind, raw string) Result {
	switch kind {
	case study.KindExplanation:
		return ParseExplanation(raw)
	case study.KindSummary:
		return ParseSummary(raw)
	case study.KindChat:
		return Chat{ResponseText: raw}
	default:
		return ParseSolution(raw)
	}
}

func ParseExplanation(raw string) Explanation {
	segs := segments(raw)

	var notes []string
	for _, s := range segs {
		if strings.HasPrefix(s, string(sections.Flashcards)) || strings.HasPrefix(s, string(sections.Resources)) {
			continue
		}
		notes = append(notes, strings.TrimSpace(s))
	}

	return Explanation{
		Notes:      strings.Join(notes, "\n\n"),
		Flashcards: lines(section(segs, sections.Flashcards), maxFlashcards),
		Resources:  resources(section(segs, sections.Resources), maxResources),
		ExamTips:   lines(section(segs, sections.ExamTips), 0),
	}
}

// ParseSummary always builds notes in the same three-part shape, even when
// some of the parts are missing from the reply.
func ParseSummary(raw string) Summary {
	segs := segments(raw)

	bullets := lines(section(segs, sections.Notes), maxNoteBullets)
	notes := section(segs, sections.Summary) +
		"\n\n" + summaryAnalogyLabel + section(segs, sections.Analogy) +
		"\n\n" + summaryKeyPointsLabel + strings.Join(bullets, "\n")

	return Summary{
		Notes:      notes,
		Flashcards: lines(section(segs, sections.Flashcards), maxFlashcards),
		Resources:  resources(section(segs, sections.Resources), maxResources),
		Keywords:   lines(section(segs, sections.Keywords), 0),
		ExamTips:   lines(section(segs, sections.ExamTips), 0),
	}
}

// ParseSolution returns the whole reply as notes when it carries no headers at all.
func ParseSolution(raw string) Solution {
	segs := segments(raw)

	notes := section(segs, sections.Solution)
	if !strings.Contains(raw, sections.Marker) {
		notes = raw
	}

	return Solution{
		Notes:     notes,
		Resources: resources(section(segs, sections.Resources), maxSolutionResources),
		ExamTips:  lines(section(segs, sections.ExamTips), 0),
	}
}

// Expected lists the headers the result for kind is built from.
func Expected(kind study.Kind) []sections.Header {
	switch kind {
	case study.KindExplanation:
		return []sections.Header{sections.Flashcards, sections.Resources, sections.ExamTips}
	case study.KindSummary:
		return []sections.Header{
			sections.Summary, sections.Analogy, sections.Notes, sections.Keywords,
			sections.ExamTips, sections.Flashcards, sections.Resources,
		}
	case study.KindChat:
		return nil
	default:
		return []sections.Header{sections.Solution, sections.Resources, sections.ExamTips}
	}
}

// Missing reports which expected headers have no segment in raw.
func Missing(kind study.Kind, raw string) []string {
	segs := segments(raw)
	var missing []string
	for _, h := range Expected(kind) {
		if !found(segs, h) {
			missing = append(missing, string(h))
		}
	}
	return missing
}

// segments drops whatever precedes the first marker.
func segments(raw string) []string {
	parts := strings.Split(raw, sections.Marker)
	return parts[1:]
}

func found(segs []string, h sections.Header) bool {
	for _, s := range segs {
		if strings.HasPrefix(s, string(h)) {
			return true
		}
	}
	return false
}

func section(segs []string, h sections.Header) string {
	for _, s := range segs {
		if strings.HasPrefix(s, string(h)) {
			return strings.TrimSpace(strings.TrimPrefix(s, string(h)))
		}
	}
	return ""
}

// lines splits a trimmed body into at most limit lines; limit 0 means no cap.
func lines(body string, limit int) []string {
	out := []string{}
	if body == "" {
		return out
	}
	for _, l := range strings.Split(body, "\n") {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return out
}

func resources(body string, limit int) []Resource {
	out := []Resource{}
	for _, l := range strings.Split(body, "\n") {
		if len(out) == limit {
			break
		}
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		title, url, ok := strings.Cut(l, resourceSeparator)
		if !ok {
			title, url = l, l
		}
		out = append(out, Resource{Title: title, URL: url})
	}
	return out
}
