// Package study defines the request vocabulary shared by the prompt registry,
// the response parser and the orchestrator.
package study

import (
	"strings"
	"time"
)

// Kind selects the prompt family and the shape of the parsed result.
type Kind string

const (
	KindExplanation Kind = "explanation"
	KindSolution    Kind = "solution"
	KindSummary     Kind = "summary"
	KindChat        Kind = "chat"
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindExplanation, KindSolution, KindSummary, KindChat:
		return true
	}
	return false
}

// Category picks exam-branded phrasing for solutions.
type Category string

const (
	CategoryGeneric Category = "generic"
	CategoryUPSC    Category = "upsc"
	CategoryGATE    Category = "gate"
	CategoryRRB     Category = "rrb"
)

// ParseCategory lower-cases s and maps anything that is not an exam category to generic.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryUPSC, CategoryGATE, CategoryRRB:
		return c
	}
	return CategoryGeneric
}

// Style selects the solution template within a category.
type Style string

const (
	StyleSmart    Style = "smart"
	StyleStep     Style = "step"
	StyleTeacher  Style = "teacher"
	StyleResearch Style = "research"
	StyleDefault  Style = "default"
)

// ParseStyle lower-cases s. Unknown styles are kept as given so the fallback
// prompt can echo them; an empty style becomes StyleDefault.
func ParseStyle(s string) Style {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StyleDefault
	}
	return Style(s)
}

// Canonical reports whether s has a dedicated solution template.
func (s Style) Canonical() bool {
	switch s {
	case StyleSmart, StyleStep, StyleTeacher, StyleResearch:
		return true
	}
	return false
}

// Turn is one message of a chat conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity is the caller on whose behalf a paid action runs.
type Identity struct {
	UserID string
	Email  string
}
