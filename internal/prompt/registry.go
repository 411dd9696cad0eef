// Package prompt renders the text sent to the completion service. Templates
// live in templates.yaml and are compiled once at startup; rendering never
// fails, falling back to a short generic prompt when no template matches.
package prompt

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/vikal-platform/vikal/internal/sections"
	"github.com/vikal-platform/vikal/internal/study"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// Request carries everything a template may reference.
type Request struct {
	Category   study.Category
	Kind       study.Kind
	Style      study.Style
	Subject    string
	Transcript string
	History    []study.Turn
}

type entry struct {
	MaxWords int    `yaml:"max_words"`
	Text     string `yaml:"text"`
}

type templateFile struct {
	Explanation entry                                   `yaml:"explanation"`
	Summary     entry                                   `yaml:"summary"`
	Chat        entry                                   `yaml:"chat"`
	Solution    map[study.Category]map[study.Style]entry `yaml:"solution"`
}

type compiled struct {
	tmpl     *template.Template
	maxWords int
}

type data struct {
	Subject    string
	Transcript string
	Style      study.Style
	MaxWords   int
	History    []study.Turn
}

// Registry holds the compiled templates.
type Registry struct {
	explanation compiled
	summary     compiled
	chat        compiled
	solution    map[study.Category]map[study.Style]compiled
}

// NewRegistry loads the templates compiled into the binary.
func NewRegistry() (*Registry, error) {
	return Load(embeddedTemplates)
}

// Load parses a templates document. Every template is executed once with
// sample data so that unknown headers or broken actions fail here instead
// of at request time.
func Load(raw []byte) (*Registry, error) {
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	r := &Registry{solution: make(map[study.Category]map[study.Style]compiled)}

	var err error
	if r.explanation, err = compile("explanation", f.Explanation); err != nil {
		return nil, err
	}
	if r.summary, err = compile("summary", f.Summary); err != nil {
		return nil, err
	}
	if r.chat, err = compile("chat", f.Chat); err != nil {
		return nil, err
	}

	if _, ok := f.Solution[study.CategoryGeneric]; !ok {
		return nil, fmt.Errorf("templates: solution.generic is required")
	}
	for category, styles := range f.Solution {
		if study.ParseCategory(string(category)) != category {
			return nil, fmt.Errorf("templates: unknown solution category %q", category)
		}
		r.solution[category] = make(map[study.Style]compiled, len(styles))
		for style, e := range styles {
			if !style.Canonical() {
				return nil, fmt.Errorf("templates: unknown solution style %q in %s", style, category)
			}
			c, err := compile(fmt.Sprintf("solution.%s.%s", category, style), e)
			if err != nil {
				return nil, err
			}
			r.solution[category][style] = c
		}
	}

	return r, nil
}

var funcs = template.FuncMap{
	"header": func(name string) (string, error) {
		if !sections.Known(name) {
			return "", fmt.Errorf("unknown section header %q", name)
		}
		return sections.Header(name).Line(), nil
	},
}

func compile(name string, e entry) (compiled, error) {
	if strings.TrimSpace(e.Text) == "" {
		return compiled{}, fmt.Errorf("templates: %s has no text", name)
	}
	if e.MaxWords <= 0 {
		return compiled{}, fmt.Errorf("templates: %s needs a positive max_words", name)
	}

	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(e.Text)
	if err != nil {
		return compiled{}, fmt.Errorf("templates: parsing %s: %w", name, err)
	}

	sample := data{
		Subject:    "sample",
		Transcript: "sample transcript",
		Style:      study.StyleSmart,
		MaxWords:   e.MaxWords,
		History:    []study.Turn{{Role: "user", Content: "hi"}},
	}
	if err := t.Execute(&strings.Builder{}, sample); err != nil {
		return compiled{}, fmt.Errorf("templates: executing %s: %w", name, err)
	}

	return compiled{tmpl: t, maxWords: e.MaxWords}, nil
}

// Render returns the prompt for req. It never fails. Category and style are
// matched case-insensitively.
func (r *Registry) Render(req Request) string {
	style := study.ParseStyle(string(req.Style))

	switch req.Kind {
	case study.KindExplanation:
		return r.execute(r.explanation, req, style)
	case study.KindSummary:
		if strings.TrimSpace(req.Transcript) == "" {
			return fallback(req.Subject, style)
		}
		return r.execute(r.summary, req, style)
	case study.KindChat:
		return r.execute(r.chat, req, style)
	}

	// Solutions and anything unrecognised.
	styles, ok := r.solution[study.ParseCategory(string(req.Category))]
	if !ok {
		styles = r.solution[study.CategoryGeneric]
	}
	c, ok := styles[style]
	if !ok {
		return fallback(req.Subject, style)
	}
	return r.execute(c, req, style)
}

// MaxWords reports the reply budget the template chosen for req declares,
// or 0 when req renders the fallback prompt.
func (r *Registry) MaxWords(req Request) int {
	switch req.Kind {
	case study.KindExplanation:
		return r.explanation.maxWords
	case study.KindSummary:
		if strings.TrimSpace(req.Transcript) == "" {
			return 0
		}
		return r.summary.maxWords
	case study.KindChat:
		return r.chat.maxWords
	}
	styles, ok := r.solution[study.ParseCategory(string(req.Category))]
	if !ok {
		styles = r.solution[study.CategoryGeneric]
	}
	return styles[study.ParseStyle(string(req.Style))].maxWords
}

func (r *Registry) execute(c compiled, req Request, style study.Style) string {
	var b strings.Builder
	err := c.tmpl.Execute(&b, data{
		Subject:    req.Subject,
		Transcript: req.Transcript,
		Style:      style,
		MaxWords:   c.maxWords,
		History:    req.History,
	})
	if err != nil {
		slog.Warn("prompt: template execution failed, using fallback",
			"template", c.tmpl.Name(), "error", err)
		return fallback(req.Subject, style)
	}
	return b.String()
}

func fallback(subject string, style study.Style) string {
	return fmt.Sprintf("Solve %s with style %s.", subject, style)
}
