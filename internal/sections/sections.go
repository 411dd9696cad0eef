// Package sections holds the header vocabulary shared by the prompt templates
// and the response parser. A header rendered into a template must be listed
// here, and the parser only looks for headers listed here.
package sections

// Marker precedes every header in a model reply.
const Marker = "### "

// Header is the word (or words) that follows Marker at the start of a section.
type Header string

const (
	SimpleExplanation  Header = "Simple Explanation"
	InDepthExplanation Header = "In-Depth Explanation"
	KeyConcepts        Header = "Key Concepts or Formulas"
	Applications       Header = "Real-World Applications or Examples"
	Flashcards         Header = "Flashcards"
	ExamTips           Header = "Exam Tips"
	Resources          Header = "Resources"
	Summary            Header = "Summary"
	Analogy            Header = "Analogy"
	Notes              Header = "Notes"
	Keywords           Header = "Keywords"
	Solution           Header = "Solution"
)

var all = []Header{
	SimpleExplanation,
	InDepthExplanation,
	KeyConcepts,
	Applications,
	Flashcards,
	ExamTips,
	Resources,
	Summary,
	Analogy,
	Notes,
	Keywords,
	Solution,
}

// All returns every known header in declaration order.
func All() []Header {
	out := make([]Header, len(all))
	copy(out, all)
	return out
}

// Known reports whether name is part of the vocabulary.
func Known(name string) bool {
	for _, h := range all {
		if string(h) == name {
			return true
		}
	}
	return false
}

// Line renders the header as it appears in a reply, e.g. "### Solution".
func (h Header) Line() string {
	return Marker + string(h)
}
