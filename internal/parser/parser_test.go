package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikal-platform/vikal/internal/study"
)

func TestParseSolution_HeadersAndResources(t *testing.T) {
	raw := "### Solution\nUse V=IR.\n### Resources\nBook A - http://a\nSite B"

	got := ParseSolution(raw)

	assert.Equal(t, "Use V=IR.", got.Notes)
	assert.Equal(t, []Resource{
		{Title: "Book A", URL: "http://a"},
		{Title: "Site B", URL: "Site B"},
	}, got.Resources)
	assert.Empty(t, got.ExamTips)
}

func TestParseExplanation_NoMarkers(t *testing.T) {
	got := ParseExplanation("The model ignored the format entirely.")

	assert.Equal(t, "", got.Notes)
	assert.NotNil(t, got.Flashcards)
	assert.Empty(t, got.Flashcards)
	assert.NotNil(t, got.Resources)
	assert.Empty(t, got.Resources)
	assert.NotNil(t, got.ExamTips)
}

func TestParse_NoMarkersDefaults(t *testing.T) {
	inputs := []string{"", "plain text", "## almost a header\nbody", "###Solution no space"}

	for _, raw := range inputs {
		sol := ParseSolution(raw)
		assert.Equal(t, raw, sol.Notes, "solution notes fall back to raw for %q", raw)
		assert.Empty(t, sol.Resources)

		exp := ParseExplanation(raw)
		assert.Equal(t, "", exp.Notes)
		assert.Empty(t, exp.Flashcards)
		assert.Empty(t, exp.Resources)

		sum := ParseSummary(raw)
		assert.Equal(t, "\n\nAnalogy: \n\nKey Points:\n", sum.Notes)
		assert.Empty(t, sum.Keywords)
		assert.Empty(t, sum.Flashcards)
	}
}

func TestParseSolution_MarkersWithoutSolutionHeader(t *testing.T) {
	got := ParseSolution("intro\n### Exam Tips\nCheck units")

	assert.Equal(t, "", got.Notes)
	assert.Equal(t, []string{"Check units"}, got.ExamTips)
}

func TestResources_SeparatorSplitsOnFirstOccurrence(t *testing.T) {
	tests := []struct {
		line  string
		title string
		url   string
	}{
		{"Book A - http://a", "Book A", "http://a"},
		{"A - B - C", "A", "B - C"},
		{"NCERT Physics", "NCERT Physics", "NCERT Physics"},
		{"dash-without-spaces", "dash-without-spaces", "dash-without-spaces"},
		{"  Indented - http://x", "  Indented", "http://x"},
		{"Trailing -", "Trailing -", "Trailing -"},
		{" - http://only-url", "", "http://only-url"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := resources(tt.line, maxSolutionResources)
			require.Len(t, got, 1)
			assert.Equal(t, tt.title, got[0].Title)
			assert.Equal(t, tt.url, got[0].URL)
		})
	}
}

func TestResources_SkipsBlankLinesAndCaps(t *testing.T) {
	raw := "### Resources\nA - 1\n\n  \nB - 2\r\nC - 3\nD - 4\nE - 5\nF - 6"

	sol := ParseSolution(raw)
	require.Len(t, sol.Resources, 5)
	assert.Equal(t, Resource{Title: "B", URL: "2"}, sol.Resources[1])
	assert.Equal(t, "E", sol.Resources[4].Title)

	exp := ParseExplanation(raw)
	require.Len(t, exp.Resources, 3)
	assert.Equal(t, "C", exp.Resources[2].Title)
}

func TestParseExplanation_FoldsNotesAndCapsFlashcards(t *testing.T) {
	raw := "Sure! Here you go.\n" +
		"### Simple Explanation\nCurrent is flow of charge.\n\n" +
		"### Flashcards\nQ1? A1.\nQ2? A2.\nQ3? A3.\nQ4? A4.\nQ5? A5.\nQ6? A6.\n" +
		"### In-Depth Explanation\nElectrons drift.\n" +
		"### Resources\nHC Verma - https://example.com/hcv\n" +
		"### Exam Tips\nMind the units\nDraw the circuit\n"

	got := ParseExplanation(raw)

	assert.Equal(t,
		"Simple Explanation\nCurrent is flow of charge.\n\nIn-Depth Explanation\nElectrons drift.\n\nExam Tips\nMind the units\nDraw the circuit",
		got.Notes)
	assert.Equal(t, []string{"Q1? A1.", "Q2? A2.", "Q3? A3.", "Q4? A4.", "Q5? A5."}, got.Flashcards)
	assert.Equal(t, []Resource{{Title: "HC Verma", URL: "https://example.com/hcv"}}, got.Resources)
	assert.Equal(t, []string{"Mind the units", "Draw the circuit"}, got.ExamTips)
}

func TestParseExplanation_ReorderedHeaders(t *testing.T) {
	raw := "### Resources\nX - y\n### Flashcards\nQ? A.\n### Key Concepts or Formulas\nV=IR"

	got := ParseExplanation(raw)

	assert.Equal(t, "Key Concepts or Formulas\nV=IR", got.Notes)
	assert.Equal(t, []string{"Q? A."}, got.Flashcards)
	assert.Equal(t, []Resource{{Title: "X", URL: "y"}}, got.Resources)
}

func TestParseSummary_CompositeNotes(t *testing.T) {
	raw := "### Summary\nDNS maps names to addresses.\n" +
		"### Analogy\nA phone book.\n" +
		"### Notes\n" +
		"📌 one\n📌 two\n📌 three\n📌 four\n📌 five\n📌 six\n📌 seven\n📌 eight\n📌 nine\n📌 ten\n📌 eleven\n" +
		"### Keywords\nTTL - time to live\nNS - name server\n" +
		"### Exam Tips\nKnow the record types\n"

	got := ParseSummary(raw)

	assert.Equal(t,
		"DNS maps names to addresses.\n\nAnalogy: A phone book.\n\nKey Points:\n"+
			"📌 one\n📌 two\n📌 three\n📌 four\n📌 five\n📌 six\n📌 seven\n📌 eight\n📌 nine\n📌 ten",
		got.Notes)
	assert.Equal(t, []string{"TTL - time to live", "NS - name server"}, got.Keywords)
	assert.Equal(t, []string{"Know the record types"}, got.ExamTips)
	assert.Empty(t, got.Flashcards)
	assert.Empty(t, got.Resources)
}

func TestParseSummary_MissingAnalogyKeepsShape(t *testing.T) {
	got := ParseSummary("### Notes\n- a\n### Summary\nShort.")

	assert.Equal(t, "Short.\n\nAnalogy: \n\nKey Points:\n- a", got.Notes)
}

func TestLines_KeepsInteriorBlankLines(t *testing.T) {
	got := ParseExplanation("### Flashcards\n\nQ1? A1.\n\nQ2? A2.\n\n")

	assert.Equal(t, []string{"Q1? A1.", "", "Q2? A2."}, got.Flashcards)
}

// Matching is by prefix: a segment whose first word extends a header name
// is attributed to that header.
func TestParse_PrefixMatchMisattributes(t *testing.T) {
	raw := "### Resources for practice\nBook A - http://a\n### Resources\nBook B - http://b"

	got := ParseSolution(raw)

	assert.Equal(t, []Resource{
		{Title: "for practice", URL: "for practice"},
		{Title: "Book A", URL: "http://a"},
	}, got.Resources)

	sol := ParseSolution("### Solutions manual\nsee chapter 3")
	assert.Equal(t, "s manual\nsee chapter 3", sol.Notes)
}

func TestParse_FirstMatchingSegmentWins(t *testing.T) {
	got := ParseSolution("### Solution\nfirst\n### Solution\nsecond")

	assert.Equal(t, "first", got.Notes)
}

func TestParse_DispatchesOnKind(t *testing.T) {
	raw := "### Solution\nx = 2"

	assert.IsType(t, Explanation{}, Parse(study.KindExplanation, raw))
	assert.IsType(t, Summary{}, Parse(study.KindSummary, raw))
	assert.IsType(t, Solution{}, Parse(study.KindSolution, raw))
	assert.IsType(t, Solution{}, Parse("unknown", raw))

	chat := Parse(study.KindChat, raw)
	assert.Equal(t, Chat{ResponseText: raw}, chat)
	assert.Equal(t, study.KindChat, chat.Kind())
}

func TestParse_EmptyCollectionsEncodeAsArrays(t *testing.T) {
	b, err := json.Marshal(ParseExplanation(""))
	require.NoError(t, err)

	assert.JSONEq(t, `{"notes":"","flashcards":[],"resources":[],"exam_tips":[]}`, string(b))
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{"Resources", "Exam Tips"}, Missing(study.KindSolution, "### Solution\nx"))
	assert.Nil(t, Missing(study.KindSolution, "### Solution\nx\n### Resources\n### Exam Tips\n"))
	assert.Nil(t, Missing(study.KindChat, "anything"))
	assert.Len(t, Missing(study.KindSummary, "no headers"), 7)
}
