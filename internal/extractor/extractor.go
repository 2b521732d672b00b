// Package extractor pulls optional structured attributes out of a prompt.
// Extraction is independent of the classified intent.
package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/af-corp/imagerouter/internal/lexicon"
	"github.com/af-corp/imagerouter/internal/types"
)

// Grade patterns overlap, so order matters: first match wins.
var gradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\s+grade\b`),
	regexp.MustCompile(`(?i)\bgrade\s+\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\.\s*klasse\b`),
	regexp.MustCompile(`(?i)\bklasse\s+\d{1,2}\b`),
	regexp.MustCompile(`(?i)\bfür\s+die\s+\d{1,2}\s*klasse\b`),
	regexp.MustCompile(`(?i)\b(?:grundschule|gymnasium|realschule)\b`),
}

var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`["„“”]([^"„“”]+)["“”]`),
	regexp.MustCompile(`(?i)\bof\s+([^.,;:!?\n]+)`),
	regexp.MustCompile(`(?i)\bvon\s+([^.,;:!?\n]+)`),
}

// subjectStops end a captured subject where the audience or style begins.
var subjectStops = []string{" for ", " für ", " zur ", " zum ", " in the style", " im stil", " als ", " as a "}

type term struct {
	match   string
	display string
}

// Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	topics []term
	styles []term
}

func New(lex lexicon.Lexicon) *Extractor {
	return &Extractor{
		topics: terms(lex.Topics),
		styles: terms(lex.Styles),
	}
}

// Extract fills whatever fields the prompt supports. When the prompt names no
// topic, the teacher's first subject is used instead.
func (e *Extractor) Extract(prompt string, tc *types.TeacherContext) types.ExtractedEntities {
	lower := strings.ToLower(prompt)

	ent := types.ExtractedEntities{
		Subject:    Subject(prompt),
		GradeLevel: GradeLevel(prompt),
		Topic:      firstTerm(lower, e.topics),
		Style:      firstTerm(lower, e.styles),
	}
	if ent.Topic == "" && tc != nil {
		ent.Topic = contextTopic(tc)
	}
	return ent
}

// GradeLevel returns the first grade expression in prompt, as written.
func GradeLevel(prompt string) string {
	for _, re := range gradePatterns {
		if m := re.FindString(prompt); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// Subject returns quoted text, else the phrase after "of", else after "von".
func Subject(prompt string) string {
	for _, re := range subjectPatterns {
		m := re.FindStringSubmatch(prompt)
		if len(m) < 2 {
			continue
		}
		if s := cutAtStop(m[1]); s != "" {
			return s
		}
	}
	return ""
}

func cutAtStop(s string) string {
	lower := strings.ToLower(s)
	end := len(s)
	for _, stop := range subjectStops {
		if i := strings.Index(lower, stop); i >= 0 && i < end {
			end = i
		}
	}
	// ToLower can change byte lengths for a few runes; fall back to the full capture.
	if len(lower) != len(s) {
		end = len(s)
	}
	return strings.TrimSpace(s[:end])
}

func firstTerm(lower string, vocab []term) string {
	for _, t := range vocab {
		if strings.Contains(lower, t.match) {
			return t.display
		}
	}
	return ""
}

func contextTopic(tc *types.TeacherContext) string {
	for _, s := range tc.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			return capitalize(strings.ToLower(s))
		}
	}
	return ""
}

func terms(words []string) []term {
	out := make([]term, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		out = append(out, term{match: w, display: capitalize(w)})
	}
	return out
}

func capitalize(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}
