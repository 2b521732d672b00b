package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/af-corp/imagerouter/internal/lexicon"
	"github.com/af-corp/imagerouter/internal/types"
)

type keyword struct {
	text   string
	weight float64
}

// RuleClassifier is the deterministic keyword scorer. It is immutable after
// construction.
type RuleClassifier struct {
	priority []string
	create   []keyword
	edit     []keyword
}

var _ Classifier = (*RuleClassifier)(nil)

// NewRuleClassifier copies the keyword lists out of lex.
func NewRuleClassifier(lex lexicon.Lexicon) *RuleClassifier {
	return &RuleClassifier{
		priority: lowered(lex.PriorityPhrases),
		create:   weighted(lex.CreateKeywords),
		edit:     weighted(lex.EditKeywords),
	}
}

func (c *RuleClassifier) Classify(_ context.Context, prompt string) Decision {
	return c.Decide(prompt)
}

// Decide classifies a prompt without any I/O.
func (c *RuleClassifier) Decide(prompt string) Decision {
	lower := strings.ToLower(prompt)

	for _, phrase := range c.priority {
		if strings.Contains(lower, phrase) {
			return Decision{
				Intent:     types.IntentEditImage,
				Confidence: PriorityConfidence,
				Reasoning:  fmt.Sprintf("Priority phrase %q refers to an existing image", phrase),
				Source:     SourceRules,
			}
		}
	}

	createScore, createHits := score(lower, c.create)
	editScore, editHits := score(lower, c.edit)

	intent, confidence, basis := Calibrate(createScore, editScore)
	return Decision{
		Intent:     intent,
		Confidence: confidence,
		Reasoning:  reasoning(basis, createHits, editHits),
		Source:     SourceRules,
	}
}

func score(lower string, keywords []keyword) (float64, int) {
	var total float64
	var hits int
	for _, kw := range keywords {
		if strings.Contains(lower, kw.text) {
			total += kw.weight
			hits++
		}
	}
	return total, hits
}

func reasoning(basis Basis, createHits, editHits int) string {
	switch basis {
	case BasisNoKeywords:
		return "No keywords found"
	case BasisCreateDominant:
		return fmt.Sprintf("Found %d creation keywords", createHits)
	case BasisEditDominant:
		return fmt.Sprintf("Found %d editing keywords", editHits)
	case BasisEditNearTie:
		return fmt.Sprintf("Found %d editing keywords against %d creation keywords", editHits, createHits)
	default:
		return fmt.Sprintf("Found %d creation keywords against %d editing keywords, defaulting to creation", createHits, editHits)
	}
}

func lowered(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func weighted(in []string) []keyword {
	list := lowered(in)
	out := make([]keyword, len(list))
	for i, s := range list {
		out[i] = keyword{text: s, weight: KeywordWeight(s)}
	}
	return out
}
