// Package lexicon holds the keyword and vocabulary lists the classifier and the
// entity extractor match prompts against.
package lexicon

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var embeddedDefault []byte

// SourceEmbedded is reported as Source for the lexicon compiled into the binary.
const SourceEmbedded = "embedded"

// Lexicon is a set of lower-case match lists. Values returned by this package
// are never modified afterwards; consumers copy what they keep.
type Lexicon struct {
	PriorityPhrases []string `yaml:"priority_phrases"`
	CreateKeywords  []string `yaml:"create_keywords"`
	EditKeywords    []string `yaml:"edit_keywords"`
	Topics          []string `yaml:"topics"`
	Styles          []string `yaml:"styles"`

	// Source is "embedded" or the file path the lexicon was read from.
	Source string `yaml:"-"`
}

var defaultLexicon = mustParse(embeddedDefault)

func mustParse(data []byte) Lexicon {
	lex, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded default: %v", err))
	}
	lex.Source = SourceEmbedded
	return lex
}

// Default returns a copy of the embedded bilingual lexicon.
func Default() Lexicon {
	return defaultLexicon.Clone()
}

// Parse decodes and validates a YAML lexicon. Entries are trimmed and lower-cased.
func Parse(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("decoding lexicon: %w", err)
	}
	lex = lex.normalized()
	if err := lex.Validate(); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}

// Load reads a lexicon file. Lists missing from the file are taken from the
// embedded default, so a locale file may only override the keyword lists.
func Load(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("reading lexicon %s: %w", path, err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("decoding lexicon %s: %w", path, err)
	}
	lex = lex.normalized().withDefaults(defaultLexicon)
	if err := lex.Validate(); err != nil {
		return Lexicon{}, fmt.Errorf("lexicon %s: %w", path, err)
	}
	lex.Source = path
	return lex, nil
}

// Validate rejects empty keyword lists and blank entries.
func (l Lexicon) Validate() error {
	var errs []error
	check := func(name string, list []string, required bool) {
		if required && len(list) == 0 {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		}
		for i, entry := range list {
			if strings.TrimSpace(entry) == "" {
				errs = append(errs, fmt.Errorf("%s[%d] is blank", name, i))
			}
		}
	}
	check("priority_phrases", l.PriorityPhrases, false)
	check("create_keywords", l.CreateKeywords, true)
	check("edit_keywords", l.EditKeywords, true)
	check("topics", l.Topics, false)
	check("styles", l.Styles, false)
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (l Lexicon) Clone() Lexicon {
	return Lexicon{
		PriorityPhrases: clone(l.PriorityPhrases),
		CreateKeywords:  clone(l.CreateKeywords),
		EditKeywords:    clone(l.EditKeywords),
		Topics:          clone(l.Topics),
		Styles:          clone(l.Styles),
		Source:          l.Source,
	}
}

func (l Lexicon) normalized() Lexicon {
	return Lexicon{
		PriorityPhrases: lower(l.PriorityPhrases),
		CreateKeywords:  lower(l.CreateKeywords),
		EditKeywords:    lower(l.EditKeywords),
		Topics:          lower(l.Topics),
		Styles:          lower(l.Styles),
		Source:          l.Source,
	}
}

func (l Lexicon) withDefaults(d Lexicon) Lexicon {
	if l.PriorityPhrases == nil {
		l.PriorityPhrases = clone(d.PriorityPhrases)
	}
	if l.CreateKeywords == nil {
		l.CreateKeywords = clone(d.CreateKeywords)
	}
	if l.EditKeywords == nil {
		l.EditKeywords = clone(d.EditKeywords)
	}
	if l.Topics == nil {
		l.Topics = clone(d.Topics)
	}
	if l.Styles == nil {
		l.Styles = clone(d.Styles)
	}
	return l
}

func lower(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
