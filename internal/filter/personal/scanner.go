package personal

import (
	"context"
	"fmt"
	"strings"

	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/filter"
)

// Detection represents detected personal data in text.
type Detection struct {
	PatternName string
	Start       int
	End         int
}

// Scanner blocks prompts that carry personal data about pupils or staff.
type Scanner struct {
	patterns []Pattern
	cfg      func() config.PersonalFilterConfig
}

// NewScanner creates a scanner with the default patterns.
func NewScanner(cfg func() config.PersonalFilterConfig) *Scanner {
	return &Scanner{patterns: DefaultPatterns(), cfg: cfg}
}

func (s *Scanner) Name() string  { return "personal" }
func (s *Scanner) Enabled() bool { return s.cfg().Enabled }

// Scan checks a single text string and returns all detections.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			if p.Valid != nil && !p.Valid(text[loc[0]:loc[1]]) {
				continue
			}
			detections = append(detections, Detection{
				PatternName: p.Name,
				Start:       loc[0],
				End:         loc[1],
			})
		}
	}
	return detections
}

// ScanRequest implements filter.Filter.
func (s *Scanner) ScanRequest(_ context.Context, req *filter.Request) filter.Result {
	detections := s.Scan(req.Prompt)
	if len(detections) == 0 {
		return filter.Result{Action: filter.ActionPass, FilterName: s.Name()}
	}

	seen := make(map[string]bool)
	var kinds []string
	for _, d := range detections {
		if !seen[d.PatternName] {
			seen[d.PatternName] = true
			kinds = append(kinds, d.PatternName)
		}
	}
	return filter.Result{
		Action:     filter.ActionBlock,
		FilterName: s.Name(),
		Message:    fmt.Sprintf("Prompt contains personal data: %s", strings.Join(kinds, ", ")),
		Detections: len(detections),
		Score:      1,
	}
}
