// Package classifier decides whether a prompt asks to create an image, edit an
// existing one, or neither.
package classifier

import (
	"context"

	"github.com/af-corp/imagerouter/internal/types"
)

// Source names the path that produced a Decision.
type Source string

const (
	SourceRules    Source = "rules"
	SourceAssisted Source = "assisted"
	// SourceFallback marks a rule decision returned after the assisted path failed.
	SourceFallback Source = "fallback"
	SourceOverride Source = "override"
)

// Decision is a classifier verdict.
type Decision struct {
	Intent     types.Intent
	Confidence float64
	Reasoning  string
	Source     Source
}

// Classifier is the strategy the router is built with. Implementations must be
// safe for concurrent use and must not retain anything derived from the prompt.
type Classifier interface {
	Classify(ctx context.Context, prompt string) Decision
}
