package classifier

import (
	"math"
	"unicode/utf8"

	"github.com/af-corp/imagerouter/internal/types"
)

const (
	PriorityConfidence      = 0.95
	UnknownConfidence       = 0.3
	NearTieEditConfidence   = 0.75
	DefaultCreateConfidence = 0.7
	OverrideConfidence      = 1.0

	dominanceRatio      = 1.3
	baseConfidence      = 0.8
	confidencePerPoint  = 0.03
	maxScoredConfidence = 0.98

	longKeywordRunes  = 10
	longKeywordWeight = 1.5
	keywordWeight     = 1.0
)

// Basis is the branch of the decision table a score pair fell into.
type Basis int

const (
	BasisNoKeywords Basis = iota
	BasisCreateDominant
	BasisEditDominant
	BasisEditNearTie
	BasisCreateDefault
)

// KeywordWeight is 1.5 for keywords longer than ten characters, else 1.0.
func KeywordWeight(keyword string) float64 {
	if utf8.RuneCountInString(keyword) > longKeywordRunes {
		return longKeywordWeight
	}
	return keywordWeight
}

// Confidence maps the winning side's score to min(0.8 + 0.03*score, 0.98).
func Confidence(score float64) float64 {
	return math.Min(baseConfidence+score*confidencePerPoint, maxScoredConfidence)
}

// Calibrate turns the two keyword scores into an intent and a confidence.
// A side wins outright only when it exceeds 1.3 times the other; otherwise an
// edit lead yields edit_image at 0.75 and everything else, exact ties included,
// yields create_image at 0.7.
func Calibrate(createScore, editScore float64) (types.Intent, float64, Basis) {
	switch {
	case createScore == 0 && editScore == 0:
		return types.IntentUnknown, UnknownConfidence, BasisNoKeywords
	case createScore > editScore*dominanceRatio:
		return types.IntentCreateImage, Confidence(createScore), BasisCreateDominant
	case editScore > createScore*dominanceRatio:
		return types.IntentEditImage, Confidence(editScore), BasisEditDominant
	case editScore > createScore:
		return types.IntentEditImage, NearTieEditConfidence, BasisEditNearTie
	default:
		return types.IntentCreateImage, DefaultCreateConfidence, BasisCreateDefault
	}
}
