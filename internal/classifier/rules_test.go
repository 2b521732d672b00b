package classifier

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/af-corp/imagerouter/internal/lexicon"
	"github.com/af-corp/imagerouter/internal/types"
)

func TestRuleClassifier_DefaultLexicon(t *testing.T) {
	c := NewRuleClassifier(lexicon.Default())

	tests := []struct {
		name          string
		prompt        string
		intent        types.Intent
		minConfidence float64
		reasoning     string
	}{
		{
			name:          "english create",
			prompt:        "Create an image of a cat sitting on a tree",
			intent:        types.IntentCreateImage,
			minConfidence: 0.9,
			reasoning:     "Found 3 creation keywords",
		},
		{
			name:          "english edit via priority phrase",
			prompt:        "Edit the image to remove the background",
			intent:        types.IntentEditImage,
			minConfidence: 0.95,
		},
		{
			name:          "german create",
			prompt:        "Erstelle ein Bild für 7. Klasse zur Photosynthese",
			intent:        types.IntentCreateImage,
			minConfidence: 0.9,
		},
		{
			name:          "priority phrase beats creation verbs",
			prompt:        "Ändere das vorhandene Bild und male einen Drachen",
			intent:        types.IntentEditImage,
			minConfidence: 0.95,
		},
		{
			name:          "upper case prompt",
			prompt:        "DRAW A DIAGRAM OF THE MOON PHASES",
			intent:        types.IntentCreateImage,
			minConfidence: 0.8,
		},
		{
			name:          "edit keywords only",
			prompt:        "Entferne den Hintergrund",
			intent:        types.IntentEditImage,
			minConfidence: 0.8,
			reasoning:     "Found 2 editing keywords",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Decide(tt.prompt)
			assert.Equal(t, tt.intent, d.Intent)
			assert.GreaterOrEqual(t, d.Confidence, tt.minConfidence)
			assert.LessOrEqual(t, d.Confidence, 1.0)
			assert.Equal(t, SourceRules, d.Source)
			if tt.reasoning != "" {
				assert.Equal(t, tt.reasoning, d.Reasoning)
			}
		})
	}
}

func TestRuleClassifier_NoKeywords(t *testing.T) {
	c := NewRuleClassifier(lexicon.Default())

	d := c.Decide("Tell me about mathematics formulas")
	assert.Equal(t, types.IntentUnknown, d.Intent)
	assert.Equal(t, 0.3, d.Confidence)
	assert.Equal(t, "No keywords found", d.Reasoning)
}

func TestRuleClassifier_PriorityReasoningNamesPhrase(t *testing.T) {
	c := NewRuleClassifier(lexicon.Default())

	d := c.Decide("Mache es bunter")
	assert.Equal(t, types.IntentEditImage, d.Intent)
	assert.Equal(t, PriorityConfidence, d.Confidence)
	assert.Contains(t, d.Reasoning, `"mache es"`)
}

func TestRuleClassifier_Weights(t *testing.T) {
	c := NewRuleClassifier(lexicon.Lexicon{
		CreateKeywords: []string{"zeichne"},
		EditKeywords:   []string{"verschönere das bild"},
	})

	// 1.5 (long keyword) against 1.0 exceeds the 1.3 ratio.
	d := c.Decide("Zeichne und verschönere das Bild")
	assert.Equal(t, types.IntentEditImage, d.Intent)
	assert.InDelta(t, 0.845, d.Confidence, 1e-9)
}

func TestRuleClassifier_TieBreaks(t *testing.T) {
	c := NewRuleClassifier(lexicon.Lexicon{
		CreateKeywords: []string{"draw"},
		EditKeywords:   []string{"blur", "crop"},
	})

	tie := c.Decide("draw and blur")
	assert.Equal(t, types.IntentCreateImage, tie.Intent)
	assert.Equal(t, DefaultCreateConfidence, tie.Confidence)

	editLead := NewRuleClassifier(lexicon.Lexicon{
		CreateKeywords: []string{"draw", "sketch", "paint"},
		EditKeywords:   []string{"blur", "crop", "retouch the photo"},
	}).Decide("draw, sketch and paint, then blur, crop and retouch the photo")
	assert.Equal(t, types.IntentEditImage, editLead.Intent)
	assert.Equal(t, NearTieEditConfidence, editLead.Confidence)
	assert.Equal(t, "Found 3 editing keywords against 3 creation keywords", editLead.Reasoning)
}

func TestRuleClassifier_IgnoresLaterLexiconMutation(t *testing.T) {
	lex := lexicon.Lexicon{
		CreateKeywords: []string{"draw"},
		EditKeywords:   []string{"blur"},
	}
	c := NewRuleClassifier(lex)
	lex.CreateKeywords[0] = "blur"

	assert.Equal(t, types.IntentCreateImage, c.Decide("draw a fox").Intent)
}

func TestRuleClassifier_Deterministic(t *testing.T) {
	c := NewRuleClassifier(lexicon.Default())
	prompt := "Generiere ein Bild von einem Vulkan für die 5. Klasse"
	want := c.Decide(prompt)

	var wg sync.WaitGroup
	results := make([]Decision, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Classify(context.Background(), prompt)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, want, got)
	}
}
