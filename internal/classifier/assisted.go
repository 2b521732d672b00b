package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/provider"
	"github.com/af-corp/imagerouter/internal/provider/adapters"
	"github.com/af-corp/imagerouter/internal/types"
)

// Fallback reasons reported to the observer.
const (
	ReasonTimeout     = "timeout"
	ReasonUnavailable = "unavailable"
	ReasonMalformed   = "malformed"
)

const assistedSystemPrompt = `You classify requests from teachers to an image assistant. Requests are in German or English.

Intents:
- create_image: the teacher wants a new image, drawing, diagram, poster or illustration.
- edit_image: the teacher wants to change an image that already exists (crop, recolor, remove, replace, make brighter, "das Bild", "the image").
- unknown: the request is not about producing or changing an image.

Reply with one JSON object: {"intent": "<create_image|edit_image|unknown>", "confidence": <number between 0 and 1>, "reasoning": "<short reason>"}`

var codeFence = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// AssistedClassifier asks an AI provider for the verdict and falls back to the
// rule classifier on any failure, returning the rule decision unchanged.
type AssistedClassifier struct {
	cfg      config.ClassifierConfig
	registry *provider.Registry
	health   *provider.HealthTracker
	fallback *RuleClassifier
	logger   *slog.Logger

	onFallback func(reason string)
}

var _ Classifier = (*AssistedClassifier)(nil)

type AssistedOption func(*AssistedClassifier)

// WithFallbackObserver registers fn to be called with the reason whenever the
// rule fallback is used.
func WithFallbackObserver(fn func(reason string)) AssistedOption {
	return func(c *AssistedClassifier) { c.onFallback = fn }
}

func NewAssistedClassifier(
	cfg config.ClassifierConfig,
	registry *provider.Registry,
	health *provider.HealthTracker,
	fallback *RuleClassifier,
	logger *slog.Logger,
	opts ...AssistedOption,
) *AssistedClassifier {
	c := &AssistedClassifier{
		cfg:        cfg,
		registry:   registry,
		health:     health,
		fallback:   fallback,
		logger:     logger,
		onFallback: func(string) {},
	}
	if c.health == nil {
		c.health = provider.NewHealthTracker(cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.RecoveryProbeInterval)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AssistedClassifier) Classify(ctx context.Context, prompt string) Decision {
	d, err := c.classifyRemote(ctx, prompt)
	if err == nil {
		return d
	}

	reason := fallbackReason(err)
	c.logger.Warn("assisted classification failed, using rules",
		"reason", reason,
		"error", err,
		"prompt_len", utf8.RuneCountInString(prompt),
	)
	c.onFallback(reason)

	d = c.fallback.Decide(prompt)
	d.Source = SourceFallback
	return d
}

func (c *AssistedClassifier) classifyRemote(ctx context.Context, prompt string) (Decision, error) {
	route, err := provider.ResolveRoute(c.cfg, c.registry, c.health)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := route.Adapter.Complete(ctx, adapters.CompletionRequest{
		Model:     route.Model,
		System:    assistedSystemPrompt,
		Messages:  []adapters.Message{{Role: "user", Content: prompt}},
		MaxTokens: c.cfg.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		c.health.RecordFailure(route.Provider)
		return Decision{}, fmt.Errorf("%w: %s: %w", ErrClassifierUnavailable, route.Provider, err)
	}
	c.health.RecordSuccess(route.Provider)

	d, err := parseVerdict(completion.Content)
	if err != nil {
		return Decision{}, err
	}

	c.logger.Debug("assisted classification completed",
		"provider", route.Provider,
		"model", completion.Model,
		"intent", d.Intent,
		"confidence", d.Confidence,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", completion.InputTokens+completion.OutputTokens,
	)
	return d, nil
}

// parseVerdict accepts a JSON object, optionally wrapped in a code fence.
func parseVerdict(content string) (Decision, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
			content = m[1]
		}
	}

	var raw struct {
		Intent     *string  `json:"intent"`
		Confidence *float64 `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrMalformedClassifierOutput, err)
	}
	if raw.Intent == nil {
		return Decision{}, fmt.Errorf("%w: missing intent", ErrMalformedClassifierOutput)
	}
	intent, ok := types.ParseIntent(strings.ToLower(*raw.Intent))
	if !ok {
		return Decision{}, fmt.Errorf("%w: invalid intent %q", ErrMalformedClassifierOutput, *raw.Intent)
	}
	if raw.Confidence == nil {
		return Decision{}, fmt.Errorf("%w: missing confidence", ErrMalformedClassifierOutput)
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return Decision{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedClassifierOutput, *raw.Confidence)
	}

	reasoning := strings.TrimSpace(raw.Reasoning)
	if reasoning == "" {
		reasoning = "Classified by AI model"
	}
	return Decision{
		Intent:     intent,
		Confidence: *raw.Confidence,
		Reasoning:  reasoning,
		Source:     SourceAssisted,
	}, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrMalformedClassifierOutput):
		return ReasonMalformed
	default:
		return ReasonUnavailable
	}
}
