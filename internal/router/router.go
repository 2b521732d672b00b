// Package router combines intent classification and entity extraction into a
// single stateless call.
package router

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/af-corp/imagerouter/internal/classifier"
	"github.com/af-corp/imagerouter/internal/extractor"
	"github.com/af-corp/imagerouter/internal/types"
)

const overrideReasoning = "Manual override applied"

// Router holds only immutable collaborators; one value serves any number of
// concurrent calls.
type Router struct {
	classifier classifier.Classifier
	extractor  *extractor.Extractor
	concurrent bool
}

type Option func(*Router)

// WithConcurrentExtraction runs extraction while the classifier is working.
// Worth it only for classifiers that do I/O.
func WithConcurrentExtraction() Option {
	return func(r *Router) { r.concurrent = true }
}

func New(c classifier.Classifier, e *extractor.Extractor, opts ...Option) *Router {
	r := &Router{classifier: c, extractor: e}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome is a routing result plus the path that produced it.
type Outcome struct {
	Result types.ClassificationResult
	Source classifier.Source
}

// Route classifies req and extracts its entities.
func (r *Router) Route(ctx context.Context, req types.RouterRequest) (*types.ClassificationResult, error) {
	out, err := r.RouteDetailed(ctx, req)
	if err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// RouteDetailed is Route plus the decision source, for metrics and logs.
func (r *Router) RouteDetailed(ctx context.Context, req types.RouterRequest) (*Outcome, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, emptyPromptError()
	}

	if req.Override != nil {
		intent, ok := types.ParseIntent(string(*req.Override))
		if !ok {
			return nil, invalidOverrideError(string(*req.Override))
		}
		return &Outcome{
			Result: types.ClassificationResult{
				Intent:     intent,
				Confidence: classifier.OverrideConfidence,
				Entities:   r.extractor.Extract(req.Prompt, req.Context),
				Reasoning:  overrideReasoning,
				Overridden: true,
			},
			Source: classifier.SourceOverride,
		}, nil
	}

	decision, entities := r.classifyAndExtract(ctx, req)
	return &Outcome{
		Result: types.ClassificationResult{
			Intent:     decision.Intent,
			Confidence: decision.Confidence,
			Entities:   entities,
			Reasoning:  decision.Reasoning,
			Overridden: false,
		},
		Source: decision.Source,
	}, nil
}

func (r *Router) classifyAndExtract(ctx context.Context, req types.RouterRequest) (classifier.Decision, types.ExtractedEntities) {
	if !r.concurrent {
		return r.classifier.Classify(ctx, req.Prompt), r.extractor.Extract(req.Prompt, req.Context)
	}

	var (
		decision classifier.Decision
		entities types.ExtractedEntities
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		decision = r.classifier.Classify(gctx, req.Prompt)
		return nil
	})
	g.Go(func() error {
		entities = r.extractor.Extract(req.Prompt, req.Context)
		return nil
	})
	_ = g.Wait()
	return decision, entities
}
