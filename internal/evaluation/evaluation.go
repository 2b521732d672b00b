// Package evaluation scores a classifier against a labelled prompt set.
package evaluation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/af-corp/imagerouter/internal/types"
)

// Sample is one labelled prompt.
type Sample struct {
	Prompt string       `yaml:"prompt"`
	Lang   string       `yaml:"lang"`
	Intent types.Intent `yaml:"intent"`
}

// Dataset is the YAML document `samples: [...]`.
type Dataset struct {
	Samples []Sample `yaml:"samples"`
}

// Load reads and validates a dataset file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	for i, s := range ds.Samples {
		if !s.Intent.Valid() {
			return nil, fmt.Errorf("sample %d (%q): invalid intent %q", i, s.Prompt, s.Intent)
		}
	}
	return &ds, nil
}

// ClassifyFunc returns the predicted intent for a prompt.
type ClassifyFunc func(ctx context.Context, prompt string) (types.Intent, error)

// Miss is a sample the classifier got wrong.
type Miss struct {
	Sample Sample
	Got    types.Intent
}

// Tally counts hits within one group.
type Tally struct {
	Hit   int
	Total int
}

func (t Tally) Accuracy() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Hit) / float64(t.Total)
}

// Report holds overall and grouped accuracy. Group keys are "lang:<code>" and
// "intent:<intent>".
type Report struct {
	Overall Tally
	Groups  map[string]Tally
	Misses  []Miss
}

// GroupKeys returns the group keys in sorted order.
func (r *Report) GroupKeys() []string {
	keys := make([]string, 0, len(r.Groups))
	for k := range r.Groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run classifies every sample with at most workers concurrent calls.
func Run(ctx context.Context, ds *Dataset, classify ClassifyFunc, workers int) (*Report, error) {
	if workers < 1 {
		workers = 1
	}
	got := make([]types.Intent, len(ds.Samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range ds.Samples {
		g.Go(func() error {
			intent, err := classify(gctx, s.Prompt)
			if err != nil {
				return fmt.Errorf("classify %q: %w", s.Prompt, err)
			}
			got[i] = intent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Report{Groups: make(map[string]Tally)}
	count := func(key string, ok bool) {
		t := r.Groups[key]
		t.Total++
		if ok {
			t.Hit++
		}
		r.Groups[key] = t
	}
	for i, s := range ds.Samples {
		ok := got[i] == s.Intent
		r.Overall.Total++
		if ok {
			r.Overall.Hit++
		} else {
			r.Misses = append(r.Misses, Miss{Sample: s, Got: got[i]})
		}
		if s.Lang != "" {
			count("lang:"+s.Lang, ok)
		}
		count("intent:"+string(s.Intent), ok)
	}
	return r, nil
}
