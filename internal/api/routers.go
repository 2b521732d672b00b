package api

import (
	"fmt"
	"log/slog"

	"github.com/af-corp/imagerouter/internal/classifier"
	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/extractor"
	"github.com/af-corp/imagerouter/internal/lexicon"
	"github.com/af-corp/imagerouter/internal/provider"
	"github.com/af-corp/imagerouter/internal/router"
	"github.com/af-corp/imagerouter/internal/telemetry"
)

// Routers is an immutable set of routers built from one configuration snapshot.
// Reloads build a new value and swap it in whole.
type Routers struct {
	Rules *router.Router
	// Assisted is nil unless classifier.mode is assisted.
	Assisted *router.Router

	Mode         string
	Lexicon      lexicon.Lexicon
	Provider     string
	ProviderType string
}

// BuildRouters builds the rule router and, in assisted mode, the assisted
// router. health is shared across rebuilds so circuit state survives reloads.
func BuildRouters(snap *config.Snapshot, health *provider.HealthTracker, metrics *telemetry.Metrics, logger *slog.Logger) (*Routers, error) {
	lex := snap.Lexicon
	rules := classifier.NewRuleClassifier(lex)
	ext := extractor.New(lex)

	rs := &Routers{
		Rules:   router.New(rules, ext),
		Mode:    snap.Config.Classifier.Mode,
		Lexicon: lex,
	}
	if !snap.Config.Classifier.Assisted() {
		return rs, nil
	}

	registry, err := provider.BuildFromConfig(snap.Providers)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}

	var opts []classifier.AssistedOption
	if metrics != nil {
		opts = append(opts, classifier.WithFallbackObserver(metrics.RecordFallback))
	}
	assisted := classifier.NewAssistedClassifier(snap.Config.Classifier, registry, health, rules, logger, opts...)

	rs.Assisted = router.New(assisted, ext, router.WithConcurrentExtraction())
	rs.Provider = snap.Config.Classifier.Primary.Provider
	rs.ProviderType = snap.Providers.Providers[rs.Provider].HostingType()
	return rs, nil
}
