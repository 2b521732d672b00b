package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/provider/adapters"
)

// ErrNoProvider is returned when no configured route has a healthy adapter.
var ErrNoProvider = errors.New("no available provider")

// Registry manages provider adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]adapters.Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]adapters.Adapter),
	}
}

func (r *Registry) Register(name string, adapter adapters.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = adapter
}

func (r *Registry) Get(name string) (adapters.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildFromConfig builds provider adapters from the providers config.
func BuildFromConfig(provCfg *config.ProvidersConfig) (*Registry, error) {
	registry := NewRegistry()
	if provCfg == nil {
		return registry, nil
	}
	for name, cfg := range provCfg.Providers {
		maxConns := cfg.MaxConcurrent
		if maxConns <= 0 {
			maxConns = 8
		}
		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxConns,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		var adapter adapters.Adapter
		switch cfg.Type {
		case "openai", "":
			adapter = adapters.NewOpenAIAdapter(cfg, client)
		case "anthropic":
			adapter = adapters.NewAnthropicAdapter(cfg, client)
		default:
			return nil, fmt.Errorf("provider %s: unsupported type %q", name, cfg.Type)
		}
		registry.Register(name, adapter)
	}
	return registry, nil
}

// Route is a resolved provider plus the model to request from it.
type Route struct {
	Provider string
	Model    string
	Adapter  adapters.Adapter
}

// ResolveRoute returns the primary route, or the first fallback whose provider
// is registered and whose circuit currently admits a request.
func ResolveRoute(cfg config.ClassifierConfig, registry *Registry, health *HealthTracker) (Route, error) {
	candidates := append([]config.ProviderRoute{cfg.Primary}, cfg.Fallback...)
	for _, c := range candidates {
		adapter, ok := registry.Get(c.Provider)
		if !ok {
			continue
		}
		if health != nil && !health.IsAvailable(c.Provider) {
			continue
		}
		return Route{Provider: c.Provider, Model: c.Model, Adapter: adapter}, nil
	}
	return Route{}, fmt.Errorf("%w for classifier (primary %s)", ErrNoProvider, cfg.Primary.Provider)
}
