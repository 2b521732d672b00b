package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/af-corp/imagerouter/internal/lexicon"
)

// File names inside the config directory.
const (
	MainFile      = "imagerouter.yaml"
	ProvidersFile = "providers.yaml"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if val, ok := os.LookupEnv(submatch[1]); ok {
			return val
		}
		if len(submatch) >= 3 {
			return submatch[2]
		}
		return ""
	})
}

// LoadFile reads a YAML file, expands env vars, and unmarshals into dest.
func LoadFile(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Snapshot is one consistent view of every configuration source.
type Snapshot struct {
	Config    *Config
	Providers *ProvidersConfig
	Lexicon   lexicon.Lexicon
}

// Loader manages configuration loading and hot-reload via fsnotify.
type Loader struct {
	configDir string
	mu        sync.RWMutex
	snap      *Snapshot
	watchers  []func(*Snapshot)
	logger    *slog.Logger
}

func NewLoader(configDir string, logger *slog.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger,
	}
}

// Load reads all sources. A failed load leaves the previous snapshot in place.
func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if err := LoadFile(filepath.Join(l.configDir, MainFile), cfg); err != nil {
		return fmt.Errorf("load main config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate main config: %w", err)
	}

	providers := &ProvidersConfig{}
	err := LoadFile(filepath.Join(l.configDir, ProvidersFile), providers)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cfg.Classifier.Assisted():
		// rules mode needs no providers
	default:
		return fmt.Errorf("load providers config: %w", err)
	}

	lex := lexicon.Default()
	if cfg.Classifier.LexiconFile != "" {
		path := cfg.Classifier.LexiconFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.configDir, path)
		}
		lex, err = lexicon.Load(path)
		if err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
	}

	l.mu.Lock()
	l.snap = &Snapshot{Config: cfg, Providers: providers, Lexicon: lex}
	l.mu.Unlock()

	l.logger.Info("configuration loaded",
		"dir", l.configDir,
		"classifier_mode", cfg.Classifier.Mode,
		"lexicon", lex.Source,
		"providers", len(providers.Providers),
	)
	return nil
}

// Snapshot returns the most recently loaded configuration.
func (l *Loader) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

func (l *Loader) Config() *Config {
	return l.Snapshot().Config
}

func (l *Loader) Providers() *ProvidersConfig {
	return l.Snapshot().Providers
}

// OnReload registers a callback that fires after config is reloaded.
func (l *Loader) OnReload(fn func(*Snapshot)) {
	l.watchers = append(l.watchers, fn)
}

// Watch starts watching the config directory for changes and reloads on modification.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(l.configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", l.configDir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					l.reload(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}

func (l *Loader) reload(file string) {
	l.logger.Info("config file changed, reloading", "file", file)
	if err := l.Load(); err != nil {
		l.logger.Error("failed to reload config, keeping previous", "error", err)
		return
	}
	snap := l.Snapshot()
	for _, fn := range l.watchers {
		fn(snap)
	}
}
