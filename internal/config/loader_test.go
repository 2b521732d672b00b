package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/af-corp/imagerouter/internal/lexicon"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "hallo")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hallo"},
		{"${TEST_VAR:default}", "hallo"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hallo-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	t.Setenv("TEST_PORT", "7777")

	path := writeFile(t, t.TempDir(), "cfg.yaml", `
server:
  host: "${TEST_HOST:127.0.0.1}"
  port: ${TEST_PORT}
`)

	var cfg Config
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1 (default), got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected port 7777, got %d", cfg.Server.Port)
	}
}

func TestLoaderRulesModeWithoutProviders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MainFile, `
server:
  port: 9000
classifier:
  mode: rules
`)

	l := NewLoader(dir, testLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := l.Snapshot()
	if snap.Config.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", snap.Config.Server.Port)
	}
	if snap.Config.Server.MaxPromptLength != 2000 {
		t.Errorf("expected default max prompt length 2000, got %d", snap.Config.Server.MaxPromptLength)
	}
	if snap.Lexicon.Source != lexicon.SourceEmbedded {
		t.Errorf("expected embedded lexicon, got %s", snap.Lexicon.Source)
	}
	if len(snap.Providers.Providers) != 0 {
		t.Errorf("expected no providers, got %d", len(snap.Providers.Providers))
	}
}

func TestLoaderAssistedModeRequiresProviders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MainFile, `
classifier:
  mode: assisted
  primary: {provider: openai, model: gpt-4o-mini}
`)

	if err := NewLoader(dir, testLogger()).Load(); err == nil {
		t.Fatal("expected error for missing providers.yaml")
	}

	writeFile(t, dir, ProvidersFile, `
providers:
  openai:
    type: openai
    base_url: https://api.openai.com/v1
    api_key: ${IMAGEROUTER_TEST_UNSET_KEY:sk-test}
    timeout: 4s
`)
	l := NewLoader(dir, testLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p := l.Providers().Providers["openai"]
	if p.APIKey != "sk-test" {
		t.Errorf("expected expanded api key, got %q", p.APIKey)
	}
	if p.Timeout != 4*time.Second {
		t.Errorf("expected 4s timeout, got %s", p.Timeout)
	}
}

func TestLoaderLexiconFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MainFile, "classifier:\n  lexicon_file: lexicon.yaml\n")
	writeFile(t, dir, "lexicon.yaml", "create_keywords: [zeichne]\nedit_keywords: [bearbeite]\n")

	l := NewLoader(dir, testLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	lex := l.Snapshot().Lexicon
	if lex.Source != filepath.Join(dir, "lexicon.yaml") {
		t.Errorf("unexpected lexicon source %q", lex.Source)
	}
	if len(lex.CreateKeywords) != 1 || lex.CreateKeywords[0] != "zeichne" {
		t.Errorf("unexpected create keywords %v", lex.CreateKeywords)
	}
}

func TestLoaderKeepsPreviousSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MainFile, "server:\n  port: 9100\n")

	l := NewLoader(dir, testLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writeFile(t, dir, MainFile, "classifier:\n  mode: telepathy\n")
	if err := l.Load(); err == nil {
		t.Fatal("expected validation error")
	}
	if l.Config().Server.Port != 9100 {
		t.Errorf("expected previous snapshot to survive, got port %d", l.Config().Server.Port)
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "imagerouter", User: "app", Password: "p@ss/word"}
	want := "postgres://app:p%40ss%2Fword@db:5433/imagerouter?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDatabaseDSNFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_NAME", "")

	want := "postgres://imagerouter:imagerouter-dev@pg:6543/imagerouter?sslmode=disable"
	if got := DatabaseDSNFromEnv(); got != want {
		t.Errorf("DatabaseDSNFromEnv() = %q, want %q", got, want)
	}

	t.Setenv("DATABASE_URL", "postgres://override")
	if got := DatabaseDSNFromEnv(); got != "postgres://override" {
		t.Errorf("expected DATABASE_URL to win, got %q", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
