package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/filter"
	"github.com/af-corp/imagerouter/internal/types"
)

func testCfg() func() config.PolicyFilterConfig {
	return func() config.PolicyFilterConfig {
		return config.PolicyFilterConfig{
			Enabled:           true,
			EvaluationTimeout: 100 * time.Millisecond,
		}
	}
}

const schoolPolicy = `
package imagerouter.policy

import rego.v1

default allow := true
default reason := ""

offline_schools := {"school-offline"}

deny contains msg if {
	input.caller.school_id in offline_schools
	input.request.provider_type == "external"
	msg := "school does not permit external providers"
}

deny contains msg if {
	input.request.prompt_length > 1500
	msg := "prompt too long for external classification"
}

allow := false if {
	count(deny) > 0
}

reason := concat("; ", deny) if {
	count(deny) > 0
}
`

func loadTestEvaluator(t *testing.T, policy string) *Evaluator {
	t.Helper()
	e := NewEvaluator(testCfg())
	if err := e.LoadFromModules(map[string]string{"test.rego": policy}); err != nil {
		t.Fatalf("failed to load policy: %v", err)
	}
	return e
}

func TestEvaluator_AllowByDefault(t *testing.T) {
	e := loadTestEvaluator(t, schoolPolicy)

	allowed, reason, err := e.Evaluate(context.Background(), Input{
		Caller:  CallerInput{SchoolID: "school-1"},
		Request: RequestInput{Provider: "openai", ProviderType: "external", PromptLength: 40},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected allowed, got denied: %s", reason)
	}
}

func TestEvaluator_DenyExternalForOfflineSchool(t *testing.T) {
	e := loadTestEvaluator(t, schoolPolicy)

	allowed, reason, err := e.Evaluate(context.Background(), Input{
		Caller:  CallerInput{SchoolID: "school-offline"},
		Request: RequestInput{Provider: "openai", ProviderType: "external", PromptLength: 40},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected denied for offline school")
	}
	if reason != "school does not permit external providers" {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestEvaluator_NoPoliciesLoaded_FailClosed(t *testing.T) {
	e := NewEvaluator(testCfg())
	allowed, _, _ := e.Evaluate(context.Background(), Input{})
	if allowed {
		t.Error("expected denied when no policies loaded")
	}
}

func TestEvaluator_ScanRequest(t *testing.T) {
	e := loadTestEvaluator(t, schoolPolicy)

	pass := e.ScanRequest(context.Background(), &filter.Request{
		Caller:       types.Caller{SchoolID: "school-1"},
		Prompt:       "Zeichne einen Fuchs",
		ProviderType: "external",
	})
	if pass.Action != filter.ActionPass {
		t.Errorf("expected pass, got %s: %s", pass.Action, pass.Message)
	}
	if pass.FilterName != "policy" {
		t.Errorf("expected filter name 'policy', got %s", pass.FilterName)
	}

	block := e.ScanRequest(context.Background(), &filter.Request{
		Caller:       types.Caller{SchoolID: "school-offline"},
		Prompt:       "Zeichne einen Fuchs",
		ProviderType: "external",
	})
	if block.Action != filter.ActionBlock {
		t.Errorf("expected block, got %s", block.Action)
	}
}

func TestEvaluator_Load(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "school.rego"), []byte(schoolPolicy), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewEvaluator(func() config.PolicyFilterConfig {
		return config.PolicyFilterConfig{Enabled: true, BundlePath: dir}
	})
	if err := e.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	allowed, _, err := e.Evaluate(context.Background(), Input{Request: RequestInput{PromptLength: 10}})
	if err != nil || !allowed {
		t.Errorf("expected allowed after Load, got %v (%v)", allowed, err)
	}
}

func TestEvaluator_Disabled(t *testing.T) {
	e := NewEvaluator(func() config.PolicyFilterConfig {
		return config.PolicyFilterConfig{Enabled: false}
	})
	if e.Enabled() {
		t.Error("expected evaluator to be disabled")
	}
}

func TestEvaluator_CustomDenyAllPolicy(t *testing.T) {
	denyAll := `
package imagerouter.policy

import rego.v1

allow := false
reason := "all requests denied"
`
	e := loadTestEvaluator(t, denyAll)

	allowed, reason, err := e.Evaluate(context.Background(), Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected denied by deny-all policy")
	}
	if reason != "all requests denied" {
		t.Errorf("expected 'all requests denied', got %s", reason)
	}
}
