package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/types"
)

func testCfg() func() config.PolicyConfig {
	return func() config.PolicyConfig {
		return config.PolicyConfig{
			Enabled:           true,
			EvaluationTimeout: 100 * time.Millisecond,
		}
	}
}

const quietHoursPolicy = `
package scribe.policy

import rego.v1

default allow := true
default reason := ""

deny contains msg if {
	input.request.format == "sms"
	input.time.hour >= 21
	msg := "SMS messages are not sent during quiet hours"
}

deny contains msg if {
	input.request.format == "sms"
	input.time.hour < 7
	msg := "SMS messages are not sent during quiet hours"
}

allow := false if {
	count(deny) > 0
}

reason := concat("; ", deny) if {
	count(deny) > 0
}
`

func loadTestEvaluator(t *testing.T, policySrc string) *Evaluator {
	t.Helper()
	e := NewEvaluator(testCfg())
	if err := e.LoadFromModules(map[string]string{"test.rego": policySrc}); err != nil {
		t.Fatalf("failed to load policy: %v", err)
	}
	return e
}

func TestLoadModules_SkipsNonRego(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quiet_hours.rego"), []byte(quietHoursPolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	modules, err := LoadModules(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if _, ok := modules["quiet_hours.rego"]; !ok {
		t.Errorf("expected quiet_hours.rego, got %v", modules)
	}
}

func TestLoadModules_MissingDir(t *testing.T) {
	if _, err := LoadModules(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected an error for a missing policy directory")
	}
}

func TestEvaluator_AllowByDefault(t *testing.T) {
	e := loadTestEvaluator(t, quietHoursPolicy)

	allowed, reason, err := e.Evaluate(context.Background(), Input{
		Identity: IdentityInput{ID: "dev-1", Org: "school-1"},
		Request:  RequestInput{Format: "email", Language: "en", Tone: "warm"},
		Time:     TimeInput{Hour: 14, Day: "Tuesday"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Errorf("expected allow, got denied: %s", reason)
	}
}

func TestEvaluator_DeniesQuietHoursSMS(t *testing.T) {
	e := loadTestEvaluator(t, quietHoursPolicy)

	allowed, reason, err := e.Evaluate(context.Background(), Input{
		Identity: IdentityInput{ID: "dev-1", Org: "school-1"},
		Request:  RequestInput{Format: "sms", Language: "en", Tone: "concise"},
		Time:     TimeInput{Hour: 22, Day: "Tuesday"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected quiet-hours SMS to be denied")
	}
	if reason == "" {
		t.Error("expected a denial reason")
	}
}

func TestEvaluator_NoPoliciesFailsClosed(t *testing.T) {
	e := NewEvaluator(testCfg())
	allowed, reason, err := e.Evaluate(context.Background(), Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected fail-closed with no policies loaded")
	}
	if reason != "no policies loaded" {
		t.Errorf("unexpected reason: %s", reason)
	}
}

func TestCheck_DisabledAlwaysAllows(t *testing.T) {
	e := NewEvaluator(func() config.PolicyConfig {
		return config.PolicyConfig{Enabled: false}
	})
	allowed, _ := e.Check(context.Background(), "dev-1", "school-1",
		types.CompositionRequest{Format: types.FormatSMS}, time.Now())
	if !allowed {
		t.Error("disabled evaluator must allow")
	}
}

func TestCheck_EnabledUsesPolicy(t *testing.T) {
	e := loadTestEvaluator(t, quietHoursPolicy)
	night := time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)

	allowed, reason := e.Check(context.Background(), "dev-1", "school-1",
		types.CompositionRequest{Format: types.FormatSMS, Language: types.LangEnglish, Tone: types.ToneConcise}, night)
	if allowed {
		t.Error("expected policy denial at night")
	}
	if reason == "" {
		t.Error("expected denial reason")
	}
}
