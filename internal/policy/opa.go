// Package policy evaluates organization messaging policies (quiet hours,
// allowed formats and languages) over composition requests using OPA.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/types"
)

// Input is the data sent to OPA for evaluation.
type Input struct {
	Identity IdentityInput `json:"identity"`
	Request  RequestInput  `json:"request"`
	Time     TimeInput     `json:"time"`
}

type IdentityInput struct {
	ID  string `json:"id"`
	Org string `json:"org"`
}

type RequestInput struct {
	Format   string `json:"format"`
	Language string `json:"language"`
	Tone     string `json:"tone"`
}

type TimeInput struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// Evaluator compiles and runs Rego messaging policies. Evaluation faults and
// missing policies fail closed when the evaluator is enabled.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
}

// NewEvaluator creates a policy evaluator. Call Load() to compile policies.
func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles Rego modules from the bundle path.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	modules, err := LoadModules(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("load policy modules: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no policy modules found", "path", cfg.BundlePath)
		return nil
	}
	return e.LoadFromModules(modules)
}

// LoadFromModules compiles policies from provided module sources (useful for testing).
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	r := rego.New(
		rego.Query("[data.scribe.policy.allow, data.scribe.policy.reason]"),
		func() func(*rego.Rego) {
			mods := make([]func(*rego.Rego), 0, len(modules))
			for name, src := range modules {
				mods = append(mods, rego.Module(name, src))
			}
			return func(r *rego.Rego) {
				for _, m := range mods {
					m(r)
				}
			}
		}(),
	)

	prepared, err := r.PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy against the given input.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		// No policies loaded; fail closed.
		return false, "no policies loaded", nil
	}

	cfg := e.cfg()
	timeout := cfg.EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %v", err), err
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	// Result is [allow, reason]
	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}

	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)

	return allowed, reason, nil
}

// Check evaluates a composition request. A disabled evaluator always allows.
func (e *Evaluator) Check(ctx context.Context, identity, org string, req types.CompositionRequest, now time.Time) (bool, string) {
	if !e.Enabled() {
		return true, ""
	}

	input := Input{
		Identity: IdentityInput{ID: identity, Org: org},
		Request: RequestInput{
			Format:   string(req.Format),
			Language: string(req.Language),
			Tone:     string(req.Tone),
		},
		Time: TimeInput{
			Hour: now.Hour(),
			Day:  now.Weekday().String(),
		},
	}

	allowed, reason, err := e.Evaluate(ctx, input)
	if err != nil {
		slog.Error("policy evaluation failed", "error", err)
		return false, "policy evaluation failed"
	}
	return allowed, reason
}
