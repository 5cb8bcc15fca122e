// Package quota tracks per-identity daily allowances. Each flow (compose,
// assist) is an independent Manager with its own counter namespace.
package quota

import (
	"context"
	"time"
)

// Result is the outcome of an authorization check.
type Result struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Manager authorizes and records generation attempts against a daily
// allowance. Authorize never mutates state beyond the lazy day-rollover
// reset; Consume spends exactly one unit and floors at zero.
type Manager interface {
	Authorize(ctx context.Context, identity string, allowance int) (Result, error)
	Consume(ctx context.Context, identity string, allowance int) error
}

// dayKey renders the calendar day used to partition counters. The clock's
// location decides where the day boundary falls.
func dayKey(now time.Time) string {
	return now.Format("2006-01-02")
}
