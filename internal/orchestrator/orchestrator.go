// Package orchestrator runs the composition pipeline: quota authorization,
// composition, safety scanning, optional neutralization, quota consumption,
// and bounded history retention.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/af-corp/scribe/internal/compose"
	"github.com/af-corp/scribe/internal/history"
	"github.com/af-corp/scribe/internal/quota"
	"github.com/af-corp/scribe/internal/types"
)

// OutcomeKind discriminates the typed results of a generation attempt. No
// path raises; every outcome is a value.
type OutcomeKind string

const (
	OutcomeComposed      OutcomeKind = "composed"
	OutcomeQuotaExceeded OutcomeKind = "quota_exceeded"
	OutcomeInvalidInput  OutcomeKind = "invalid_input"
)

// Outcome is the result of Generate or Vary.
type Outcome struct {
	Kind      OutcomeKind
	Message   *types.ComposedMessage
	Safety    types.SafetyResult
	Remaining int
	Reason    string
}

// Options parameterizes a single call. Auto-protect is an explicit per-call
// choice, never a stored mode flag.
type Options struct {
	AutoProtect      bool
	ComposeAllowance int
	AssistAllowance  int
}

// Scanner produces a SafetyResult for arbitrary text.
type Scanner interface {
	Scan(text string) types.SafetyResult
}

// Neutralizer rewrites flagged spans in text.
type Neutralizer interface {
	Neutralize(text string) string
}

// Archiver persists messages and alerts beyond the in-memory rings and can
// restore recent messages after a restart.
type Archiver interface {
	Enabled() bool
	SaveMessage(ctx context.Context, identity string, msg types.ComposedMessage) error
	SaveAlert(ctx context.Context, identity string, alert types.Alert) error
	ResolveAlert(ctx context.Context, identity, id string) error
	RecentMessages(ctx context.Context, identity string, limit int) ([]types.ComposedMessage, error)
}

type Orchestrator struct {
	composer     *compose.Composer
	scanner      Scanner
	neutralizer  Neutralizer
	composeQuota quota.Manager
	assistQuota  quota.Manager
	messages     *history.MessageLog
	alerts       *history.AlertLog
	archive      Archiver
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires the pipeline. now may be nil, defaulting to time.Now.
func New(
	composer *compose.Composer,
	scanner Scanner,
	neutralizer Neutralizer,
	composeQuota, assistQuota quota.Manager,
	messages *history.MessageLog,
	alerts *history.AlertLog,
	archive Archiver,
	now func() time.Time,
) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	if archive == nil {
		archive = history.NewArchive(nil)
	}
	return &Orchestrator{
		composer:     composer,
		scanner:      scanner,
		neutralizer:  neutralizer,
		composeQuota: composeQuota,
		assistQuota:  assistQuota,
		messages:     messages,
		alerts:       alerts,
		archive:      archive,
		now:          now,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockIdentity serializes the authorize-consume window for one identity so
// two near-simultaneous calls cannot both observe remaining > 0 and both
// spend. Different identities proceed in parallel.
func (o *Orchestrator) lockIdentity(identity string) func() {
	o.mu.Lock()
	l, ok := o.locks[identity]
	if !ok {
		l = &sync.Mutex{}
		o.locks[identity] = l
	}
	o.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Generate runs the full pipeline for one composition request. Quota is
// spent on every successful composition regardless of the safety outcome;
// it is never spent on invalid input or a denied authorization.
func (o *Orchestrator) Generate(ctx context.Context, req types.CompositionRequest, identity string, opts Options) (Outcome, error) {
	unlock := o.lockIdentity(identity)
	defer unlock()

	auth, err := o.composeQuota.Authorize(ctx, identity, opts.ComposeAllowance)
	if err != nil {
		return Outcome{}, fmt.Errorf("authorize: %w", err)
	}
	if !auth.Allowed {
		return Outcome{Kind: OutcomeQuotaExceeded, Remaining: auth.Remaining}, nil
	}

	req.Identity = identity
	text, err := o.composer.Compose(req)
	if err != nil {
		if errors.Is(err, compose.ErrEmptyTopic) {
			return Outcome{Kind: OutcomeInvalidInput, Remaining: auth.Remaining, Reason: err.Error()}, nil
		}
		return Outcome{}, fmt.Errorf("compose: %w", err)
	}

	safety := o.scanSafe(text)
	msg := &types.ComposedMessage{
		ID:        newID("msg"),
		Text:      text,
		Request:   req,
		CreatedAt: o.now(),
	}

	if !safety.Approved {
		o.raiseAlert(ctx, identity, text, safety)
		if opts.AutoProtect {
			msg.Text = o.neutralizer.Neutralize(text)
		}
	}

	if err := o.composeQuota.Consume(ctx, identity, opts.ComposeAllowance); err != nil {
		slog.Error("quota consume failed", "identity", identity, "error", err)
	}

	o.messages.Append(identity, *msg)
	o.archiveMessage(identity, *msg)

	remaining := auth.Remaining - 1
	if remaining < 0 {
		remaining = 0
	}
	return Outcome{Kind: OutcomeComposed, Message: msg, Safety: safety, Remaining: remaining}, nil
}

// Vary produces a variation of a retained message, billed against the
// assistant quota rather than the generation quota.
func (o *Orchestrator) Vary(ctx context.Context, identity, messageID string, opts Options) (Outcome, error) {
	unlock := o.lockIdentity(identity)
	defer unlock()

	msg, ok := o.messages.Get(identity, messageID)
	if !ok {
		return Outcome{Kind: OutcomeInvalidInput, Reason: "unknown message"}, nil
	}

	auth, err := o.assistQuota.Authorize(ctx, identity, opts.AssistAllowance)
	if err != nil {
		return Outcome{}, fmt.Errorf("authorize: %w", err)
	}
	if !auth.Allowed {
		return Outcome{Kind: OutcomeQuotaExceeded, Remaining: auth.Remaining}, nil
	}

	text, err := o.composer.Variation(&msg)
	if err != nil {
		return Outcome{Kind: OutcomeInvalidInput, Remaining: auth.Remaining, Reason: err.Error()}, nil
	}

	safety := o.scanSafe(text)
	if !safety.Approved {
		o.raiseAlert(ctx, identity, text, safety)
		if opts.AutoProtect && len(msg.Variations) > 0 {
			neutral := o.neutralizer.Neutralize(text)
			msg.Variations[len(msg.Variations)-1] = neutral
			text = neutral
		}
	}

	if err := o.assistQuota.Consume(ctx, identity, opts.AssistAllowance); err != nil {
		slog.Error("quota consume failed", "identity", identity, "error", err)
	}

	o.messages.Update(identity, msg)
	o.archiveMessage(identity, msg)

	remaining := auth.Remaining - 1
	if remaining < 0 {
		remaining = 0
	}
	out := msg
	out.Text = text
	return Outcome{Kind: OutcomeComposed, Message: &out, Safety: safety, Remaining: remaining}, nil
}

// Scan exposes standalone moderation for caller-supplied drafts. It shares
// the pipeline's fail-closed guard and consumes no quota.
func (o *Orchestrator) Scan(text string) types.SafetyResult {
	return o.scanSafe(text)
}

// Favorite flips the favorited flag on a retained message.
func (o *Orchestrator) Favorite(ctx context.Context, identity, messageID string, favorited bool) bool {
	msg, ok := o.messages.Get(identity, messageID)
	if !ok {
		return false
	}
	msg.Favorited = favorited
	o.messages.Update(identity, msg)
	o.archiveMessage(identity, msg)
	return true
}

// History returns the identity's retained messages, oldest first. An empty
// ring is hydrated from the archive so history survives restarts.
func (o *Orchestrator) History(ctx context.Context, identity string) []types.ComposedMessage {
	if msgs := o.messages.List(identity); len(msgs) > 0 {
		return msgs
	}
	if !o.archive.Enabled() {
		return o.messages.List(identity)
	}

	unlock := o.lockIdentity(identity)
	defer unlock()
	if msgs := o.messages.List(identity); len(msgs) > 0 {
		return msgs
	}

	archived, err := o.archive.RecentMessages(ctx, identity, history.MessageCap)
	if err != nil {
		slog.Error("history hydration failed", "identity", identity, "error", err)
		return o.messages.List(identity)
	}
	// The archive returns newest first; the ring holds oldest first.
	for i := len(archived) - 1; i >= 0; i-- {
		o.messages.Append(identity, archived[i])
	}
	return o.messages.List(identity)
}

// Alerts returns the identity's retained alerts, oldest first.
func (o *Orchestrator) Alerts(identity string) []types.Alert {
	return o.alerts.List(identity)
}

// ResolveAlert dismisses an alert.
func (o *Orchestrator) ResolveAlert(ctx context.Context, identity, alertID string) bool {
	if !o.alerts.Resolve(identity, alertID) {
		return false
	}
	if o.archive.Enabled() {
		if err := o.archive.ResolveAlert(ctx, identity, alertID); err != nil {
			slog.Error("alert archive update failed", "alert_id", alertID, "error", err)
		}
	}
	return true
}

// scanSafe applies the fail-closed contract: a faulting scanner blocks the
// content for review instead of letting it through.
func (o *Orchestrator) scanSafe(text string) (result types.SafetyResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("safety scan fault, blocking content", "panic", r)
			result = types.BlockedResult()
		}
	}()
	return o.scanner.Scan(text)
}

func (o *Orchestrator) raiseAlert(ctx context.Context, identity, text string, safety types.SafetyResult) {
	alert := types.NewAlert(newID("alert"), text, safety.Reasons, o.now())
	o.alerts.Append(identity, alert)
	if o.archive.Enabled() {
		if err := o.archive.SaveAlert(ctx, identity, alert); err != nil {
			slog.Error("alert archive failed", "alert_id", alert.ID, "error", err)
		}
	}
}

func (o *Orchestrator) archiveMessage(identity string, msg types.ComposedMessage) {
	if !o.archive.Enabled() {
		return
	}
	// Fire-and-forget; the in-memory rings stay authoritative.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.archive.SaveMessage(ctx, identity, msg); err != nil {
			slog.Error("message archive failed", "message_id", msg.ID, "error", err)
		}
	}()
}

func newID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(b))
}
