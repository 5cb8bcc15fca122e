// Package service exposes the HTTP API: composition, variations, standalone
// scanning, history, and safety alerts.
package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/scribe/internal/auth"
	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/httputil"
	"github.com/af-corp/scribe/internal/orchestrator"
	"github.com/af-corp/scribe/internal/policy"
	"github.com/af-corp/scribe/internal/safety"
	"github.com/af-corp/scribe/internal/telemetry"
	"github.com/af-corp/scribe/internal/types"
)

// Handler holds dependencies for the scribe HTTP handlers.
type Handler struct {
	orch    *orchestrator.Orchestrator
	scanner *safety.Scanner
	cfg     func() *config.Config
	policy  *policy.Evaluator
	metrics *telemetry.Metrics
}

func NewHandler(orch *orchestrator.Orchestrator, scanner *safety.Scanner, cfg func() *config.Config, pol *policy.Evaluator, metrics *telemetry.Metrics) *Handler {
	return &Handler{orch: orch, scanner: scanner, cfg: cfg, policy: pol, metrics: metrics}
}

// composeRequest is the wire shape of POST /v1/compose. AutoProtect set here
// overrides the key's stored preference for this call only.
type composeRequest struct {
	types.CompositionRequest
	AutoProtect *bool `json:"auto_protect,omitempty"`
}

type composeResponse struct {
	Message   *types.ComposedMessage `json:"message"`
	Safety    types.SafetyResult     `json:"safety"`
	Remaining int                    `json:"remaining"`
}

// Compose handles POST /v1/compose.
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteInvalidInputError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var wireReq composeRequest
	if err := json.Unmarshal(body, &wireReq); err != nil {
		httputil.WriteInvalidInputError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	req := wireReq.CompositionRequest
	req.RequestID = reqID
	req.ReceivedAt = receivedAt
	req.Canonicalize()

	if h.policy != nil {
		allowed, reason := h.policy.Check(r.Context(), authInfo.Identity(), authInfo.OrganizationID, req, receivedAt)
		if !allowed {
			httputil.WritePolicyDeniedError(w, reqID, reason)
			return
		}
	}

	opts := h.callOptions(authInfo)
	if wireReq.AutoProtect != nil {
		opts.AutoProtect = *wireReq.AutoProtect
	}

	out, err := h.orch.Generate(r.Context(), req, authInfo.Identity(), opts)
	if err != nil {
		slog.Error("compose failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Composition failed")
		return
	}

	h.recordOutcome(authInfo, req, out, "compose", receivedAt)

	switch out.Kind {
	case orchestrator.OutcomeQuotaExceeded:
		httputil.WriteQuotaExceededError(w, reqID, "Daily message allowance exhausted")
		return
	case orchestrator.OutcomeInvalidInput:
		httputil.WriteInvalidInputError(w, reqID, out.Reason)
		return
	}

	slog.Info("message composed",
		"request_id", reqID,
		"message_id", out.Message.ID,
		"format", string(req.Format),
		"language", string(req.Language),
		"tone", string(req.Tone),
		"approved", out.Safety.Approved,
		"remaining", out.Remaining,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
		"org_id", authInfo.OrganizationID,
	)

	writeJSON(w, http.StatusOK, composeResponse{
		Message:   out.Message,
		Safety:    out.Safety,
		Remaining: out.Remaining,
	})
}

// Variations handles POST /v1/compose/{id}/variations.
func (h *Handler) Variations(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}
	messageID := chi.URLParam(r, "id")

	out, err := h.orch.Vary(r.Context(), authInfo.Identity(), messageID, h.callOptions(authInfo))
	if err != nil {
		slog.Error("variation failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Variation failed")
		return
	}

	switch out.Kind {
	case orchestrator.OutcomeQuotaExceeded:
		if h.metrics != nil {
			h.metrics.RecordQuotaDenied(authInfo.OrganizationID, "assist")
		}
		httputil.WriteQuotaExceededError(w, reqID, "Daily assistant allowance exhausted")
		return
	case orchestrator.OutcomeInvalidInput:
		httputil.WriteNotFoundError(w, reqID, out.Reason)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordDuration("variations", float64(time.Since(receivedAt).Milliseconds()))
		if !out.Safety.Approved {
			h.metrics.RecordAlert(authInfo.OrganizationID, alertSeverity(out.Safety))
		}
	}

	writeJSON(w, http.StatusOK, composeResponse{
		Message:   out.Message,
		Safety:    out.Safety,
		Remaining: out.Remaining,
	})
}

type scanRequest struct {
	Text string `json:"text"`
}

type scanResponse struct {
	Result     types.SafetyResult `json:"result"`
	Detections []safety.Detection `json:"detections,omitempty"`
}

// Scan handles POST /v1/scan. It moderates caller-supplied drafts without
// touching any quota.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	if _, ok := auth.AuthFromContext(r.Context()); !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteInvalidInputError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httputil.WriteInvalidInputError(w, reqID, "text is required")
		return
	}

	result := h.orch.Scan(req.Text)
	if h.metrics != nil {
		action := "approved"
		if !result.Approved {
			action = "flagged"
		}
		h.metrics.RecordSafetyAction(action)
	}

	resp := scanResponse{Result: result}
	if h.scanner != nil {
		resp.Detections = h.scanner.Detect(req.Text)
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /v1/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	msgs := h.orch.History(r.Context(), authInfo.Identity())
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type favoriteRequest struct {
	Favorited bool `json:"favorited"`
}

// Favorite handles POST /v1/history/{id}/favorite.
func (h *Handler) Favorite(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteInvalidInputError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	messageID := chi.URLParam(r, "id")
	if !h.orch.Favorite(r.Context(), authInfo.Identity(), messageID, req.Favorited) {
		httputil.WriteNotFoundError(w, reqID, "Message not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": messageID, "favorited": req.Favorited})
}

// Alerts handles GET /v1/alerts.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	alerts := h.orch.Alerts(authInfo.Identity())
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// ResolveAlert handles POST /v1/alerts/{id}/resolve.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	alertID := chi.URLParam(r, "id")
	if !h.orch.ResolveAlert(r.Context(), authInfo.Identity(), alertID) {
		httputil.WriteNotFoundError(w, reqID, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": alertID, "resolved": true})
}

// Health handles GET /scribe/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// callOptions resolves per-key allowance overrides against service defaults.
func (h *Handler) callOptions(authInfo *auth.AuthInfo) orchestrator.Options {
	cfg := h.cfg()
	opts := orchestrator.Options{
		AutoProtect:      authInfo.AutoProtect,
		ComposeAllowance: cfg.Quota.ComposeDaily,
		AssistAllowance:  cfg.Quota.AssistDaily,
	}
	if authInfo.ComposeDailyLimit != nil {
		opts.ComposeAllowance = *authInfo.ComposeDailyLimit
	}
	if authInfo.AssistDailyLimit != nil {
		opts.AssistAllowance = *authInfo.AssistDailyLimit
	}
	return opts
}

func (h *Handler) recordOutcome(authInfo *auth.AuthInfo, req types.CompositionRequest, out orchestrator.Outcome, endpoint string, receivedAt time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordDuration(endpoint, float64(time.Since(receivedAt).Milliseconds()))

	labels := telemetry.CompositionLabels{
		Org:      authInfo.OrganizationID,
		Format:   string(req.Format),
		Language: string(req.Language),
		Tone:     string(req.Tone),
		Outcome:  string(out.Kind),
	}
	if out.Message != nil {
		labels.WordCount = len(strings.Fields(out.Message.Text))
	}
	h.metrics.RecordComposition(labels)

	switch out.Kind {
	case orchestrator.OutcomeQuotaExceeded:
		h.metrics.RecordQuotaDenied(authInfo.OrganizationID, "compose")
	case orchestrator.OutcomeComposed:
		action := "approved"
		if !out.Safety.Approved {
			action = "flagged"
			h.metrics.RecordAlert(authInfo.OrganizationID, alertSeverity(out.Safety))
		}
		h.metrics.RecordSafetyAction(action)
	}
}

// alertSeverity mirrors the severity assigned to the raised alert.
func alertSeverity(result types.SafetyResult) string {
	reason := ""
	if len(result.Reasons) > 0 {
		reason = result.Reasons[0]
	}
	return string(types.ClassifySeverity(reason))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
