package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/af-corp/scribe/internal/auth"
	"github.com/af-corp/scribe/internal/compose"
	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/history"
	"github.com/af-corp/scribe/internal/httputil"
	"github.com/af-corp/scribe/internal/orchestrator"
	"github.com/af-corp/scribe/internal/quota"
	"github.com/af-corp/scribe/internal/safety"
	"github.com/af-corp/scribe/internal/telemetry"
	"github.com/af-corp/scribe/internal/types"
)

func newTestHandler() *Handler {
	cfg := config.DefaultConfig()
	templates := func() *config.TemplatesConfig { return config.DefaultTemplates() }
	safetyCfg := func() config.SafetyConfig { return cfg.Safety }
	scanner := safety.NewScanner(safetyCfg)

	orch := orchestrator.New(
		compose.New(templates),
		scanner,
		safety.NewNeutralizer(scanner, safetyCfg, templates),
		quota.NewMemoryManager(nil),
		quota.NewMemoryManager(nil),
		history.NewMessageLog(),
		history.NewAlertLog(),
		nil,
		nil,
	)
	return NewHandler(orch, scanner, func() *config.Config { return cfg }, nil, nil)
}

func testRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/v1/compose", h.Compose)
	r.Post("/v1/compose/{id}/variations", h.Variations)
	r.Post("/v1/scan", h.Scan)
	r.Get("/v1/history", h.History)
	r.Post("/v1/history/{id}/favorite", h.Favorite)
	r.Get("/v1/alerts", h.Alerts)
	r.Post("/v1/alerts/{id}/resolve", h.ResolveAlert)
	return r
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	info := &auth.AuthInfo{
		KeyID:          "key-1",
		OrganizationID: "school-1",
		UserID:         "teacher-1",
	}
	return req.WithContext(auth.ContextWithAuth(req.Context(), info))
}

func TestCompose_HappyPath(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{
		"topic":         "missing homework",
		"tone":          "warm",
		"format":        "email",
		"target_length": 105,
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp composeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message == nil || resp.Message.Text == "" {
		t.Fatal("expected a composed message")
	}
	if !resp.Safety.Approved {
		t.Errorf("expected approval, got reasons %v", resp.Safety.Reasons)
	}
	if resp.Remaining != 4 {
		t.Errorf("expected remaining 4, got %d", resp.Remaining)
	}
}

func TestCompose_EmptyTopic(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{"topic": "   "})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp httputil.APIError
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "invalid_input" {
		t.Errorf("expected code 'invalid_input', got %q", resp.Error.Code)
	}
}

func TestCompose_QuotaExhausted(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{"topic": "field trip"})
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))
		if w.Code != http.StatusOK {
			t.Fatalf("compose %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	var resp httputil.APIError
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "daily_quota_exceeded" {
		t.Errorf("expected code 'daily_quota_exceeded', got %q", resp.Error.Code)
	}
}

func TestCompose_NotAuthenticated(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{"topic": "field trip"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/compose", bytes.NewReader(body)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestVariations_RoundTrip(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{"topic": "reading progress"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))
	if w.Code != http.StatusOK {
		t.Fatalf("compose failed: %d", w.Code)
	}

	var composed composeResponse
	json.Unmarshal(w.Body.Bytes(), &composed)

	w = httptest.NewRecorder()
	target := fmt.Sprintf("/v1/compose/%s/variations", composed.Message.ID)
	r.ServeHTTP(w, authedRequest("POST", target, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("variations: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var varied composeResponse
	json.Unmarshal(w.Body.Bytes(), &varied)
	if len(varied.Message.Variations) != 1 {
		t.Errorf("expected one recorded variation, got %d", len(varied.Message.Variations))
	}
}

func TestVariations_UnknownMessage(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose/msg_missing/variations", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestScan_FlagsDraft(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]string{
		"text": "You can text me at 555-123-4567 any evening.",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/scan", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp scanResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Result.Approved {
		t.Error("expected the phone number to be flagged")
	}
	if len(resp.Detections) == 0 {
		t.Error("expected the matched span to be reported")
	}
}

func TestScan_EmptyText(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]string{"text": "  "})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/scan", body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHistoryAndFavorite(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{"topic": "science fair"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))
	var composed composeResponse
	json.Unmarshal(w.Body.Bytes(), &composed)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("GET", "/v1/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	var hist struct {
		Messages []types.ComposedMessage `json:"messages"`
	}
	json.Unmarshal(w.Body.Bytes(), &hist)
	if len(hist.Messages) != 1 {
		t.Fatalf("expected one retained message, got %d", len(hist.Messages))
	}

	favBody, _ := json.Marshal(map[string]bool{"favorited": true})
	w = httptest.NewRecorder()
	target := fmt.Sprintf("/v1/history/%s/favorite", composed.Message.ID)
	r.ServeHTTP(w, authedRequest("POST", target, favBody))
	if w.Code != http.StatusOK {
		t.Fatalf("favorite: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("GET", "/v1/history", nil))
	json.Unmarshal(w.Body.Bytes(), &hist)
	if !hist.Messages[0].Favorited {
		t.Error("favorited flag did not persist")
	}
}

func TestAlertsFlow(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	// A topic carrying an email address produces an unapproved scan.
	body, _ := json.Marshal(map[string]any{"topic": "reaching me at jane.doe@example.com"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))
	if w.Code != http.StatusOK {
		t.Fatalf("compose: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("GET", "/v1/alerts", nil))
	var alertsResp struct {
		Alerts []types.Alert `json:"alerts"`
	}
	json.Unmarshal(w.Body.Bytes(), &alertsResp)
	if len(alertsResp.Alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alertsResp.Alerts))
	}
	if alertsResp.Alerts[0].Severity != types.SeverityHigh {
		t.Errorf("expected high severity for personal data, got %s", alertsResp.Alerts[0].Severity)
	}

	w = httptest.NewRecorder()
	target := fmt.Sprintf("/v1/alerts/%s/resolve", alertsResp.Alerts[0].ID)
	r.ServeHTTP(w, authedRequest("POST", target, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/alerts/alert_missing/resolve", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown alert, got %d", w.Code)
	}
}

// testMetrics builds unregistered metric vecs so tests stay off the default
// registry.
func testMetrics() *telemetry.Metrics {
	return &telemetry.Metrics{
		CompositionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_composition_total", Help: "Test",
		}, []string{"org", "format", "language", "tone", "outcome"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "test_request_duration_ms", Help: "Test",
		}, []string{"endpoint"}),
		SafetyActionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_safety_action_total", Help: "Test",
		}, []string{"action"}),
		QuotaDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_quota_denied_total", Help: "Test",
		}, []string{"org", "flow"}),
		AlertsRaisedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_alerts_raised_total", Help: "Test",
		}, []string{"org", "severity"}),
		MessageWordCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "test_message_word_count", Help: "Test",
		}, []string{"format"}),
	}
}

func TestCompose_FlaggedDraftIncrementsAlertCounter(t *testing.T) {
	h := newTestHandler()
	h.metrics = testMetrics()
	r := testRouter(h)

	body, _ := json.Marshal(map[string]any{"topic": "reaching me at jane.doe@example.com"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest("POST", "/v1/compose", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	counter, err := h.metrics.AlertsRaisedTotal.GetMetricWithLabelValues("school-1", "high")
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var metric dto.Metric
	counter.Write(&metric)
	if *metric.Counter.Value != 1 {
		t.Errorf("expected one raised alert recorded, got %v", *metric.Counter.Value)
	}
}

func TestCompose_PerKeyAllowanceOverride(t *testing.T) {
	h := newTestHandler()
	r := testRouter(h)

	limit := 1
	info := &auth.AuthInfo{
		KeyID:             "key-2",
		OrganizationID:    "school-1",
		UserID:            "teacher-2",
		ComposeDailyLimit: &limit,
	}

	body, _ := json.Marshal(map[string]any{"topic": "field trip"})
	req := httptest.NewRequest("POST", "/v1/compose", bytes.NewReader(body))
	req = req.WithContext(auth.ContextWithAuth(req.Context(), info))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first compose: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/v1/compose", bytes.NewReader(body))
	req = req.WithContext(auth.ContextWithAuth(req.Context(), info))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second compose: expected 429 with a 1/day key, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler()
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/scribe/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected ok status, got %v", resp["status"])
	}
	if _, err := time.Parse(time.RFC3339, resp["time"].(string)); err != nil {
		t.Errorf("health time should be RFC3339: %v", err)
	}
}
