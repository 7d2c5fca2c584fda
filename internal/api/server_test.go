package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/crossrealm/xrealmd/pkg/store"
	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

// setupTestServer creates a test server with a temporary database.
// enforcing selects the engine mode.
func setupTestServer(t *testing.T, enforcing bool) (*store.Store, http.Handler) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := xrealm.NewEngine(xrealm.Config{
		Enforcing: &enforcing,
		Source:    s,
		Logger:    logger,
		Audit:     xrealm.NewStoreDecisionLogger(s),
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	return s, NewServer(s, engine, logger).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decisionBody(client string) map[string]any {
	return map[string]any{
		"client":  client,
		"service": "host/web01@R1.TEST",
		"edge": map[string]string{
			"target_realm": "R1.TEST",
			"hop_realm":    "R2.TEST",
		},
	}
}

const testEdgeKrbtgt = "krbtgt/R1.TEST@R2.TEST"

func TestHealthEndpoint(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", result["status"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "GET", "/ready", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestDecideDeniedWithoutRule(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R2.TEST"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", w.Code, w.Body.String())
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// The rejection is deliberately generic.
	if result["error"] != "KDC policy rejects request" {
		t.Errorf("unexpected error message: %q", result["error"])
	}
}

func TestDecideAllowedAfterGrant(t *testing.T) {
	s, h := setupTestServer(t, true)

	if err := s.AddPrincipal(testEdgeKrbtgt); err != nil {
		t.Fatalf("failed to add edge principal: %v", err)
	}
	if err := s.SetAttribute(testEdgeKrbtgt, "xr:@R2.TEST", ""); err != nil {
		t.Fatalf("failed to grant realm rule: %v", err)
	}

	w := doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R2.TEST"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result decisionResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Outcome != "allow" {
		t.Errorf("expected outcome allow, got %q", result.Outcome)
	}
	if result.Reason != "rule_match" {
		t.Errorf("expected reason rule_match, got %q", result.Reason)
	}
	if result.Rule != "xr:@R2.TEST" {
		t.Errorf("expected matched rule, got %q", result.Rule)
	}
	if result.RequestID == "" {
		t.Error("expected a request ID in the response")
	}
}

func TestDecideMonitoringModeAllowsLogged(t *testing.T) {
	_, h := setupTestServer(t, false)

	w := doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R2.TEST"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result decisionResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Outcome != "allow_logged" {
		t.Errorf("expected outcome allow_logged, got %q", result.Outcome)
	}
	if result.Reason != "would_deny" {
		t.Errorf("expected reason would_deny, got %q", result.Reason)
	}
}

func TestDecideCompactEdgeForm(t *testing.T) {
	_, h := setupTestServer(t, false)

	body := map[string]any{
		"client":       "user@R2.TEST",
		"service":      "host/web01@R1.TEST",
		"edge_compact": "R1.TEST@R2.TEST",
	}
	w := doJSON(t, h, "POST", "/api/v1/decisions", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDecideRejectsSameRealmRequest(t *testing.T) {
	_, h := setupTestServer(t, true)

	// Client already in the edge target realm: no trust edge is crossed.
	w := doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R1.TEST"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestDecideRejectsMalformedBody(t *testing.T) {
	_, h := setupTestServer(t, true)

	cases := map[string]map[string]any{
		"missing client": {
			"service": "host/web01@R1.TEST",
			"edge":    map[string]string{"target_realm": "R1.TEST", "hop_realm": "R2.TEST"},
		},
		"client without realm": {
			"client":  "user",
			"service": "host/web01@R1.TEST",
			"edge":    map[string]string{"target_realm": "R1.TEST", "hop_realm": "R2.TEST"},
		},
		"missing edge": {
			"client":  "user@R2.TEST",
			"service": "host/web01@R1.TEST",
		},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, h, "POST", "/api/v1/decisions", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestEdgeAttributeLifecycle(t *testing.T) {
	_, h := setupTestServer(t, true)

	// First grant auto-registers the edge principal.
	w := doJSON(t, h, "POST", "/api/v1/edges/R1.TEST@R2.TEST/attributes",
		map[string]string{"key": "xr:@R2.TEST"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var set attributeView
	if err := json.NewDecoder(w.Body).Decode(&set); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !set.Rule {
		t.Error("xr:@R2.TEST should be flagged as a rule")
	}

	// Foreign attributes are stored but not rules.
	w = doJSON(t, h, "POST", "/api/v1/edges/R1.TEST@R2.TEST/attributes",
		map[string]string{"key": "session_lifetime", "value": "8h"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = doJSON(t, h, "GET", "/api/v1/edges/R1.TEST@R2.TEST/attributes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed struct {
		Attributes []attributeView `json:"attributes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(listed.Attributes))
	}
	for _, a := range listed.Attributes {
		if a.Key == "session_lifetime" && a.Rule {
			t.Error("session_lifetime must not be flagged as a rule")
		}
	}

	w = doJSON(t, h, "DELETE", "/api/v1/edges/R1.TEST@R2.TEST/attributes/xr:@R2.TEST", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}

	// Deleting again is a 404.
	w = doJSON(t, h, "DELETE", "/api/v1/edges/R1.TEST@R2.TEST/attributes/xr:@R2.TEST", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestEdgeAttributesUnknownEdgeIsEmpty(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "GET", "/api/v1/edges/R1.TEST@R9.TEST/attributes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed struct {
		Attributes []attributeView `json:"attributes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Attributes) != 0 {
		t.Errorf("expected no attributes, got %d", len(listed.Attributes))
	}
}

func TestEdgeAttributeRejectsBadEdgeForm(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "GET", "/api/v1/edges/notanedge/attributes", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestGrantTakesEffectOnNextDecision(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R2.TEST"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", w.Code)
	}

	w = doJSON(t, h, "POST", "/api/v1/edges/R1.TEST@R2.TEST/attributes",
		map[string]string{"key": "xr:user"})
	if w.Code != http.StatusOK {
		t.Fatalf("grant failed: %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R2.TEST"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after grant, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPrincipalEndpoints(t *testing.T) {
	_, h := setupTestServer(t, true)

	w := doJSON(t, h, "POST", "/api/v1/principals", map[string]string{"name": testEdgeKrbtgt})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate registration conflicts.
	w = doJSON(t, h, "POST", "/api/v1/principals", map[string]string{"name": testEdgeKrbtgt})
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}

	w = doJSON(t, h, "GET", "/api/v1/principals", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed struct {
		Principals []store.Principal `json:"principals"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Principals) != 1 || listed.Principals[0].Name != testEdgeKrbtgt {
		t.Errorf("unexpected principal list: %+v", listed.Principals)
	}

	w = doJSON(t, h, "DELETE", "/api/v1/principals/"+testEdgeKrbtgt, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	w = doJSON(t, h, "DELETE", "/api/v1/principals/"+testEdgeKrbtgt, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDecisionLogEndpoint(t *testing.T) {
	_, h := setupTestServer(t, true)

	for i := 0; i < 3; i++ {
		doJSON(t, h, "POST", "/api/v1/decisions", decisionBody("user@R2.TEST"))
	}

	w := doJSON(t, h, "GET", "/api/v1/decisions/log?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var listed struct {
		Entries []xrealm.DecisionEntry `json:"entries"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listed.Entries))
	}
	if listed.Entries[0].Outcome != "deny" {
		t.Errorf("expected deny entries, got %q", listed.Entries[0].Outcome)
	}
	if listed.Entries[0].RequestID == "" {
		t.Error("decision entries must carry the request ID")
	}

	w = doJSON(t, h, "GET", "/api/v1/decisions/log?limit=nope", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad limit, got %d", w.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	_, h := setupTestServer(t, true)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(decisionBody("user@R2.TEST")); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/api/v1/decisions", &buf)
	req.Header.Set("X-Request-ID", "req-supplied")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-supplied" {
		t.Errorf("expected supplied request ID to be echoed, got %q", got)
	}
}
