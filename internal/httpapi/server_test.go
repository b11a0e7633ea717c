package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirill3224/privacy-sentry/internal/archive"
	"github.com/kirill3224/privacy-sentry/internal/config"
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/observability"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

func newTestServer(t *testing.T) (*Server, *session.Store, archive.Store) {
	t.Helper()
	store := session.NewStore()
	arch := archive.NewInMemoryStore()
	turns := observability.NewTurnWindow(16)
	srv := New(config.Config{GatewayMode: "mock"}, store, nil, arch, turns)
	return srv, store, arch
}

func getJSON(t *testing.T, handler http.Handler, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestHealthAndReady(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	var body map[string]any
	if code := getJSON(t, router, "/healthz", &body); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
	if body["gateway_mode"] != "mock" {
		t.Fatalf("healthz body = %v", body)
	}
	if code := getJSON(t, router, "/readyz", nil); code != http.StatusOK {
		t.Fatalf("readyz = %d", code)
	}
}

func TestSessionStatsCountsActiveWorkflows(t *testing.T) {
	srv, store, _ := newTestServer(t)
	router := srv.Router()

	s := store.Get(1)
	s.Workflow = session.WorkflowPolicy
	s.State = "policy/q_project_name"
	store.Put(s)

	var body map[string]int
	if code := getJSON(t, router, "/v1/sessions/stats", &body); code != http.StatusOK {
		t.Fatalf("stats = %d", code)
	}
	if body["active_workflows"] != 1 {
		t.Fatalf("active_workflows = %d, want 1", body["active_workflows"])
	}
}

func TestDocumentStats(t *testing.T) {
	srv, _, arch := newTestServer(t)
	router := srv.Router()

	if err := arch.Record(context.Background(), archive.DocumentRecord{Workflow: "policy", FileName: "p.md"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	var stats archive.Stats
	if code := getJSON(t, router, "/v1/documents/stats", &stats); code != http.StatusOK {
		t.Fatalf("documents stats = %d", code)
	}
	if stats.Total != 1 || stats.ByWorkflow["policy"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestPerfTurnsSnapshot(t *testing.T) {
	store := session.NewStore()
	turns := observability.NewTurnWindow(16)
	turns.Observe("handle_text", 12*time.Millisecond)
	srv := New(config.Config{GatewayMode: "mock"}, store, nil, nil, turns)

	var snap observability.TurnSnapshot
	if code := getJSON(t, srv.Router(), "/v1/perf/turns", &snap); code != http.StatusOK {
		t.Fatalf("perf turns = %d", code)
	}
	if len(snap.Stages) == 0 {
		t.Fatalf("snapshot should include the observed stage: %+v", snap)
	}
}

func TestWebchatRouteWithoutHub(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if code := getJSON(t, srv.Router(), "/ws?user_id=1", nil); code != http.StatusNotFound {
		t.Fatalf("ws without hub = %d, want 404", code)
	}
}

func TestWebchatRejectsBadUserID(t *testing.T) {
	store := session.NewStore()
	srv := New(config.Config{GatewayMode: "webchat"}, store, gateway.NewHub(), nil, nil)
	if code := getJSON(t, srv.Router(), "/ws?user_id=abc", nil); code != http.StatusBadRequest {
		t.Fatalf("ws bad user id = %d, want 400", code)
	}
}
