package hosting

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/contre95/pew/src/features/config"
	"github.com/contre95/pew/src/features/metrics"
	"github.com/contre95/pew/src/features/supervising"
	"github.com/contre95/pew/src/features/watching"
	"github.com/contre95/pew/src/infra/queue"
	"github.com/contre95/pew/src/reload"
)

type noSpawner struct{}

func (noSpawner) Spawn(reload.Command) (supervising.Process, error) {
	return nil, io.EOF
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := config.NewManager("pew.toml", &config.Config{Path: []string{"./src"}, ScriptType: "node"})
	history := queue.NewInMemoryHistory()

	started := time.Unix(1700000000, 0)
	for _, id := range []string{"first", "second"} {
		history.Record(context.Background(), reload.ProcessRecord{ID: id, PID: 10, Command: "node ./src", StartedAt: started})
		started = started.Add(time.Second)
	}

	runner := watching.NewRunner(manager, noSpawner{}, logger)
	handler := watching.NewHandler(runner, history, 10)
	return NewServer(manager, handler, metrics.NewRecorder(), logger)
}

func doRequest(t *testing.T, s *Server, method, target string) (int, string) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/health")
	if code != http.StatusOK || body != "OK" {
		t.Errorf("unexpected health response %d %q", code, body)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/status")
	if code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}
	var st map[string]any
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st["state"] != "stopped" {
		t.Errorf("expected stopped state, got %v", st["state"])
	}
}

func TestHistory(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/history?limit=1")
	if code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}
	var recs []reload.ProcessRecord
	if err := json.Unmarshal([]byte(body), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "second" {
		t.Errorf("expected the newest record only, got %+v", recs)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}
	for _, name := range []string{"pew_restarts_total", "pew_scans_total", "pew_process_state"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output is missing %s", name)
		}
	}
}

func TestRestartIsAccepted(t *testing.T) {
	s := newTestServer(t)
	code, _ := doRequest(t, s, http.MethodPost, "/restart")
	if code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", code)
	}
	code, _ = doRequest(t, s, http.MethodGet, "/restart")
	if code != http.StatusMethodNotAllowed && code != http.StatusNotFound {
		t.Errorf("GET /restart should not be routed, got %d", code)
	}
}

func TestConfig(t *testing.T) {
	s := newTestServer(t)
	code, body := doRequest(t, s, http.MethodGet, "/config")
	if code != http.StatusOK || !strings.Contains(body, `"script_type":"node"`) {
		t.Errorf("unexpected config response %d %s", code, body)
	}
}
