package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SaitoAtsushi/thin-http/internal/config"
	"github.com/SaitoAtsushi/thin-http/pkg/publishers"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, target, hook string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	jobsFile := writeFile(t, dir, "jobs.yaml", fmt.Sprintf(`
jobs:
  - id: home
    url: %s/
    insecure: true
`, target))
	pubsFile := writeFile(t, dir, "publishers.yaml", fmt.Sprintf(`
publishers:
  - id: hook
    type: http
    http:
      url: %s
`, hook))

	return &config.Config{
		AppName:               "thin-http-test",
		UserAgent:             "runner-test",
		Backend:               config.BackendResty,
		RequestTimeout:        5 * time.Second,
		JobsFile:              jobsFile,
		PublishersFile:        pubsFile,
		FetchInterval:         time.Hour,
		StorageType:           "bbolt",
		BBoltPath:             filepath.Join(dir, "ledger.db"),
		LedgerTTL:             time.Hour,
		LedgerCleanupInterval: time.Hour,
	}
}

func TestRunnerFetchesAndPublishes(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "runner-test" {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprint(w, "<html><head><title>Runner</title></head><body></body></html>")
	}))
	defer target.Close()

	events := make(chan publishers.Event, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		events <- evt
	}))
	defer hook.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := NewRunner(ctx, testConfig(t, target.URL, hook.URL), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	select {
	case evt := <-events:
		if evt.JobID != "home" || evt.Status != http.StatusOK || evt.Title != "Runner" {
			t.Fatalf("unexpected event %#v", evt)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for event")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runner did not stop after cancel")
	}
}

func TestNewRunnerErrors(t *testing.T) {
	if _, err := NewRunner(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}

	cfg := testConfig(t, "http://127.0.0.1", "http://127.0.0.1/hook")
	cfg.JobsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewRunner(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing jobs file")
	}

	cfg = testConfig(t, "http://127.0.0.1", "http://127.0.0.1/hook")
	cfg.Proxy = "ftp://proxy:21"
	if _, err := NewRunner(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unsupported proxy scheme")
	}
}

func TestNewBackendRejectsUnknown(t *testing.T) {
	if _, err := NewBackend(&config.Config{Backend: "curl"}, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	b, err := NewBackend(&config.Config{Backend: config.BackendResty, InsecureSkipVerify: true}, nil)
	if err != nil || b == nil {
		t.Fatalf("NewBackend resty: %v", err)
	}
}
