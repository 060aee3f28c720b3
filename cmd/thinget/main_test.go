package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunStreamsBody(t *testing.T) {
	body := strings.Repeat("thin-http ", 250)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Trace"); got != "abc" {
			t.Errorf("X-Trace = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "thinget-test" {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"--insecure",
		"--agent", "thinget-test",
		"--header", "X-Trace: abc",
		"--log-level", "error",
		srv.URL,
	}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v (stderr=%s)", err, stderr.String())
	}
	if stdout.String() != body {
		t.Fatalf("body mismatch: got %d bytes", stdout.Len())
	}
	if !strings.Contains(stderr.String(), "status: 200") {
		t.Fatalf("status line missing: %s", stderr.String())
	}
}

func TestRunStatusOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--insecure", "--status-only", srv.URL}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no body, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "status: 418") {
		t.Fatalf("status line missing: %s", stderr.String())
	}
}

func TestRunErrors(t *testing.T) {
	cases := map[string][]string{
		"no url":        {},
		"bad header":    {"--insecure", "--header", "no-colon", "http://127.0.0.1:1/"},
		"unreachable":   {"--insecure", "http://127.0.0.1:1/"},
		"bad proxy":     {"--proxy", "ftp://p:21", "http://127.0.0.1:1/"},
		"bad backend":   {"--backend", "curl", "http://127.0.0.1:1/"},
		"unknown flag":  {"--bogus", "http://127.0.0.1:1/"},
		"bad scheme":    {"ftp://example.com/"},
		"too many args": {"http://a/", "http://b/"},
	}
	for name, args := range cases {
		var stdout, stderr bytes.Buffer
		if err := run(context.Background(), args, &stdout, &stderr); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
