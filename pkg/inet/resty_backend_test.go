package inet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRestyBackendSecureFetch(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 2*ChunkSize)
	var gotAgent, gotCache, gotPragma, gotCustom string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		gotCache = r.Header.Get("Cache-Control")
		gotPragma = r.Header.Get("Pragma")
		gotCustom = r.Header.Get("X-Test")
		w.Write(body)
	}))
	defer srv.Close()

	backend := NewRestyBackend(RestyOptions{
		TLSConfig: srv.Client().Transport.(*http.Transport).TLSClientConfig,
	})
	s, err := Open("test-agent", WithBackend(backend))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// FlagSecure upgrades the plain URL to TLS.
	plain := strings.Replace(srv.URL, "https://", "http://", 1)
	resp, err := s.Get(context.Background(), plain, WithHeaders(map[string]string{"X-Test": "1"}))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Close()

	if got := resp.Status(); got != http.StatusOK {
		t.Fatalf("Status = %d", got)
	}
	r := resp.Bytes()
	var got []byte
	for {
		b, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, b)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("body length %d, want %d", len(got), len(body))
	}
	if _, ok, _ := r.Next(); ok {
		t.Fatalf("reader produced data after end of body")
	}

	if gotAgent != "test-agent" {
		t.Fatalf("User-Agent = %q", gotAgent)
	}
	if gotCache != "no-cache, no-store" || gotPragma != "no-cache" {
		t.Fatalf("cache headers = %q / %q", gotCache, gotPragma)
	}
	if gotCustom != "1" {
		t.Fatalf("X-Test = %q", gotCustom)
	}
}

func TestRestyBackendReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	s, err := Open("agent", WithBackend(NewRestyBackend(RestyOptions{})))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL, WithFlags(DefaultFlags.Without(FlagSecure)))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := resp.Status(); got != http.StatusNotFound {
		t.Fatalf("Status = %d", got)
	}
	body, err := resp.Body()
	if err != nil || strings.TrimSpace(string(body)) != "missing" {
		t.Fatalf("Body = %q, %v", body, err)
	}
}

func TestRestyBackendRoutesThroughProxy(t *testing.T) {
	var hits atomic.Int32
	var requestURI string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		requestURI = r.RequestURI
		w.Write([]byte("via-proxy"))
	}))
	defer proxy.Close()

	s, err := Open("agent",
		WithBackend(NewRestyBackend(RestyOptions{})),
		WithProxy(strings.TrimPrefix(proxy.URL, "http://")),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	resp, err := s.Get(context.Background(), "http://origin.invalid/page", WithFlags(FlagReload))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, err := resp.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if hits.Load() != 1 || string(body) != "via-proxy" {
		t.Fatalf("proxy hits = %d body = %q", hits.Load(), body)
	}
	if requestURI != "http://origin.invalid/page" {
		t.Fatalf("proxy saw request URI %q, want absolute form", requestURI)
	}
}

func TestRestyBackendRejectsInvalidProxy(t *testing.T) {
	for _, addr := range []string{"ftp://proxy:21", "http://", "http://[::1"} {
		_, err := Open("agent", WithBackend(NewRestyBackend(RestyOptions{})), WithProxy(addr))
		if !errors.Is(err, SessionOpenFailed) {
			t.Fatalf("proxy %q: expected SessionOpenFailed, got %v", addr, err)
		}
	}
}

func TestRestyBackendUnreachableTarget(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	s, err := Open("agent", WithBackend(NewRestyBackend(RestyOptions{})))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	resp, err := s.Get(context.Background(), addr, WithFlags(FlagReload))
	if resp != nil || !errors.Is(err, FetchFailed) {
		t.Fatalf("expected FetchFailed, got resp=%v err=%v", resp, err)
	}
}

func TestRestyBackendRejectsBadHeaders(t *testing.T) {
	s, err := Open("agent", WithBackend(NewRestyBackend(RestyOptions{})))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_, err = s.Get(context.Background(), "https://example.com/", WithRawHeaders("Bad Header: x"))
	if !errors.Is(err, FetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
}

func TestRestyBackendUnknownHandles(t *testing.T) {
	b := NewRestyBackend(RestyOptions{})
	if _, err := b.ReadChunk(42, make([]byte, 1)); !errors.Is(err, errUnknownHandle) {
		t.Fatalf("ReadChunk = %v", err)
	}
	if _, err := b.QueryStatusCode(42); !errors.Is(err, errUnknownHandle) {
		t.Fatalf("QueryStatusCode = %v", err)
	}
	if err := b.CloseHandle(42); !errors.Is(err, errUnknownHandle) {
		t.Fatalf("CloseHandle = %v", err)
	}
}

func TestPrepareURL(t *testing.T) {
	cases := []struct {
		in    string
		flags RequestFlags
		want  string
		err   bool
	}{
		{"http://example.com/", DefaultFlags, "https://example.com/", false},
		{"http://example.com:80/a?b=c", FlagSecure, "https://example.com/a?b=c", false},
		{"http://[::1]:80/", FlagSecure, "https://[::1]/", false},
		{"http://example.com:8080/", FlagSecure, "https://example.com:8080/", false},
		{"http://example.com/", FlagReload, "http://example.com/", false},
		{"https://example.com/", 0, "https://example.com/", false},
		{"ftp://example.com/", DefaultFlags, "", true},
		{"http:///nohost", 0, "", true},
	}
	for _, tc := range cases {
		got, err := prepareURL(tc.in, tc.flags)
		if (err != nil) != tc.err {
			t.Fatalf("prepareURL(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("prepareURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeProxy(t *testing.T) {
	got, err := normalizeProxy("proxy.local:3128")
	if err != nil || got != "http://proxy.local:3128" {
		t.Fatalf("normalizeProxy = %q, %v", got, err)
	}
	got, err = normalizeProxy("socks5://127.0.0.1:1080")
	if err != nil || got != "socks5://127.0.0.1:1080" {
		t.Fatalf("normalizeProxy socks = %q, %v", got, err)
	}
	if _, err := normalizeProxy(" "); err == nil {
		t.Fatalf("expected empty proxy error")
	}
}

func TestParseHeaderBlock(t *testing.T) {
	h, err := parseHeaderBlock("Accept: text/html\r\nX-Token:  abc \r\n\r\n")
	if err != nil {
		t.Fatalf("parseHeaderBlock: %v", err)
	}
	if h["Accept"] != "text/html" || h["X-Token"] != "abc" || len(h) != 2 {
		t.Fatalf("headers = %#v", h)
	}
	if _, err := parseHeaderBlock("no colon here"); err == nil {
		t.Fatalf("expected malformed header error")
	}
	if h, err := parseHeaderBlock(""); err != nil || h != nil {
		t.Fatalf("empty block = %#v, %v", h, err)
	}
}

func TestRestyBackendTruncatedBodyIsReadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 5000\r\nContent-Type: text/plain\r\n\r\n")
		buf.Write(bytes.Repeat([]byte("t"), 1500))
		buf.Flush()
	}))
	defer srv.Close()

	s, err := Open("test-agent", WithBackend(NewRestyBackend(RestyOptions{})))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	resp, err := s.Get(context.Background(), srv.URL, WithFlags(DefaultFlags.Without(FlagSecure)))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Close()

	got, err := io.ReadAll(resp.Bytes())
	if err == nil {
		t.Fatalf("truncated body (%d of 5000 bytes) ended as a clean end of body", len(got))
	}
	if !errors.Is(err, ReadFailed) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("unexpected error %v", err)
	}
	if len(got) != 1500 {
		t.Fatalf("delivered %d bytes before the failure, want 1500", len(got))
	}
}
