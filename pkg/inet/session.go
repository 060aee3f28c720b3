// Package inet is a thin, handle-owning wrapper over a platform HTTP client.
//
// A Session owns one backend session handle and a Response owns one request
// handle obtained from it. Each handle is closed exactly once. Neither type is
// safe for concurrent use; give each Session a single owner.
package inet

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/SaitoAtsushi/thin-http/pkg/widestring"
)

// Session is an open client session through which requests are issued.
type Session struct {
	backend  Backend
	handle   Handle
	agent    string
	proxy    string
	log      Logger
	closed   atomic.Bool
	children map[*Response]struct{}
}

type sessionOptions struct {
	proxy   string
	backend Backend
	log     Logger
}

// Option configures Open.
type Option func(*sessionOptions)

// WithProxy routes the session through the proxy at addr. An empty addr
// leaves the session direct.
func WithProxy(addr string) Option {
	return func(o *sessionOptions) { o.proxy = strings.TrimSpace(addr) }
}

// WithBackend selects the platform backend. DefaultBackend is used otherwise.
func WithBackend(b Backend) Option {
	return func(o *sessionOptions) { o.backend = b }
}

// WithLogger attaches a logger to the session and its responses.
func WithLogger(log Logger) Option {
	return func(o *sessionOptions) { o.log = log }
}

// Open establishes a session identified by the user agent string agent.
func Open(agent string, opts ...Option) (*Session, error) {
	var o sessionOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.backend == nil {
		o.backend = DefaultBackend()
	}
	log := OrNop(o.log)

	access := AccessDirect
	if o.proxy != "" {
		access = AccessProxy
	}

	h, err := o.backend.OpenSession(widestring.New(agent), access, widestring.Optional(o.proxy))
	if err != nil && h != 0 {
		err = errors.Join(err, o.backend.CloseHandle(h))
		h = 0
	}
	if err != nil || h == 0 {
		openErr := newError("open", SessionOpenFailed, "", err)
		log.WarnObj("session open failed", "session_error", map[string]any{
			"agent":  agent,
			"access": access.String(),
			"proxy":  o.proxy,
			"error":  openErr.Error(),
		})
		return nil, openErr
	}

	log.DebugObj("session opened", "session", map[string]any{
		"agent":  agent,
		"access": access.String(),
		"proxy":  o.proxy,
	})

	return &Session{
		backend:  o.backend,
		handle:   h,
		agent:    agent,
		proxy:    o.proxy,
		log:      log,
		children: make(map[*Response]struct{}),
	}, nil
}

// Agent returns the user agent the session was opened with.
func (s *Session) Agent() string { return s.agent }

// Proxy returns the proxy address, or "" for a direct session.
func (s *Session) Proxy() string { return s.proxy }

type getOptions struct {
	flags   RequestFlags
	headers map[string]string
	raw     []string
}

// GetOption configures Session.Get.
type GetOption func(*getOptions)

// WithHeaders adds request headers.
func WithHeaders(headers map[string]string) GetOption {
	return func(o *getOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithRawHeaders adds CRLF-separated "Name: value" header lines.
func WithRawHeaders(raw string) GetOption {
	return func(o *getOptions) {
		if raw = strings.TrimSpace(raw); raw != "" {
			o.raw = append(o.raw, raw)
		}
	}
}

// WithFlags replaces DefaultFlags for one request.
func WithFlags(flags RequestFlags) GetOption {
	return func(o *getOptions) { o.flags = flags }
}

func (o getOptions) headerBlock() string {
	if len(o.headers) == 0 && len(o.raw) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o.headers))
	for k := range o.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.TrimSpace(k))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(o.headers[k]))
		b.WriteString("\r\n")
	}
	for _, raw := range o.raw {
		b.WriteString(raw)
		b.WriteString("\r\n")
	}
	return b.String()
}

// Get issues a request for url and returns the open response. The caller
// must Close the response; closing the session closes it as well.
func (s *Session) Get(ctx context.Context, url string, opts ...GetOption) (*Response, error) {
	if s == nil || s.closed.Load() {
		return nil, newError("get", HandleClosed, url, ErrSessionClosed)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o := getOptions{flags: DefaultFlags}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	h, err := s.backend.OpenURL(ctx, s.handle, widestring.New(url), widestring.Optional(o.headerBlock()), o.flags)
	if err != nil && h != 0 {
		err = errors.Join(err, s.backend.CloseHandle(h))
		h = 0
	}
	if err != nil || h == 0 {
		getErr := newError("get", FetchFailed, url, err)
		s.log.WarnObj("fetch failed", "fetch_error", map[string]any{
			"url":   url,
			"flags": o.flags.String(),
			"error": getErr.Error(),
		})
		return nil, getErr
	}

	resp := &Response{session: s, handle: h, url: url}
	s.children[resp] = struct{}{}
	s.log.DebugObj("request opened", "request", map[string]any{
		"url":   url,
		"flags": o.flags.String(),
	})
	return resp, nil
}

// Close releases every open response and then the session handle. Calls
// after the first are no-ops.
func (s *Session) Close() error {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for resp := range s.children {
		if err := resp.release(); err != nil {
			errs = append(errs, err)
		}
	}
	s.children = nil

	if err := s.backend.CloseHandle(s.handle); err != nil {
		errs = append(errs, err)
	}
	s.log.DebugObj("session closed", "session", map[string]any{"agent": s.agent})
	return errors.Join(errs...)
}
