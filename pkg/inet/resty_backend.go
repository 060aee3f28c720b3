package inet

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SaitoAtsushi/thin-http/pkg/widestring"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/http/httpguts"
)

var errUnknownHandle = errors.New("unknown handle")

// RestyOptions tunes the clients a RestyBackend creates.
type RestyOptions struct {
	// Timeout bounds each request including the body read. Zero means none.
	Timeout time.Duration
	// TLSConfig overrides the transport TLS settings when non-nil.
	TLSConfig *tls.Config
	// Logger receives resty's own diagnostics.
	Logger resty.Logger
}

// RestyBackend implements Backend on top of resty and net/http. Each session
// handle maps to its own resty.Client; each request handle holds the
// unparsed response body. It is safe to share between sessions.
type RestyBackend struct {
	opts RestyOptions

	mu       sync.Mutex
	next     Handle
	sessions map[Handle]*resty.Client
	requests map[Handle]*restyRequest
}

type restyRequest struct {
	session Handle
	resp    *resty.Response
	body    io.ReadCloser
}

// NewRestyBackend creates a backend with the given options.
func NewRestyBackend(opts RestyOptions) *RestyBackend {
	return &RestyBackend{
		opts:     opts,
		sessions: make(map[Handle]*resty.Client),
		requests: make(map[Handle]*restyRequest),
	}
}

var defaultBackend = sync.OnceValue(func() Backend { return NewRestyBackend(RestyOptions{}) })

// DefaultBackend returns the shared portable backend.
func DefaultBackend() Backend { return defaultBackend() }

// OpenSession creates a resty client carrying agent as its User-Agent.
func (b *RestyBackend) OpenSession(agent widestring.WideString, access AccessType, proxy widestring.WideString) (Handle, error) {
	client := resty.New()
	if b.opts.Logger != nil {
		client.SetLogger(b.opts.Logger)
	}
	if b.opts.Timeout > 0 {
		client.SetTimeout(b.opts.Timeout)
	}
	if b.opts.TLSConfig != nil {
		client.SetTLSClientConfig(b.opts.TLSConfig.Clone())
	}
	client.SetHeader("User-Agent", agent.String())

	switch access {
	case AccessDirect:
		client.RemoveProxy()
	case AccessProxy:
		proxyURL, err := normalizeProxy(proxy.String())
		if err != nil {
			return 0, err
		}
		client.SetProxy(proxyURL)
		if !client.IsProxySet() {
			return 0, fmt.Errorf("proxy %q was not accepted", proxyURL)
		}
	default:
		return 0, fmt.Errorf("unsupported access type %d", access)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextHandle()
	b.sessions[h] = client
	return h, nil
}

// OpenURL performs the GET and keeps the body open for ReadChunk.
func (b *RestyBackend) OpenURL(ctx context.Context, session Handle, rawURL, headers widestring.WideString, flags RequestFlags) (Handle, error) {
	b.mu.Lock()
	client, ok := b.sessions[session]
	b.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("session %d: %w", session, errUnknownHandle)
	}

	target, err := prepareURL(rawURL.String(), flags)
	if err != nil {
		return 0, err
	}
	extra, err := parseHeaderBlock(headers.String())
	if err != nil {
		return 0, err
	}

	req := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)

	var cacheDirectives []string
	if flags.Has(FlagReload) {
		cacheDirectives = append(cacheDirectives, "no-cache")
		req.SetHeader("Pragma", "no-cache")
	}
	if flags.Has(FlagNoCacheWrite) {
		cacheDirectives = append(cacheDirectives, "no-store")
	}
	if len(cacheDirectives) > 0 {
		req.SetHeader("Cache-Control", strings.Join(cacheDirectives, ", "))
	}
	if len(extra) > 0 {
		req.SetHeaders(extra)
	}

	// The body is never decoded here, so FlagRawData needs no extra handling.
	resp, err := req.Get(target)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextHandle()
	b.requests[h] = &restyRequest{session: session, resp: resp, body: resp.RawBody()}
	return h, nil
}

// ReadChunk fills buf from the response body.
func (b *RestyBackend) ReadChunk(h Handle, buf []byte) (int, error) {
	b.mu.Lock()
	req, ok := b.requests[h]
	b.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("request %d: %w", h, errUnknownHandle)
	}
	if req.body == nil {
		return 0, nil
	}

	total := 0
	for total < len(buf) {
		n, err := req.body.Read(buf[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			// A body cut short of its Content-Length surfaces as
			// io.ErrUnexpectedEOF and is a failure, not the end.
			return total, err
		}
	}
	return total, nil
}

// QueryStatusCode returns the status line code.
func (b *RestyBackend) QueryStatusCode(h Handle) (int, error) {
	b.mu.Lock()
	req, ok := b.requests[h]
	b.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("request %d: %w", h, errUnknownHandle)
	}
	code := req.resp.StatusCode()
	if code == 0 {
		return 0, errors.New("response carries no status code")
	}
	return code, nil
}

// CloseHandle releases a session client or a request body.
func (b *RestyBackend) CloseHandle(h Handle) error {
	b.mu.Lock()
	client, isSession := b.sessions[h]
	req, isRequest := b.requests[h]
	delete(b.sessions, h)
	delete(b.requests, h)
	b.mu.Unlock()

	switch {
	case isSession:
		client.GetClient().CloseIdleConnections()
		return nil
	case isRequest:
		if req.body == nil {
			return nil
		}
		return req.body.Close()
	default:
		return fmt.Errorf("close %d: %w", h, errUnknownHandle)
	}
}

// nextHandle must be called with b.mu held.
func (b *RestyBackend) nextHandle() Handle {
	b.next++
	return b.next
}

// normalizeProxy accepts "host:port" as well as a proxy URL.
func normalizeProxy(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("proxy address is empty")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("parse proxy address: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return "", fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("proxy address %q has no host", addr)
	}
	return u.String(), nil
}

// prepareURL validates the target and applies FlagSecure.
func prepareURL(raw string, flags RequestFlags) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if flags.Has(FlagSecure) {
			u.Scheme = "https"
			if u.Port() == "80" {
				u.Host = hostOnly(u.Hostname())
			}
		}
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return u.String(), nil
}

func hostOnly(host string) string {
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		return "[" + host + "]"
	}
	return host
}

// parseHeaderBlock splits CRLF-separated header lines into a map.
func parseHeaderBlock(block string) (map[string]string, error) {
	block = strings.TrimSpace(block)
	if block == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("invalid header name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("invalid value for header %q", name)
		}
		out[name] = value
	}
	return out, nil
}
