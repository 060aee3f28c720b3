package inet

import (
	"io"
	"sync/atomic"
)

// Response is an open request/response exchange tied to its Session. It
// becomes unusable once either it or its Session is closed.
type Response struct {
	session *Session
	handle  Handle
	url     string
	closed  atomic.Bool
}

// URL returns the URL the response was requested with.
func (r *Response) URL() string { return r.url }

func (r *Response) usable() error {
	if r.session.closed.Load() {
		return ErrSessionClosed
	}
	if r.closed.Load() {
		return ErrResponseClosed
	}
	return nil
}

// QueryStatus returns the numeric HTTP status code reported by the backend.
func (r *Response) QueryStatus() (int, error) {
	if err := r.usable(); err != nil {
		return 0, newError("status", HandleClosed, r.url, err)
	}
	code, err := r.session.backend.QueryStatusCode(r.handle)
	if err != nil {
		return 0, newError("status", StatusQueryFailed, r.url, err)
	}
	return code, nil
}

// Status returns the HTTP status code, or 0 when the backend cannot report
// one. Use QueryStatus to see why.
func (r *Response) Status() int {
	code, err := r.QueryStatus()
	if err != nil {
		r.session.log.DebugObj("status query failed", "status_error", map[string]any{
			"url":   r.url,
			"error": err.Error(),
		})
		return 0
	}
	return code
}

// Bytes returns a new single-pass reader over the response body. Readers
// share the backend position: a second reader does not replay bytes an
// earlier one consumed.
func (r *Response) Bytes() *ByteReader {
	return &ByteReader{resp: r}
}

// Body drains the remaining response body.
func (r *Response) Body() ([]byte, error) {
	return io.ReadAll(r.Bytes())
}

// Close releases the response handle. Calls after the first are no-ops.
func (r *Response) Close() error {
	if r == nil {
		return nil
	}
	err := r.release()
	delete(r.session.children, r)
	return err
}

func (r *Response) release() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.session.backend.CloseHandle(r.handle)
}
