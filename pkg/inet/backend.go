package inet

import (
	"context"

	"github.com/SaitoAtsushi/thin-http/pkg/widestring"
)

// Handle is an opaque backend handle. The zero value is the null handle.
type Handle uintptr

// Backend is the platform HTTP client the wrapper drives. Sessions and
// responses own the handles a Backend returns and close each one exactly once.
type Backend interface {
	// OpenSession opens a client session. proxy is absent for AccessDirect.
	OpenSession(agent widestring.WideString, access AccessType, proxy widestring.WideString) (Handle, error)
	// OpenURL issues a request for url on session. headers may be absent; when
	// present it holds CRLF-separated "Name: value" lines.
	OpenURL(ctx context.Context, session Handle, url, headers widestring.WideString, flags RequestFlags) (Handle, error)
	// ReadChunk fills buf until it is full or the body ends. It reports the
	// number of bytes delivered; (0, nil) marks the end of the body.
	ReadChunk(h Handle, buf []byte) (int, error)
	// QueryStatusCode returns the numeric HTTP status of a completed request.
	QueryStatusCode(h Handle) (int, error)
	// CloseHandle releases a session or request handle.
	CloseHandle(h Handle) error
}
