package inet

import (
	"context"
	"errors"

	"github.com/SaitoAtsushi/thin-http/pkg/widestring"
)

// fakeBackend scripts a single-body platform for wrapper tests.
type fakeBackend struct {
	openErr    error
	openNull   bool
	urlErr     error
	status     int
	statusErr  error
	body       []byte
	readErr    error
	failOnRead int  // 1-based read call that fails; 0 never fails
	partial    int  // bytes delivered by the failing read
	errHandle  bool // failing opens still hand out a handle

	next       Handle
	pos        int
	reads      int
	closed     []Handle
	agent      string
	access     AccessType
	proxy      widestring.WideString
	headers    string
	flags      RequestFlags
	requestURL string
}

func (f *fakeBackend) OpenSession(agent widestring.WideString, access AccessType, proxy widestring.WideString) (Handle, error) {
	f.agent = agent.String()
	f.access = access
	f.proxy = proxy
	if f.openErr != nil && f.errHandle {
		f.next++
		return f.next, f.openErr
	}
	if f.openErr != nil || f.openNull {
		return 0, f.openErr
	}
	f.next++
	return f.next, nil
}

func (f *fakeBackend) OpenURL(_ context.Context, _ Handle, url, headers widestring.WideString, flags RequestFlags) (Handle, error) {
	f.requestURL = url.String()
	f.headers = headers.String()
	f.flags = flags
	if f.urlErr != nil && f.errHandle {
		f.next++
		return f.next, f.urlErr
	}
	if f.urlErr != nil {
		return 0, f.urlErr
	}
	f.next++
	return f.next, nil
}

func (f *fakeBackend) ReadChunk(_ Handle, buf []byte) (int, error) {
	f.reads++
	if f.failOnRead != 0 && f.reads == f.failOnRead {
		n := copy(buf[:f.partial], f.body[f.pos:])
		f.pos += n
		return n, f.readErr
	}
	n := copy(buf, f.body[f.pos:])
	f.pos += n
	return n, nil
}

func (f *fakeBackend) QueryStatusCode(Handle) (int, error) {
	if f.statusErr != nil {
		return 0, f.statusErr
	}
	return f.status, nil
}

func (f *fakeBackend) CloseHandle(h Handle) error {
	f.closed = append(f.closed, h)
	return nil
}

func (f *fakeBackend) closeCount(h Handle) int {
	n := 0
	for _, c := range f.closed {
		if c == h {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
