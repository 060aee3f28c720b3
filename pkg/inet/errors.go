package inet

import (
	"errors"
	"fmt"
)

// Kind classifies the operation that failed.
type Kind int

const (
	KindUnknown Kind = iota
	SessionOpenFailed
	FetchFailed
	StatusQueryFailed
	ReadFailed
	HandleClosed
)

// Error implements error so a Kind can be matched with errors.Is.
func (k Kind) Error() string {
	switch k {
	case SessionOpenFailed:
		return "session open failed"
	case FetchFailed:
		return "fetch failed"
	case StatusQueryFailed:
		return "status query failed"
	case ReadFailed:
		return "read failed"
	case HandleClosed:
		return "handle closed"
	default:
		return fmt.Sprintf("unknown inet error: %d", int(k))
	}
}

var (
	// ErrSessionClosed is returned when a session, or a response obtained from
	// it, is used after Session.Close.
	ErrSessionClosed = errors.New("inet: session closed")
	// ErrResponseClosed is returned when a response is used after Response.Close.
	ErrResponseClosed = errors.New("inet: response closed")
	// ErrNullHandle is reported by backends that return a zero handle without an error.
	ErrNullHandle = errors.New("inet: backend returned a null handle")
)

// Error describes a failed wrapper operation. The backend cause is kept.
type Error struct {
	Op   string
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	msg := "inet: " + e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind Kind, url string, err error) *Error {
	if err == nil {
		err = ErrNullHandle
	}
	return &Error{Op: op, Kind: kind, URL: url, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
