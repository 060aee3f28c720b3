//go:build windows

package wininet

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"github.com/SaitoAtsushi/thin-http/pkg/inet"
	"github.com/SaitoAtsushi/thin-http/pkg/widestring"
	"golang.org/x/sys/windows"
)

const (
	internetOpenTypeDirect = 1
	internetOpenTypeProxy  = 3

	internetFlagReload       = 0x80000000
	internetFlagNoCacheWrite = 0x04000000
	internetFlagRawData      = 0x40000000
	internetFlagSecure       = 0x00800000

	httpQueryStatusCode = 19
	httpQueryFlagNumber = 0x20000000

	// headersLengthAuto tells InternetOpenUrlW the header block is null-terminated.
	headersLengthAuto = 0xFFFFFFFF
)

var (
	modwininet              = windows.NewLazySystemDLL("wininet.dll")
	procInternetOpenW       = modwininet.NewProc("InternetOpenW")
	procInternetOpenUrlW    = modwininet.NewProc("InternetOpenUrlW")
	procInternetReadFile    = modwininet.NewProc("InternetReadFile")
	procHttpQueryInfoW      = modwininet.NewProc("HttpQueryInfoW")
	procInternetCloseHandle = modwininet.NewProc("InternetCloseHandle")
)

// Backend drives wininet.dll synchronously. Handles are native HINTERNET values.
type Backend struct{}

var _ inet.Backend = (*Backend)(nil)

// New returns a WinINet backend, failing when wininet.dll cannot be loaded.
func New() (*Backend, error) {
	if err := modwininet.Load(); err != nil {
		return nil, fmt.Errorf("load wininet.dll: %w", err)
	}
	return &Backend{}, nil
}

// OpenSession calls InternetOpenW.
func (b *Backend) OpenSession(agent widestring.WideString, access inet.AccessType, proxy widestring.WideString) (inet.Handle, error) {
	var openType uintptr
	switch access {
	case inet.AccessDirect:
		openType = internetOpenTypeDirect
	case inet.AccessProxy:
		if proxy.IsAbsent() {
			return 0, errors.New("proxy access requires a proxy name")
		}
		openType = internetOpenTypeProxy
	default:
		return 0, fmt.Errorf("unsupported access type %d", access)
	}

	r, _, e := procInternetOpenW.Call(
		uintptr(unsafe.Pointer(agent.Ptr())),
		openType,
		uintptr(unsafe.Pointer(proxy.Ptr())),
		0,
		0,
	)
	if r == 0 {
		return 0, callError("InternetOpenW", e)
	}
	return inet.Handle(r), nil
}

// OpenURL calls InternetOpenUrlW. The call itself cannot be cancelled; ctx
// is only checked before it starts.
func (b *Backend) OpenURL(ctx context.Context, session inet.Handle, url, headers widestring.WideString, flags inet.RequestFlags) (inet.Handle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var headersLen uintptr
	if !headers.IsAbsent() {
		headersLen = headersLengthAuto
	}

	r, _, e := procInternetOpenUrlW.Call(
		uintptr(session),
		uintptr(unsafe.Pointer(url.Ptr())),
		uintptr(unsafe.Pointer(headers.Ptr())),
		headersLen,
		uintptr(nativeFlags(flags)),
		0,
	)
	if r == 0 {
		return 0, callError("InternetOpenUrlW", e)
	}
	return inet.Handle(r), nil
}

// ReadChunk calls InternetReadFile until buf is full or the body ends.
func (b *Backend) ReadChunk(h inet.Handle, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		var n uint32
		r, _, e := procInternetReadFile.Call(
			uintptr(h),
			uintptr(unsafe.Pointer(&buf[total])),
			uintptr(len(buf)-total),
			uintptr(unsafe.Pointer(&n)),
		)
		if r == 0 {
			return total, callError("InternetReadFile", e)
		}
		if n == 0 {
			break
		}
		total += int(n)
	}
	return total, nil
}

// QueryStatusCode calls HttpQueryInfoW for the numeric status code.
func (b *Backend) QueryStatusCode(h inet.Handle) (int, error) {
	var code uint32
	size := uint32(unsafe.Sizeof(code))
	var index uint32
	r, _, e := procHttpQueryInfoW.Call(
		uintptr(h),
		httpQueryStatusCode|httpQueryFlagNumber,
		uintptr(unsafe.Pointer(&code)),
		uintptr(unsafe.Pointer(&size)),
		uintptr(unsafe.Pointer(&index)),
	)
	if r == 0 {
		return 0, callError("HttpQueryInfoW", e)
	}
	return int(code), nil
}

// CloseHandle calls InternetCloseHandle.
func (b *Backend) CloseHandle(h inet.Handle) error {
	r, _, e := procInternetCloseHandle.Call(uintptr(h))
	if r == 0 {
		return callError("InternetCloseHandle", e)
	}
	return nil
}

func nativeFlags(flags inet.RequestFlags) uint32 {
	var out uint32
	if flags.Has(inet.FlagReload) {
		out |= internetFlagReload
	}
	if flags.Has(inet.FlagNoCacheWrite) {
		out |= internetFlagNoCacheWrite
	}
	if flags.Has(inet.FlagRawData) {
		out |= internetFlagRawData
	}
	if flags.Has(inet.FlagSecure) {
		out |= internetFlagSecure
	}
	return out
}

// callError keeps the Win32 error code the call reported.
func callError(fn string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) && errno != 0 {
		return fmt.Errorf("%s: %w", fn, errno)
	}
	return fmt.Errorf("%s failed without an error code", fn)
}
