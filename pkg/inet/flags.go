package inet

import "strings"

// AccessType selects how a session reaches the network.
type AccessType uint32

const (
	// AccessDirect connects straight to the origin; no environment or system
	// proxy settings are consulted.
	AccessDirect AccessType = 1
	// AccessProxy routes every request through the configured proxy.
	AccessProxy AccessType = 3
)

func (a AccessType) String() string {
	switch a {
	case AccessDirect:
		return "direct"
	case AccessProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// RequestFlags is a set of per-request behaviour flags.
type RequestFlags uint32

const (
	// FlagReload bypasses any intermediate cache.
	FlagReload RequestFlags = 1 << iota
	// FlagNoCacheWrite keeps the result out of any cache.
	FlagNoCacheWrite
	// FlagRawData delivers the payload as opaque bytes.
	FlagRawData
	// FlagSecure requires a TLS connection.
	FlagSecure
)

// DefaultFlags is the flag set used by Session.Get unless overridden.
const DefaultFlags = FlagReload | FlagNoCacheWrite | FlagRawData | FlagSecure

var flagNames = []struct {
	flag RequestFlags
	name string
}{
	{FlagReload, "reload"},
	{FlagNoCacheWrite, "no-cache-write"},
	{FlagRawData, "raw-data"},
	{FlagSecure, "secure"},
}

// Has reports whether every flag in f is set.
func (s RequestFlags) Has(f RequestFlags) bool { return s&f == f }

// With returns s with f added.
func (s RequestFlags) With(f RequestFlags) RequestFlags { return s | f }

// Without returns s with f removed.
func (s RequestFlags) Without(f RequestFlags) RequestFlags { return s &^ f }

func (s RequestFlags) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if s.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseFlag maps a flag name, as printed by String, to its value.
func ParseFlag(name string) (RequestFlags, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return 0, false
}
