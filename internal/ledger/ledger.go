// Package ledger records recent fetch outcomes so scheduled runs can skip
// jobs fetched within the retention window. Bodies are never stored.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Record is the outcome of one fetch.
type Record struct {
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Bytes     int64     `json:"bytes"`
	SHA256    string    `json:"sha256"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store tracks fetched job keys.
type Store interface {
	Close() error
	Seen(key string) (bool, error)
	Get(key string) (Record, bool, error)
	Mark(key string, rec Record) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// New creates the configured ledger backend.
func New(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt ledger requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Seen(string) (bool, error)        { return false, nil }
func (noopStore) Get(string) (Record, bool, error) { return Record{}, false, nil }
func (noopStore) Mark(string, Record) error        { return nil }
