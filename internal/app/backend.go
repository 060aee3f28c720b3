package app

import (
	"crypto/tls"
	"fmt"

	"github.com/SaitoAtsushi/thin-http/internal/config"
	"github.com/SaitoAtsushi/thin-http/internal/logger"
	"github.com/SaitoAtsushi/thin-http/pkg/inet"
)

// NewBackend builds the inet backend named by cfg.Backend.
func NewBackend(cfg *config.Config, log logger.Logger) (inet.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	switch cfg.Backend {
	case "", config.BackendResty:
		opts := inet.RestyOptions{Timeout: cfg.RequestTimeout}
		if cfg.InsecureSkipVerify {
			opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
		if z, ok := log.(*logger.Zap); ok {
			opts.Logger = z.Sugar()
		}
		return inet.NewRestyBackend(opts), nil
	case config.BackendWinINet:
		return newWinINetBackend()
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// OpenSession opens an inet session using the configured agent and proxy.
func OpenSession(cfg *config.Config, backend inet.Backend, log logger.Logger) (*inet.Session, error) {
	return inet.Open(cfg.UserAgent,
		inet.WithBackend(backend),
		inet.WithProxy(cfg.Proxy),
		inet.WithLogger(log),
	)
}
