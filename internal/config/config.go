package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. THINHTTP_PROXY.
const EnvPrefix = "THINHTTP"

// Backend names accepted by the backend key.
const (
	BackendResty   = "resty"
	BackendWinINet = "wininet"
)

// Config holds the application configuration loaded from files, environment
// variables and command-line flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	UserAgent             string        `mapstructure:"user_agent"`
	Proxy                 string        `mapstructure:"proxy"`
	Backend               string        `mapstructure:"backend"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	InsecureSkipVerify    bool          `mapstructure:"insecure_skip_verify"`

	JobsFile             string        `mapstructure:"jobs_file"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	FetchIntervalSeconds int64         `mapstructure:"fetch_interval"`
	FetchInterval        time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`
	// LedgerTTLSeconds is how long a fetched job is skipped. Zero derives it
	// from the fetch interval (half of it), so every scheduled pass refetches
	// while a restart inside the window does not. A value above
	// fetch_interval makes jobs refetch less often than the ticker fires.
	LedgerTTLSeconds      int64         `mapstructure:"ledger_ttl_seconds"`
	LedgerCleanupSeconds  int64         `mapstructure:"ledger_cleanup_interval_seconds"`
	LedgerTTL             time.Duration `mapstructure:"-"`
	LedgerCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"agent":                "user_agent",
	"proxy":                "proxy",
	"backend":              "backend",
	"log-level":            "log_level",
	"timeout":              "request_timeout_seconds",
	"insecure-skip-verify": "insecure_skip_verify",
	"jobs":                 "jobs_file",
	"publishers":           "publishers_file",
	"interval":             "fetch_interval",
	"storage":              "storage_type",
	"bbolt-path":           "bbolt_path",
}

// Load reads configuration from environment variables, configs/.env and the
// optional flag set. Only flags listed in flagKeys are bound.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "thin-http")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("user_agent", "thin-http/1.0")
	v.SetDefault("proxy", "")
	v.SetDefault("backend", BackendResty)
	v.SetDefault("request_timeout_seconds", 0)
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("jobs_file", "./configs/jobs.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("fetch_interval", 900) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/ledger.db")
	v.SetDefault("ledger_ttl_seconds", 0) // derived from fetch_interval
	v.SetDefault("ledger_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Proxy = strings.TrimSpace(cfg.Proxy)
	cfg.UserAgent = strings.TrimSpace(cfg.UserAgent)

	switch cfg.Backend {
	case BackendResty, BackendWinINet:
	default:
		return nil, fmt.Errorf("invalid backend %q (expected %s or %s)", cfg.Backend, BackendResty, BackendWinINet)
	}

	if cfg.RequestTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.FetchIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_interval (must be positive seconds)")
	}
	cfg.FetchInterval = time.Duration(cfg.FetchIntervalSeconds) * time.Second

	if cfg.LedgerTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid ledger_ttl_seconds (must be zero or positive seconds)")
	}
	if cfg.LedgerCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid ledger_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.LedgerTTL = time.Duration(cfg.LedgerTTLSeconds) * time.Second
	if cfg.LedgerTTL == 0 {
		cfg.LedgerTTL = max(cfg.FetchInterval/2, time.Second)
	}
	cfg.LedgerCleanupInterval = time.Duration(cfg.LedgerCleanupSeconds) * time.Second

	return &cfg, nil
}
