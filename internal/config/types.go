package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Component configurations
	Server  ServerConfig
	Listing ListingConfig
	Fetch   FetchConfig
	Storage StorageConfig
	Handler HandlerConfig
}

// ServerConfig holds the HTTP delivery surface configuration.
type ServerConfig struct {
	Addr    string
	Timeout time.Duration
}

// ListingConfig points the discovery stage at the aggregator site.
type ListingConfig struct {
	// BaseURL is the aggregator root; tests point it at local servers.
	BaseURL string
	Timeout time.Duration
}

// FetchConfig tunes the document retrieval state machine. The retry
// counts, timeouts and delays are deliberately configuration, not
// behavioral contracts.
type FetchConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int

	// WarmupDelayMin/Max bound the randomized sleep after portal
	// warm-up requests.
	WarmupDelayMin time.Duration
	WarmupDelayMax time.Duration

	// BackoffMin/Max bound the randomized per-attempt backoff; the
	// drawn value is multiplied by the attempt number.
	BackoffMin time.Duration
	BackoffMax time.Duration

	// PoliteDelayMin/Max bound the randomized pause between documents
	// in a batch.
	PoliteDelayMin time.Duration
	PoliteDelayMax time.Duration

	// Fallback strategy (download-directory polling) tuning.
	FallbackPollInterval time.Duration
	FallbackMaxWait      time.Duration

	// StagingDir is where payloads land before archiving.
	StagingDir string
}

// StorageConfig selects and configures the archive storage adapter.
type StorageConfig struct {
	// Adapter is "fs" or "s3".
	Adapter  string
	BasePath string
	S3       S3Config
}

// S3Config configures the S3 storage adapter.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// HandlerConfig holds request handler configuration.
type HandlerConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableHealth   bool
	EnableMetrics  bool
}

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}
	if c.Listing.BaseURL == "" {
		errors = append(errors, "LISTING_BASE_URL is required")
	}
	if c.Fetch.MaxAttempts < 1 {
		errors = append(errors, "FETCH_MAX_ATTEMPTS must be at least 1")
	}
	if c.Fetch.ConnectTimeout <= 0 {
		errors = append(errors, "FETCH_CONNECT_TIMEOUT must be positive")
	}
	if c.Fetch.ReadTimeout <= 0 {
		errors = append(errors, "FETCH_READ_TIMEOUT must be positive")
	}
	if c.Fetch.WarmupDelayMax < c.Fetch.WarmupDelayMin {
		errors = append(errors, "FETCH_WARMUP_DELAY_MAX must not be below FETCH_WARMUP_DELAY_MIN")
	}
	if c.Fetch.BackoffMax < c.Fetch.BackoffMin {
		errors = append(errors, "FETCH_BACKOFF_MAX must not be below FETCH_BACKOFF_MIN")
	}
	if c.Fetch.PoliteDelayMax < c.Fetch.PoliteDelayMin {
		errors = append(errors, "FETCH_POLITE_DELAY_MAX must not be below FETCH_POLITE_DELAY_MIN")
	}
	if c.Fetch.FallbackPollInterval <= 0 {
		errors = append(errors, "FETCH_FALLBACK_POLL_INTERVAL must be positive")
	}
	if c.Handler.Timeout <= 0 {
		errors = append(errors, "HANDLER_TIMEOUT must be positive")
	}
	if c.Handler.MaxRequestSize <= 0 {
		errors = append(errors, "HANDLER_MAX_REQUEST_SIZE must be positive")
	}

	switch c.Storage.Adapter {
	case "fs", "s3":
	default:
		errors = append(errors, fmt.Sprintf("ADAPTER_STORAGE must be fs or s3, got %q", c.Storage.Adapter))
	}
	if c.IsProduction() && c.Storage.Adapter == "s3" && c.Storage.S3.Bucket == "" {
		errors = append(errors, "S3_BUCKET is required in production when the s3 adapter is selected")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// applyDefaults fills in environment-derived values that were left
// empty.
func applyDefaults(c *Config) {
	env := strings.ToLower(c.Environment)
	if c.Storage.S3.Bucket == "" && c.Storage.Adapter == "s3" {
		c.Storage.S3.Bucket = fmt.Sprintf("stocklib-%s-archives", env)
	}
}
