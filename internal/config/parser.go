package config

// parse reads configuration from environment variables.
func parse() (*Config, error) {
	cfg := &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", "local"),
		ServiceName: getEnv("SERVICE_NAME", "stocklib"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Version:     getEnv("SERVICE_VERSION", "1.0.0"),

		Server: ServerConfig{
			Addr:    getEnv("HTTP_ADDR", ":8080"),
			Timeout: getDuration("HTTP_TIMEOUT", "600s"),
		},

		Listing: ListingConfig{
			BaseURL: getEnv("LISTING_BASE_URL", "https://www.screener.in"),
			Timeout: getDuration("LISTING_TIMEOUT", "20s"),
		},

		Fetch: FetchConfig{
			ConnectTimeout: getDuration("FETCH_CONNECT_TIMEOUT", "15s"),
			ReadTimeout:    getDuration("FETCH_READ_TIMEOUT", "120s"),
			MaxAttempts:    getInt("FETCH_MAX_ATTEMPTS", 3),

			WarmupDelayMin: getDuration("FETCH_WARMUP_DELAY_MIN", "1s"),
			WarmupDelayMax: getDuration("FETCH_WARMUP_DELAY_MAX", "2s"),

			BackoffMin: getDuration("FETCH_BACKOFF_MIN", "2s"),
			BackoffMax: getDuration("FETCH_BACKOFF_MAX", "5s"),

			PoliteDelayMin: getDuration("FETCH_POLITE_DELAY_MIN", "1s"),
			PoliteDelayMax: getDuration("FETCH_POLITE_DELAY_MAX", "2500ms"),

			FallbackPollInterval: getDuration("FETCH_FALLBACK_POLL_INTERVAL", "1s"),
			FallbackMaxWait:      getDuration("FETCH_FALLBACK_MAX_WAIT", "300s"),

			StagingDir: getEnv("FETCH_STAGING_DIR", ""),
		},

		Storage: StorageConfig{
			Adapter:  getEnv("ADAPTER_STORAGE", "fs"),
			BasePath: getEnv("STORAGE_BASE_PATH", "./data"),
			S3: S3Config{
				Bucket:          getEnv("S3_BUCKET", ""),
				Region:          getEnv("AWS_REGION", "us-east-2"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
			},
		},

		Handler: HandlerConfig{
			Timeout:        getDuration("HANDLER_TIMEOUT", "600s"),
			MaxRequestSize: int64(getInt("HANDLER_MAX_REQUEST_SIZE", 1024*1024)),
			EnableHealth:   getBool("HANDLER_ENABLE_HEALTH", true),
			EnableMetrics:  getBool("HANDLER_ENABLE_METRICS", true),
		},
	}

	return cfg, nil
}
