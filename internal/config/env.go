package config

import (
	"os"
	"strconv"
)

// FromEnv overlays DYNALOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("DYNALOG_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("DYNALOG_PARTITION"); v != "" {
		cfg.Partition = v
	}
	if v := os.Getenv("DYNALOG_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = int32(n)
		}
	}
	if v := os.Getenv("DYNALOG_RETRY_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetryBudget = n
		}
	}
	if v := os.Getenv("DYNALOG_TABLE"); v != "" {
		cfg.Dynamo.Table = v
	}
	if v := os.Getenv("DYNALOG_REGION"); v != "" {
		cfg.Dynamo.Region = v
	}
	if v := os.Getenv("DYNALOG_ENDPOINT"); v != "" {
		cfg.Dynamo.Endpoint = v
	}
	if v := os.Getenv("DYNALOG_DATA_DIR"); v != "" {
		cfg.Pebble.DataDir = v
	}
	if v := os.Getenv("DYNALOG_FSYNC"); v != "" {
		cfg.Pebble.Fsync = v
	}
	if v := os.Getenv("DYNALOG_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pebble.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("DYNALOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DYNALOG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("DYNALOG_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}
