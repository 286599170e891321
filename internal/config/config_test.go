package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Backend != BackendDynamo || cfg.Partition != "default" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("empty path should yield defaults: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"backend":"pebble","partition":"orders","pebble":{"dataDir":"/tmp/d","fsync":"interval","fsyncIntervalMs":10}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendPebble || cfg.Partition != "orders" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Pebble.DataDir != "/tmp/d" || cfg.Pebble.Fsync != "interval" || cfg.Pebble.FsyncIntervalMs != 10 {
		t.Fatalf("pebble cfg = %+v", cfg.Pebble)
	}
	// untouched fields keep defaults
	if cfg.PageSize != 100 {
		t.Fatalf("page size default lost: %d", cfg.PageSize)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "backend: dynamo\npartition: orders\ndynamo:\n  table: prod-log\n  region: eu-central-1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Dynamo.Table != "prod-log" || cfg.Dynamo.Region != "eu-central-1" || cfg.Partition != "orders" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := writeFile(t, "cfg.json", "{nope")
	if _, err := Load(path); err == nil {
		t.Fatalf("want parse error")
	}
}

func TestFromEnvOverlays(t *testing.T) {
	t.Setenv("DYNALOG_BACKEND", "pebble")
	t.Setenv("DYNALOG_PARTITION", "audit")
	t.Setenv("DYNALOG_PAGE_SIZE", "25")
	t.Setenv("DYNALOG_RETRY_BUDGET", "5")
	t.Setenv("DYNALOG_DATA_DIR", "/var/lib/x")

	cfg := Default()
	FromEnv(&cfg)
	if cfg.Backend != BackendPebble || cfg.Partition != "audit" || cfg.PageSize != 25 || cfg.RetryBudget != 5 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Pebble.DataDir != "/var/lib/x" {
		t.Fatalf("data dir = %q", cfg.Pebble.DataDir)
	}
}

func TestFromEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("DYNALOG_PAGE_SIZE", "many")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.PageSize != 100 {
		t.Fatalf("bad number should be ignored, got %d", cfg.PageSize)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Backend = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("want unknown backend error")
	}
}

func TestValidateRequiresDynamoTable(t *testing.T) {
	cfg := Default()
	cfg.Dynamo.Table = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("want missing table error")
	}
}
