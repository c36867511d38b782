package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	data := []byte(`
server:
  httpAddr: ":8080"
redis:
  addr: "127.0.0.1:6379"
  db: 0
  prefix: "pixiu:urcu"
  updatesChannel: "pixiu_urcu_updates"
reclaim:
  enabled: true
  intervalMs: 10
  waitForStart: true
bootstrapRules:
  - ruleId: "r1"
    match: "/api"
    priority: 10
    limit: 100
    burst: 10
    enabled: true
bootstrapFlags:
  newMatcher: true
`)

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("server.httpAddr = %q", cfg.Server.HTTPAddr)
	}
	if !cfg.Reclaim.Enabled || cfg.Reclaim.Interval() != 10*time.Millisecond {
		t.Fatalf("reclaim config not parsed: %+v", cfg.Reclaim)
	}
	if len(cfg.BootstrapRules) != 1 {
		t.Fatalf("bootstrapRules = %d", len(cfg.BootstrapRules))
	}
	rule := cfg.BootstrapRules[0]
	if rule.Priority != 10 || rule.Limit != 100 || !rule.Enabled {
		t.Fatalf("rule fields not parsed: %+v", rule)
	}
	if !cfg.BootstrapFlags["newMatcher"] {
		t.Fatalf("bootstrapFlags not parsed")
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("redis:\n  addr: \"127.0.0.1:6379\"\n"), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("default httpAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Redis.Prefix != "pixiu:urcu" {
		t.Fatalf("default prefix = %q", cfg.Redis.Prefix)
	}
	if cfg.Redis.UpdatesChannel != "pixiu:urcu:updates" {
		t.Fatalf("default updates channel = %q", cfg.Redis.UpdatesChannel)
	}
	if cfg.Reclaim.Interval() != 0 {
		t.Fatalf("default reclaim interval = %v", cfg.Reclaim.Interval())
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	t.Setenv("URCU_TEST_ADDR", "10.0.0.1:6379")

	if err := os.WriteFile(path, []byte("redis:\n  addr: \"${URCU_TEST_ADDR}\"\n"), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Redis.Addr != "10.0.0.1:6379" {
		t.Fatalf("env not expanded: %q", cfg.Redis.Addr)
	}
}
