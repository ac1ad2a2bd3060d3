package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `server:
  address: 127.0.0.1
  port: 9090
logging:
  level: debug
  format: json
engine:
  pool_capacity: 64
  pool_workers: 4
services:
  - name: posts
    base_url: https://api.example.com
    engine: fasthttp
    connect_timeout: 2s
    read_timeout: 10s
    default_headers:
      X-Api-Key: k
    rate_limit:
      rps: 50
      burst: 10
    retry:
      max_attempts: 3
      base_delay: 100ms
      max_delay: 2s
operations:
  - key: getPostById
    service: posts
    method: GET
    path: /posts/{id}
    params:
      - name: id
        in: path
        required: true
record:
  enabled: true
  db_path: ./records
probes:
  - cron: "*/5 * * * *"
    operation: getPostById
    args:
      id: 1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	svc := cfg.Service("posts")
	if svc == nil || svc.BaseURL != "https://api.example.com" || svc.Engine != "fasthttp" {
		t.Fatalf("unexpected service: %+v", svc)
	}
	if svc.RateLimit.RPS != 50 || svc.Retry.MaxAttempts != 3 {
		t.Fatalf("policies not parsed: %+v", svc)
	}
	if len(cfg.Operations) != 1 || cfg.Operations[0].Key != "getPostById" {
		t.Fatalf("operations not parsed: %+v", cfg.Operations)
	}
	if !cfg.Record.Enabled || cfg.Record.DBPath != "./records" {
		t.Fatalf("record block not parsed: %+v", cfg.Record)
	}
	if len(cfg.Probes) != 1 || cfg.Probes[0].Operation != "getPostById" {
		t.Fatalf("probes not parsed: %+v", cfg.Probes)
	}
}

func TestAddrDefaults(t *testing.T) {
	cfg := &Config{}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Addr())
	}
}

func TestDuration(t *testing.T) {
	if d := Duration("", time.Second); d != time.Second {
		t.Fatalf("empty must fall back: %v", d)
	}
	if d := Duration("250ms", time.Second); d != 250*time.Millisecond {
		t.Fatalf("unexpected: %v", d)
	}
	if d := Duration("nonsense", time.Second); d != time.Second {
		t.Fatalf("malformed must fall back: %v", d)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CALLBRIDGE_ADDR", "10.0.0.5:9999")
	t.Setenv("CALLBRIDGE_LOG_LEVEL", "DEBUG")
	t.Setenv("CALLBRIDGE_POOL_WORKERS", "16")
	t.Setenv("CALLBRIDGE_SERVICE_POSTS_URL", "http://override:8081")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ApplyEnvOverrides(cfg) {
		t.Fatalf("expected env overrides to report use")
	}
	if cfg.Addr() != "10.0.0.5:9999" {
		t.Fatalf("addr override not applied: %s", cfg.Addr())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level not normalized: %s", cfg.Logging.Level)
	}
	if cfg.Engine.PoolWorkers != 16 {
		t.Fatalf("pool workers override not applied: %d", cfg.Engine.PoolWorkers)
	}
	if cfg.Service("posts").BaseURL != "http://override:8081" {
		t.Fatalf("service URL override not applied: %s", cfg.Service("posts").BaseURL)
	}
}

func TestLoadEffectiveMissingFile(t *testing.T) {
	cfg, envUsed, err := LoadEffective(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be fatal: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected empty config")
	}
	_ = envUsed
}

func TestResolveConfigPath(t *testing.T) {
	if p := ResolveConfigPath("./flag.yaml", true); p != "./flag.yaml" {
		t.Fatalf("flag must win: %s", p)
	}
	t.Setenv("CALLBRIDGE_CONFIG", "/etc/callbridge.yaml")
	if p := ResolveConfigPath("./default.yaml", false); p != "/etc/callbridge.yaml" {
		t.Fatalf("env must win over default: %s", p)
	}
}
