package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config: %s", err)
	}
	return path
}

func TestParseJSONKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"server_addr": "127.0.0.1:9000", "log": {"level": "debug"}}`)
	c, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.APIServerAddr != "127.0.0.1:9000" {
		t.Errorf("expected overridden addr, got %s", c.APIServerAddr)
	}
	if c.LogConfig.Level != "debug" || c.LogConfig.Format != "json" {
		t.Errorf("unexpected log config: %+v", c.LogConfig)
	}
	if !c.Validation.SchemaValidation {
		t.Error("schema validation should default to true")
	}
	if c.Router.DeliveryTimeout() != 10*time.Second {
		t.Errorf("expected default timeout of 10s, got %s", c.Router.DeliveryTimeout())
	}
}

func TestParseYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
validation:
  schema_validation: false
  min_trust_score: 0.4
destinations:
  - id: rpc-handler
    type: http
    addr: localhost:8081
    path: /rpc
audit:
  sinks: [log, file]
  file_path: /tmp/interop.jsonl
`)
	c, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.Validation.SchemaValidation {
		t.Error("expected schema validation to be disabled")
	}
	if c.Validation.MinTrustScore != 0.4 {
		t.Errorf("expected min trust score 0.4, got %v", c.Validation.MinTrustScore)
	}
	if len(c.Destinations) != 1 || c.Destinations[0].Path != "/rpc" {
		t.Errorf("unexpected destinations: %+v", c.Destinations)
	}
	if len(c.Audit.Sinks) != 2 || c.Audit.RedisKey != "interop_events" {
		t.Errorf("unexpected audit config: %+v", c.Audit)
	}
}

func TestParseTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
server_addr = "0.0.0.0:7500"

[router]
delivery_timeout_ms = 250
ordered_sources = true

[[destinations]]
id = "maritime-tracking"
type = "redis"
addr = "localhost:6379"
queue = "ais"
`)
	c, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.Router.DeliveryTimeout() != 250*time.Millisecond || !c.Router.OrderedSources {
		t.Errorf("unexpected router config: %+v", c.Router)
	}
	if c.Router.BatchWorkers != 8 {
		t.Errorf("expected default batch workers, got %d", c.Router.BatchWorkers)
	}
	if len(c.Destinations) != 1 || c.Destinations[0].Queue != "ais" {
		t.Errorf("unexpected destinations: %+v", c.Destinations)
	}
}

func TestParseUnknownExtension(t *testing.T) {
	path := writeConfig(t, "config.ini", "a=b")
	_, err := ParseConfig(path)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := ParseConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadWithoutPath(t *testing.T) {
	conf, err := Load("")
	if err != nil || conf.APIServerAddr != Default().APIServerAddr {
		t.Fatalf("expected the defaults, got %+v %v", conf, err)
	}
}
