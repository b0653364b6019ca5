package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Search.DefaultLimit != 10 || cfg.Index.Language != "english" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
index:
  dataDir: /var/lib/textindex
  ref: slug
  fields:
    - name: headline
      boost: 3
    - name: text
      positions: true
search:
  defaultLimit: 5
  timeout: 250ms
redis:
  enabled: true
`)
	t.Setenv("TI_SERVER_PORT", "9100")
	t.Setenv("TI_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, env override not applied", cfg.Server.Port)
	}
	if cfg.Index.Ref != "slug" || len(cfg.Index.Fields) != 2 || cfg.Index.Fields[0].Boost != 3 || !cfg.Index.Fields[1].Positions {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Search.Timeout != 250*time.Millisecond || cfg.Search.MaxResults != 100 {
		t.Errorf("Search = %+v", cfg.Search)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"data dir", func(c *Config) { c.Index.DataDir = "" }},
		{"ref", func(c *Config) { c.Index.Ref = "" }},
		{"empty field", func(c *Config) { c.Index.Fields = []FieldConfig{{}} }},
		{"duplicate field", func(c *Config) { c.Index.Fields = []FieldConfig{{Name: "a"}, {Name: "a"}} }},
		{"negative boost", func(c *Config) { c.Index.Fields = []FieldConfig{{Name: "a", Boost: -1}} }},
		{"language", func(c *Config) { c.Index.Language = "klingon" }},
		{"limit", func(c *Config) { c.Search.DefaultLimit = 500 }},
		{"source", func(c *Config) { c.Source.Kind = "csv" }},
		{"kafka", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperrors.IsConfiguration(err) {
				t.Errorf("Validate = %v, want configuration error", err)
			}
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); !apperrors.IsConfiguration(err) {
		t.Errorf("err = %v, want configuration error", err)
	}
}
