package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
name: bridge-a
cipher_key: secret
remote_address:
  s1: msgist://relay.example
log_level: info
log_format: json
metrics_enabled: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "bridge-a" {
		t.Fatalf("got name %q", cfg.Name)
	}
	if cfg.RemoteAddress["s1"] != "msgist://relay.example" {
		t.Fatalf("got remote_address %+v", cfg.RemoteAddress)
	}
	if !cfg.MetricsEnabled {
		t.Fatal("expected metrics_enabled to be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for an empty config")
	}
	for _, want := range []string{"name is required", "cipher_key is required", "remote_address"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing expected complaint %q", err, want)
		}
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Config{
		Name:          "a",
		CipherKey:     "k",
		RemoteAddress: map[string]string{"s1": "msgist://x"},
		LogLevel:      "verbose",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an invalid log_level")
	}
}
