package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/festio_test")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.OutboxBatchSize != 200 {
		t.Errorf("expected default batch size 200, got %d", cfg.OutboxBatchSize)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected 2 default CORS origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	// t.Setenv registers the restore; unset so "required" trips.
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("POSTGRES_DSN")
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required vars")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
