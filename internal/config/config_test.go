package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
env: "prod"
postgres:
  user: "u"
  password: "p"
  dbname: "d"
stripe:
  secret_key: "sk_test"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Env != "prod" {
		t.Errorf("Env = %q, want prod", cfg.Env)
	}
	if cfg.Postgres.AcquireTimeout != 5*time.Second {
		t.Errorf("AcquireTimeout = %s, want 5s", cfg.Postgres.AcquireTimeout)
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Errorf("MaxConns = %d, want 10", cfg.Postgres.MaxConns)
	}
	if cfg.Stripe.Timeout != 10*time.Second {
		t.Errorf("Stripe.Timeout = %s, want 10s", cfg.Stripe.Timeout)
	}
	if cfg.Stripe.SecretKey != "sk_test" {
		t.Errorf("Stripe.SecretKey = %q", cfg.Stripe.SecretKey)
	}
	if cfg.RabbitMQ.QueueName != "checkout_events" {
		t.Errorf("QueueName = %q", cfg.RabbitMQ.QueueName)
	}
	if cfg.Tiers.LookupConcurrency != 4 {
		t.Errorf("LookupConcurrency = %d, want 4", cfg.Tiers.LookupConcurrency)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
