package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("CORS_ALLOW_ALL", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ImportBatchSize != 50 {
		t.Errorf("expected batch size 50, got %d", cfg.ImportBatchSize)
	}
	if cfg.SLAWarningDays != 2 {
		t.Errorf("expected warning days 2, got %d", cfg.SLAWarningDays)
	}
	if cfg.NotifyInterval != 5*time.Minute {
		t.Errorf("expected 5m notify interval, got %s", cfg.NotifyInterval)
	}
	if cfg.NotifyDedupBackend != "memory" {
		t.Errorf("expected memory dedup backend, got %q", cfg.NotifyDedupBackend)
	}
	if len(cfg.ImportRequiredFields) != 1 || cfg.ImportRequiredFields[0] != "name" {
		t.Errorf("unexpected required fields: %#v", cfg.ImportRequiredFields)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRejectsRedisLedgerWithoutRedis(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pipeline")
	t.Setenv("NOTIFY_DEDUP_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for redis ledger without REDIS_URL")
	}
}

func TestMustIntFallsBackOnGarbage(t *testing.T) {
	if got := mustInt("abc", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := mustInt("-3", 7); got != 7 {
		t.Fatalf("expected fallback for non-positive, got %d", got)
	}
}
