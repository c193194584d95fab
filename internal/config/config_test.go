package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.IngestWorkers <= 0 {
		t.Fatalf("expected default ingest workers")
	}
	if cfg.IngestQueueSize <= 0 {
		t.Fatalf("expected default ingest queue size")
	}
	if cfg.DrainTimeout() <= 0 {
		t.Fatalf("expected default drain timeout")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("INGEST_WORKERS", "8")
	t.Setenv("INGEST_QUEUE_SIZE", "512")
	t.Setenv("DRAIN_TIMEOUT_MS", "250")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.IngestWorkers != 8 {
		t.Fatalf("expected override workers")
	}
	if cfg.IngestQueueSize != 512 {
		t.Fatalf("expected override queue size")
	}
	if cfg.DrainTimeoutMS != 250 {
		t.Fatalf("expected override drain timeout")
	}
}
