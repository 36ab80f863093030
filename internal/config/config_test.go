package config_test

import (
	"testing"
	"time"

	"github.com/jade/eventcore/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected default driver postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Queue.VisibilityTimeout != 30*time.Second {
		t.Errorf("expected default visibility timeout 30s, got %s", cfg.Queue.VisibilityTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("EVENTBUS_ENABLED", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %q", cfg.Database.Driver)
	}
	if !cfg.EventBus.Enabled {
		t.Error("expected event bus enabled")
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := config.DatabaseConfig{
		Host: "db.internal", Port: 5432, User: "u", Password: "p", Database: "n", SSLMode: "disable",
	}
	want := "host=db.internal port=5432 user=u password=p dbname=n sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
