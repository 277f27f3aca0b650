package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("default port = %q, want 8081", cfg.Port)
	}
	if cfg.AMQPExchange != "jizhang" {
		t.Errorf("default exchange = %q", cfg.AMQPExchange)
	}
	if cfg.SessionDuration != 30*24*time.Hour {
		t.Errorf("default session duration = %v", cfg.SessionDuration)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SECURE_COOKIE", "true")
	t.Setenv("SESSION_DURATION", "24h")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
	if !cfg.SecureCookie {
		t.Error("SecureCookie should be true")
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("session duration = %v, want 24h", cfg.SessionDuration)
	}
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg := Load()
		cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "test.db")
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := valid(t).Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid(t)
		cfg.Port = "not-a-port"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid(t)
		cfg.Port = "70000"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad AMQP scheme", func(t *testing.T) {
		cfg := valid(t)
		cfg.AMQPURL = "http://localhost:5672/"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty queue with AMQP configured", func(t *testing.T) {
		cfg := valid(t)
		cfg.AMQPQueue = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("session duration too small", func(t *testing.T) {
		cfg := valid(t)
		cfg.SessionDuration = time.Second
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty db path", func(t *testing.T) {
		cfg := valid(t)
		cfg.SQLiteDBPath = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}
