package configparser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Mode string `env:"MODE" default:"standalone"`

	RabbitMQ struct {
		Host       string        `env:"RABBITMQ_HOST" default:"localhost"`
		Port       int           `env:"RABBITMQ_PORT" default:"5672"`
		RetryDelay time.Duration `env:"RABBITMQ_RETRY_DELAY" default:"5s"`
	}

	Database struct {
		Migrate  bool    `env:"DATABASE_MIGRATE" default:"false"`
		MaxConns int32   `env:"DATABASE_MAX_CONNS" default:"20"`
		Ratio    float64 `env:"DATABASE_RATIO"`
	}

	Origins []string `env:"HTTP_ORIGINS" default:"a, b"`
}

func TestFlatten(t *testing.T) {
	t.Setenv("FLATTEN_TEST_HOST", "broker")

	raw := []byte(`
rabbitmq:
  host: ${FLATTEN_TEST_HOST:-localhost}
  port: ${FLATTEN_TEST_PORT:-5672}
  retry-delay: 2s
services:
  ride_service: 3000
tags: [x, y]
empty:
`)
	got, err := Flatten(raw)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	want := map[string]string{
		"RABBITMQ_HOST":         "broker",
		"RABBITMQ_PORT":         "5672",
		"RABBITMQ_RETRY_DELAY":  "2s",
		"SERVICES_RIDE_SERVICE": "3000",
		"TAGS":                  "x,y",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestParse_DefaultsAndEnv(t *testing.T) {
	t.Setenv("RABBITMQ_HOST", "rabbit.internal")
	t.Setenv("RABBITMQ_RETRY_DELAY", "250ms")
	t.Setenv("DATABASE_MIGRATE", "true")
	t.Setenv("DATABASE_RATIO", "0.5")

	var cfg testConfig
	if err := Parse(&cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Mode != "standalone" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.RabbitMQ.Host != "rabbit.internal" || cfg.RabbitMQ.Port != 5672 {
		t.Errorf("RabbitMQ = %+v", cfg.RabbitMQ)
	}
	if cfg.RabbitMQ.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %s", cfg.RabbitMQ.RetryDelay)
	}
	if !cfg.Database.Migrate || cfg.Database.MaxConns != 20 || cfg.Database.Ratio != 0.5 {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "b" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
}

func TestParse_Errors(t *testing.T) {
	var cfg testConfig
	if err := Parse(cfg); !errors.Is(err, ErrNotStructPointer) {
		t.Fatalf("expected ErrNotStructPointer, got %v", err)
	}

	t.Setenv("RABBITMQ_PORT", "not-a-number")
	if err := Parse(&cfg); err == nil {
		t.Fatal("expected error for invalid int")
	}
}

func TestLoadYamlFile_EnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("loadtest:\n  a: from-file\n  b: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOADTEST_A", "from-env")
	t.Setenv("LOADTEST_B", "")
	os.Unsetenv("LOADTEST_B")
	t.Cleanup(func() { os.Unsetenv("LOADTEST_B") })

	if err := LoadYamlFile(path); err != nil {
		t.Fatalf("LoadYamlFile: %v", err)
	}
	if got := os.Getenv("LOADTEST_A"); got != "from-env" {
		t.Errorf("LOADTEST_A = %q, want from-env", got)
	}
	if got := os.Getenv("LOADTEST_B"); got != "from-file" {
		t.Errorf("LOADTEST_B = %q, want from-file", got)
	}
}

func TestLoadAndParseYaml_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadAndParseYaml(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.RabbitMQ.Port != 5672 {
		t.Errorf("defaults not applied: %+v", cfg.RabbitMQ)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DOTENV_TEST_KEY=value\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_KEY") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("DOTENV_TEST_KEY"); got != "value" {
		t.Errorf("DOTENV_TEST_KEY = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}
