package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-storefront"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STOREFRONT_API_URL", "STOREFRONT_API_TIMEOUT", "STOREFRONT_RATE_LIMIT", "STOREFRONT_RATE_BURST",
		"STOREFRONT_CURRENCY", "STOREFRONT_SESSION_DIR", "STOREFRONT_LOG_LEVEL", "STOREFRONT_VALIDATION_ENGINE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != DefaultBaseURL || cfg.API.Timeout != DefaultTimeout {
		t.Fatalf("unexpected api defaults: %+v", cfg.API)
	}
	if cfg.Currency != storefront.DefaultCurrency || cfg.LogLevel != logrus.InfoLevel {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Validation.Engine != storefront.EngineExpr || len(cfg.Validation.Rules) == 0 {
		t.Fatalf("expected default expr rules, got %+v", cfg.Validation)
	}
	want := []string{"flags/cli", "env/storefront", "defaults/defaults"}
	if !reflect.DeepEqual(cfg.Sources, want) {
		t.Fatalf("expected sources %v, got %v", want, cfg.Sources)
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	file := writeFile(t, "storefront.yaml", `
api:
  base_url: https://file.example/api
  timeout: 5s
  rate_limit: 2.5
currency: "R$"
log_level: debug
validation:
  rules:
    - field: name
      expr: not_blank(name)
      message: name is required
`)
	t.Setenv("STOREFRONT_API_URL", "https://env.example/api")
	t.Setenv("STOREFRONT_RATE_BURST", "4")

	flagURL := "https://flag.example/api"
	cfg, err := Load(Options{File: file, Flags: Layer{API: APILayer{BaseURL: &flagURL}}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != flagURL {
		t.Fatalf("flags must win, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second || cfg.API.RateLimit != 2.5 || cfg.API.Burst != 4 {
		t.Fatalf("unexpected api merge: %+v", cfg.API)
	}
	if cfg.Currency != "R$" || cfg.LogLevel != logrus.DebugLevel {
		t.Fatalf("unexpected file values: %+v", cfg)
	}
	if len(cfg.Validation.Rules) != 1 || cfg.Validation.Rules[0].Message != "name is required" {
		t.Fatalf("expected file rules, got %+v", cfg.Validation.Rules)
	}
	if cfg.Sources[2] != "file/storefront.yaml" {
		t.Fatalf("unexpected source order %v", cfg.Sources)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dotenv := writeFile(t, ".env", "STOREFRONT_CURRENCY=EUR\nSTOREFRONT_VALIDATION_ENGINE=cel\n")
	t.Cleanup(func() {
		os.Unsetenv("STOREFRONT_CURRENCY")
		os.Unsetenv("STOREFRONT_VALIDATION_ENGINE")
	})

	cfg, err := Load(Options{DotEnv: []string{filepath.Join(t.TempDir(), "missing.env"), dotenv}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Currency != "EUR" {
		t.Fatalf("expected currency from .env, got %q", cfg.Currency)
	}
	if cfg.Validation.Engine != storefront.EngineCEL {
		t.Fatalf("expected cel rules, got %q", cfg.Validation.Engine)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"engine":    "validation:\n  engine: lua\n",
		"log level": "log_level: loud\n",
		"timeout":   "api:\n  timeout: -1s\n",
		"yaml":      "api: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(Options{File: writeFile(t, "bad.yaml", body)})
			if err == nil || !strings.HasPrefix(err.Error(), "config:") {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}

	clearEnv(t)
	if _, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestLoggerUsesLevel(t *testing.T) {
	logger := Config{LogLevel: logrus.WarnLevel}.Logger()
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", logger.GetLevel())
	}
}
