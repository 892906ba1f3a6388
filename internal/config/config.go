// Package config resolves the storefront client configuration from defaults,
// a YAML file, the environment (.env files included) and command-line flags,
// in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/layering"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 30 * time.Second
)

// Config is the resolved configuration.
type Config struct {
	API        API
	Currency   string
	SessionDir string
	LogLevel   logrus.Level
	Validation storefront.RuleSet

	// Sources lists the layers that were merged, strongest first.
	Sources []string
}

type API struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// Layer is one partial configuration. Nil fields fall through to weaker
// layers.
type Layer struct {
	API        APILayer        `yaml:"api"`
	Currency   *string         `yaml:"currency"`
	SessionDir *string         `yaml:"session_dir"`
	LogLevel   *string         `yaml:"log_level"`
	Validation ValidationLayer `yaml:"validation"`
}

type APILayer struct {
	BaseURL   *string        `yaml:"base_url"`
	Timeout   *time.Duration `yaml:"timeout"`
	RateLimit *float64       `yaml:"rate_limit"`
	Burst     *int           `yaml:"burst"`
}

type ValidationLayer struct {
	Engine *string           `yaml:"engine"`
	Rules  []storefront.Rule `yaml:"rules"`
}

// envLayer lists the STOREFRONT_* overrides.
type envLayer struct {
	BaseURL    string        `env:"STOREFRONT_API_URL"`
	Timeout    time.Duration `env:"STOREFRONT_API_TIMEOUT"`
	RateLimit  float64       `env:"STOREFRONT_RATE_LIMIT"`
	Burst      int           `env:"STOREFRONT_RATE_BURST"`
	Currency   string        `env:"STOREFRONT_CURRENCY"`
	SessionDir string        `env:"STOREFRONT_SESSION_DIR"`
	LogLevel   string        `env:"STOREFRONT_LOG_LEVEL"`
	Engine     string        `env:"STOREFRONT_VALIDATION_ENGINE"`
}

// Options tells Load where to look.
type Options struct {
	// File is the YAML config path. Empty skips the file layer.
	File string
	// DotEnv files are loaded into the process environment first. Missing
	// files are ignored; variables already set are kept.
	DotEnv []string
	// Flags is the strongest layer.
	Flags Layer
}

// Defaults returns the weakest layer.
func Defaults() Layer {
	baseURL := DefaultBaseURL
	timeout := DefaultTimeout
	rate := 0.0
	burst := 1
	currency := storefront.DefaultCurrency
	sessionDir := defaultSessionDir()
	level := logrus.InfoLevel.String()
	engine := storefront.EngineExpr
	return Layer{
		API:        APILayer{BaseURL: &baseURL, Timeout: &timeout, RateLimit: &rate, Burst: &burst},
		Currency:   &currency,
		SessionDir: &sessionDir,
		LogLevel:   &level,
		Validation: ValidationLayer{Engine: &engine},
	}
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront")
	}
	return ".storefront"
}

// Load merges every layer and validates the result.
func Load(opts Options) (Config, error) {
	if err := loadDotEnv(opts.DotEnv); err != nil {
		return Config{}, err
	}

	sources := []layering.Source[Layer]{{Name: "defaults", Level: layering.LevelDefaults, Value: Defaults()}}
	if opts.File != "" {
		file, err := ReadFile(opts.File)
		if err != nil {
			return Config{}, err
		}
		sources = append(sources, layering.Source[Layer]{Name: filepath.Base(opts.File), Level: layering.LevelFile, Value: file})
	}
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	sources = append(sources,
		layering.Source[Layer]{Name: "storefront", Level: layering.LevelEnv, Value: env},
		layering.Source[Layer]{Name: "cli", Level: layering.LevelFlags, Value: opts.Flags},
	)

	chain := layering.NewChain(sources...)
	cfg, err := resolve(chain.Merge())
	if err != nil {
		return Config{}, err
	}
	cfg.Sources = chain.Names()
	return cfg, nil
}

func loadDotEnv(files []string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

// ReadFile parses a YAML layer.
func ReadFile(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var layer Layer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return Layer{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return layer, nil
}

// FromEnv reads the STOREFRONT_* variables. Unset variables stay nil.
func FromEnv() (Layer, error) {
	var env envLayer
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return Layer{}, nil
		}
		return Layer{}, fmt.Errorf("config: environment: %w", err)
	}
	return Layer{
		API: APILayer{
			BaseURL:   nonZero(env.BaseURL),
			Timeout:   nonZero(env.Timeout),
			RateLimit: nonZero(env.RateLimit),
			Burst:     nonZero(env.Burst),
		},
		Currency:   nonZero(env.Currency),
		SessionDir: nonZero(env.SessionDir),
		LogLevel:   nonZero(env.LogLevel),
		Validation: ValidationLayer{Engine: nonZero(env.Engine)},
	}, nil
}

func nonZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func resolve(layer Layer) (Config, error) {
	cfg := Config{
		API: API{
			BaseURL:   strings.TrimSpace(deref(layer.API.BaseURL)),
			Timeout:   deref(layer.API.Timeout),
			RateLimit: deref(layer.API.RateLimit),
			Burst:     deref(layer.API.Burst),
		},
		Currency:   deref(layer.Currency),
		SessionDir: deref(layer.SessionDir),
	}
	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("config: api base_url is required")
	}
	if cfg.API.Timeout <= 0 {
		return Config{}, fmt.Errorf("config: api timeout must be positive, got %s", cfg.API.Timeout)
	}
	if cfg.API.RateLimit < 0 {
		return Config{}, fmt.Errorf("config: api rate_limit must not be negative")
	}

	level, err := logrus.ParseLevel(deref(layer.LogLevel))
	if err != nil {
		return Config{}, fmt.Errorf("config: log_level: %w", err)
	}
	cfg.LogLevel = level

	engine := strings.ToLower(strings.TrimSpace(deref(layer.Validation.Engine)))
	switch engine {
	case storefront.EngineExpr, storefront.EngineCEL, storefront.EngineJS:
	default:
		return Config{}, fmt.Errorf("config: unknown validation engine %q", engine)
	}
	if len(layer.Validation.Rules) > 0 {
		cfg.Validation = storefront.RuleSet{Engine: engine, Rules: layer.Validation.Rules}
	} else {
		cfg.Validation = storefront.DefaultProfileRules(engine)
	}
	return cfg, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Logger builds a logrus logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
