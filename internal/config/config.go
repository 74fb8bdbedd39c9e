// Package config loads the server configuration.
//
// Sources, lowest precedence first:
//
//  1. built-in defaults
//  2. a YAML file named by CONFIG_FILE (optional)
//  3. environment variables, including those loaded from a .env file
//
// A .env file in the working directory is loaded with godotenv if present.
// Variables already set in the process environment win over .env entries.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	minSecretLength = 16
)

// Config is the resolved server configuration.
type Config struct {
	Port        int    `yaml:"port"`
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"logLevel"`
	DBPath      string `yaml:"dbPath"`
	JWTSecret   string `yaml:"jwtSecret"`
	FrontendURL string `yaml:"frontendURL"`

	AIServiceURL   string `yaml:"aiServiceURL"`
	InternalAPIKey string `yaml:"internalAPIKey"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	RateLimitRPS   float64 `yaml:"rateLimitRPS"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:           3001,
		Env:            EnvDevelopment,
		LogLevel:       "info",
		DBPath:         "data/story.db",
		FrontendURL:    "http://localhost:4200",
		// 100 requests per IP per 15 minutes, all usable at once.
		RateLimitRPS:   100.0 / (15 * 60),
		RateLimitBurst: 100,
	}
}

// Load resolves the configuration from .env, CONFIG_FILE and the
// environment, then validates it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}
	return load(os.Getenv)
}

// load is Load without the .env step. getenv is injected for tests.
func load(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if path := getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"APP_ENV":          &cfg.Env,
		"LOG_LEVEL":        &cfg.LogLevel,
		"DB_PATH":          &cfg.DBPath,
		"JWT_SECRET":       &cfg.JWTSecret,
		"FRONTEND_URL":     &cfg.FrontendURL,
		"AI_SERVICE_URL":   &cfg.AIServiceURL,
		"INTERNAL_API_KEY": &cfg.InternalAPIKey,
		"REDIS_ADDR":       &cfg.RedisAddr,
		"REDIS_PASSWORD":   &cfg.RedisPassword,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT must be a number, got %q", v)
		}
		cfg.Port = n
	}
	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: RATE_LIMIT_RPS must be a number, got %q", v)
		}
		cfg.RateLimitRPS = f
	}
	if v := getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RATE_LIMIT_BURST must be a number, got %q", v)
		}
		cfg.RateLimitBurst = n
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", cfg.Port)
	}
	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: APP_ENV must be development, production or test, got %q", cfg.Env)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("config: DB_PATH is required")
	}
	if len(cfg.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET is required and must be at least %d characters", minSecretLength)
	}
	if cfg.FrontendURL == "" {
		return errors.New("config: FRONTEND_URL is required")
	}
	if cfg.AIServiceURL != "" {
		u, err := url.Parse(cfg.AIServiceURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: AI_SERVICE_URL %q is not an http(s) URL", cfg.AIServiceURL)
		}
		if cfg.InternalAPIKey == "" {
			return errors.New("config: INTERNAL_API_KEY is required when AI_SERVICE_URL is set")
		}
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return errors.New("config: rate limit must be > 0 requests per second with a burst of at least 1")
	}
	return nil
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: unknown LOG_LEVEL %q", s)
	}
	return level, nil
}

// IsProduction reports whether the server runs with APP_ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}
