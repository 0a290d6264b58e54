// Package config loads the server configuration from defaults, an optional
// YAML file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	SecretKey     string `yaml:"secret_key"`
	DBPath        string `yaml:"db_path"`
	Addr          string `yaml:"addr"`
	BaseURL       string `yaml:"base_url"`
	DefaultLang   string `yaml:"default_lang"`
	SecureCookies bool   `yaml:"secure_cookies"`

	Uploads  UploadsConfig  `yaml:"uploads"`
	Sessions SessionsConfig `yaml:"sessions"`
	Mail     MailConfig     `yaml:"mail"`
	Login    LoginConfig    `yaml:"login"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// UploadsConfig selects where item images are stored.
type UploadsConfig struct {
	Backend string   `yaml:"backend"` // disk or s3
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SessionsConfig selects the session store.
type SessionsConfig struct {
	Backend  string `yaml:"backend"` // memory or redis
	RedisURL string `yaml:"redis_url"`
}

type MailConfig struct {
	APIKey        string `yaml:"api_key"`
	DefaultSender string `yaml:"default_sender"`
}

// LoginConfig throttles login attempts per client. RatePerMin 0 disables it.
type LoginConfig struct {
	RatePerMin int `yaml:"rate_per_min"`
	Burst      int `yaml:"burst"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		SecretKey:   "dev-secret-change-me",
		DBPath:      "market.db",
		Addr:        ":8080",
		BaseURL:     "http://localhost:8080",
		DefaultLang: "en",
		Uploads: UploadsConfig{
			Backend: "disk",
			Dir:     "static/uploads",
		},
		Sessions: SessionsConfig{
			Backend:  "memory",
			RedisURL: "redis://localhost:6379/0",
		},
		Mail: MailConfig{
			DefaultSender: "noreply@tounfite-souk.local",
		},
		Login: LoginConfig{
			RatePerMin: 10,
			Burst:      5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; envFile
// an optional dotenv file whose variables do not override the real
// environment. Missing files are skipped only when their name is empty.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"SECRET_KEY":          &c.SecretKey,
		"DB_PATH":             &c.DBPath,
		"ADDR":                &c.Addr,
		"BASE_URL":            &c.BaseURL,
		"DEFAULT_LANG":        &c.DefaultLang,
		"UPLOAD_BACKEND":      &c.Uploads.Backend,
		"UPLOAD_DIR":          &c.Uploads.Dir,
		"S3_BUCKET":           &c.Uploads.S3.Bucket,
		"S3_REGION":           &c.Uploads.S3.Region,
		"S3_ENDPOINT":         &c.Uploads.S3.Endpoint,
		"S3_ACCESS_KEY":       &c.Uploads.S3.AccessKey,
		"S3_SECRET_KEY":       &c.Uploads.S3.SecretKey,
		"SESSION_BACKEND":     &c.Sessions.Backend,
		"REDIS_URL":           &c.Sessions.RedisURL,
		"MAIL_API_KEY":        &c.Mail.APIKey,
		"MAIL_DEFAULT_SENDER": &c.Mail.DefaultSender,
		"LOG_LEVEL":           &c.Logging.Level,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LOGIN_RATE_PER_MIN": &c.Login.RatePerMin,
		"LOGIN_BURST":        &c.Login.Burst,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("SECURE_COOKIES"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SECURE_COOKIES: %w", err)
		}
		c.SecureCookies = b
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("secret_key must not be empty")
	}
	switch c.Uploads.Backend {
	case "disk":
		if c.Uploads.Dir == "" {
			return errors.New("uploads.dir must not be empty for the disk backend")
		}
	case "s3":
		if c.Uploads.S3.Bucket == "" {
			return errors.New("uploads.s3.bucket must not be empty for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown upload backend %q", c.Uploads.Backend)
	}
	switch c.Sessions.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Sessions.Backend)
	}
	if c.DefaultLang != "en" && c.DefaultLang != "ar" {
		return fmt.Errorf("unsupported default_lang %q", c.DefaultLang)
	}
	if c.Login.RatePerMin < 0 || c.Login.Burst < 0 {
		return errors.New("login throttle values must not be negative")
	}
	return nil
}
