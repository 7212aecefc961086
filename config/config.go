package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/yoockh/singalong/internal/models"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SpeechProjectID       string `env:"SPEECH_PROJECT_ID"`
	SpeechLocation        string `env:"SPEECH_LOCATION" envDefault:"us-central1"`
	SpeechModel           string `env:"SPEECH_MODEL" envDefault:"chirp_2"`
	SpeechDefaultLanguage string `env:"SPEECH_DEFAULT_LANGUAGE" envDefault:"en-US"`
	SpeechInterimResults  bool   `env:"SPEECH_INTERIM_RESULTS" envDefault:"true"`

	TimingResolution string `env:"TIMING_RESOLUTION" envDefault:"seconds"`

	StorageBackend   string `env:"STORAGE_BACKEND" envDefault:"gcs"`
	StorageBucket    string `env:"STORAGE_BUCKET"`
	StoragePrefix    string `env:"STORAGE_PREFIX"`
	LocalStorageDir  string `env:"LOCAL_STORAGE_DIR" envDefault:"./data"`
	HighScoresObject string `env:"HIGH_SCORES_OBJECT" envDefault:"high_scores.json"`

	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	TokenBackend  string        `env:"TOKEN_BACKEND" envDefault:"memory"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"0s"`
	TokenCapacity int           `env:"TOKEN_CAPACITY" envDefault:"0"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisURL      string        `env:"REDIS_URL"`

	SongsFile string `env:"SONGS_FILE"`

	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := models.ParseTimingResolution(c.TimingResolution); !ok {
		return fmt.Errorf("TIMING_RESOLUTION: unknown value %q", c.TimingResolution)
	}

	switch c.StorageBackend {
	case "gcs", "s3":
		if c.StorageBucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for the %s backend", c.StorageBackend)
		}
	case "local":
	default:
		return fmt.Errorf("STORAGE_BACKEND: unknown value %q", c.StorageBackend)
	}

	switch c.TokenBackend {
	case "memory":
	case "redis":
		if c.RedisTarget() == "" {
			return fmt.Errorf("REDIS_ADDR (or REDIS_URL) is required for the redis token backend")
		}
	default:
		return fmt.Errorf("TOKEN_BACKEND: unknown value %q", c.TokenBackend)
	}

	if c.TokenTTL < 0 || c.TokenCapacity < 0 {
		return fmt.Errorf("TOKEN_TTL and TOKEN_CAPACITY must not be negative")
	}
	return nil
}

// Resolution is only meaningful after Load has validated the config.
func (c *Config) Resolution() models.TimingResolution {
	r, _ := models.ParseTimingResolution(c.TimingResolution)
	return r
}

func (c *Config) RedisTarget() string {
	if c.RedisAddr != "" {
		return c.RedisAddr
	}
	return c.RedisURL
}
