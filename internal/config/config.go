package config

import (
	"crypto/ecdh"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     string
	GRPCPort string

	CronSecret string

	StoreURL string
	StoreKey string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	JWTSecret      string
	RedisURL       string
	AllowedOrigins []string

	TriggerURL      string
	TriggerSchedule string

	Location   *time.Location
	RunTimeout time.Duration
	LogLevel   string
}

// Load reads the environment, after an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            env("PORT", "8080"),
		GRPCPort:        env("GRPC_PORT", "50051"),
		CronSecret:      os.Getenv("CRON_SECRET"),
		StoreURL:        os.Getenv("DATABASE_URL"),
		StoreKey:        os.Getenv("DATABASE_SERVICE_KEY"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    env("VAPID_SUBJECT", "mailto:reminders@localhost"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisURL:        os.Getenv("REDIS_URL"),
		LogLevel:        env("LOG_LEVEL", "info"),
		TriggerURL:      env("TRIGGER_URL", "http://localhost:8080/functions/send-appointment-reminders"),
		TriggerSchedule: env("TRIGGER_SCHEDULE", "*/5 * * * *"),
	}

	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	tz := env("APP_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logrus.WithError(err).WithField("timezone", tz).Warn("config: invalid APP_TIMEZONE, using UTC")
		loc = time.UTC
	}
	cfg.Location = loc

	cfg.RunTimeout = 55 * time.Second
	if raw := os.Getenv("RUN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			logrus.WithField("value", raw).Warn("config: invalid RUN_TIMEOUT, using 55s")
		} else {
			cfg.RunTimeout = d
		}
	}

	if cfg.VAPIDPublicKey == "" && cfg.VAPIDPrivateKey != "" {
		pub, err := PublicKeyFromPrivate(cfg.VAPIDPrivateKey)
		if err != nil {
			logrus.WithError(err).Warn("config: cannot derive VAPID public key")
		} else {
			cfg.VAPIDPublicKey = pub
		}
	}
	return cfg
}

// Missing names the required values that are not set. The invocation
// endpoint refuses to touch the store while this is non-empty.
func (c *Config) Missing() []string {
	var out []string
	if c.StoreURL == "" {
		out = append(out, "DATABASE_URL")
	}
	if c.StoreKey == "" {
		out = append(out, "DATABASE_SERVICE_KEY")
	}
	if c.VAPIDPrivateKey == "" {
		out = append(out, "VAPID_PRIVATE_KEY")
	} else if c.VAPIDPublicKey == "" {
		// set but not derivable
		out = append(out, "VAPID_PUBLIC_KEY")
	}
	return out
}

// Subscriber is the VAPID contact without the mailto: scheme, which the
// push library adds back itself.
func (c *Config) Subscriber() string {
	return strings.TrimPrefix(c.VAPIDSubject, "mailto:")
}

// PublicKeyFromPrivate derives the uncompressed P-256 public key from a
// base64url VAPID private key.
func PublicKeyFromPrivate(private string) (string, error) {
	raw, err := decodeKey(private)
	if err != nil {
		return "", err
	}
	key, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return "", fmt.Errorf("vapid private key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()), nil
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("vapid key is not base64: %w", err)
	}
	return b, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
