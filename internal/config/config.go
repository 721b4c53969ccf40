package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-in-production"

// Config holds all runtime settings, read from the environment.
type Config struct {
	Port string
	Env  string

	MongoURI       string
	MongoDB        string
	MealCollection string

	JWTSecret          string
	SessionIdleTimeout time.Duration

	OTPTTL        time.Duration
	OTPDigits     int
	OTPInResponse bool

	MaxFailedAttempts int
	LockDuration      time.Duration

	MailProvider string
	SMTPServer   string
	SMTPUser     string
	SMTPPassword string
	SESRegion    string
	SESFromEmail string
	SESFromName  string

	DefaultClientID string
	DefaultRoleID   string

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  slog.Level
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function, applying defaults
// for everything that is unset.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{getenv: getenv}
	cfg := Config{
		Port:               e.str("PORT", "5000"),
		Env:                e.str("ENV", "development"),
		MongoURI:           e.str("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            e.str("MONGO_DB", "canteen"),
		MealCollection:     e.str("MEAL_COLLECTION", "Canteen_1"),
		JWTSecret:          e.str("JWT_SECRET", devJWTSecret),
		SessionIdleTimeout: e.duration("SESSION_IDLE_TIMEOUT", 60*time.Minute),
		OTPTTL:             e.duration("OTP_TTL", 5*time.Minute),
		OTPDigits:          e.integer("OTP_DIGITS", 4),
		OTPInResponse:      e.boolean("OTP_IN_RESPONSE", true),
		MaxFailedAttempts:  e.integer("LOGIN_MAX_ATTEMPTS", 5),
		LockDuration:       e.duration("LOGIN_LOCK_DURATION", 15*time.Minute),
		MailProvider:       strings.ToLower(e.str("MAIL_PROVIDER", "smtp")),
		SMTPServer:         e.str("SMTP_SERVER", ""),
		SMTPUser:           e.str("SMTP_USER", ""),
		SMTPPassword:       e.str("SMTP_PASSWORD", ""),
		SESRegion:          e.str("SES_REGION", "us-east-1"),
		SESFromEmail:       e.str("SES_FROM_EMAIL", ""),
		SESFromName:        e.str("SES_FROM_NAME", "Canteen Dashboard"),
		DefaultClientID:    e.str("DEFAULT_CLIENT_ID", "C01"),
		DefaultRoleID:      e.str("DEFAULT_ROLE_ID", "524"),
		RateLimitRPS:       e.float("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     e.integer("RATE_LIMIT_BURST", 10),
		LogFormat:          strings.ToLower(e.str("LOG_FORMAT", "text")),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(e.str("LOG_LEVEL", "info"))); err != nil {
		e.errs = append(e.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production environment")
	}
	if c.OTPDigits < 4 || c.OTPDigits > 8 {
		return fmt.Errorf("OTP_DIGITS must be between 4 and 8, got %d", c.OTPDigits)
	}
	if c.OTPTTL <= 0 || c.SessionIdleTimeout <= 0 {
		return errors.New("OTP_TTL and SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.MaxFailedAttempts < 1 || c.LockDuration <= 0 {
		return errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_LOCK_DURATION must be positive")
	}
	switch c.MailProvider {
	case "smtp", "ses", "log":
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
	}
	return nil
}

type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key, fallback string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) float(key string, fallback float64) float64 {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (e *env) boolean(key string, fallback bool) bool {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
