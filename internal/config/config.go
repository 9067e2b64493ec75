package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. Each field corresponds to an
// environment variable; main loads a .env file first so local development
// does not need exported variables.
type Config struct {
	Env  string // application environment ("dev", "prod")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	// Three independent signing secrets, one per token kind. A leaked
	// secret compromises only the tokens of its kind.
	AuthSecret    string // access tokens
	RefreshSecret string // refresh tokens
	ResetSecret   string // password-reset tokens

	AccessTTL  time.Duration // access token lifetime (short)
	RefreshTTL time.Duration // refresh token lifetime (long)
	ResetTTL   time.Duration // reset token lifetime

	BcryptCost int // bcrypt cost for password hashing

	FrontendURL string // base URL used to build reset links
	AMQPURL     string // RabbitMQ connection string (optional)

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load reads configuration from environment variables. Required variables
// are enforced by must(); missing values exit with a fatal log message.
func Load() Config {
	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AuthSecret:    must("JWT_SECRET_AUTH"),
		RefreshSecret: must("JWT_SECRET_REFRESH"),
		ResetSecret:   must("JWT_SECRET_RESET"),

		AccessTTL:  time.Duration(intenv("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL: time.Duration(intenv("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		ResetTTL:   time.Duration(intenv("RESET_TOKEN_TTL_MIN", 60)) * time.Minute,

		BcryptCost: intenv("BCRYPT_COST", 12),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:5173"),
		AMQPURL:     os.Getenv("RABBITMQ_URL"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intenv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
