package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret signs tokens outside production when JWT_SECRET is unset.
const DefaultJWTSecret = "change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a non-default value in production")

// Config holds every runtime setting of the server.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	StorageDriver  string
	MongoURI       string
	MongoDatabase  string
	DatabaseDSN    string
	ConnectTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	AppURL         string
	CORSDevOrigins []string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	RabbitMQURL string

	RedisAddr        string
	RedisPassword    string
	FeaturedCacheTTL time.Duration
}

// IsProduction reports whether NODE_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file, then the process environment.
// It returns whether a .env file was found.
func Load() (Config, bool) {
	envLoaded := godotenv.Load(".env") == nil
	return FromViper(viper.New()), envLoaded
}

// FromViper fills defaults on v, binds the environment and builds a Config.
func FromViper(v *viper.Viper) Config {
	v.SetDefault("PORT", "8000")
	v.SetDefault("NODE_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", "mongo")
	v.SetDefault("MONGODB_CONNECTION_URL", "")
	v.SetDefault("MONGODB_DATABASE", "royal_choice")
	v.SetDefault("DATABASE_DSN", "file:royalchoice.db?cache=shared")
	v.SetDefault("DB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("VITE_APP_URL", "")
	v.SetDefault("CORS_DEV_ORIGINS", "http://localhost:5173,https://royal-choice.netlify.app")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("FEATURED_CACHE_TTL", "5m")
	v.AutomaticEnv()
	if v.GetString("NODE_ENV") != "production" {
		v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	}

	return Config{
		Port:                strings.TrimPrefix(v.GetString("PORT"), ":"),
		Env:                 v.GetString("NODE_ENV"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		StorageDriver:       strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MongoURI:            v.GetString("MONGODB_CONNECTION_URL"),
		MongoDatabase:       v.GetString("MONGODB_DATABASE"),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		ConnectTimeout:      v.GetDuration("DB_CONNECT_TIMEOUT"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTTTL:              v.GetDuration("JWT_TTL"),
		AppURL:              v.GetString("VITE_APP_URL"),
		CORSDevOrigins:      splitList(v.GetString("CORS_DEV_ORIGINS")),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      v.GetString("STRIPE_CURRENCY"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		FeaturedCacheTTL:    v.GetDuration("FEATURED_CACHE_TTL"),
	}
}

// Validate rejects settings that are unsafe to serve with.
func (c Config) Validate() error {
	if c.IsProduction() {
		secret := strings.TrimSpace(c.JWTSecret)
		if secret == "" || secret == DefaultJWTSecret {
			return ErrInsecureJWTSecret
		}
	}
	return nil
}

// AllowedOrigins is the CORS allow-list for the current mode.
func (c Config) AllowedOrigins() []string {
	if c.IsProduction() {
		if c.AppURL == "" {
			return nil
		}
		return []string{c.AppURL}
	}
	return c.CORSDevOrigins
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
