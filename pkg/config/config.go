package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Booking   BookingConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig tunes the availability resolver and booking submission flow.
type BookingConfig struct {
	HorizonDays          int
	MinLeadTime          time.Duration
	PendingTTL           time.Duration
	IdempotencyRetention time.Duration
	ExpirySweepInterval  time.Duration
	SlotCacheTTL         time.Duration
	SlotCacheEnabled     bool
	DefaultTimezone      string
}

// RateLimitConfig governs the fixed-window limiter on public endpoints.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

// EventsConfig controls the appointment lifecycle event publisher.
type EventsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	horizon := v.GetInt("BOOKING_HORIZON_DAYS")
	if horizon <= 0 {
		horizon = 60
	}
	cfg.Booking = BookingConfig{
		HorizonDays:          horizon,
		MinLeadTime:          parseDuration(v.GetString("BOOKING_MIN_LEAD_TIME"), 0),
		PendingTTL:           parseDuration(v.GetString("BOOKING_PENDING_TTL"), 48*time.Hour),
		IdempotencyRetention: parseDuration(v.GetString("BOOKING_IDEMPOTENCY_RETENTION"), 7*24*time.Hour),
		ExpirySweepInterval:  parseDuration(v.GetString("BOOKING_EXPIRY_SWEEP_INTERVAL"), 5*time.Minute),
		SlotCacheTTL:         parseDuration(v.GetString("BOOKING_SLOT_CACHE_TTL"), time.Minute),
		SlotCacheEnabled:     v.GetBool("BOOKING_SLOT_CACHE_ENABLED"),
		DefaultTimezone:      v.GetString("BOOKING_DEFAULT_TIMEZONE"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		Limit:   v.GetInt("RATE_LIMIT_REQUESTS"),
		Window:  parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
	}

	cfg.Events = EventsConfig{
		Enabled: v.GetBool("EVENTS_ENABLED"),
		Brokers: splitAndTrim(v.GetString("EVENTS_BROKERS")),
		Topic:   v.GetString("EVENTS_TOPIC"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "havenbridge_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_HORIZON_DAYS", 60)
	v.SetDefault("BOOKING_MIN_LEAD_TIME", "0s")
	v.SetDefault("BOOKING_PENDING_TTL", "48h")
	v.SetDefault("BOOKING_IDEMPOTENCY_RETENTION", "168h")
	v.SetDefault("BOOKING_EXPIRY_SWEEP_INTERVAL", "5m")
	v.SetDefault("BOOKING_SLOT_CACHE_TTL", "1m")
	v.SetDefault("BOOKING_SLOT_CACHE_ENABLED", false)
	v.SetDefault("BOOKING_DEFAULT_TIMEZONE", "UTC")

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")

	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("EVENTS_BROKERS", "localhost:9092")
	v.SetDefault("EVENTS_TOPIC", "booking.appointment-events")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
