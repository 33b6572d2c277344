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
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	App      AppConfig
	Geofence GeofenceConfig
	Report   ReportConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// PingTTL bounds how long a worker's last ping is remembered
	PingTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
	SSEExpiration    time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port          int
	Env           string
	LogLevel      string
	CORSOrigins   []string
	Timezone      string
	DefaultLocale string
}

type GeofenceConfig struct {
	DefaultRadiusMeters      float64
	SelfDeclarationMaxMeters float64
	GPSLostAfter             time.Duration
	PingInterval             time.Duration
	ApplicableRoles          []string
	// LegacyDoubleSubtract reproduces historical reports that counted
	// break/pause overlap twice
	LegacyDoubleSubtract bool
}

type ReportConfig struct {
	LateAfter string
	TopN      int
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using environment only")
	}

	var errs []error
	config := &Config{}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432, &errs),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "pontaj"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25, &errs)),
		MinConns: int32(getEnvInt("DB_MIN_CONNS", 5, &errs)),
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0, &errs),
		PingTTL:  getEnvDuration("REDIS_PING_TTL", 24*time.Hour, &errs),
	}

	config.App = AppConfig{
		Port:          getEnvInt("APP_PORT", 8080, &errs),
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSOrigins:   getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173"}),
		Timezone:      getEnv("APP_TIMEZONE", "Europe/Bucharest"),
		DefaultLocale: getEnv("APP_DEFAULT_LOCALE", "ro"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour, &errs),
		SSEExpiration:    getEnvDuration("JWT_SSE_EXPIRATION_TIME", 5*time.Minute, &errs),
	}

	config.Geofence = GeofenceConfig{
		DefaultRadiusMeters:      getEnvFloat("GEOFENCE_DEFAULT_RADIUS_METERS", 300, &errs),
		SelfDeclarationMaxMeters: getEnvFloat("GEOFENCE_SELF_DECLARATION_MAX_METERS", 3000, &errs),
		GPSLostAfter:             getEnvDuration("GEOFENCE_GPS_LOST_AFTER", 2*time.Minute, &errs),
		PingInterval:             getEnvDuration("GEOFENCE_PING_INTERVAL", 30*time.Second, &errs),
		ApplicableRoles:          getEnvSlice("GEOFENCE_ROLES", []string{"WORKER", "TEAM_LEAD"}),
		LegacyDoubleSubtract:     getEnvBool("ACCOUNTING_LEGACY_DOUBLE_SUBTRACT", false, &errs),
	}

	config.Report = ReportConfig{
		LateAfter: getEnv("REPORT_LATE_AFTER", "08:30"),
		TopN:      getEnvInt("REPORT_TOP_N", 5, &errs),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration value: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessExpiration <= 0 || c.JWT.SSEExpiration <= 0 {
		return fmt.Errorf("JWT expiration times must be positive")
	}
	if c.Geofence.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("GEOFENCE_DEFAULT_RADIUS_METERS must be positive")
	}
	if c.Geofence.SelfDeclarationMaxMeters < c.Geofence.DefaultRadiusMeters {
		return fmt.Errorf("GEOFENCE_SELF_DECLARATION_MAX_METERS must not be below the default radius")
	}
	if c.Geofence.GPSLostAfter <= 0 || c.Geofence.PingInterval <= 0 {
		return fmt.Errorf("geofence durations must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	if !validator.IsValidClock(c.Report.LateAfter) {
		return fmt.Errorf("REPORT_LATE_AFTER must be HH:MM, got %q", c.Report.LateAfter)
	}
	return nil
}

// Location returns the application time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
