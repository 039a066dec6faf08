package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "EXPEDITION"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the key/value connection string used by the gorm postgres driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the postgres:// form used by the migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds the geocode cache connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GeoConfig holds the upstream geocoding and routing providers.
type GeoConfig struct {
	GeocoderURL string
	RouterURL   string
	UserAgent   string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// ServiceConfig holds all configuration for the expedition service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DBConfig        DatabaseConfig
	JWTSecret       string
	AccessTokenTTL  time.Duration
	KafkaConfig     KafkaConfig
	RedisConfig     RedisConfig
	GeoConfig       GeoConfig
	RouteSessionTTL time.Duration
	ReceiptDir      string
	MigrationsDir   string
}

// Load reads configuration from .env (when present) and EXPEDITION_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTSecret:      v.GetString("JWT_SECRET"),
		AccessTokenTTL: v.GetDuration("JWT_ACCESS_TTL"),
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		GeoConfig: GeoConfig{
			GeocoderURL: strings.TrimRight(v.GetString("GEOCODER_URL"), "/"),
			RouterURL:   strings.TrimRight(v.GetString("ROUTER_URL"), "/"),
			UserAgent:   v.GetString("GEO_USER_AGENT"),
			HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),
			CacheTTL:    v.GetDuration("GEOCODE_CACHE_TTL"),
		},
		RouteSessionTTL: v.GetDuration("ROUTE_SESSION_TTL"),
		ReceiptDir:      v.GetString("RECEIPT_DIR"),
		MigrationsDir:   v.GetString("MIGRATIONS_DIR"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("EXPEDITION_JWT_SECRET is required")
	}
	return cfg, nil
}

// AgentConfig configures the courier location agent.
type AgentConfig struct {
	AppEnv        string
	APIURL        string
	Token         string
	PositionsFile string
	Interval      time.Duration
	HTTPTimeout   time.Duration
}

// LoadAgent reads the courier agent configuration.
func LoadAgent() (*AgentConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := &AgentConfig{
		AppEnv:        v.GetString("APP_ENV"),
		APIURL:        strings.TrimRight(v.GetString("API_URL"), "/"),
		Token:         v.GetString("TOKEN"),
		PositionsFile: v.GetString("POSITIONS_FILE"),
		Interval:      v.GetDuration("REPLAY_INTERVAL"),
		HTTPTimeout:   v.GetDuration("HTTP_TIMEOUT"),
	}
	if cfg.Token == "" {
		return nil, errors.New("EXPEDITION_TOKEN is required")
	}
	return cfg, nil
}

func newViper() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8083")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "expedition")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_ACCESS_TTL", "15m")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "tiibntick-")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("ROUTER_URL", "https://router.project-osrm.org")
	v.SetDefault("GEO_USER_AGENT", "tiibntick-expedition/1.0")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("GEOCODE_CACHE_TTL", "24h")

	v.SetDefault("ROUTE_SESSION_TTL", "30m")
	v.SetDefault("RECEIPT_DIR", "")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetDefault("API_URL", "http://localhost:8083")
	v.SetDefault("POSITIONS_FILE", "")
	v.SetDefault("REPLAY_INTERVAL", "5s")
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
