package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("EXPEDITION_JWT_SECRET", "s3cret")
	t.Setenv("EXPEDITION_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EXPEDITION_ROUTER_URL", "http://osrm.local/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8083", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "http://osrm.local", cfg.GeoConfig.RouterURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.GeoConfig.GeocoderURL)
	assert.Equal(t, 24*time.Hour, cfg.GeoConfig.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.RouteSessionTTL)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("EXPEDITION_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/x?sslmode=disable", c.URL())
	assert.Contains(t, c.DSN(), "dbname=x")
}
