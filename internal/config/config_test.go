package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no config.yaml is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("FLEET_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8084", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, time.Second, cfg.MapConfig.TickInterval)
	assert.False(t, cfg.MQTTConfig.Enabled)
	assert.Equal(t, "fleet", cfg.DBConfig.DBName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	inTempDir(t)
	t.Setenv("FLEET_JWT_SECRET", "s3cret")
	t.Setenv("FLEET_SERVICE_PORT", "9000")
	t.Setenv("FLEET_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("FLEET_REFRESH_INTERVAL", "10s")
	t.Setenv("FLEET_MQTT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, 10*time.Second, cfg.Refresh.Interval)
	assert.True(t, cfg.MQTTConfig.Enabled)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	yaml := []byte("jwt:\n  secret: from-file\nmap:\n  zoom: 9\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTConfig.Secret)
	assert.Equal(t, 9, cfg.MapConfig.Zoom)
}

func TestLoad_MissingSecret(t *testing.T) {
	inTempDir(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_MapBounds(t *testing.T) {
	inTempDir(t)
	t.Setenv("FLEET_JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.MapConfig.CenterLat = 120
	assert.Error(t, Validate(cfg))
}
