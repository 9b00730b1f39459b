package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	for _, k := range []string{
		"SHOPSIM_PORT", "SHOPSIM_ADMIN_KEY", "SHOPSIM_DB_PATH", "SHOPSIM_SEED",
		"SHOPSIM_TIME_SCALE", "SHOPSIM_SPEED", "SHOPSIM_AUTOSAVE", "SHOPSIM_KAFKA_BROKERS",
		"SHOPSIM_KAFKA_TOPIC", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS", "RANDOM_ORG_API_KEY",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Server.AdminKey)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.Equal(t, "data/shop.db", cfg.Database.Path)
	assert.Zero(t, cfg.Simulation.Seed)
	assert.Equal(t, 1.0, cfg.Simulation.TimeScale)
	assert.Equal(t, 1.0, cfg.Simulation.Speed)
	assert.True(t, cfg.Simulation.Autosave)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "shop-events", cfg.Kafka.Topic)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("SHOPSIM_SEED", "1234")
	t.Setenv("SHOPSIM_TIME_SCALE", "5")
	t.Setenv("SHOPSIM_SPEED", "10")
	t.Setenv("SHOPSIM_AUTOSAVE", "false")
	t.Setenv("SHOPSIM_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")

	cfg := Load()
	assert.Equal(t, int64(1234), cfg.Simulation.Seed)
	assert.Equal(t, MaxTimeScale, cfg.Simulation.TimeScale)
	assert.Equal(t, 10.0, cfg.Simulation.Speed)
	assert.False(t, cfg.Simulation.Autosave)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("SHOPSIM_PORT", "")
	require.NoError(t, os.Unsetenv("SHOPSIM_PORT")) // godotenv never overrides a set variable, even an empty one
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SHOPSIM_PORT=9999\n"), 0o600))

	cfg := Load()
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestClampTimeScale(t *testing.T) {
	assert.Equal(t, MinTimeScale, ClampTimeScale(0.1))
	assert.Equal(t, 1.5, ClampTimeScale(1.5))
	assert.Equal(t, MaxTimeScale, ClampTimeScale(9))
}
