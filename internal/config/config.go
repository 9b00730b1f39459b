// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Time scale bounds, matching the in-game settings slider.
const (
	MinTimeScale = 0.5
	MaxTimeScale = 2.0
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Simulation SimulationConfig
	Kafka      KafkaConfig
	Log        LogConfig
	Entropy    EntropyConfig
}

type ServerConfig struct {
	Port        string
	AdminKey    string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Path string
}

type SimulationConfig struct {
	Seed      int64   // 0 draws a seed from the entropy source
	TimeScale float64 // Simulated minutes per scheduler second
	Speed     float64 // Engine fast-forward multiplier
	Autosave  bool
}

type KafkaConfig struct {
	Brokers []string // Empty disables the Kafka sink
	Topic   string
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

type EntropyConfig struct {
	RandomOrgKey string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	seed, _ := strconv.ParseInt(getEnv("SHOPSIM_SEED", "0"), 10, 64)
	timeScale, err := strconv.ParseFloat(getEnv("SHOPSIM_TIME_SCALE", "1"), 64)
	if err != nil {
		timeScale = 1
	}
	speed, err := strconv.ParseFloat(getEnv("SHOPSIM_SPEED", "1"), 64)
	if err != nil || speed < 0 {
		speed = 1
	}
	autosave, err := strconv.ParseBool(getEnv("SHOPSIM_AUTOSAVE", "true"))
	if err != nil {
		autosave = true
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SHOPSIM_PORT", "8080"),
			AdminKey:    os.Getenv("SHOPSIM_ADMIN_KEY"),
			CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Path: getEnv("SHOPSIM_DB_PATH", "data/shop.db"),
		},
		Simulation: SimulationConfig{
			Seed:      seed,
			TimeScale: ClampTimeScale(timeScale),
			Speed:     speed,
			Autosave:  autosave,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("SHOPSIM_KAFKA_BROKERS")),
			Topic:   getEnv("SHOPSIM_KAFKA_TOPIC", "shop-events"),
		},
		Log: LogConfig{
			Level:  parseLevel(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		Entropy: EntropyConfig{
			RandomOrgKey: os.Getenv("RANDOM_ORG_API_KEY"),
		},
	}
	return cfg
}

// ClampTimeScale bounds a time scale to [MinTimeScale, MaxTimeScale].
func ClampTimeScale(v float64) float64 {
	return min(max(v, MinTimeScale), MaxTimeScale)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
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

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
