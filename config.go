package ppmac

import (
	"os"
	"strconv"
)

// Config хранит модель конфигурации клиента
type Config struct {
	Endpoint       string
	Username       string
	Password       string
	TimeoutMs      int
	Retries        int
	BackoffMs      int
	PollIntervalMs int
	Tolerance      float64
	Batch          bool
	LogLevel       string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	endpoint := os.Getenv("PPMAC_ENDPOINT")
	if endpoint == "" {
		endpoint = "192.168.0.200:1025"
	}

	tolerance, err := strconv.ParseFloat(os.Getenv("PPMAC_TOLERANCE"), 64)
	if err != nil || tolerance <= 0 {
		tolerance = 1e-3
	}

	batch := true
	if v, err := strconv.ParseBool(os.Getenv("PPMAC_BATCH")); err == nil {
		batch = v
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		Endpoint:       endpoint,
		Username:       os.Getenv("PPMAC_USER"),
		Password:       os.Getenv("PPMAC_PASSWORD"),
		TimeoutMs:      envInt("PPMAC_TIMEOUT", 2000),
		Retries:        envInt("PPMAC_RETRIES", 3),
		BackoffMs:      envInt("PPMAC_BACKOFF", 200),
		PollIntervalMs: envInt("PPMAC_POLL_INTERVAL", 50),
		Tolerance:      tolerance,
		Batch:          batch,
		LogLevel:       logLevel,
	}
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
