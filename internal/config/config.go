package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	ServerPort  string
	KafkaBroker string
	KafkaTopic  string
	GinMode     string
	Database    DatabaseConfig
	Logging     LoggerConfig
	Ppmac       PpmacConfig
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// DatabaseConfig содержит конфигурацию для подключения к базе данных
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	DBName   string
	SSLMode  string
	// MaxConns ограничивает пул соединений: запись идет только при смене состояния сессии.
	MaxConns int
}

// DSN собирает строку подключения к базе dbName на сервере из конфигурации.
func (c DatabaseConfig) DSN(dbName string) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.Username, c.Password, dbName, c.Port, c.SSLMode)
}

// PpmacConfig содержит параметры подключения к контроллерам
type PpmacConfig struct {
	Username       string
	Password       string
	TimeoutMs      int
	Retries        int
	BackoffMs      int
	PollIntervalMs int
	ScanTimeoutMs  int
	Tolerance      float64
	Batch          bool
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{
		ServerPort:  getEnv("APP_PORT", "8082"),
		KafkaBroker: getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "ppmac_scans"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Username: getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "root"),
			DBName:   getEnv("DB_NAME", "ppmac_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsPositiveInt("DB_MAX_CONNS", 4),
		},
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "DEBUG"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
		Ppmac: PpmacConfig{
			Username:       getEnv("PPMAC_USER", ""),
			Password:       getEnv("PPMAC_PASSWORD", ""),
			TimeoutMs:      getEnvAsPositiveInt("PPMAC_TIMEOUT", 2000),
			Retries:        getEnvAsPositiveInt("PPMAC_RETRIES", 3),
			BackoffMs:      getEnvAsPositiveInt("PPMAC_BACKOFF", 200),
			PollIntervalMs: getEnvAsPositiveInt("PPMAC_POLL_INTERVAL", 50),
			ScanTimeoutMs:  getEnvAsInt("PPMAC_SCAN_TIMEOUT", 0),
			Tolerance:      getEnvAsFloat("PPMAC_TOLERANCE", 1e-3),
			Batch:          getEnvAsBool("PPMAC_BATCH", true),
		},
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsPositiveInt как getEnvAsInt, но ноль и отрицательные значения заменяются значением по умолчанию.
func getEnvAsPositiveInt(name string, defaultValue int) int {
	if value := getEnvAsInt(name, defaultValue); value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	valueStr := getEnv(name, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}
