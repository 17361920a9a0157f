package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// server config
	APP_PORT         int
	MAX_UPLOAD_BYTES int64
	SESSION_TTL      time.Duration
	// presentation config
	LOCALE          string
	CURRENCY_SYMBOL string
	PRESET_FILE     string
	// persistence config
	VIEW_STORE_DRIVER    string
	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_CONN_MAX_LIFETIME time.Duration
	DB_MAX_IDLE_CONNS    int
	DB_MAX_OPEN_CONNS    int
	DATASTORE_PROJECT_ID string
	// search config
	ELASTIC_URL   string
	ELASTIC_INDEX string
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
}

// LoadEnvConfig reads .env when present and fills DefaultEnvConfig from the
// process environment.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	DefaultEnvConfig = fromEnv()
	return nil
}

func fromEnv() *envConfig {
	return &envConfig{
		APP_PORT:             getEnvInt("APP_PORT", 8080),
		MAX_UPLOAD_BYTES:     int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
		SESSION_TTL:          getEnvDuration("SESSION_TTL", 2*time.Hour),
		LOCALE:               getEnvString("LOCALE", "fr-FR"),
		CURRENCY_SYMBOL:      getEnvString("CURRENCY_SYMBOL", "€"),
		PRESET_FILE:          getEnvString("PRESET_FILE", ""),
		VIEW_STORE_DRIVER:    getEnvString("VIEW_STORE_DRIVER", "memory"),
		DB_HOST:              getEnvString("DB_HOST", "localhost"),
		DB_PORT:              getEnvInt("DB_PORT", 5432),
		DB_USER:              getEnvString("DB_USER", "postgres"),
		DB_PASSWORD:          getEnvString("DB_PASSWORD", "postgres"),
		DB_NAME:              getEnvString("DB_NAME", "postgres"),
		DB_SSL_MODE:          getEnvString("DB_SSL_MODE", "disable"),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 20*time.Minute),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		DATASTORE_PROJECT_ID: getEnvString("DATASTORE_PROJECT_ID", ""),
		ELASTIC_URL:          getEnvString("ELASTIC_URL", ""),
		ELASTIC_INDEX:        getEnvString("ELASTIC_INDEX", "sheetlens-rows"),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
