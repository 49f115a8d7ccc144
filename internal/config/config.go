package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Режимы обработки
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Хранилища профилей
const (
	ProfileStorePostgres = "postgres"
	ProfileStoreBuiltin  = "builtin"
)

// Config структура конфигурации приложения
type Config struct {
	Environment string
	Server      struct {
		Port int
		Host string
	}
	GRPC struct {
		Port int
	}
	Processing struct {
		Mode    string
		BaseURL string
		Timeout int // в секундах
	}
	Database struct {
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
	}
	ProfileStore string
	Session      struct {
		TTL time.Duration
	}
	RateLimit struct {
		FramesPerSecond float64
		Burst           int
	}
	Logging struct {
		Level  string
		Format string // text или json
		File   string
	}
}

// LoadDotEnv загружает переменные из .env, если файл есть. Отсутствие файла не ошибка.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() *Config {
	cfg := &Config{}

	cfg.Environment = getEnv("ENVIRONMENT", "development")

	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.GRPC.Port = getEnvInt("GRPC_PORT", 9090)

	cfg.Processing.Mode = getEnv("PROCESSING_MODE", ModeLocal)
	cfg.Processing.BaseURL = getEnv("PROCESSING_API_BASE_URL", "http://localhost:8000")
	cfg.Processing.Timeout = getEnvInt("PROCESSING_API_TIMEOUT_SECONDS", 60)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.Name = getEnv("DB_NAME", "bodyscan")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")

	cfg.ProfileStore = getEnv("PROFILE_STORE", ProfileStorePostgres)
	cfg.Session.TTL = time.Duration(getEnvInt("SESSION_TTL_SECONDS", 900)) * time.Second

	cfg.RateLimit.FramesPerSecond = getEnvFloat("RATE_LIMIT_FPS", 40)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", 60)

	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnv("LOG_FORMAT", "text")
	cfg.Logging.File = getEnv("LOG_FILE", "")

	return cfg
}

// ProcessingTimeout таймаут удаленного вызова
func (c *Config) ProcessingTimeout() time.Duration {
	return time.Duration(c.Processing.Timeout) * time.Second
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает float значение переменной окружения или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
