// Пакет config — загрузка и валидация конфигурации FileDrop
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ScanPolicy — политика реакции на недоступность сканера.
type ScanPolicy string

const (
	// ScanPolicyFailClosed — недоступный сканер отклоняет загрузку.
	ScanPolicyFailClosed ScanPolicy = "fail-closed"
	// ScanPolicyFailOpen — загрузка продолжается с предупреждением в логе.
	ScanPolicyFailOpen ScanPolicy = "fail-open"
)

// Config содержит все параметры конфигурации FileDrop.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения зашифрованных blob-ов
	DataDir string

	// Адрес Redis (host:port)
	RedisAddr string
	// Пароль Redis (опционально)
	RedisPassword string
	// Номер базы Redis
	RedisDB int
	// Таймаут операций Redis
	RedisTimeout time.Duration

	// Адрес демона clamd (host:port)
	ClamdAddr string
	// Таймаут одной проверки clamd
	ScanTimeout time.Duration
	// Политика при недоступном сканере (обязательный явный выбор)
	ScanPolicy ScanPolicy

	// TTL записи по умолчанию, если клиент не указал expiration
	DefaultTTL time.Duration
	// Максимально допустимый TTL
	MaxTTL time.Duration
	// Потолок скачиваний на файл
	MaxDownloads int64
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Интервал фоновой сверки blob-ов с индексом
	ReconcileInterval time.Duration

	// Секрет администратора (вход в админ-API)
	AdminSecret string
	// Время жизни админского JWT
	AdminTokenTTL time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics (FD_DEPHEALTH_GROUP)
	DephealthGroup string
	// Имя экземпляра сервиса в метриках topologymetrics (FD_SERVICE_ID)
	ServiceID string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
// Внешние коллабораторы (Redis, clamd) — обязательные: отсутствие
// адреса — ошибка старта, а не ветка "если доступен" в обработчиках.
func Load() (*Config, error) {
	cfg := &Config{}

	// FD_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("FD_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FD_PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("FD_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FD_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("FD_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// FD_REDIS_ADDR — обязательный
	cfg.RedisAddr, err = getEnvRequired("FD_REDIS_ADDR")
	if err != nil {
		return nil, err
	}

	// FD_REDIS_PASSWORD — опциональный
	cfg.RedisPassword = getEnvDefault("FD_REDIS_PASSWORD", "")

	// FD_REDIS_DB — номер базы (по умолчанию 0)
	cfg.RedisDB, err = getEnvInt("FD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("FD_REDIS_DB: %w", err)
	}

	// FD_REDIS_TIMEOUT — таймаут операций Redis (по умолчанию 5s)
	cfg.RedisTimeout, err = getEnvDuration("FD_REDIS_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_REDIS_TIMEOUT: %w", err)
	}

	// FD_CLAMD_ADDR — обязательный
	cfg.ClamdAddr, err = getEnvRequired("FD_CLAMD_ADDR")
	if err != nil {
		return nil, err
	}

	// FD_SCAN_TIMEOUT — таймаут проверки clamd (по умолчанию 30s)
	cfg.ScanTimeout, err = getEnvDuration("FD_SCAN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_SCAN_TIMEOUT: %w", err)
	}

	// FD_SCAN_POLICY — обязательный явный выбор политики.
	// Значения по умолчанию нет сознательно: легитимны оба поведения,
	// молча подменять одно другим нельзя.
	scanPolicy, err := getEnvRequired("FD_SCAN_POLICY")
	if err != nil {
		return nil, err
	}
	switch ScanPolicy(scanPolicy) {
	case ScanPolicyFailClosed, ScanPolicyFailOpen:
		cfg.ScanPolicy = ScanPolicy(scanPolicy)
	default:
		return nil, fmt.Errorf("FD_SCAN_POLICY: недопустимое значение %q, допустимые: fail-closed, fail-open", scanPolicy)
	}

	// FD_DEFAULT_TTL — TTL по умолчанию (по умолчанию 24h)
	cfg.DefaultTTL, err = getEnvDuration("FD_DEFAULT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FD_DEFAULT_TTL: %w", err)
	}

	// FD_MAX_TTL — максимальный TTL (по умолчанию 168h)
	cfg.MaxTTL, err = getEnvDuration("FD_MAX_TTL", 168*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FD_MAX_TTL: %w", err)
	}
	if cfg.DefaultTTL > cfg.MaxTTL {
		return nil, fmt.Errorf("FD_DEFAULT_TTL: значение %s превышает FD_MAX_TTL (%s)",
			cfg.DefaultTTL, cfg.MaxTTL)
	}

	// FD_MAX_DOWNLOADS — потолок скачиваний (по умолчанию 100)
	maxDownloads, err := getEnvInt64("FD_MAX_DOWNLOADS", 100)
	if err != nil {
		return nil, fmt.Errorf("FD_MAX_DOWNLOADS: %w", err)
	}
	if maxDownloads <= 0 {
		return nil, fmt.Errorf("FD_MAX_DOWNLOADS: значение должно быть положительным")
	}
	cfg.MaxDownloads = maxDownloads

	// FD_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 1 GB)
	maxFileSize, err := getEnvInt64("FD_MAX_FILE_SIZE", 1073741824)
	if err != nil {
		return nil, fmt.Errorf("FD_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("FD_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// FD_RECONCILE_INTERVAL — интервал сверки (по умолчанию 5m)
	cfg.ReconcileInterval, err = getEnvDuration("FD_RECONCILE_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FD_RECONCILE_INTERVAL: %w", err)
	}

	// FD_ADMIN_SECRET — обязательный
	cfg.AdminSecret, err = getEnvRequired("FD_ADMIN_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.AdminSecret) < 16 {
		return nil, fmt.Errorf("FD_ADMIN_SECRET: длина должна быть не менее 16 символов")
	}

	// FD_ADMIN_TOKEN_TTL — время жизни админского JWT (по умолчанию 1h)
	cfg.AdminTokenTTL, err = getEnvDuration("FD_ADMIN_TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FD_ADMIN_TOKEN_TTL: %w", err)
	}

	// FD_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FD_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FD_LOG_LEVEL: %w", err)
	}

	// FD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FD_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FD_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_SHUTDOWN_TIMEOUT: %w", err)
	}

	// FD_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("FD_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// FD_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "filedrop")
	cfg.DephealthGroup = getEnvDefault("FD_DEPHEALTH_GROUP", "filedrop")

	// FD_SERVICE_ID — имя экземпляра сервиса (по умолчанию "filedrop-01")
	cfg.ServiceID = getEnvDefault("FD_SERVICE_ID", "filedrop-01")

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 24h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
