package config

import (
	"log/slog"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"FD_DATA_DIR":     "/var/lib/filedrop",
		"FD_REDIS_ADDR":   "localhost:6379",
		"FD_CLAMD_ADDR":   "localhost:3310",
		"FD_SCAN_POLICY":  "fail-closed",
		"FD_ADMIN_SECRET": "super-secret-admin-key",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.DefaultTTL != 24*time.Hour {
		t.Errorf("DefaultTTL = %v, ожидается 24h", cfg.DefaultTTL)
	}
	if cfg.MaxTTL != 168*time.Hour {
		t.Errorf("MaxTTL = %v, ожидается 168h", cfg.MaxTTL)
	}
	if cfg.MaxDownloads != 100 {
		t.Errorf("MaxDownloads = %d, ожидается 100", cfg.MaxDownloads)
	}
	if cfg.MaxFileSize != 1073741824 {
		t.Errorf("MaxFileSize = %d, ожидается 1073741824", cfg.MaxFileSize)
	}
	if cfg.ReconcileInterval != 5*time.Minute {
		t.Errorf("ReconcileInterval = %v, ожидается 5m", cfg.ReconcileInterval)
	}
	if cfg.ScanPolicy != ScanPolicyFailClosed {
		t.Errorf("ScanPolicy = %q, ожидается fail-closed", cfg.ScanPolicy)
	}
	if cfg.RedisTimeout != 5*time.Second {
		t.Errorf("RedisTimeout = %v, ожидается 5s", cfg.RedisTimeout)
	}
	if cfg.ScanTimeout != 30*time.Second {
		t.Errorf("ScanTimeout = %v, ожидается 30s", cfg.ScanTimeout)
	}
	if cfg.AdminTokenTTL != time.Hour {
		t.Errorf("AdminTokenTTL = %v, ожидается 1h", cfg.AdminTokenTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{"FD_DATA_DIR", "FD_REDIS_ADDR", "FD_CLAMD_ADDR", "FD_SCAN_POLICY", "FD_ADMIN_SECRET"}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			envs[missing] = ""
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() без %s: ожидалась ошибка, получили nil", missing)
			}
		})
	}
}

func TestLoad_InvalidScanPolicy(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_SCAN_POLICY"] = "maybe"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Error("Load() с недопустимой политикой сканирования: ожидалась ошибка, получили nil")
	}
}

func TestLoad_FailOpenPolicy(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_SCAN_POLICY"] = "fail-open"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.ScanPolicy != ScanPolicyFailOpen {
		t.Errorf("ScanPolicy = %q, ожидается fail-open", cfg.ScanPolicy)
	}
}

func TestLoad_DefaultTTLOverMaxTTL(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_DEFAULT_TTL"] = "200h"
	envs["FD_MAX_TTL"] = "100h"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Error("Load() с DefaultTTL > MaxTTL: ожидалась ошибка, получили nil")
	}
}

func TestLoad_ShortAdminSecret(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_ADMIN_SECRET"] = "short"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Error("Load() с коротким секретом администратора: ожидалась ошибка, получили nil")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_PORT"] = "99999"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Error("Load() с портом вне диапазона: ожидалась ошибка, получили nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_DEFAULT_TTL"] = "не-длительность"
	setEnvs(t, envs)

	if _, err := Load(); err == nil {
		t.Error("Load() с некорректной длительностью: ожидалась ошибка, получили nil")
	}
}

func TestLoad_CustomLogSettings(t *testing.T) {
	envs := minimalEnvs()
	envs["FD_LOG_LEVEL"] = "debug"
	envs["FD_LOG_FORMAT"] = "text"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
}
