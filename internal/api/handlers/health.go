// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bigkaa/filedrop/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// IndexPinger — интерфейс проверки доступности индекса метаданных.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// dataDir — путь к каталогу данных (для проверки FS)
	dataDir string
	// index — индекс метаданных для проверки доступности Redis
	index IndexPinger
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(dataDir string, index IndexPinger) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		dataDir: dataDir,
		index:   index,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "filedrop",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: файловая система, индекс метаданных (Redis).
// Сканер сознательно не проверяется: его недоступность обрабатывается
// политикой fail-closed/fail-open на уровне приёма файлов.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	// Проверка файловой системы
	fsCheck := h.checkFilesystem()
	if fsCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	// Проверка индекса метаданных
	indexCheck := h.checkIndex(r.Context())
	if indexCheck["status"] != "ok" {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "filedrop",
		"checks": map[string]any{
			"filesystem": fsCheck,
			"index":      indexCheck,
		},
	})
}

// checkFilesystem проверяет доступность каталога данных на запись.
func (h *HealthHandler) checkFilesystem() map[string]any {
	testFile := filepath.Join(h.dataDir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Каталог данных недоступен для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": "ok",
	}
}

// checkIndex проверяет доступность индекса метаданных.
func (h *HealthHandler) checkIndex(ctx context.Context) map[string]any {
	if err := h.index.Ping(ctx); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Индекс метаданных недоступен: " + err.Error(),
		}
	}

	return map[string]any{
		"status": "ok",
	}
}
