// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// FileDrop мониторит:
//   - Redis — индекс метаданных (TCP checker, critical)
//   - ClamAV — антивирусный сканер (TCP checker; critical только при
//     политике fail-closed: при fail-open сервис работоспособен и без сканера)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks" // Регистрация фабрик checker-ов (TCP и др.)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения (FD_DEPHEALTH_SERVICE_ID)
//   - group — имя группы в метриках (FD_DEPHEALTH_GROUP)
//   - redisAddr — адрес Redis host:port (FD_REDIS_ADDR)
//   - clamdAddr — адрес ClamAV host:port (FD_CLAMD_ADDR)
//   - scannerCritical — true при политике fail-closed: без сканера загрузки невозможны
//   - checkInterval — интервал проверки зависимостей (FD_DEPHEALTH_CHECK_INTERVAL)
func NewDephealthService(
	serviceID string,
	group string,
	redisAddr string,
	clamdAddr string,
	scannerCritical bool,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, redisAddr, clamdAddr, scannerCritical, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	redisAddr string,
	clamdAddr string,
	scannerCritical bool,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, redisAddr, clamdAddr, scannerCritical, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	serviceID string,
	group string,
	redisAddr string,
	clamdAddr string,
	scannerCritical bool,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// Redis — встроенный TCP checker: проверка установления соединения.
		// Индекс метаданных критичен: без него ни приём, ни выдача невозможны.
		dephealth.TCP("redis",
			dephealth.FromURL("tcp://"+redisAddr),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
		// ClamAV — встроенный TCP checker.
		dephealth.TCP("clamav",
			dephealth.FromURL("tcp://"+clamdAddr),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(scannerCritical),
		),
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (Redis + ClamAV)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
