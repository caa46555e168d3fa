// reconcile.go — сервис фоновой сверки диска с индексом.
//
// Индекс — единственный источник истины о времени жизни файла: Redis сам
// удаляет записи по TTL, но blob на диске при этом остаётся. Reconcile
// периодически обходит каталог данных и удаляет blob-ы, для которых записи
// в индексе больше нет (истёкший TTL, исчерпанная квота при сбое удаления,
// принудительное удаление администратором).
//
// Запускается как горутина с периодическим тикером (FD_RECONCILE_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filedrop/internal/api/middleware"
	"github.com/bigkaa/filedrop/internal/storage/blobstore"
	"github.com/bigkaa/filedrop/internal/storage/metaindex"
)

// Prometheus метрики reconcile
var (
	// reconcileRunsTotal — количество запусков сверки.
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_reconcile_runs_total",
		Help: "Общее количество запусков сверки диска с индексом",
	})

	// reconcileOrphansDeletedTotal — количество удалённых осиротевших blob-ов.
	reconcileOrphansDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_reconcile_orphans_deleted_total",
		Help: "Общее количество blob-ов, удалённых сверкой",
	})

	// reconcileDurationSeconds — длительность выполнения сверки.
	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fd_reconcile_duration_seconds",
		Help:    "Длительность выполнения сверки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// ReconcileResult — результат одного запуска сверки.
type ReconcileResult struct {
	// Scanned — количество blob-ов на диске
	Scanned int
	// Deleted — количество удалённых осиротевших blob-ов
	Deleted int
	// Errors — количество ошибок при обработке
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// ReconcileService — сервис сверки диска с индексом.
type ReconcileService struct {
	blobs    *blobstore.BlobStore
	index    *metaindex.Index
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewReconcileService создаёт сервис сверки.
func NewReconcileService(
	blobs *blobstore.BlobStore,
	index *metaindex.Index,
	interval time.Duration,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		blobs:    blobs,
		index:    index,
		interval: interval,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину сверки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (rc *ReconcileService) Start(ctx context.Context) {
	rcCtx, cancel := context.WithCancel(ctx)
	rc.cancel = cancel

	go rc.run(rcCtx)

	rc.logger.Info("Сверка запущена",
		slog.String("interval", rc.interval.String()),
	)
}

// Stop останавливает фоновый процесс сверки.
func (rc *ReconcileService) Stop() {
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.logger.Info("Сверка остановлена")
}

// run — основной цикл фоновой горутины.
func (rc *ReconcileService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	rc.RunOnce(ctx)

	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл сверки.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
//
// Blob считается осиротевшим, если записи в индексе нет И blob старше
// одного интервала сверки. Окно отсрочки закрывает гонку с приёмом файла:
// между записью blob на диск и записью метаданных в индекс запись в
// индексе ещё отсутствует, хотя файл не осиротел.
func (rc *ReconcileService) RunOnce(ctx context.Context) *ReconcileResult {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	start := time.Now()
	result := &ReconcileResult{}

	rc.logger.Debug("Сверка начата")

	blobs, err := rc.blobs.List()
	if err != nil {
		rc.logger.Error("Ошибка обхода каталога данных", slog.String("error", err.Error()))
		result.Errors++
		return result
	}
	result.Scanned = len(blobs)

	graceDeadline := start.Add(-rc.interval)

	for _, blob := range blobs {
		exists, err := rc.index.Exists(ctx, blob.FileID)
		if err != nil {
			rc.logger.Error("Сверка: ошибка проверки индекса",
				slog.String("file_id", blob.FileID),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}
		if exists {
			continue
		}

		// Свежий blob мог быть записан загрузкой, ещё не дошедшей до индекса
		if blob.ModTime.After(graceDeadline) {
			rc.logger.Debug("Сверка: blob без записи в индексе моложе окна отсрочки, пропущен",
				slog.String("file_id", blob.FileID),
			)
			continue
		}

		if err := rc.blobs.Delete(blob.FileID); err != nil {
			rc.logger.Error("Сверка: ошибка удаления blob",
				slog.String("file_id", blob.FileID),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		rc.logger.Debug("Сверка: осиротевший blob удалён",
			slog.String("file_id", blob.FileID),
			slog.Int64("size", blob.Size),
		)
		result.Deleted++
	}

	result.Duration = time.Since(start)

	// Обновляем Prometheus метрики
	reconcileRunsTotal.Inc()
	reconcileOrphansDeletedTotal.Add(float64(result.Deleted))
	reconcileDurationSeconds.Observe(result.Duration.Seconds())
	middleware.FilesActive.Set(float64(result.Scanned - result.Deleted))

	if totalSize, err := rc.blobs.TotalSize(); err == nil {
		middleware.StorageBytes.Set(float64(totalSize))
	}

	rc.logger.Info("Сверка завершена",
		slog.Int("scanned", result.Scanned),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}
