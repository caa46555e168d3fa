// Точка входа FileDrop — сервиса эфемерного обмена зашифрованными файлами.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/filedrop/internal/api/handlers"
	"github.com/bigkaa/filedrop/internal/api/middleware"
	"github.com/bigkaa/filedrop/internal/config"
	"github.com/bigkaa/filedrop/internal/scanner"
	"github.com/bigkaa/filedrop/internal/server"
	"github.com/bigkaa/filedrop/internal/service"
	"github.com/bigkaa/filedrop/internal/storage/blobstore"
	"github.com/bigkaa/filedrop/internal/storage/metaindex"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("FileDrop запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("scan_policy", string(cfg.ScanPolicy)),
	)

	// --- Инициализация компонентов ---

	ctx := context.Background()

	// 1. Хранилище зашифрованных blob-ов
	blobs, err := blobstore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища blob-ов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Индекс метаданных в Redis
	index, err := metaindex.New(ctx, metaindex.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.RedisTimeout,
	}, logger)
	if err != nil {
		logger.Error("Ошибка подключения к Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer index.Close()

	// 3. Антивирусный сканер
	scan := scanner.NewClamAV(cfg.ClamdAddr, cfg.ScanTimeout, logger)

	// 4. Сервисы
	uploadSvc := service.NewUploadService(cfg, scan, blobs, index, logger)
	downloadSvc := service.NewDownloadService(blobs, index, logger)
	adminSvc := service.NewAdminService(blobs, index, logger)

	// 5. Фоновые процессы

	// 5.1 Reconcile — сверка диска с индексом
	reconcileSvc := service.NewReconcileService(blobs, index, cfg.ReconcileInterval, logger)
	reconcileSvc.Start(ctx)

	// 5.2 topologymetrics — мониторинг зависимостей
	scannerCritical := cfg.ScanPolicy == config.ScanPolicyFailClosed
	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.ServiceID,
		cfg.DephealthGroup,
		cfg.RedisAddr,
		cfg.ClamdAddr,
		scannerCritical,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. Middleware и handlers
	adminAuth := middleware.NewAdminAuth(cfg.AdminSecret, logger)

	filesHandler := handlers.NewFilesHandler(uploadSvc, downloadSvc, cfg.MaxFileSize)
	adminHandler := handlers.NewAdminHandler(adminSvc, adminAuth, cfg.AdminSecret, cfg.AdminTokenTTL)
	healthHandler := handlers.NewHealthHandler(cfg.DataDir, index)

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, filesHandler, adminHandler, healthHandler, adminAuth)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	reconcileSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("FileDrop остановлен")
}
