// Пакет service — бизнес-логика FileDrop.
// upload.go — сервис приёма файлов: проверка, сканирование, шифрование, сохранение.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/bigkaa/filedrop/internal/api/errors"
	"github.com/bigkaa/filedrop/internal/api/middleware"
	"github.com/bigkaa/filedrop/internal/config"
	"github.com/bigkaa/filedrop/internal/cryptox"
	"github.com/bigkaa/filedrop/internal/domain/model"
	"github.com/bigkaa/filedrop/internal/scanner"
	"github.com/bigkaa/filedrop/internal/storage/blobstore"
	"github.com/bigkaa/filedrop/internal/storage/metaindex"
)

// UploadParams — параметры приёма файла.
type UploadParams struct {
	// Data — содержимое файла
	Data []byte
	// Filename — оригинальное имя файла
	Filename string
	// TTL — срок жизни файла (0 — используется значение по умолчанию)
	TTL time.Duration
	// Password — пароль доступа (пустая строка — файл без пароля)
	Password string
	// Sender — подпись отправителя (опционально)
	Sender string
}

// UploadResult — результат приёма файла.
type UploadResult struct {
	// FileID — идентификатор для последующего скачивания
	FileID string
	// Filename — оригинальное имя файла
	Filename string
	// ExpiresAt — момент истечения срока жизни
	ExpiresAt time.Time
	// Protected — установлен ли пароль
	Protected bool
}

// UploadError — ошибка приёма с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис приёма файлов.
type UploadService struct {
	cfg    *config.Config
	scan   scanner.Scanner
	blobs  *blobstore.BlobStore
	index  *metaindex.Index
	logger *slog.Logger
}

// NewUploadService создаёт сервис приёма файлов.
func NewUploadService(
	cfg *config.Config,
	scan scanner.Scanner,
	blobs *blobstore.BlobStore,
	index *metaindex.Index,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:    cfg,
		scan:   scan,
		blobs:  blobs,
		index:  index,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload принимает файл на хранение.
//
// Поток:
//  1. Проверка размера и TTL
//  2. Антивирусное сканирование (политика fail-closed/fail-open)
//  3. Генерация ключа и шифрование
//  4. Запись blob на диск
//  5. Запись метаданных в индекс с TTL (точка коммита)
//
// При ошибке записи метаданных blob удаляется: осиротевший blob без
// записи в индексе недоступен и будет подобран reconcile-циклом,
// но немедленная очистка дешевле.
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*UploadResult, *UploadError) {
	// 1. Проверяем размер файла
	size := int64(len(params.Data))
	if size == 0 {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Пустой файл не принимается",
		}
	}
	if size > s.cfg.MaxFileSize {
		middleware.UploadsTotal.WithLabelValues("too_large").Inc()
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", size, s.cfg.MaxFileSize),
		}
	}

	// 2. Валидируем TTL
	ttl := params.TTL
	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}
	if ttl < time.Second || ttl > s.cfg.MaxTTL {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    fmt.Sprintf("Срок жизни должен быть от 1s до %s", s.cfg.MaxTTL),
		}
	}

	// 3. Антивирусное сканирование
	scanSkipped, uploadErr := s.checkContent(ctx, params.Data)
	if uploadErr != nil {
		return nil, uploadErr
	}

	// 4. Генерируем идентификатор и ключ шифрования
	fileID := uuid.New().String()

	key, err := cryptox.GenerateKey()
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка генерации ключа шифрования", slog.String("error", err.Error()))
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Внутренняя ошибка при подготовке шифрования",
		}
	}

	ciphertext, err := cryptox.Encrypt(params.Data, key)
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка шифрования файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Внутренняя ошибка при шифровании",
		}
	}

	// 5. Записываем blob на диск
	if err := s.blobs.WriteNew(fileID, ciphertext); err != nil {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка записи blob",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageWriteFailed,
			Message:    "Ошибка сохранения файла на диск",
		}
	}

	// 6. Хешируем пароль (пробельные символы по краям отбрасываются:
	// пароль из "  " эквивалентен отсутствию пароля)
	password := strings.TrimSpace(params.Password)
	passwordHash := ""
	if password != "" {
		passwordHash, err = cryptox.HashPassword(password)
		if err != nil {
			_ = s.blobs.Delete(fileID)
			middleware.UploadsTotal.WithLabelValues("error").Inc()
			s.logger.Error("Ошибка хеширования пароля",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
			return nil, &UploadError{
				StatusCode: 500,
				Code:       apierrors.CodeInternalError,
				Message:    "Внутренняя ошибка при обработке пароля",
			}
		}
	}

	// 7. Формируем запись индекса
	now := time.Now().UTC()
	rec := &model.FileRecord{
		ID:             fileID,
		Filename:       params.Filename,
		EncryptionKey:  cryptox.EncodeKey(key),
		PasswordHash:   passwordHash,
		Sender:         params.Sender,
		MaxDownloads:   s.cfg.MaxDownloads,
		DownloadsCount: 0,
		CreatedAt:      now.Unix(),
	}

	// 8. Записываем метаданные с TTL — точка коммита загрузки.
	// До этого момента файл не существует с точки зрения клиентов.
	if err := s.index.Put(ctx, rec, ttl); err != nil {
		_ = s.blobs.Delete(fileID)
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка записи метаданных",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeStorageWriteFailed,
			Message:    "Ошибка записи метаданных",
		}
	}

	// 9. Обновляем метрики. Принятые без антивирусной проверки файлы
	// считаются отдельно: по ним виден объём слепых приёмов при fail-open.
	if scanSkipped {
		middleware.UploadsTotal.WithLabelValues("scan_skipped").Inc()
	} else {
		middleware.UploadsTotal.WithLabelValues("accepted").Inc()
	}
	middleware.FilesActive.Inc()

	s.logger.Info("Файл принят",
		slog.String("file_id", fileID),
		slog.String("filename", params.Filename),
		slog.Int64("size", size),
		slog.Duration("ttl", ttl),
		slog.Bool("protected", passwordHash != ""),
	)

	return &UploadResult{
		FileID:    fileID,
		Filename:  params.Filename,
		ExpiresAt: now.Add(ttl),
		Protected: passwordHash != "",
	}, nil
}

// checkContent выполняет антивирусную проверку содержимого.
// Исход "сканер недоступен" трактуется согласно политике:
// fail-closed — файл отвергается (503), fail-open — принимается с WARN в логе
// и skipped=true (для метрики fd_uploads_total{result="scan_skipped"}).
func (s *UploadService) checkContent(ctx context.Context, data []byte) (skipped bool, uploadErr *UploadError) {
	result := s.scan.Scan(ctx, data)

	switch result.Status {
	case scanner.StatusClean:
		return false, nil

	case scanner.StatusInfected:
		middleware.UploadsTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("Файл отвергнут антивирусом",
			slog.String("signature", result.Signature),
		)
		return false, &UploadError{
			StatusCode: 422,
			Code:       apierrors.CodeContentRejected,
			Message:    "Файл отвергнут: обнаружена вредоносная сигнатура",
		}

	default: // scanner.StatusUnavailable
		if s.cfg.ScanPolicy == config.ScanPolicyFailOpen {
			s.logger.Warn("Сканер недоступен, файл принят без проверки (fail-open)",
				slog.String("reason", result.Reason),
			)
			return true, nil
		}
		middleware.UploadsTotal.WithLabelValues("scan_unavailable").Inc()
		s.logger.Error("Сканер недоступен, файл отвергнут (fail-closed)",
			slog.String("reason", result.Reason),
		)
		return false, &UploadError{
			StatusCode: 503,
			Code:       apierrors.CodeScanUnavailable,
			Message:    "Антивирусная проверка временно недоступна, повторите попытку позже",
		}
	}
}
