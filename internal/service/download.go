// download.go — сервис выдачи файлов: аутентификация, квота, расшифровка,
// досрочное удаление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apierrors "github.com/bigkaa/filedrop/internal/api/errors"
	"github.com/bigkaa/filedrop/internal/api/middleware"
	"github.com/bigkaa/filedrop/internal/cryptox"
	"github.com/bigkaa/filedrop/internal/domain/model"
	"github.com/bigkaa/filedrop/internal/storage/blobstore"
	"github.com/bigkaa/filedrop/internal/storage/metaindex"
)

// DownloadError — ошибка выдачи с HTTP-кодом.
type DownloadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DownloadResult — расшифрованный файл.
type DownloadResult struct {
	// Filename — оригинальное имя файла
	Filename string
	// Data — расшифрованное содержимое
	Data []byte
	// DownloadsLeft — остаток квоты скачиваний после этой выдачи
	DownloadsLeft int64
}

// FileInfo — публичные сведения о файле (без ключей и хешей).
type FileInfo struct {
	FileID        string
	Filename      string
	Sender        string
	Protected     bool
	DownloadsLeft int64
	CreatedAt     time.Time
}

// DownloadService — сервис выдачи файлов.
type DownloadService struct {
	blobs  *blobstore.BlobStore
	index  *metaindex.Index
	logger *slog.Logger
}

// NewDownloadService создаёт сервис выдачи файлов.
func NewDownloadService(
	blobs *blobstore.BlobStore,
	index *metaindex.Index,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		blobs:  blobs,
		index:  index,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// Download выдаёт расшифрованный файл.
//
// Поток:
//  1. Поиск записи в индексе (истёкший TTL неотличим от несуществующего файла)
//  2. Проверка пароля (401 — пароль не передан, 403 — неверный)
//  3. Предварительная проверка квоты
//  4. Атомарный инкремент счётчика — единственный арбитр при гонке
//  5. Чтение и расшифровка blob
//  6. Досрочное удаление при исчерпании квоты
//
// Инкремент выполняется ДО чтения blob: при конкурентных запросах значение
// счётчика после инкремента однозначно определяет, кто получил последнее
// скачивание, а кто опоздал.
func (s *DownloadService) Download(ctx context.Context, fileID, password string) (*DownloadResult, *DownloadError) {
	// 1. Ищем запись в индексе
	rec, err := s.index.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, metaindex.ErrNotFound) {
			middleware.DownloadsTotal.WithLabelValues("not_found").Inc()
			return nil, notFoundError(fileID)
		}
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка чтения индекса",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения метаданных",
		}
	}

	// 2. Проверяем пароль
	if authErr := s.authenticate(rec, password); authErr != nil {
		middleware.DownloadsTotal.WithLabelValues("auth_failed").Inc()
		return nil, authErr
	}

	// 3. Предварительная проверка квоты: запись с исчерпанной квотой могла
	// остаться после сбоя удаления. Удаляем только запись: победитель
	// последнего скачивания может ещё не дочитать blob с диска.
	if rec.QuotaExhausted() {
		s.dropRecord(ctx, fileID)
		middleware.DownloadsTotal.WithLabelValues("quota_exhausted").Inc()
		return nil, quotaExhaustedError()
	}

	// 4. Атомарный инкремент счётчика скачиваний.
	// Инкремент охраняется проверкой существования ключа: если TTL истёк
	// между чтением записи и инкрементом, файла больше нет.
	newCount, err := s.index.IncrementDownloads(ctx, fileID)
	if err != nil {
		if errors.Is(err, metaindex.ErrNotFound) {
			middleware.DownloadsTotal.WithLabelValues("not_found").Inc()
			return nil, notFoundError(fileID)
		}
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка инкремента счётчика",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка учёта скачивания",
		}
	}

	// Проигравшие гонку видят счётчик выше лимита. Blob не трогаем:
	// победитель инкремента продолжает читать его с диска, подчистку
	// осиротевшего blob-а выполнит reconcile-цикл.
	if newCount > rec.MaxDownloads {
		s.dropRecord(ctx, fileID)
		middleware.DownloadsTotal.WithLabelValues("quota_exhausted").Inc()
		return nil, quotaExhaustedError()
	}

	// 5. Читаем и расшифровываем blob
	ciphertext, err := s.blobs.Read(fileID)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			// Запись жива, а blob с диска исчез — для клиента файла нет.
			// Запись удаляем: выдать этот файл уже никто не сможет.
			s.dropRecord(ctx, fileID)
			middleware.DownloadsTotal.WithLabelValues("not_found").Inc()
			s.logger.Warn("Blob отсутствует на диске при живой записи индекса",
				slog.String("file_id", fileID),
			)
			return nil, notFoundError(fileID)
		}
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка чтения blob",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}

	key, err := cryptox.DecodeKey(rec.EncryptionKey)
	if err != nil {
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Повреждён ключ шифрования в индексе",
			slog.String("file_id", fileID),
		)
		return nil, &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeDecryptionFailed,
			Message:    "Ошибка расшифровки файла",
		}
	}

	plaintext, err := cryptox.Decrypt(ciphertext, key)
	if err != nil {
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Расшифровка не пройдена: blob повреждён или подменён",
			slog.String("file_id", fileID),
		)
		return nil, &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeDecryptionFailed,
			Message:    "Ошибка расшифровки файла",
		}
	}

	// 6. Последнее скачивание — удаляем файл досрочно.
	// Удаление строго после успешной расшифровки: текущий клиент получит данные.
	if newCount == rec.MaxDownloads {
		s.purge(ctx, fileID)
		s.logger.Info("Квота исчерпана, файл удалён",
			slog.String("file_id", fileID),
			slog.Int64("downloads", newCount),
		)
	}

	middleware.DownloadsTotal.WithLabelValues("success").Inc()

	s.logger.Info("Файл выдан",
		slog.String("file_id", fileID),
		slog.String("filename", rec.Filename),
		slog.Int64("downloads_count", newCount),
		slog.Int64("max_downloads", rec.MaxDownloads),
	)

	return &DownloadResult{
		Filename:      rec.Filename,
		Data:          plaintext,
		DownloadsLeft: rec.MaxDownloads - newCount,
	}, nil
}

// Check возвращает публичные сведения о файле без расходования квоты.
func (s *DownloadService) Check(ctx context.Context, fileID string) (*FileInfo, *DownloadError) {
	rec, err := s.index.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, metaindex.ErrNotFound) {
			return nil, notFoundError(fileID)
		}
		s.logger.Error("Ошибка чтения индекса",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения метаданных",
		}
	}

	left := rec.MaxDownloads - rec.DownloadsCount
	if left < 0 {
		left = 0
	}

	return &FileInfo{
		FileID:        rec.ID,
		Filename:      rec.Filename,
		Sender:        rec.Sender,
		Protected:     rec.Protected(),
		DownloadsLeft: left,
		CreatedAt:     rec.CreatedTime(),
	}, nil
}

// authenticate проверяет пароль доступа к файлу.
func (s *DownloadService) authenticate(rec *model.FileRecord, password string) *DownloadError {
	if !rec.Protected() {
		return nil
	}

	password = strings.TrimSpace(password)
	if password == "" {
		return &DownloadError{
			StatusCode: 401,
			Code:       apierrors.CodeUnauthorized,
			Message:    "Файл защищён паролем",
		}
	}

	if !cryptox.VerifyPassword(rec.PasswordHash, password) {
		return &DownloadError{
			StatusCode: 403,
			Code:       apierrors.CodeForbidden,
			Message:    "Неверный пароль",
		}
	}

	return nil
}

// dropRecord удаляет только запись индекса. Blob остаётся на диске:
// параллельное скачивание, выигравшее гонку за квоту, могло ещё не прочитать
// его; осиротевший blob подберёт reconcile-цикл.
func (s *DownloadService) dropRecord(ctx context.Context, fileID string) {
	if err := s.index.Delete(ctx, fileID); err != nil {
		s.logger.Warn("Ошибка удаления записи индекса",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// purge удаляет blob и запись индекса. Вызывается только из путей, где
// конкурентов за blob быть не может: последнее скачивание после успешной
// расшифровки. Ошибки логируются, но не прерывают обработку.
func (s *DownloadService) purge(ctx context.Context, fileID string) {
	if err := s.blobs.Delete(fileID); err != nil {
		s.logger.Warn("Ошибка удаления blob",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	} else {
		middleware.FilesActive.Dec()
	}
	if err := s.index.Delete(ctx, fileID); err != nil {
		s.logger.Warn("Ошибка удаления записи индекса",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

func notFoundError(fileID string) *DownloadError {
	return &DownloadError{
		StatusCode: 404,
		Code:       apierrors.CodeNotFound,
		Message:    fmt.Sprintf("Файл %s не найден", fileID),
	}
}

func quotaExhaustedError() *DownloadError {
	return &DownloadError{
		StatusCode: 410,
		Code:       apierrors.CodeQuotaExhausted,
		Message:    "Лимит скачиваний исчерпан, файл удалён",
	}
}
