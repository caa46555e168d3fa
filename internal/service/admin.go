// admin.go — административный сервис: сводка хранилища и принудительное удаление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apierrors "github.com/bigkaa/filedrop/internal/api/errors"
	"github.com/bigkaa/filedrop/internal/api/middleware"
	"github.com/bigkaa/filedrop/internal/storage/blobstore"
	"github.com/bigkaa/filedrop/internal/storage/metaindex"
)

// AdminError — ошибка административной операции с HTTP-кодом.
type AdminError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AdminError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DashboardFile — сводные сведения об одном файле для панели администратора.
// Ключ шифрования и хеш пароля не раскрываются.
type DashboardFile struct {
	FileID         string    `json:"file_id"`
	Filename       string    `json:"filename"`
	Sender         string    `json:"sender,omitempty"`
	Protected      bool      `json:"protected"`
	DownloadsCount int64     `json:"downloads_count"`
	MaxDownloads   int64     `json:"max_downloads"`
	CreatedAt      time.Time `json:"created_at"`
	BlobSize       int64     `json:"blob_size"`
	BlobPresent    bool      `json:"blob_present"`
}

// Dashboard — сводка состояния хранилища.
type Dashboard struct {
	Files        []DashboardFile `json:"files"`
	FilesTotal   int             `json:"files_total"`
	StorageBytes int64           `json:"storage_bytes"`
	OrphanBlobs  int             `json:"orphan_blobs"`
}

// AdminService — сервис административных операций.
type AdminService struct {
	blobs  *blobstore.BlobStore
	index  *metaindex.Index
	logger *slog.Logger
}

// NewAdminService создаёт административный сервис.
func NewAdminService(
	blobs *blobstore.BlobStore,
	index *metaindex.Index,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		blobs:  blobs,
		index:  index,
		logger: logger.With(slog.String("component", "admin_service")),
	}
}

// Dashboard собирает сводку: все живые записи индекса, размер на диске
// и количество осиротевших blob-ов (ещё не подобранных сверкой).
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, *AdminError) {
	ids, err := s.index.ListIDs(ctx)
	if err != nil {
		s.logger.Error("Ошибка перечисления индекса", slog.String("error", err.Error()))
		return nil, &AdminError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения индекса",
		}
	}

	blobs, err := s.blobs.List()
	if err != nil {
		s.logger.Error("Ошибка обхода каталога данных", slog.String("error", err.Error()))
		return nil, &AdminError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения каталога данных",
		}
	}

	blobByID := make(map[string]blobstore.BlobInfo, len(blobs))
	var totalBytes int64
	for _, b := range blobs {
		blobByID[b.FileID] = b
		totalBytes += b.Size
	}

	dash := &Dashboard{
		Files:        make([]DashboardFile, 0, len(ids)),
		StorageBytes: totalBytes,
	}

	indexed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		rec, err := s.index.Get(ctx, id)
		if err != nil {
			// Запись могла истечь между Scan и HGetAll — пропускаем
			if errors.Is(err, metaindex.ErrNotFound) {
				continue
			}
			s.logger.Warn("Ошибка чтения записи индекса",
				slog.String("file_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		indexed[id] = struct{}{}

		f := DashboardFile{
			FileID:         rec.ID,
			Filename:       rec.Filename,
			Sender:         rec.Sender,
			Protected:      rec.Protected(),
			DownloadsCount: rec.DownloadsCount,
			MaxDownloads:   rec.MaxDownloads,
			CreatedAt:      rec.CreatedTime(),
		}
		if blob, ok := blobByID[id]; ok {
			f.BlobSize = blob.Size
			f.BlobPresent = true
		}
		dash.Files = append(dash.Files, f)
	}

	dash.FilesTotal = len(dash.Files)
	for _, b := range blobs {
		if _, ok := indexed[b.FileID]; !ok {
			dash.OrphanBlobs++
		}
	}

	return dash, nil
}

// ForceDelete принудительно удаляет файл: blob и запись индекса.
// 404 возвращается только если не было ни blob-а, ни записи.
func (s *AdminService) ForceDelete(ctx context.Context, fileID string) *AdminError {
	existed := s.blobs.Exists(fileID)
	if existed {
		if err := s.blobs.Delete(fileID); err != nil {
			s.logger.Error("Ошибка удаления blob",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
			return &AdminError{
				StatusCode: 500,
				Code:       apierrors.CodeInternalError,
				Message:    "Ошибка удаления файла с диска",
			}
		}
	}

	inIndex, err := s.index.Exists(ctx, fileID)
	if err != nil {
		s.logger.Error("Ошибка проверки индекса",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return &AdminError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения индекса",
		}
	}
	if inIndex {
		if err := s.index.Delete(ctx, fileID); err != nil {
			s.logger.Error("Ошибка удаления записи индекса",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
			return &AdminError{
				StatusCode: 500,
				Code:       apierrors.CodeInternalError,
				Message:    "Ошибка удаления записи индекса",
			}
		}
	}

	if !existed && !inIndex {
		return &AdminError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Файл %s не найден", fileID),
		}
	}

	if existed {
		middleware.FilesActive.Dec()
	}
	s.logger.Info("Файл удалён администратором",
		slog.String("file_id", fileID),
	)
	return nil
}
