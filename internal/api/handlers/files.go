// files.go — HTTP handlers публичных файловых операций FileDrop.
// Upload, Check, Download.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bigkaa/filedrop/internal/api/errors"
	"github.com/bigkaa/filedrop/internal/service"
)

// FilesHandler — обработчик публичных файловых endpoints.
type FilesHandler struct {
	uploadSvc   *service.UploadService
	downloadSvc *service.DownloadService
	maxFileSize int64
}

// NewFilesHandler создаёт обработчик публичных файловых endpoints.
func NewFilesHandler(
	uploadSvc *service.UploadService,
	downloadSvc *service.DownloadService,
	maxFileSize int64,
) *FilesHandler {
	return &FilesHandler{
		uploadSvc:   uploadSvc,
		downloadSvc: downloadSvc,
		maxFileSize: maxFileSize,
	}
}

// uploadResponse — тело ответа на успешную загрузку.
type uploadResponse struct {
	FileID    string    `json:"file_id"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
	Protected bool      `json:"protected"`
}

// checkResponse — тело ответа проверки файла.
type checkResponse struct {
	FileID        string    `json:"file_id"`
	Filename      string    `json:"filename"`
	Sender        string    `json:"sender,omitempty"`
	Protected     bool      `json:"protected"`
	DownloadsLeft int64     `json:"downloads_left"`
	CreatedAt     time.Time `json:"created_at"`
}

// downloadRequest — тело запроса на скачивание.
type downloadRequest struct {
	Password string `json:"password"`
}

// UploadFile обрабатывает POST /api/v1/files/upload.
// Multipart form: file (обязательно), expiration (опционально, секунды),
// password (опционально), sender (опционально).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Жёсткий предел на тело запроса: лимит файла + запас на заголовки form
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		errors.FileTooLarge(w, fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", header.Size, h.maxFileSize))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		errors.InternalError(w, "Ошибка чтения тела запроса")
		return
	}

	// expiration — срок жизни в секундах; 0 или отсутствие — значение по умолчанию
	var ttl time.Duration
	if raw := r.FormValue("expiration"); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds < 0 {
			errors.ValidationError(w, "Параметр expiration должен быть неотрицательным числом секунд")
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	result, uploadErr := h.uploadSvc.Upload(r.Context(), service.UploadParams{
		Data:     data,
		Filename: header.Filename,
		TTL:      ttl,
		Password: r.FormValue("password"),
		Sender:   r.FormValue("sender"),
	})
	if uploadErr != nil {
		errors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		FileID:    result.FileID,
		Filename:  result.Filename,
		ExpiresAt: result.ExpiresAt.UTC(),
		Protected: result.Protected,
	})
}

// CheckFile обрабатывает GET /api/v1/files/{file_id}/check.
// Возвращает публичные сведения о файле без расходования квоты.
func (h *FilesHandler) CheckFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromRequest(w, r)
	if !ok {
		return
	}

	info, checkErr := h.downloadSvc.Check(r.Context(), fileID)
	if checkErr != nil {
		errors.WriteError(w, checkErr.StatusCode, checkErr.Code, checkErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		FileID:        info.FileID,
		Filename:      info.Filename,
		Sender:        info.Sender,
		Protected:     info.Protected,
		DownloadsLeft: info.DownloadsLeft,
		CreatedAt:     info.CreatedAt.UTC(),
	})
}

// DownloadFile обрабатывает POST /api/v1/files/{file_id}/download.
// Тело: {"password": "..."} (обязательно для защищённых файлов).
// POST вместо GET: пароль не должен попадать в URL и access-логи.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromRequest(w, r)
	if !ok {
		return
	}

	var req downloadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
			return
		}
	}

	result, downloadErr := h.downloadSvc.Download(r.Context(), fileID, req.Password)
	if downloadErr != nil {
		errors.WriteError(w, downloadErr.StatusCode, downloadErr.Code, downloadErr.Message)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// fileIDFromRequest извлекает и валидирует file_id из пути запроса.
func fileIDFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	fileID := chi.URLParam(r, "file_id")
	if _, err := uuid.Parse(fileID); err != nil {
		errors.ValidationError(w, fmt.Sprintf("Некорректный идентификатор файла: %s", fileID))
		return "", false
	}
	return fileID, true
}

// writeJSON вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
