// Пакет errors — конструкторы стандартных ошибок FileDrop API.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // имя пакета совпадает со stdlib сознательно, импортируется как apierrors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок публичного и админского API.
const (
	// CodeValidationError — некорректные входные данные (400)
	CodeValidationError = "VALIDATION_ERROR"
	// CodeNotFound — файла нет: не существовал, истёк TTL, исчерпана
	// квота или удалён администратором. Случаи намеренно неразличимы (404).
	CodeNotFound = "NOT_FOUND"
	// CodeUnauthorized — требуется пароль или токен (401)
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeForbidden — неверный пароль или недостаточно прав (403)
	CodeForbidden = "FORBIDDEN"
	// CodeContentRejected — найдена вредоносная сигнатура (422)
	CodeContentRejected = "CONTENT_REJECTED"
	// CodeScanUnavailable — сканер недоступен, политика fail-closed (503)
	CodeScanUnavailable = "SCAN_UNAVAILABLE"
	// CodeQuotaExhausted — лимит скачиваний исчерпан, файл удалён (410)
	CodeQuotaExhausted = "QUOTA_EXHAUSTED"
	// CodeDecryptionFailed — blob повреждён или подменён (500)
	CodeDecryptionFailed = "DECRYPTION_FAILED"
	// CodeStorageWriteFailed — ошибка записи на диск или в индекс (500)
	CodeStorageWriteFailed = "STORAGE_WRITE_FAILED"
	// CodeFileTooLarge — файл превышает лимит (413)
	CodeFileTooLarge = "FILE_TOO_LARGE"
	// CodeInternalError — прочие внутренние ошибки (500)
	CodeInternalError = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате FileDrop.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 файл не найден (все случаи "файла нет").
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется пароль или токен.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 неверный пароль или недостаточно прав.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// ContentRejected — 422 обнаружена вредоносная сигнатура.
func ContentRejected(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnprocessableEntity, CodeContentRejected, message)
}

// ScanUnavailable — 503 сканер недоступен (политика fail-closed).
func ScanUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeScanUnavailable, message)
}

// QuotaExhausted — 410 лимит скачиваний исчерпан.
func QuotaExhausted(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusGone, CodeQuotaExhausted, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
