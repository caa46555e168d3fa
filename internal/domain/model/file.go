// Пакет model — доменные модели FileDrop.
// FileRecord — единая структура метаданных файла, хранится
// как Redis hash с TTL (redis-теги используются go-redis при HSet/Scan).
package model

import (
	"time"
)

// KeyPrefix — префикс Redis-ключей записей файлов.
const KeyPrefix = "file:"

// BlobSuffix — расширение зашифрованных файлов на диске.
const BlobSuffix = ".enc"

// FileRecord — метаданные загруженного файла.
// Запись существует в индексе тогда и только тогда, когда файл "жив":
// отсутствие записи (TTL, исчерпание квоты, удаление администратором) —
// единственный авторитетный признак "файла нет".
type FileRecord struct {
	// ID — уникальный идентификатор файла (UUID v4).
	// Именует и запись в индексе (file:<id>), и blob на диске (<id>.enc).
	ID string `redis:"id"`

	// Filename — оригинальное имя файла при загрузке.
	// Только для отображения, не участвует в путях на диске.
	Filename string `redis:"filename"`

	// EncryptionKey — ключ AES-256-GCM данного файла, base64.
	// Никогда не передаётся клиентам и не пишется в логи.
	EncryptionKey string `redis:"encryption_key"`

	// PasswordHash — bcrypt-хэш пароля. Пустая строка — файл без пароля.
	PasswordHash string `redis:"password_hash"`

	// Sender — свободный текст отправителя (опционально).
	Sender string `redis:"sender"`

	// MaxDownloads — потолок успешных скачиваний.
	MaxDownloads int64 `redis:"max_downloads"`

	// DownloadsCount — количество авторизованных скачиваний.
	// Изменяется только атомарным HIncrBy, монотонно растёт от 0.
	DownloadsCount int64 `redis:"downloads_count"`

	// CreatedAt — момент загрузки, unix-секунды UTC.
	// Хранится числом: go-redis сканирует примитивы надёжнее, чем time.Time.
	CreatedAt int64 `redis:"created_at"`
}

// CreatedTime возвращает момент загрузки как time.Time (UTC).
func (r *FileRecord) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}

// Key возвращает Redis-ключ записи файла.
func (r *FileRecord) Key() string {
	return KeyPrefix + r.ID
}

// Protected возвращает true, если файл защищён паролем.
func (r *FileRecord) Protected() bool {
	return r.PasswordHash != ""
}

// QuotaExhausted проверяет, исчерпана ли квота скачиваний.
func (r *FileRecord) QuotaExhausted() bool {
	return r.DownloadsCount >= r.MaxDownloads
}

// RecordKey возвращает Redis-ключ по идентификатору файла.
func RecordKey(fileID string) string {
	return KeyPrefix + fileID
}
