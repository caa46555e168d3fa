// Пакет blobstore — хранение зашифрованных blob-ов на диске.
//
// Один blob на файл: {id}.enc в корне dataDir. Хранилище ничего не знает
// о TTL и владельцах — источником истины о "живости" файла является
// индекс метаданных.
package blobstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/filedrop/internal/domain/model"
)

// ErrBlobExists — попытка записать blob под уже занятым идентификатором.
// Коллизия UUID практически невозможна, но молчаливая перезапись запрещена.
var ErrBlobExists = errors.New("blob с таким идентификатором уже существует")

// ErrBlobNotFound — blob отсутствует на диске.
var ErrBlobNotFound = errors.New("blob не найден")

// BlobStore — управление зашифрованными файлами на диске.
type BlobStore struct {
	// dataDir — корневая директория хранения blob-ов (FD_DATA_DIR)
	dataDir string
}

// BlobInfo — сведения об одном blob-е для reconciliation.
type BlobInfo struct {
	// FileID — идентификатор, выведенный из имени файла
	FileID string
	// ModTime — время последней модификации blob-а
	ModTime time.Time
	// Size — размер ciphertext в байтах
	Size int64
}

// New создаёт BlobStore. Создаёт директорию данных, если её нет.
func New(dataDir string) (*BlobStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &BlobStore{dataDir: dataDir}, nil
}

// WriteNew записывает ciphertext под новым идентификатором.
// Отказывается перезаписывать существующий blob (ErrBlobExists).
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При любой ошибке temp файл удаляется — частично записанный blob
// никогда не виден под финальным именем.
func (bs *BlobStore) WriteNew(fileID string, ciphertext []byte) error {
	fullPath := bs.path(fileID)

	if _, err := os.Stat(fullPath); err == nil {
		return ErrBlobExists
	}

	tmpPath := fullPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(ciphertext); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Read возвращает содержимое blob-а.
// Если blob отсутствует — ErrBlobNotFound.
func (bs *BlobStore) Read(fileID string) ([]byte, error) {
	data, err := os.ReadFile(bs.path(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("ошибка чтения blob %s: %w", fileID, err)
	}
	return data, nil
}

// Delete удаляет blob с диска.
// Возвращает nil, если blob уже не существует (идемпотентно).
func (bs *BlobStore) Delete(fileID string) error {
	err := os.Remove(bs.path(fileID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления blob %s: %w", fileID, err)
	}
	return nil
}

// Exists проверяет существование blob-а на диске.
func (bs *BlobStore) Exists(fileID string) bool {
	_, err := os.Stat(bs.path(fileID))
	return err == nil
}

// List возвращает сведения обо всех blob-ах в директории данных.
// Temp-файлы (.tmp) и служебные файлы пропускаются.
func (bs *BlobStore) List() ([]BlobInfo, error) {
	entries, err := os.ReadDir(bs.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории данных: %w", err)
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, model.BlobSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Файл мог исчезнуть между ReadDir и Info
			continue
		}

		blobs = append(blobs, BlobInfo{
			FileID:  strings.TrimSuffix(name, model.BlobSuffix),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	return blobs, nil
}

// TotalSize возвращает суммарный размер всех blob-ов в байтах.
func (bs *BlobStore) TotalSize() (int64, error) {
	blobs, err := bs.List()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, b := range blobs {
		total += b.Size
	}
	return total, nil
}

// DataDir возвращает путь к директории данных.
func (bs *BlobStore) DataDir() string {
	return bs.dataDir
}

// path возвращает абсолютный путь blob-а по идентификатору.
func (bs *BlobStore) path(fileID string) string {
	return filepath.Join(bs.dataDir, fileID+model.BlobSuffix)
}
