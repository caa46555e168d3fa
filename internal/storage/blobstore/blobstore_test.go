package blobstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setupBlobStore создаёт BlobStore во временной директории.
func setupBlobStore(t *testing.T) *BlobStore {
	t.Helper()

	bs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания BlobStore: %v", err)
	}
	return bs
}

func TestWriteRead_RoundTrip(t *testing.T) {
	bs := setupBlobStore(t)

	ciphertext := []byte("encrypted payload")
	if err := bs.WriteNew("file-1", ciphertext); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	got, err := bs.Read("file-1")
	if err != nil {
		t.Fatalf("Ошибка чтения blob: %v", err)
	}
	if !bytes.Equal(got, ciphertext) {
		t.Errorf("Содержимое blob: хотели %q, получили %q", ciphertext, got)
	}
}

func TestWriteNew_RefusesOverwrite(t *testing.T) {
	bs := setupBlobStore(t)

	if err := bs.WriteNew("file-1", []byte("первая версия")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	err := bs.WriteNew("file-1", []byte("вторая версия"))
	if !errors.Is(err, ErrBlobExists) {
		t.Errorf("Повторная запись: хотели ErrBlobExists, получили %v", err)
	}

	// Исходное содержимое не тронуто
	got, err := bs.Read("file-1")
	if err != nil {
		t.Fatalf("Ошибка чтения blob: %v", err)
	}
	if string(got) != "первая версия" {
		t.Errorf("Содержимое после отказа в перезаписи: хотели %q, получили %q", "первая версия", got)
	}
}

func TestRead_NotFound(t *testing.T) {
	bs := setupBlobStore(t)

	_, err := bs.Read("missing")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Чтение отсутствующего blob: хотели ErrBlobNotFound, получили %v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	bs := setupBlobStore(t)

	if err := bs.WriteNew("file-1", []byte("data")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	if err := bs.Delete("file-1"); err != nil {
		t.Fatalf("Ошибка удаления blob: %v", err)
	}
	if bs.Exists("file-1") {
		t.Error("Blob существует после удаления")
	}

	// Повторное удаление — не ошибка
	if err := bs.Delete("file-1"); err != nil {
		t.Errorf("Повторное удаление: хотели nil, получили %v", err)
	}
}

func TestList_SkipsTempAndForeignFiles(t *testing.T) {
	bs := setupBlobStore(t)

	if err := bs.WriteNew("file-1", []byte("aaa")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}
	if err := bs.WriteNew("file-2", []byte("bbbbb")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	// Temp-файл и посторонний файл не должны попадать в перечисление
	if err := os.WriteFile(filepath.Join(bs.DataDir(), "file-3.enc.tmp"), []byte("x"), 0o640); err != nil {
		t.Fatalf("Ошибка создания temp-файла: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bs.DataDir(), "readme.txt"), []byte("x"), 0o640); err != nil {
		t.Fatalf("Ошибка создания постороннего файла: %v", err)
	}

	blobs, err := bs.List()
	if err != nil {
		t.Fatalf("Ошибка перечисления: %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("Количество blob-ов: хотели 2, получили %d", len(blobs))
	}

	ids := map[string]int64{}
	for _, b := range blobs {
		ids[b.FileID] = b.Size
	}
	if ids["file-1"] != 3 {
		t.Errorf("Размер file-1: хотели 3, получили %d", ids["file-1"])
	}
	if ids["file-2"] != 5 {
		t.Errorf("Размер file-2: хотели 5, получили %d", ids["file-2"])
	}
}

func TestTotalSize(t *testing.T) {
	bs := setupBlobStore(t)

	if err := bs.WriteNew("file-1", []byte("aaa")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}
	if err := bs.WriteNew("file-2", []byte("bbbbb")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	total, err := bs.TotalSize()
	if err != nil {
		t.Fatalf("Ошибка подсчёта размера: %v", err)
	}
	if total != 8 {
		t.Errorf("Суммарный размер: хотели 8, получили %d", total)
	}
}
