package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/filedrop/internal/domain/model"
	"github.com/bigkaa/filedrop/internal/storage/blobstore"
	"github.com/bigkaa/filedrop/internal/storage/metaindex"
)

// setupReconcileEnv создаёт окружение для тестов сверки.
func setupReconcileEnv(t *testing.T, interval time.Duration) (*ReconcileService, *blobstore.BlobStore, *metaindex.Index) {
	t.Helper()

	blobs, err := blobstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания BlobStore: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := testLogger()
	index := metaindex.NewWithClient(rdb, logger)
	svc := NewReconcileService(blobs, index, interval, logger)

	return svc, blobs, index
}

// writeAgedBlob записывает blob и сдвигает его ModTime в прошлое.
func writeAgedBlob(t *testing.T, blobs *blobstore.BlobStore, fileID string, age time.Duration) {
	t.Helper()

	if err := blobs.WriteNew(fileID, []byte("ciphertext")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	past := time.Now().Add(-age)
	blobPath := filepath.Join(blobs.DataDir(), fileID+model.BlobSuffix)
	if err := os.Chtimes(blobPath, past, past); err != nil {
		t.Fatalf("Ошибка изменения времени blob: %v", err)
	}
}

func TestReconcile_EmptyStore(t *testing.T) {
	svc, _, _ := setupReconcileEnv(t, time.Minute)

	result := svc.RunOnce(context.Background())
	if result.Scanned != 0 {
		t.Errorf("Scanned: хотели 0, получили %d", result.Scanned)
	}
	if result.Deleted != 0 {
		t.Errorf("Deleted: хотели 0, получили %d", result.Deleted)
	}
	if result.Errors != 0 {
		t.Errorf("Errors: хотели 0, получили %d", result.Errors)
	}
}

func TestReconcile_DeletesOrphanBlob(t *testing.T) {
	svc, blobs, _ := setupReconcileEnv(t, time.Minute)

	// Blob без записи в индексе, старше окна отсрочки
	writeAgedBlob(t, blobs, "orphan-1", 2*time.Minute)

	result := svc.RunOnce(context.Background())
	if result.Deleted != 1 {
		t.Errorf("Deleted: хотели 1, получили %d", result.Deleted)
	}
	if blobs.Exists("orphan-1") {
		t.Error("Осиротевший blob существует после сверки")
	}
}

func TestReconcile_KeepsIndexedBlob(t *testing.T) {
	svc, blobs, index := setupReconcileEnv(t, time.Minute)
	ctx := context.Background()

	writeAgedBlob(t, blobs, "live-1", 2*time.Minute)
	rec := &model.FileRecord{
		ID:           "live-1",
		Filename:     "doc.txt",
		MaxDownloads: 100,
		CreatedAt:    time.Now().Unix(),
	}
	if err := index.Put(ctx, rec, time.Hour); err != nil {
		t.Fatalf("Ошибка записи в индекс: %v", err)
	}

	result := svc.RunOnce(ctx)
	if result.Deleted != 0 {
		t.Errorf("Deleted: хотели 0, получили %d", result.Deleted)
	}
	if !blobs.Exists("live-1") {
		t.Error("Живой blob удалён сверкой")
	}
}

func TestReconcile_GraceWindowForFreshBlob(t *testing.T) {
	svc, blobs, _ := setupReconcileEnv(t, time.Minute)

	// Свежий blob без записи в индексе: загрузка могла ещё не дойти
	// до записи метаданных — удалять нельзя
	if err := blobs.WriteNew("fresh-1", []byte("ciphertext")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	result := svc.RunOnce(context.Background())
	if result.Deleted != 0 {
		t.Errorf("Deleted: хотели 0, получили %d", result.Deleted)
	}
	if !blobs.Exists("fresh-1") {
		t.Error("Свежий blob удалён внутри окна отсрочки")
	}
}

func TestReconcile_ExpiredRecordBlobCleanedUp(t *testing.T) {
	uploadSvc, _, blobs, index, mr := setupExchangeEnv(t, testConfig())
	ctx := context.Background()

	fileID := mustUpload(t, uploadSvc, []byte("data"), "")

	// TTL истёк — Redis удалил запись, blob остался
	mr.FastForward(25 * time.Hour)
	if exists, _ := index.Exists(ctx, fileID); exists {
		t.Fatal("Запись индекса пережила TTL")
	}
	if !blobs.Exists(fileID) {
		t.Fatal("Blob исчез до сверки")
	}

	// Сдвигаем ModTime blob-а за пределы окна отсрочки
	past := time.Now().Add(-2 * time.Minute)
	blobPath := filepath.Join(blobs.DataDir(), fileID+model.BlobSuffix)
	if err := os.Chtimes(blobPath, past, past); err != nil {
		t.Fatalf("Ошибка изменения времени blob: %v", err)
	}

	svc := NewReconcileService(blobs, index, time.Minute, testLogger())
	result := svc.RunOnce(ctx)
	if result.Deleted != 1 {
		t.Errorf("Deleted: хотели 1, получили %d", result.Deleted)
	}
	if blobs.Exists(fileID) {
		t.Error("Blob истёкшего файла существует после сверки")
	}
}
