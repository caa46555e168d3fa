package service

import (
	"context"
	"testing"
)

func TestDashboard_ListsFilesAndOrphans(t *testing.T) {
	uploadSvc, _, blobs, index, _ := setupExchangeEnv(t, testConfig())
	ctx := context.Background()

	fileID := mustUpload(t, uploadSvc, []byte("нормальный файл"), "secret")

	// Осиротевший blob без записи в индексе
	if err := blobs.WriteNew("orphan-1", []byte("ciphertext")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	adminSvc := NewAdminService(blobs, index, testLogger())
	dash, adminErr := adminSvc.Dashboard(ctx)
	if adminErr != nil {
		t.Fatalf("Ошибка сборки dashboard: %v", adminErr)
	}

	if dash.FilesTotal != 1 {
		t.Fatalf("FilesTotal: хотели 1, получили %d", dash.FilesTotal)
	}
	if dash.OrphanBlobs != 1 {
		t.Errorf("OrphanBlobs: хотели 1, получили %d", dash.OrphanBlobs)
	}
	if dash.StorageBytes == 0 {
		t.Error("StorageBytes нулевой при двух blob-ах на диске")
	}

	f := dash.Files[0]
	if f.FileID != fileID {
		t.Errorf("FileID: хотели %q, получили %q", fileID, f.FileID)
	}
	if !f.Protected {
		t.Error("Защищённый файл не помечен как Protected")
	}
	if !f.BlobPresent {
		t.Error("Blob живого файла не найден на диске")
	}
}

func TestForceDelete_RemovesBlobAndRecord(t *testing.T) {
	uploadSvc, downloadSvc, blobs, index, _ := setupExchangeEnv(t, testConfig())
	ctx := context.Background()

	fileID := mustUpload(t, uploadSvc, []byte("data"), "")

	adminSvc := NewAdminService(blobs, index, testLogger())
	if adminErr := adminSvc.ForceDelete(ctx, fileID); adminErr != nil {
		t.Fatalf("Ошибка принудительного удаления: %v", adminErr)
	}

	if blobs.Exists(fileID) {
		t.Error("Blob существует после принудительного удаления")
	}
	if exists, _ := index.Exists(ctx, fileID); exists {
		t.Error("Запись индекса существует после принудительного удаления")
	}

	// Для клиентов файл неотличим от никогда не существовавшего
	_, downloadErr := downloadSvc.Download(ctx, fileID, "")
	if downloadErr == nil || downloadErr.StatusCode != 404 {
		t.Errorf("Скачивание удалённого файла: хотели 404, получили %v", downloadErr)
	}
}

func TestForceDelete_NotFound(t *testing.T) {
	_, _, blobs, index, _ := setupExchangeEnv(t, testConfig())

	adminSvc := NewAdminService(blobs, index, testLogger())
	adminErr := adminSvc.ForceDelete(context.Background(), "никогда-не-существовал")
	if adminErr == nil {
		t.Fatal("Удаление отсутствующего файла: хотели ошибку, получили nil")
	}
	if adminErr.StatusCode != 404 {
		t.Errorf("Статус-код: хотели 404, получили %d", adminErr.StatusCode)
	}
}

func TestForceDelete_OrphanBlobOnly(t *testing.T) {
	_, _, blobs, index, _ := setupExchangeEnv(t, testConfig())

	if err := blobs.WriteNew("orphan-1", []byte("ciphertext")); err != nil {
		t.Fatalf("Ошибка записи blob: %v", err)
	}

	adminSvc := NewAdminService(blobs, index, testLogger())
	if adminErr := adminSvc.ForceDelete(context.Background(), "orphan-1"); adminErr != nil {
		t.Fatalf("Удаление blob без записи индекса: %v", adminErr)
	}
	if blobs.Exists("orphan-1") {
		t.Error("Blob существует после принудительного удаления")
	}
}
