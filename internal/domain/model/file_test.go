package model

import (
	"testing"
	"time"
)

func TestRecordKey(t *testing.T) {
	rec := &FileRecord{ID: "abc-123"}
	if rec.Key() != "file:abc-123" {
		t.Errorf("Key: хотели %q, получили %q", "file:abc-123", rec.Key())
	}
	if RecordKey("abc-123") != rec.Key() {
		t.Error("RecordKey и Key дали разные значения")
	}
}

func TestProtected(t *testing.T) {
	open := &FileRecord{}
	if open.Protected() {
		t.Error("Запись без хэша пароля помечена как защищённая")
	}

	locked := &FileRecord{PasswordHash: "$2a$10$abcdef"}
	if !locked.Protected() {
		t.Error("Запись с хэшем пароля не помечена как защищённая")
	}
}

func TestQuotaExhausted(t *testing.T) {
	rec := &FileRecord{MaxDownloads: 2, DownloadsCount: 1}
	if rec.QuotaExhausted() {
		t.Error("Квота исчерпана при счётчике ниже лимита")
	}

	rec.DownloadsCount = 2
	if !rec.QuotaExhausted() {
		t.Error("Квота не исчерпана при счётчике на лимите")
	}
}

func TestCreatedTime(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := &FileRecord{CreatedAt: now.Unix()}
	if !rec.CreatedTime().Equal(now) {
		t.Errorf("CreatedTime: хотели %v, получили %v", now, rec.CreatedTime())
	}
}
