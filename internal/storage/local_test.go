package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalUploadAndDelete(t *testing.T) {
	srcDir := t.TempDir()
	storeDir := t.TempDir()

	srcPath := filepath.Join(srcDir, "part.ogg")
	if err := os.WriteFile(srcPath, []byte("opus-data"), 0o644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	store := NewLocal(storeDir, "http://localhost:8080/audio/")
	uri, err := store.Upload(context.Background(), srcPath, "audio/job-1/part_000.ogg")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if uri != "http://localhost:8080/audio/audio/job-1/part_000.ogg" {
		t.Errorf("unexpected uri: %s", uri)
	}

	stored := filepath.Join(storeDir, "audio", "job-1", "part_000.ogg")
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "opus-data" {
		t.Errorf("stored content mismatch: %q", data)
	}

	if err := store.Delete(context.Background(), "audio/job-1/part_000.ogg"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := os.Stat(stored); !os.IsNotExist(err) {
		t.Errorf("file still exists after delete")
	}
}

func TestLocalDeleteMissingIsNotError(t *testing.T) {
	store := NewLocal(t.TempDir(), "http://localhost/audio")
	if err := store.Delete(context.Background(), "audio/none.ogg"); err != nil {
		t.Fatalf("Delete of missing key returned error: %v", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store := NewLocal(t.TempDir(), "http://localhost/audio")
	for _, key := range []string{"", "/abs/path.ogg", "a/../../etc/passwd"} {
		if err := store.Delete(context.Background(), key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}
