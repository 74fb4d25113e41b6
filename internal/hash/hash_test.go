package hash

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSHA256Hasher_HashFile(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	t.Run("file and buffer digests agree", func(t *testing.T) {
		content := []byte("export const TELEGRAM_ENABLED = true;\n")
		path := filepath.Join(tmpDir, "config.ts")
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		fileHash, err := hasher.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile failed: %v", err)
		}
		if got := hasher.HashBytes(content); got != fileHash {
			t.Errorf("HashBytes = %s, HashFile = %s", got, fileHash)
		}
		if len(fileHash) != 64 {
			t.Errorf("digest length = %d, want 64", len(fileHash))
		}
	})

	t.Run("different content produces different hashes", func(t *testing.T) {
		if hasher.HashBytes([]byte("content A")) == hasher.HashBytes([]byte("content B")) {
			t.Error("different content produced the same hash")
		}
	})

	t.Run("non-existent file returns error", func(t *testing.T) {
		if _, err := hasher.HashFile(filepath.Join(tmpDir, "missing.ts")); err == nil {
			t.Error("expected error for non-existent file, got nil")
		}
	})

	t.Run("empty content has the well-known digest", func(t *testing.T) {
		const expectedEmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if got := hasher.HashBytes(nil); got != expectedEmptyHash {
			t.Errorf("empty hash = %s, want %s", got, expectedEmptyHash)
		}
	})
}

func TestFakeHasher(t *testing.T) {
	hasher := NewFakeHasher()
	path := filepath.Join(t.TempDir(), "index.ts")
	if err := os.WriteFile(path, []byte("start();"), 0644); err != nil {
		t.Fatal(err)
	}

	if got, err := hasher.HashFile(path); err != nil || got != "fake:start();" {
		t.Errorf("HashFile() = %q, %v; want fake:start();", got, err)
	}
	if got := hasher.HashBytes([]byte("start();")); got != "fake:start();" {
		t.Errorf("HashBytes() = %q", got)
	}

	hasher.SetHash(path, "forced")
	if got, _ := hasher.HashFile(path); got != "forced" {
		t.Errorf("HashFile(overridden) = %q, want forced", got)
	}

	_, err := hasher.HashFile(filepath.Join(t.TempDir(), "missing.ts"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("HashFile(missing) error = %v, want os.ErrNotExist", err)
	}
}
