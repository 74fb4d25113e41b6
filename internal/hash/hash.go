// Package hash provides content hashing for ledger bookkeeping.
//
// Every file a skill writes is recorded in the ledger with a SHA-256 digest of
// its content. The digest is used for integrity checks only (drift detection in
// status, idempotency bookkeeping); nothing about it is secret. The package
// provides a real implementation using crypto/sha256 and a fake for testing.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Hasher provides an abstraction for content hashing.
type Hasher interface {
	// HashFile computes the hash of the file at the given path.
	HashFile(path string) (string, error)

	// HashBytes computes the hash of an in-memory buffer.
	HashBytes(data []byte) string
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes computes the SHA-256 hash of data.
func (h *SHA256Hasher) HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FakeHasher implements Hasher with readable digests for testing: the digest
// of some content is the content itself, prefixed with "fake:".
type FakeHasher struct {
	overrides map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		overrides: make(map[string]string),
	}
}

// SetHash forces the digest reported for path.
func (h *FakeHasher) SetHash(path, hash string) {
	h.overrides[path] = hash
}

// HashFile returns the forced digest for path, or digests its content so
// file and buffer digests agree as they do for SHA256Hasher.
func (h *FakeHasher) HashFile(path string) (string, error) {
	if hash, ok := h.overrides[path]; ok {
		return hash, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	return h.HashBytes(data), nil
}

// HashBytes returns the content prefixed with "fake:".
func (h *FakeHasher) HashBytes(data []byte) string {
	return "fake:" + string(data)
}
