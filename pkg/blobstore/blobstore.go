// Package blobstore stores uploaded files (banner images) by key.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidKey  = errors.New("invalid blob key")
	ErrKeyConflict = errors.New("blob key already exists")
)

// DefaultMaxSize is 5 MB.
const DefaultMaxSize int64 = 5 * 1024 * 1024

// Object describes a stored blob.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, content io.Reader) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey rejects absolute paths and parent traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func readLimited(content io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func hashOf(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// MemoryStore is a thread-safe in-memory BlobStore for tests and development.
type MemoryStore struct {
	mu      sync.RWMutex
	maxSize int64
	blobs   map[string]memoryBlob
}

type memoryBlob struct {
	obj  Object
	data []byte
}

func NewMemoryStore(maxSize int64) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{maxSize: maxSize, blobs: make(map[string]memoryBlob)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, content io.Reader) (*Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := readLimited(content, s.maxSize)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[key]; exists {
		return nil, ErrKeyConflict
	}
	obj := Object{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        hashOf(data),
		CreatedAt:   time.Now().UTC(),
	}
	s.blobs[key] = memoryBlob{obj: obj, data: data}
	out := obj
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	obj := blob.obj
	return io.NopCloser(bytes.NewReader(blob.data)), &obj, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
