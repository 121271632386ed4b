// Package storage keeps the original bytes of uploaded documents in an
// object store, optionally encrypted.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/config"
	"github.com/terminal-bench/civicsim/pkg/crypto"
)

// Backend is the object store the service writes to.
type Backend interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	RemoveObject(ctx context.Context, key string) error
}

// Object describes a stored document.
type Object struct {
	Key       string
	Checksum  string
	Size      int64
	Encrypted bool
}

// Service handles file storage operations
type Service struct {
	backend   Backend
	encryptor *crypto.Encryptor
	now       func() time.Time
}

// NewService stores objects in backend. A nil encryptor stores plaintext.
func NewService(backend Backend, encryptor *crypto.Encryptor) *Service {
	return &Service{backend: backend, encryptor: encryptor, now: time.Now}
}

// Key returns the object key for a new document of userID:
// documents/{user}/{yyyy/mm/dd}/{uuid}.
func (s *Service) Key(userID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/%s/%s", userID, s.now().UTC().Format("2006/01/02"), uuid.New())
}

// Upload stores data for userID. The checksum covers the plaintext.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, data []byte, contentType string) (*Object, error) {
	obj := &Object{
		Key:      s.Key(userID),
		Checksum: crypto.Checksum(data),
		Size:     int64(len(data)),
	}

	payload := data
	if s.encryptor != nil {
		sealed, err := s.encryptor.Encrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt document: %w", err)
		}
		payload = sealed
		obj.Encrypted = true
		contentType = "application/octet-stream"
	}

	if err := s.backend.PutObject(ctx, obj.Key, payload, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}
	return obj, nil
}

// Download returns the plaintext of the object at key.
func (s *Service) Download(ctx context.Context, key string, encrypted bool) ([]byte, error) {
	data, err := s.backend.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	if !encrypted {
		return data, nil
	}
	if s.encryptor == nil {
		return nil, errors.New("document is encrypted but no encryption key is configured")
	}
	return s.encryptor.Decrypt(data)
}

// Delete deletes a file from storage
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.backend.RemoveObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// MinioBackend stores objects in a MinIO or S3 bucket.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

// NewMinioBackend connects to the configured endpoint.
func NewMinioBackend(cfg config.MinioConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioBackend{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (b *MinioBackend) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (b *MinioBackend) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (b *MinioBackend) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *MinioBackend) RemoveObject(ctx context.Context, key string) error {
	return b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
}

// MemoryBackend keeps objects in process memory. Used in tests and when no
// object store is configured.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBackend returns an empty in-memory store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (m *MemoryBackend) PutObject(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	return nil
}

func (m *MemoryBackend) GetObject(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (m *MemoryBackend) RemoveObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
