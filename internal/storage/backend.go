// Package storage implements the durable key/value buckets that hold
// credentials, the session and the sign collection between runs.
package storage

import (
	"context"
	"sync"
)

// Bucket names. Each bucket is stored and cleared independently.
const (
	BucketCredentials     = "credentials"
	BucketSessionActive   = "session_active"
	BucketSessionIdentity = "session_identity"
	BucketSigns           = "signs"
)

// Backend is raw blob storage keyed by bucket name.
// Load reports ok=false when the bucket has never been written or was cleared.
type Backend interface {
	Load(ctx context.Context, bucket string) (blob []byte, ok bool, err error)
	Save(ctx context.Context, bucket string, blob []byte) error
	Clear(ctx context.Context, bucket string) error
	Close() error
}

// MemoryBackend keeps buckets in process memory. Nothing survives a restart
// unless the same value is handed to the next App.
type MemoryBackend struct {
	mu      sync.Mutex
	buckets map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, bucket string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[bucket]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *MemoryBackend) Save(_ context.Context, bucket string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket] = append([]byte(nil), blob...)
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, bucket)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
