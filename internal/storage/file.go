package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

const lockFile = ".lock"

// FileBackend stores each bucket as its own file under Dir. Writes go to a
// temporary file that is renamed into place, so a failed write never
// truncates another bucket or the previous value. The flock guards against
// other processes; mu serializes goroutines within this one.
type FileBackend struct {
	Dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileBackend creates Dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{
		Dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}, nil
}

func (fb *FileBackend) path(bucket string) string {
	return filepath.Join(fb.Dir, bucket+".json")
}

func (fb *FileBackend) Load(_ context.Context, bucket string) ([]byte, bool, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.lock.RLock(); err != nil {
		return nil, false, fmt.Errorf("lock data dir: %w", err)
	}
	defer fb.lock.Unlock()

	data, err := os.ReadFile(fb.path(bucket))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read bucket %s: %w", bucket, err)
	}
	return data, true, nil
}

func (fb *FileBackend) Save(_ context.Context, bucket string, blob []byte) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.lock.Lock(); err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	defer fb.lock.Unlock()

	f, err := os.CreateTemp(fb.Dir, bucket+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", bucket, err)
	}
	tmp := f.Name()
	if _, err := f.Write(blob); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write bucket %s: %w", bucket, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close bucket %s: %w", bucket, err)
	}
	if err := os.Rename(tmp, fb.path(bucket)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace bucket %s: %w", bucket, err)
	}
	return nil
}

func (fb *FileBackend) Clear(_ context.Context, bucket string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if err := fb.lock.Lock(); err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	defer fb.lock.Unlock()

	if err := os.Remove(fb.path(bucket)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove bucket %s: %w", bucket, err)
	}
	return nil
}

// Close releases the lock file handle.
func (fb *FileBackend) Close() error {
	return fb.lock.Close()
}
