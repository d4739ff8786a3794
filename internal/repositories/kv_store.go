package repositories

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/gofrs/flock"
)

// KeyValueStore is a durable key/value area that outlives a single request.
// Get returns nil, nil for a missing key. Lock holds an exclusive lock on key
// until the returned func is called; callers use it around read-modify-write.
type KeyValueStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Lock(key string) (unlock func() error, err error)
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileKeyValueStore keeps one JSON file per key inside a directory.
type FileKeyValueStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileKeyValueStore creates the directory if needed.
func NewFileKeyValueStore(dir string) (*FileKeyValueStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create %s: %w", ErrLocalStorageUnavailable, dir, err)
	}
	return &FileKeyValueStore{dir: dir}, nil
}

func (s *FileKeyValueStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: invalid key %q", ErrLocalStorageUnavailable, key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Lock takes an advisory file lock on <dir>/<key>.lock. It blocks until the
// lock is free, including when another process holds it.
func (s *FileKeyValueStore) Lock(key string) (func() error, error) {
	if !validKey.MatchString(key) {
		return nil, fmt.Errorf("%w: invalid key %q", ErrLocalStorageUnavailable, key)
	}
	fl := flock.New(filepath.Join(s.dir, key+".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("%w: failed to lock %s: %w", ErrLocalStorageUnavailable, key, err)
	}
	return fl.Unlock, nil
}

// Get reads the value stored under key.
func (s *FileKeyValueStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrLocalStorageUnavailable, key, err)
	}
	return data, nil
}

// Set replaces the value under key. The write goes to a temp file first and
// is renamed into place, so readers never see a partial document.
func (s *FileKeyValueStore) Set(key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrLocalStorageUnavailable, key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", ErrLocalStorageUnavailable, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrLocalStorageUnavailable, key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrLocalStorageUnavailable, key, err)
	}
	return nil
}

// MemoryKeyValueStore is an in-process KeyValueStore.
type MemoryKeyValueStore struct {
	data map[string][]byte
	fail error
	mu   sync.RWMutex
}

// NewMemoryKeyValueStore creates an empty in-memory store.
func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{data: make(map[string][]byte)}
}

// SetFailure makes every call return err until cleared with nil.
func (s *MemoryKeyValueStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Get reads the value stored under key.
func (s *MemoryKeyValueStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocalStorageUnavailable, s.fail)
	}
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Lock is a no-op; the store lives in one process and callers hold their own mutex.
func (s *MemoryKeyValueStore) Lock(string) (func() error, error) {
	return func() error { return nil }, nil
}

// Set replaces the value under key.
func (s *MemoryKeyValueStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return fmt.Errorf("%w: %w", ErrLocalStorageUnavailable, s.fail)
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}
