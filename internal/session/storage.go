package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/acompana/portal/internal/identity"
)

// Storage persists at most one serialized identity under a well-known key.
//
// The Store is the sole writer. Implementations are not expected to
// coordinate across processes: the last writer wins, and each process only
// sees what it read at its own initialization.
type Storage interface {
	// Load reads the persisted identity. Returns (nil, nil) when nothing
	// is stored; returns an error when the stored value cannot be parsed.
	Load(ctx context.Context) (*identity.Identity, error)

	// Save replaces the persisted identity.
	Save(ctx context.Context, id *identity.Identity) error

	// Clear removes the persisted identity. Clearing an empty storage is
	// not an error.
	Clear(ctx context.Context) error
}

const sessionFileName = "session.json"

// FileStorage persists the identity as a JSON file in a directory,
// surviving process restarts.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a file-backed storage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// DefaultStorageDir returns the portal's per-user storage directory.
func DefaultStorageDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", WrapError(ErrStorageRead, "resolve user config dir", err)
	}
	return filepath.Join(base, "acompana"), nil
}

func (f *FileStorage) path() string {
	return filepath.Join(f.dir, sessionFileName)
}

// Load reads and parses the session file.
func (f *FileStorage) Load(ctx context.Context) (*identity.Identity, error) {
	data, err := os.ReadFile(f.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, WrapError(ErrStorageRead, "read session file", err)
	}

	var id identity.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, WrapError(ErrStorageCorrupt, "parse session file", err)
	}
	return &id, nil
}

// Save writes the identity to the session file, creating the directory
// if needed. The file is user-readable only.
func (f *FileStorage) Save(ctx context.Context, id *identity.Identity) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return WrapError(ErrStorageWrite, "create storage directory", err)
	}

	data, err := json.Marshal(id)
	if err != nil {
		return WrapError(ErrStorageWrite, "serialize identity", err)
	}

	if err := os.WriteFile(f.path(), data, 0o600); err != nil {
		return WrapError(ErrStorageWrite, "write session file", err)
	}
	return nil
}

// Clear removes the session file.
func (f *FileStorage) Clear(ctx context.Context) error {
	if err := os.Remove(f.path()); err != nil && !os.IsNotExist(err) {
		return WrapError(ErrStorageWrite, "remove session file", err)
	}
	return nil
}

// MemoryStorage is an in-memory Storage for tests and ephemeral sessions.
type MemoryStorage struct {
	mu sync.Mutex
	id *identity.Identity
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the stored identity, if any.
func (m *MemoryStorage) Load(ctx context.Context) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == nil {
		return nil, nil
	}
	cp := *m.id
	return &cp, nil
}

// Save replaces the stored identity.
func (m *MemoryStorage) Save(ctx context.Context, id *identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *id
	m.id = &cp
	return nil
}

// Clear removes the stored identity.
func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = nil
	return nil
}
