package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AccessTokenKey is the fixed key the bearer token is stored under
const AccessTokenKey = "accessToken"

// Store holds the client's single bearer token.
// Lifecycle: Set on login, Clear on 401 or logout, read-only otherwise.
type Store interface {
	Token() (string, error)
	Set(token string) error
	Clear() error
}

// FileStore persists the token as a small JSON document on disk
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file backed store. The file is created lazily.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the storage file location
func (s *FileStore) Path() string {
	return s.path
}

// Token returns the stored token or "" when none is held
func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[AccessTokenKey], nil
}

// Set stores the token, replacing any previous one
func (s *FileStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[AccessTokenKey] = token
	return s.write(values)
}

// Clear removes the token. Clearing an absent token is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[AccessTokenKey]; !ok {
		return nil
	}
	delete(values, AccessTokenKey)
	return s.write(values)
}

func (s *FileStore) read() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token storage: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode token storage %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token storage dir: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write token storage: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// MemoryStore keeps the token in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an in-memory store, optionally pre-seeded
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
