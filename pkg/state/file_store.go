package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore persists each Ref as a YAML document under Dir, one file per
// identifier ("<dir>/<domain>/<key>.yaml"). Files are written with 0600 since
// they usually hold credentials.
type FileStore[T any] struct {
	Dir string

	mu sync.Mutex
}

func NewFileStore[T any](dir string) *FileStore[T] {
	return &FileStore[T]{Dir: dir}
}

func (s *FileStore[T]) Load(_ context.Context, ref Ref) (T, bool, error) {
	var zero T
	path, err := s.path(ref)
	if err != nil {
		return zero, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("state: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return zero, false, nil
	}

	var value T
	if err := yaml.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("state: decode %s: %w", path, err)
	}
	return value, true, nil
}

func (s *FileStore[T]) Save(_ context.Context, ref Ref, value T) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("state: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("state: rename %s: %w", tmp, err)
	}
	return nil
}

func (s *FileStore[T]) path(ref Ref) (string, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return "", fmt.Errorf("state: file store directory is required")
	}
	id, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, filepath.FromSlash(id)+".yaml"), nil
}
