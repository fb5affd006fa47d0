package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs to a directory on disk. It is the fallback backend
// when no S3 bucket is configured.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// resolve maps a bare file name to a path inside the upload dir, rejecting
// anything that would escape it.
func (s *LocalStore) resolve(name string) (string, error) {
	cleaned := filepath.Base(filepath.Clean(name))
	if cleaned == "." || cleaned == ".." || cleaned == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	full := filepath.Join(s.dir, cleaned)

	absDir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	if !strings.HasPrefix(absFull, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("file path %q escapes upload dir", name)
	}

	return full, nil
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return LocalKey(filepath.Base(path)), nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	name := LocalName(key)
	if name == "" {
		name = key
	}

	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	name := LocalName(key)
	if name == "" {
		name = key
	}

	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}
