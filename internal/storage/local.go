package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps objects in a directory served by the HTTP server under /media/.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local storage: directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: create %s: %w", root, err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStorage) Root() string {
	return s.root
}

// Put copies r into the file addressed by key.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("local storage: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("local storage: create directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("local storage: create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("local storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("local storage: close %s: %w", key, err)
	}

	return publicURL(s.baseURL, key), nil
}

// Delete removes the file addressed by key. Deleting a missing key succeeds.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("local storage: %w", err)
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local storage: delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the root directory is still present.
func (s *LocalStorage) Ping(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("local storage: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local storage: %s is not a directory", s.root)
	}
	return nil
}
