// Package storage persists uploaded media in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/videotube/backend/internal/config"
)

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStore writes and removes objects addressed by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// New builds the ObjectStore selected by cfg.Driver.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return NewS3Storage(ctx, cfg)
	case config.StorageDriverGCS:
		return NewGCSStorage(ctx, cfg)
	case config.StorageDriverLocal, "":
		return NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func publicURL(baseURL, key string) string {
	if baseURL == "" {
		return key
	}
	return baseURL + "/" + key
}
