package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/videotube/backend/internal/config"
)

// GCSStorage implements ObjectStore backed by a Google Cloud Storage bucket.
type GCSStorage struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewGCSStorage creates a client for cfg.Bucket. A configured endpoint points
// the client at an emulator and disables authentication.
func NewGCSStorage(ctx context.Context, cfg config.ObjectStoreConfig) (*GCSStorage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("gcs storage: bucket is required")
	}

	var opts []option.ClientOption
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + cfg.Bucket
	}

	return &GCSStorage{client: client, bucket: cfg.Bucket, baseURL: baseURL}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Put streams r into the bucket under key.
func (s *GCSStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("gcs storage: %w", err)
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs storage upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs storage finalize %s: %w", key, err)
	}

	return publicURL(s.baseURL, key), nil
}

// Delete removes the object stored under key. Deleting a missing key succeeds.
func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("gcs storage: %w", err)
	}

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("gcs storage delete %s: %w", key, err)
	}
	return nil
}

// Ping lists at most one object to confirm the bucket is reachable.
func (s *GCSStorage) Ping(ctx context.Context) error {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: ""})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("gcs storage list: %w", err)
	}
	return nil
}
