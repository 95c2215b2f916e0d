// Package media moves uploaded files from local temporary storage into the
// configured object store.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/storage"
)

// Kind classifies an upload. It selects the key prefix and whether a duration is probed.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Upload describes a stored object.
type Upload struct {
	Asset    models.Asset
	Duration float64
}

// DurationProber measures playable media.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Uploader stores local files and always removes the local copy afterwards.
type Uploader struct {
	store  storage.ObjectStore
	prober DurationProber
}

// NewUploader constructs an Uploader writing to store.
func NewUploader(store storage.ObjectStore, prober DurationProber) *Uploader {
	return &Uploader{store: store, prober: prober}
}

// Upload moves the file at localPath into the object store.
func (u *Uploader) Upload(ctx context.Context, localPath string, kind Kind) (Upload, error) {
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			logging.FromContext(ctx).Warn("failed to remove temporary upload", slog.String("path", localPath), slog.Any("error", err))
		}
	}()

	var result Upload
	if kind == KindVideo {
		if u.prober == nil {
			return Upload{}, ErrProbeUnavailable
		}
		duration, err := u.prober.Duration(ctx, localPath)
		if err != nil {
			return Upload{}, fmt.Errorf("probe duration: %w", err)
		}
		result.Duration = duration
	}

	f, err := os.Open(localPath)
	if err != nil {
		return Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(localPath))
	key := fmt.Sprintf("%ss/%s%s", kind, uuid.NewString(), ext)

	url, err := u.store.Put(ctx, key, f, mime.TypeByExtension(ext))
	if err != nil {
		return Upload{}, err
	}

	result.Asset = models.Asset{URL: url, Key: key}
	return result, nil
}

// Delete removes a stored object. Empty keys are ignored.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return u.store.Delete(ctx, key)
}
