// Package storage keeps uploaded files (product images, receipts) either on
// local disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"distribuidora-backend/internal/config"

	"github.com/google/uuid"
)

// Store is the object storage used by the upload handlers.
type Store interface {
	// Put writes the object and returns its public URL.
	Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

const defaultFolder = "misc"

var folderRe = regexp.MustCompile(`[^a-z0-9_-]+`)

// CleanFolder reduces a client supplied folder name to a safe single segment.
func CleanFolder(folder string) string {
	f := folderRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(folder)), "")
	if f == "" {
		return defaultFolder
	}
	return f
}

// NewKey builds "<folder>/<uuid><ext>" keeping the extension of filename.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(CleanFolder(folder), uuid.NewString()+ext)
}

func contentTypeFor(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// New builds the store selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config, l *slog.Logger) (Store, error) {
	switch cfg.StorageDriver {
	case "local":
		return NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL, l)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicURL:       cfg.S3PublicURL,
		}, l)
	default:
		return nil, fmt.Errorf("storage driver desconocido: %q", cfg.StorageDriver)
	}
}

// DeleteQuietly removes key and only logs a failure. An empty key is a no-op.
func DeleteQuietly(ctx context.Context, s Store, key string) {
	if s == nil || key == "" {
		return
	}
	if err := s.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "stored object could not be deleted",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
