package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under dir; the router serves dir at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

func NewLocalStore(dir, baseURL string, l *slog.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("UPLOAD_DIR vacío")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("carpeta de archivos no creada: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  l.With(slog.String("storage", "local")),
	}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("clave inválida: %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data io.Reader, _ string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("carpeta no creada: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("archivo no creado: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		_ = os.Remove(p)
		return "", fmt.Errorf("archivo no escrito: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "file stored", slog.String("key", key))
	return s.baseURL + "/" + filepath.ToSlash(filepath.Clean(filepath.FromSlash(key))), nil
}

// Delete treats a missing file as already deleted.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("archivo no eliminado: %w", err)
	}
	s.logger.InfoContext(ctx, "file deleted", slog.String("key", key))
	return nil
}
