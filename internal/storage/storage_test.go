package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanFolderAndKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"products", "products"},
		{" Products ", "products"},
		{"../../etc", "etc"},
		{"", "misc"},
		{"///", "misc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanFolder(tt.in), tt.in)
	}

	key := NewKey("products", "Foto Arroz.JPG")
	assert.True(t, strings.HasPrefix(key, "products/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, NewKey("products", "Foto Arroz.JPG"))
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/uploads/", discard())
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "products/a.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/products/a.png", url)

	b, err := os.ReadFile(filepath.Join(dir, "products", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(b))

	require.NoError(t, s.Delete(context.Background(), "products/a.png"))
	_, err = os.Stat(filepath.Join(dir, "products", "a.png"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.NoError(t, s.Delete(context.Background(), "products/a.png"), "missing file is not an error")

	_, err = s.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "")
	assert.Error(t, err)
}

type failingStore struct{ deletes int }

func (f *failingStore) Put(context.Context, string, io.Reader, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (f *failingStore) Delete(context.Context, string) error {
	f.deletes++
	return errors.New("bucket unavailable")
}

func multipartBody(t *testing.T, folder, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("folder", folder))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadAndDeleteHandlers(t *testing.T) {
	db := testutil.NewDB(t)
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads", discard())
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/api/files", UploadHandler(db, store, 1<<20))
	app.Delete("/api/files/:id", DeleteFileHandler(db, store))

	body, ct := multipartBody(t, "products", "leche.jpg", "jpeg-bytes")
	req := httptest.NewRequest(fiber.MethodPost, "/api/files", body)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.True(t, strings.HasPrefix(up.Key, "products/"))
	assert.Equal(t, "/uploads/"+up.Key, up.URL)

	var stored models.StoredFile
	require.NoError(t, db.First(&stored, up.ID).Error)
	assert.Equal(t, up.Key, stored.Key)
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(up.Key)))
	require.NoError(t, err)

	req = httptest.NewRequest(fiber.MethodDelete, "/api/files/"+jsonID(up.ID), nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(up.Key)))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestUploadHandler_Rejects(t *testing.T) {
	db := testutil.NewDB(t)
	app := fiber.New()
	app.Post("/api/files", UploadHandler(db, &failingStore{}, 4))

	body, ct := multipartBody(t, "x", "big.txt", "more than four bytes")
	req := httptest.NewRequest(fiber.MethodPost, "/api/files", body)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	body, ct = multipartBody(t, "x", "ok.txt", "abc")
	req = httptest.NewRequest(fiber.MethodPost, "/api/files", body)
	req.Header.Set(fiber.HeaderContentType, ct)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/api/files", strings.NewReader(""))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteFileHandler_StorageFailureIsSwallowed(t *testing.T) {
	db := testutil.NewDB(t)
	fs := &failingStore{}
	testutil.MustCreate(t, db, &models.StoredFile{Folder: "products", Key: "products/x.png", URL: "https://cdn/x.png"})

	app := fiber.New()
	app.Delete("/api/files/:id", DeleteFileHandler(db, fs))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodDelete, "/api/files/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, fs.deletes)

	var count int64
	require.NoError(t, db.Model(&models.StoredFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
