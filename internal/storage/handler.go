package storage

import (
	"fmt"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/auth"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UploadResponse struct {
	ID  uint   `json:"id"`
	URL string `json:"url"`
	Key string `json:"key"`
}

// POST /api/files (multipart: file, folder)
func UploadHandler(db *gorm.DB, store Store, maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "El campo 'file' es obligatorio")
		}
		if fh.Size == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "El archivo está vacío")
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("El archivo supera el máximo de %d MB", maxBytes>>20))
		}

		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No se pudo leer el archivo")
		}
		defer src.Close()

		folder := CleanFolder(c.FormValue("folder"))
		key := NewKey(folder, fh.Filename)
		contentType := contentTypeFor(fh.Filename, fh.Header.Get(fiber.HeaderContentType))

		url, err := store.Put(c.UserContext(), key, src, contentType)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		file := models.StoredFile{
			Folder:      folder,
			Key:         key,
			URL:         url,
			ContentType: contentType,
			Size:        fh.Size,
		}
		if id, ok := auth.CurrentUser(c); ok {
			file.UploadedBy = id.UserID
		}
		if err := db.WithContext(c.UserContext()).Create(&file).Error; err != nil {
			DeleteQuietly(c.UserContext(), store, key)
			return httpx.DBError(err, "")
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "file",
			EntityID:    file.ID,
			Action:      models.AuditActionCreate,
			Description: "Archivo subido: " + key,
			After:       file,
		})
		return c.Status(fiber.StatusCreated).JSON(UploadResponse{ID: file.ID, URL: file.URL, Key: file.Key})
	}
}

// DELETE /api/files/:id
func DeleteFileHandler(db *gorm.DB, store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var file models.StoredFile
		if err := db.WithContext(c.UserContext()).First(&file, id).Error; err != nil {
			return httpx.DBError(err, "Archivo no encontrado")
		}

		DeleteQuietly(c.UserContext(), store, file.Key)

		if err := db.WithContext(c.UserContext()).Delete(&file).Error; err != nil {
			return httpx.DBError(err, "Archivo no encontrado")
		}

		audit.Record(c, db, audit.Entry{
			EntityType:  "file",
			EntityID:    file.ID,
			Action:      models.AuditActionDelete,
			Description: "Archivo eliminado: " + file.Key,
			Before:      file,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
