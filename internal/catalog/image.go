package catalog

import (
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/httpx"
	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const productImageFolder = "products"

// POST /api/products/:id/image (multipart: file)
//
// Stores the image, points the product at it and removes the previous one.
func UploadProductImageHandler(db *gorm.DB, store storage.Store, maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Product
		if err := db.WithContext(c.UserContext()).First(&p, id).Error; err != nil {
			return productError(err)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "El campo 'file' es obligatorio")
		}
		ct := fh.Header.Get(fiber.HeaderContentType)
		if !strings.HasPrefix(ct, "image/") {
			return fiber.NewError(fiber.StatusBadRequest, "Solo se aceptan imágenes")
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "La imagen es demasiado grande")
		}

		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No se pudo leer el archivo")
		}
		defer src.Close()

		key := storage.NewKey(productImageFolder, fh.Filename)
		url, err := store.Put(c.UserContext(), key, src, ct)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		before := p
		p.ImageURL, p.ImageKey = url, key
		if err := db.WithContext(c.UserContext()).Model(&p).
			Updates(map[string]any{"image_url": url, "image_key": key}).Error; err != nil {
			storage.DeleteQuietly(c.UserContext(), store, key)
			return productError(err)
		}
		storage.DeleteQuietly(c.UserContext(), store, before.ImageKey)

		audit.Record(c, db, audit.Entry{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: "Imagen de producto actualizada: " + p.Code,
			Before:      fiber.Map{"image_url": before.ImageURL, "image_key": before.ImageKey},
			After:       fiber.Map{"image_url": p.ImageURL, "image_key": p.ImageKey},
		})
		return c.JSON(p)
	}
}
