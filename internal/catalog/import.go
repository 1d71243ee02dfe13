package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"distribuidora-backend/internal/audit"
	"distribuidora-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImportRow is one product line of the spreadsheet. Columns:
// Código | Nombre | Unidad | Precio base | Categoría
type ImportRow struct {
	Line      int
	Code      string
	Name      string
	Unit      string
	BasePrice decimal.Decimal
	Category  string
}

type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped []RowError `json:"skipped"`
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isHeader(row []string) bool {
	first := strings.ToUpper(cell(row, 0))
	return strings.Contains(first, "CÓDIGO") || strings.Contains(first, "CODIGO") || strings.Contains(first, "CODE")
}

// ParseProductSheet reads the first sheet. Invalid lines are reported and
// left out; the header row is optional.
func ParseProductSheet(r io.Reader) ([]ImportRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo leer el Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("el archivo no tiene hojas")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo leer la hoja: %w", err)
	}

	var out []ImportRow
	var skipped []RowError
	seen := map[string]int{}
	for i, row := range rows {
		line := i + 1
		if i == 0 && isHeader(row) {
			continue
		}
		if cell(row, 0) == "" && cell(row, 1) == "" {
			continue
		}

		ir := ImportRow{
			Line:     line,
			Code:     strings.ToUpper(cell(row, 0)),
			Name:     cell(row, 1),
			Unit:     strings.ToUpper(cell(row, 2)),
			Category: cell(row, 4),
		}
		if ir.Code == "" || ir.Name == "" {
			skipped = append(skipped, RowError{Line: line, Message: "código y nombre son obligatorios"})
			continue
		}
		if ir.Unit == "" {
			ir.Unit = "UND"
		}
		price := strings.ReplaceAll(cell(row, 3), ",", "")
		if price == "" {
			price = "0"
		}
		if ir.BasePrice, err = decimal.NewFromString(price); err != nil || ir.BasePrice.IsNegative() || !models.InCents(ir.BasePrice) {
			skipped = append(skipped, RowError{Line: line, Message: "precio base inválido: " + cell(row, 3)})
			continue
		}
		if prev, dup := seen[ir.Code]; dup {
			skipped = append(skipped, RowError{Line: line, Message: fmt.Sprintf("código %s repetido (línea %d)", ir.Code, prev)})
			continue
		}
		seen[ir.Code] = line
		out = append(out, ir)
	}
	return out, skipped, nil
}

// ImportProducts upserts rows by product code in a single transaction.
// Unknown category names are created on the fly.
func ImportProducts(ctx context.Context, db *gorm.DB, rows []ImportRow) (created, updated int, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := map[string]uint{}
		for _, r := range rows {
			var categoryID *uint
			if r.Category != "" {
				key := strings.ToLower(r.Category)
				id, ok := categories[key]
				if !ok {
					var cat models.Category
					if err := tx.Where("LOWER(name) = ?", key).
						Attrs(models.Category{Name: r.Category}).
						FirstOrCreate(&cat).Error; err != nil {
						return fmt.Errorf("categoría %q: %w", r.Category, err)
					}
					id = cat.ID
					categories[key] = id
				}
				categoryID = &id
			}

			var p models.Product
			res := tx.Where("code = ?", r.Code).Limit(1).Find(&p)
			if res.Error != nil {
				return res.Error
			}
			p.Code = r.Code
			p.Name = r.Name
			p.Unit = r.Unit
			p.BasePrice = r.BasePrice
			if categoryID != nil {
				p.CategoryID = categoryID
			}

			if res.RowsAffected == 0 {
				if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
					return fmt.Errorf("línea %d: %w", r.Line, err)
				}
				created++
				continue
			}
			if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
				return fmt.Errorf("línea %d: %w", r.Line, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// POST /api/products/import (multipart: file)
func ImportProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "El campo 'file' es obligatorio")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Solo se aceptan archivos .xlsx")
		}
		src, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo abrir el archivo: "+err.Error())
		}
		defer src.Close()

		rows, skipped, err := ParseProductSheet(src)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "El archivo no contiene productos válidos")
		}

		created, updated, err := ImportProducts(c.UserContext(), db, rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if skipped == nil {
			skipped = []RowError{}
		}

		res := ImportResult{Created: created, Updated: updated, Skipped: skipped}
		audit.Record(c, db, audit.Entry{
			EntityType:  "product",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Importación de productos: %d nuevos, %d actualizados, %d omitidos", created, updated, len(skipped)),
			After:       res,
		})
		return c.JSON(res)
	}
}
