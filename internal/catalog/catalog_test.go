package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"distribuidora-backend/internal/ledger"
	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type recordingStore struct{ deleted []string }

func (s *recordingStore) Put(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	return "/uploads/" + key, nil
}

func (s *recordingStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func newApp(db *gorm.DB, store *recordingStore) *fiber.App {
	app := fiber.New()
	app.Get("/api/store/products", StoreProductsHandler(db, ledger.NewService(db)))
	app.Get("/api/categories", ListCategoriesHandler(db))
	app.Post("/api/categories", CreateCategoryHandler(db))
	app.Delete("/api/categories/:id", DeleteCategoryHandler(db))
	app.Get("/api/products", ListProductsHandler(db))
	app.Get("/api/products/:id", GetProductHandler(db))
	app.Post("/api/products", CreateProductHandler(db))
	app.Put("/api/products/:id", UpdateProductHandler(db, store))
	app.Delete("/api/products/:id", DeleteProductHandler(db, store))
	app.Post("/api/products/import", ImportProductsHandler(db))
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestCategories(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp(db, &recordingStore{})

	code, _ := call(t, app, fiber.MethodPost, "/api/categories", `{"name":"Lácteos"}`)
	require.Equal(t, fiber.StatusCreated, code)
	code, _ = call(t, app, fiber.MethodPost, "/api/categories", `{"name":"Lácteos"}`)
	assert.Equal(t, fiber.StatusConflict, code)
	code, _ = call(t, app, fiber.MethodPost, "/api/categories", `{"name":"  "}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = call(t, app, fiber.MethodPost, "/api/products", `{"code":"yog-1","name":"Yogurt","category_id":1,"base_price":3200}`)
	require.Equal(t, fiber.StatusCreated, code)
	code, _ = call(t, app, fiber.MethodDelete, "/api/categories/1", "")
	assert.Equal(t, fiber.StatusConflict, code)
}

func TestProductCRUD(t *testing.T) {
	db := testutil.NewDB(t)
	store := &recordingStore{}
	app := newApp(db, store)

	code, body := call(t, app, fiber.MethodPost, "/api/products",
		`{"code":"que-01","name":"Queso campesino","unit":"kg","base_price":"18500.50","image_url":"/uploads/products/a.jpg","image_key":"products/a.jpg"}`)
	require.Equal(t, fiber.StatusCreated, code, string(body))
	var p models.Product
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "QUE-01", p.Code)
	assert.Equal(t, "KG", p.Unit)
	assert.True(t, p.BasePrice.Equal(testutil.D("18500.50")))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate code", `{"code":"QUE-01","name":"Otro"}`, fiber.StatusConflict},
		{"negative price", `{"code":"X-1","name":"X","base_price":-1}`, fiber.StatusBadRequest},
		{"price below one cent", `{"code":"X-2","name":"X","base_price":"1200.005"}`, fiber.StatusBadRequest},
		{"missing code", `{"name":"X"}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := call(t, app, fiber.MethodPost, "/api/products", tt.body)
			assert.Equal(t, tt.want, code)
		})
	}

	code, _ = call(t, app, fiber.MethodPut, "/api/products/1",
		`{"code":"QUE-01","name":"Queso campesino 500g","base_price":9800,"image_url":"/uploads/products/b.jpg","image_key":"products/b.jpg"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{"products/a.jpg"}, store.deleted, "replaced image is removed")

	code, _ = call(t, app, fiber.MethodDelete, "/api/products/1", "")
	require.Equal(t, fiber.StatusNoContent, code)
	assert.Equal(t, []string{"products/a.jpg", "products/b.jpg"}, store.deleted)

	code, _ = call(t, app, fiber.MethodGet, "/api/products/1", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestStoreProducts_Availability(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp(db, &recordingStore{})

	prov := testutil.Provider(t, db, "901", "Proveedor")
	stocked := testutil.Product(t, db, "CAF-01", "Café 250g")
	testutil.Product(t, db, "TE-01", "Té verde")
	testutil.MustCreate(t, db, &models.Purchase{
		ProviderID: prov.ID, Date: testutil.Day("2025-01-01"), Total: decimal.Zero,
		Items: []models.PurchaseItem{{ProductID: stocked.ID, Quantity: 5, UnitPrice: decimal.Zero, Subtotal: decimal.Zero}},
	})

	code, body := call(t, app, fiber.MethodGet, "/api/store/products", "")
	require.Equal(t, fiber.StatusOK, code)
	var list []StoreProduct
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)

	avail := map[string]bool{}
	for _, p := range list {
		avail[p.Code] = p.Available
	}
	assert.True(t, avail["CAF-01"])
	assert.False(t, avail["TE-01"])
	assert.NotContains(t, string(body), `"stock"`)
}

func productSheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseProductSheet(t *testing.T) {
	data := productSheet(t, [][]any{
		{"Código", "Nombre", "Unidad", "Precio base", "Categoría"},
		{"ARZ-01", "Arroz 500g", "und", "2500", "Granos"},
		{"", "", "", "", ""},
		{"FRJ-01", "Fríjol 500g", "", "abc", "Granos"},
		{"", "Sin código", "UND", "100", ""},
		{"arz-01", "Arroz repetido", "UND", "1", ""},
		{"ACE-01", "Aceite 1L", "UND", "9,800.00", "Aceites"},
	})

	rows, skipped, err := ParseProductSheet(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ARZ-01", rows[0].Code)
	assert.Equal(t, "UND", rows[0].Unit)
	assert.True(t, rows[1].BasePrice.Equal(testutil.D("9800")))

	lines := make([]int, 0, len(skipped))
	for _, s := range skipped {
		lines = append(lines, s.Line)
	}
	assert.Equal(t, []int{4, 5, 6}, lines)
}

func TestImportProducts_Upsert(t *testing.T) {
	db := testutil.NewDB(t)
	existing := testutil.Product(t, db, "ARZ-01", "Arroz viejo")

	created, updated, err := ImportProducts(context.Background(), db, []ImportRow{
		{Line: 2, Code: "ARZ-01", Name: "Arroz 500g", Unit: "UND", BasePrice: testutil.D("2500"), Category: "Granos"},
		{Line: 3, Code: "LEN-01", Name: "Lenteja 500g", Unit: "UND", BasePrice: testutil.D("3100"), Category: "granos"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, updated)

	var got models.Product
	require.NoError(t, db.First(&got, existing.ID).Error)
	assert.Equal(t, "Arroz 500g", got.Name)
	require.NotNil(t, got.CategoryID)

	var cats int64
	require.NoError(t, db.Model(&models.Category{}).Count(&cats).Error)
	assert.EqualValues(t, 1, cats, "category names match case-insensitively")
}

func TestImportProductsHandler(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp(db, &recordingStore{})

	data := productSheet(t, [][]any{
		{"ARZ-01", "Arroz 500g", "UND", "2500", ""},
		{"PAN-01", "Panela", "UND", "1800", "Dulces"},
	})
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "productos.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/products/import", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var res ImportResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 2, res.Created)
	assert.Empty(t, res.Skipped)
}

func TestUploadProductImage(t *testing.T) {
	db := testutil.NewDB(t)
	store := &recordingStore{}
	p := testutil.Product(t, db, "IMG-1", "Con imagen")
	require.NoError(t, db.Model(&p).Update("image_key", "products/old.png").Error)

	app := fiber.New()
	app.Post("/api/products/:id/image", UploadProductImageHandler(db, store, 1<<20))

	upload := func(contentType string) int {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="foto.png"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("png"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(fiber.MethodPost, "/api/products/1/image", &buf)
		req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusBadRequest, upload("text/plain"))
	require.Equal(t, fiber.StatusOK, upload("image/png"))

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.True(t, strings.HasPrefix(got.ImageKey, "products/"))
	assert.Equal(t, "/uploads/"+got.ImageKey, got.ImageURL)
	assert.Equal(t, []string{"products/old.png"}, store.deleted)
}
