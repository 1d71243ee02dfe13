package purchase

import (
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	svc      *Service
	provider models.Provider
	a, b     models.Product
}

func newEnv(t *testing.T) env {
	db := testutil.NewDB(t)
	return env{
		db:       db,
		svc:      NewService(db),
		provider: testutil.Provider(t, db, "900555111-2", "Distribuciones Andinas"),
		a:        testutil.Product(t, db, "LEC-01", "Leche 1L"),
		b:        testutil.Product(t, db, "PAN-01", "Pan tajado"),
	}
}

func (e env) create(t *testing.T) *models.Purchase {
	t.Helper()
	p, err := e.svc.Create(context.Background(), CreateInput{
		ProviderID:      e.provider.ID,
		Date:            testutil.Day("2025-02-01"),
		ReferenceNumber: "FC-200",
		Items: []ItemInput{
			{ProductID: e.a.ID, Quantity: 2, UnitPrice: testutil.D("100")},
			{ProductID: e.b.ID, Quantity: 1, UnitPrice: testutil.D("50")},
		},
	})
	require.NoError(t, err)
	return p
}

func TestCreate_TotalAndItems(t *testing.T) {
	e := newEnv(t)
	p := e.create(t)

	assert.True(t, p.Total.Equal(testutil.D("250")), "total = %s", p.Total)
	require.Len(t, p.Items, 2)
	assert.True(t, p.Items[0].Subtotal.Equal(testutil.D("200")))
	assert.True(t, p.Items[1].Subtotal.Equal(testutil.D("50")))
	require.NotNil(t, p.Provider)
	assert.Equal(t, "Distribuciones Andinas", p.Provider.Name)

	var count int64
	require.NoError(t, e.db.Model(&models.PurchaseItem{}).Where("purchase_id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{
			name:  "empty items",
			input: CreateInput{ProviderID: e.provider.ID},
			want:  ErrEmptyItems,
		},
		{
			name: "zero quantity",
			input: CreateInput{ProviderID: e.provider.ID, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 0, UnitPrice: testutil.D("10")},
			}},
			want: ErrInvalidItem,
		},
		{
			name: "negative price",
			input: CreateInput{ProviderID: e.provider.ID, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 1, UnitPrice: testutil.D("-1")},
			}},
			want: ErrInvalidItem,
		},
		{
			name: "retention above 100",
			input: CreateInput{ProviderID: e.provider.ID, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 1, UnitPrice: testutil.D("10"), RetentionICAPct: testutil.D("100.5")},
			}},
			want: ErrInvalidItem,
		},
		{
			name: "price below one cent",
			input: CreateInput{ProviderID: e.provider.ID, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 3, UnitPrice: testutil.D("0.005")},
			}},
			want: ErrInvalidItem,
		},
		{
			name: "retention with three decimals",
			input: CreateInput{ProviderID: e.provider.ID, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 1, UnitPrice: testutil.D("10"), RetentionSourcePct: testutil.D("2.505")},
			}},
			want: ErrInvalidItem,
		},
		{
			name: "unknown provider",
			input: CreateInput{ProviderID: 999, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 1, UnitPrice: testutil.D("10")},
			}},
			want: ErrProviderNotFound,
		},
		{
			name: "unknown product",
			input: CreateInput{ProviderID: e.provider.ID, Items: []ItemInput{
				{ProductID: e.a.ID, Quantity: 1, UnitPrice: testutil.D("10")},
				{ProductID: 999, Quantity: 1, UnitPrice: testutil.D("10")},
			}},
			want: ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var count int64
	require.NoError(t, e.db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreate_RollsBackHeaderWhenItemsFail(t *testing.T) {
	e := newEnv(t)
	err := e.db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "purchase_items" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = e.svc.Create(context.Background(), CreateInput{
		ProviderID: e.provider.ID,
		Items:      []ItemInput{{ProductID: e.a.ID, Quantity: 3, UnitPrice: testutil.D("10")}},
	})
	require.Error(t, err)

	var headers, items int64
	require.NoError(t, e.db.Model(&models.Purchase{}).Count(&headers).Error)
	require.NoError(t, e.db.Model(&models.PurchaseItem{}).Count(&items).Error)
	assert.Zero(t, headers)
	assert.Zero(t, items)
}

func TestUpdate_ReplacesItems(t *testing.T) {
	e := newEnv(t)
	p := e.create(t)
	oldIDs := []uint{p.Items[0].ID, p.Items[1].ID}

	items := []ItemInput{{ProductID: e.b.ID, Quantity: 4, UnitPrice: testutil.D("75")}}
	updated, err := e.svc.Update(context.Background(), p.ID, UpdateInput{Items: &items})
	require.NoError(t, err)

	assert.True(t, updated.Total.Equal(testutil.D("300")), "total = %s", updated.Total)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, e.b.ID, updated.Items[0].ProductID)

	for _, id := range oldIDs {
		err := e.db.First(&models.PurchaseItem{}, id).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}
}

func TestUpdate_HeaderOnlyKeepsTotal(t *testing.T) {
	e := newEnv(t)
	p := e.create(t)

	notes := "llegó incompleta"
	updated, err := e.svc.Update(context.Background(), p.ID, UpdateInput{Notes: &notes})
	require.NoError(t, err)

	assert.Equal(t, notes, updated.Notes)
	assert.True(t, updated.Total.Equal(testutil.D("250")))
	assert.Len(t, updated.Items, 2)
}

func TestUpdate_EmptyItemsRejected(t *testing.T) {
	e := newEnv(t)
	p := e.create(t)

	empty := []ItemInput{}
	_, err := e.svc.Update(context.Background(), p.ID, UpdateInput{Items: &empty})
	assert.ErrorIs(t, err, ErrEmptyItems)

	got, err := e.svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestUpdate_NotFound(t *testing.T) {
	e := newEnv(t)
	notes := "x"
	_, err := e.svc.Update(context.Background(), 42, UpdateInput{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	p := e.create(t)

	require.NoError(t, e.svc.Delete(context.Background(), p.ID))

	var items int64
	require.NoError(t, e.db.Model(&models.PurchaseItem{}).Count(&items).Error)
	assert.Zero(t, items)
	assert.ErrorIs(t, e.svc.Delete(context.Background(), p.ID), ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	e := newEnv(t)
	e.create(t)
	other := testutil.Provider(t, e.db, "800111222-3", "Lácteos del Norte")
	_, err := e.svc.Create(context.Background(), CreateInput{
		ProviderID: other.ID,
		Date:       testutil.Day("2025-03-10"),
		Items:      []ItemInput{{ProductID: e.a.ID, Quantity: 1, UnitPrice: testutil.D("10")}},
	})
	require.NoError(t, err)

	all, err := e.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other.ID, all[0].ProviderID, "newest first")

	byProvider, err := e.svc.List(context.Background(), ListFilter{ProviderID: e.provider.ID})
	require.NoError(t, err)
	require.Len(t, byProvider, 1)

	from := testutil.Day("2025-03-01")
	recent, err := e.svc.List(context.Background(), ListFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, other.ID, recent[0].ProviderID)
}

func TestCreatePurchaseHandler(t *testing.T) {
	e := newEnv(t)
	app := fiber.New()
	app.Post("/api/purchases", CreatePurchaseHandler(e.svc, e.db))

	body := `{"provider_id": ` + itoa(e.provider.ID) + `, "date": "2025-02-01", "reference_number": "FC-9",
		"items": [{"product_id": ` + itoa(e.a.ID) + `, "quantity": 2, "unit_price": 100},
		          {"product_id": ` + itoa(e.b.ID) + `, "quantity": 1, "unit_price": "50"}]}`
	req := httptest.NewRequest(fiber.MethodPost, "/api/purchases", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var logs []models.AuditLog
	require.NoError(t, e.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "purchase", logs[0].EntityType)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)

	req = httptest.NewRequest(fiber.MethodPost, "/api/purchases", strings.NewReader(`{"provider_id": 1, "items": []}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
