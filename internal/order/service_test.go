package order

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"distribuidora-backend/internal/ledger"
	"distribuidora-backend/internal/models"
	"distribuidora-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	db     *gorm.DB
	svc    *Service
	client models.Client
	a, b   models.Product
}

func newEnv(t *testing.T) env {
	db := testutil.NewDB(t)
	return env{
		db:     db,
		svc:    NewService(db),
		client: testutil.Client(t, db, "79555444", "Supermercado El Ahorro"),
		a:      testutil.Product(t, db, "GAS-01", "Gaseosa 400ml"),
		b:      testutil.Product(t, db, "GAL-01", "Galletas x12"),
	}
}

func (e env) create(t *testing.T) *models.Order {
	t.Helper()
	o, err := e.svc.Create(context.Background(), CreateInput{
		ClientID:        e.client.ID,
		Date:            testutil.Day("2025-04-02"),
		ReferenceNumber: "FV-300",
		Items: []ItemInput{
			{ProductID: e.a.ID, Quantity: 3, UnitPrice: testutil.D("2500")},
			{ProductID: e.b.ID, Quantity: 2, UnitPrice: testutil.D("4200.50")},
		},
	})
	require.NoError(t, err)
	return o
}

func TestCreate_DefaultsToPending(t *testing.T) {
	e := newEnv(t)
	o := e.create(t)

	assert.Equal(t, models.OrderPending, o.Status)
	assert.True(t, o.Total.Equal(testutil.D("15901")), "total = %s", o.Total)
	require.Len(t, o.Items, 2)
	require.NotNil(t, o.Client)
	assert.Equal(t, e.client.Name, o.Client.Name)
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{"empty items", CreateInput{ClientID: e.client.ID}, ErrEmptyItems},
		{"negative quantity", CreateInput{ClientID: e.client.ID, Items: []ItemInput{{ProductID: e.a.ID, Quantity: -1}}}, ErrInvalidItem},
		{"bad status", CreateInput{ClientID: e.client.ID, Status: "LOST", Items: []ItemInput{{ProductID: e.a.ID, Quantity: 1}}}, ErrInvalidStatus},
		{"price below one cent", CreateInput{ClientID: e.client.ID, Items: []ItemInput{{ProductID: e.a.ID, Quantity: 3, UnitPrice: testutil.D("0.005")}}}, ErrInvalidItem},
		{"unknown client", CreateInput{ClientID: 77, Items: []ItemInput{{ProductID: e.a.ID, Quantity: 1}}}, ErrClientNotFound},
		{"unknown product", CreateInput{ClientID: e.client.ID, Items: []ItemInput{{ProductID: 77, Quantity: 1}}}, ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var count int64
	require.NoError(t, e.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func failItemInserts(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)
}

func TestCreate_RollsBackHeaderWhenItemsFail(t *testing.T) {
	e := newEnv(t)
	failItemInserts(t, e.db)

	_, err := e.svc.Create(context.Background(), CreateInput{
		ClientID: e.client.ID,
		Items:    []ItemInput{{ProductID: e.a.ID, Quantity: 2, UnitPrice: testutil.D("2500")}},
	})
	require.Error(t, err)

	var headers, items int64
	require.NoError(t, e.db.Model(&models.Order{}).Count(&headers).Error)
	require.NoError(t, e.db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, headers)
	assert.Zero(t, items)
}

func TestUpdate_KeepsOldItemsWhenReplacementFails(t *testing.T) {
	e := newEnv(t)
	o := e.create(t)
	failItemInserts(t, e.db)

	items := []ItemInput{{ProductID: e.b.ID, Quantity: 9, UnitPrice: testutil.D("100")}}
	_, err := e.svc.Update(context.Background(), o.ID, UpdateInput{Items: &items})
	require.Error(t, err)

	got, err := e.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(testutil.D("15901")), "total = %s", got.Total)
	require.Len(t, got.Items, 2)
	assert.Equal(t, o.Items[0].ID, got.Items[0].ID)
	assert.Equal(t, o.Items[1].ID, got.Items[1].ID)
}

func TestUpdateStatus_LeavesItemsAndTotal(t *testing.T) {
	e := newEnv(t)
	o := e.create(t)

	updated, err := e.svc.UpdateStatus(context.Background(), o.ID, models.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)
	assert.True(t, updated.Total.Equal(o.Total))
	require.Len(t, updated.Items, 2)
	assert.Equal(t, o.Items[0].ID, updated.Items[0].ID)

	_, err = e.svc.UpdateStatus(context.Background(), o.ID, "ARCHIVED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = e.svc.UpdateStatus(context.Background(), 999, models.OrderDelivered)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ReplacesItemsAndMovesStock(t *testing.T) {
	e := newEnv(t)
	o := e.create(t)
	stock := ledger.NewService(e.db)

	before, err := stock.Stock(context.Background(), e.a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, -3, before)

	items := []ItemInput{{ProductID: e.b.ID, Quantity: 1, UnitPrice: testutil.D("4000")}}
	updated, err := e.svc.Update(context.Background(), o.ID, UpdateInput{Items: &items})
	require.NoError(t, err)
	assert.True(t, updated.Total.Equal(testutil.D("4000")))
	require.Len(t, updated.Items, 1)

	for _, it := range o.Items {
		assert.ErrorIs(t, e.db.First(&models.OrderItem{}, it.ID).Error, gorm.ErrRecordNotFound)
	}

	after, err := stock.Stock(context.Background(), e.a.ID)
	require.NoError(t, err)
	assert.Zero(t, after)
}

func TestList_StatusFilter(t *testing.T) {
	e := newEnv(t)
	first := e.create(t)
	e.create(t)
	_, err := e.svc.UpdateStatus(context.Background(), first.ID, models.OrderCancelled)
	require.NoError(t, err)

	pending, err := e.svc.List(context.Background(), ListFilter{Status: models.OrderPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	byClient, err := e.svc.List(context.Background(), ListFilter{ClientID: e.client.ID})
	require.NoError(t, err)
	assert.Len(t, byClient, 2)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	o := e.create(t)

	require.NoError(t, e.svc.Delete(context.Background(), o.ID))
	_, err := e.svc.Get(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var items int64
	require.NoError(t, e.db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	e := newEnv(t)
	o := e.create(t)

	app := fiber.New()
	app.Patch("/api/orders/:id/status", UpdateOrderStatusHandler(e.svc, e.db))

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"ok", "/api/orders/1/status", `{"status":"CONFIRMED"}`, fiber.StatusOK},
		{"unknown status", "/api/orders/1/status", `{"status":"LOST"}`, fiber.StatusBadRequest},
		{"missing order", "/api/orders/99/status", `{"status":"CONFIRMED"}`, fiber.StatusNotFound},
		{"bad id", "/api/orders/abc/status", `{"status":"CONFIRMED"}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPatch, tt.path, strings.NewReader(tt.body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	got, err := e.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, got.Status)
}
