// Package order records sales to clients. Header and items are written in one
// transaction; the status can later move independently of the items.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"distribuidora-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound        = errors.New("pedido no encontrado")
	ErrEmptyItems      = errors.New("el pedido debe tener al menos un ítem")
	ErrInvalidItem     = errors.New("ítem inválido")
	ErrInvalidStatus   = errors.New("estado de pedido inválido")
	ErrClientNotFound  = errors.New("cliente no encontrado")
	ErrProductNotFound = errors.New("producto no encontrado")
)

type ItemInput struct {
	ProductID uint            `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateInput struct {
	ClientID        uint
	Date            time.Time
	ReferenceNumber string
	Notes           string
	// Status defaults to PENDING.
	Status models.OrderStatus
	Items  []ItemInput
}

type UpdateInput struct {
	ClientID        *uint
	Date            *time.Time
	ReferenceNumber *string
	Notes           *string
	Items           *[]ItemInput
}

type ListFilter struct {
	ClientID uint
	Status   models.OrderStatus
	From     *time.Time
	To       *time.Time
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func buildItems(in []ItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, ErrEmptyItems
	}

	items := make([]models.OrderItem, 0, len(in))
	total := decimal.Zero
	for i, it := range in {
		if it.ProductID == 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d sin product_id", ErrInvalidItem, i+1)
		}
		if it.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, la cantidad debe ser mayor a 0", ErrInvalidItem, i+1)
		}
		if it.UnitPrice.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, el precio no puede ser negativo", ErrInvalidItem, i+1)
		}
		if !models.InCents(it.UnitPrice) {
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, el precio admite máximo 2 decimales", ErrInvalidItem, i+1)
		}

		subtotal := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
		total = total.Add(subtotal)
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  subtotal,
		})
	}
	return items, total, nil
}

func ensureClient(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Client{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %d", ErrClientNotFound, id)
	}
	return nil
}

func ensureProducts(tx *gorm.DB, items []models.OrderItem) error {
	for _, it := range items {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ?", it.ProductID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %d", ErrProductNotFound, it.ProductID)
		}
	}
	return nil
}

func insertItems(tx *gorm.DB, orderID uint, items []models.OrderItem) error {
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = orderID
	}
	return tx.Create(&items).Error
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.ClientID == 0 {
		return nil, fmt.Errorf("%w: client_id es obligatorio", ErrClientNotFound)
	}
	status := in.Status
	if status == "" {
		status = models.OrderPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	items, total, err := buildItems(in.Items)
	if err != nil {
		return nil, err
	}

	o := models.Order{
		ClientID:        in.ClientID,
		Date:            in.Date,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		Status:          status,
		Total:           total,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureClient(tx, in.ClientID); err != nil {
			return err
		}
		if err := ensureProducts(tx, items); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&o).Error; err != nil {
			return err
		}
		return insertItems(tx, o.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, o.ID)
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Order, error) {
	var items []models.OrderItem
	var total decimal.Decimal
	if in.Items != nil {
		var err error
		if items, total, err = buildItems(*in.Items); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.ClientID != nil {
			if err := ensureClient(tx, *in.ClientID); err != nil {
				return err
			}
			o.ClientID = *in.ClientID
		}
		if in.Date != nil {
			o.Date = *in.Date
		}
		if in.ReferenceNumber != nil {
			o.ReferenceNumber = *in.ReferenceNumber
		}
		if in.Notes != nil {
			o.Notes = *in.Notes
		}

		if in.Items != nil {
			if err := ensureProducts(tx, items); err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", o.ID).Delete(&models.OrderItem{}).Error; err != nil {
				return err
			}
			if err := insertItems(tx, o.ID, items); err != nil {
				return err
			}
			o.Total = total
		}

		return tx.Omit(clause.Associations).Save(&o).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdateStatus changes only the status column.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product")
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := withDetails(s.db.WithContext(ctx)).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	q := withDetails(s.db.WithContext(ctx)).Model(&models.Order{})
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}

	orders := make([]models.Order, 0)
	if err := q.Order("date DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
