// Package purchase records purchases from providers. A purchase header and its
// items are always written in one database transaction.
package purchase

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
	ErrNotFound         = errors.New("compra no encontrada")
	ErrEmptyItems       = errors.New("la compra debe tener al menos un ítem")
	ErrInvalidItem      = errors.New("ítem inválido")
	ErrProviderNotFound = errors.New("proveedor no encontrado")
	ErrProductNotFound  = errors.New("producto no encontrado")
)

var hundred = decimal.NewFromInt(100)

type ItemInput struct {
	ProductID          uint            `json:"product_id"`
	Quantity           int64           `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	RetentionSourcePct decimal.Decimal `json:"retention_source_pct"`
	RetentionICAPct    decimal.Decimal `json:"retention_ica_pct"`
	RetentionIVAPct    decimal.Decimal `json:"retention_iva_pct"`
}

type CreateInput struct {
	ProviderID      uint
	Date            time.Time
	ReferenceNumber string
	Notes           string
	Items           []ItemInput
}

// UpdateInput: nil fields are left unchanged. A non-nil Items replaces the
// whole item set and recomputes the total.
type UpdateInput struct {
	ProviderID      *uint
	Date            *time.Time
	ReferenceNumber *string
	Notes           *string
	Items           *[]ItemInput
}

type ListFilter struct {
	ProviderID uint
	From       *time.Time
	To         *time.Time
	Reference  string
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func validPct(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred) && models.InCents(p)
}

// buildItems validates the lines and returns them with their subtotals and
// the header total (sum of quantity x unit price).
func buildItems(in []ItemInput) ([]models.PurchaseItem, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, ErrEmptyItems
	}

	items := make([]models.PurchaseItem, 0, len(in))
	total := decimal.Zero
	for i, it := range in {
		switch {
		case it.ProductID == 0:
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d sin product_id", ErrInvalidItem, i+1)
		case it.Quantity <= 0:
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, la cantidad debe ser mayor a 0", ErrInvalidItem, i+1)
		case it.UnitPrice.IsNegative():
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, el precio no puede ser negativo", ErrInvalidItem, i+1)
		case !models.InCents(it.UnitPrice):
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, el precio admite máximo 2 decimales", ErrInvalidItem, i+1)
		case !validPct(it.RetentionSourcePct), !validPct(it.RetentionICAPct), !validPct(it.RetentionIVAPct):
			return nil, decimal.Zero, fmt.Errorf("%w: ítem %d, las retenciones deben estar entre 0 y 100", ErrInvalidItem, i+1)
		}

		subtotal := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
		total = total.Add(subtotal)
		items = append(items, models.PurchaseItem{
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			Subtotal:           subtotal,
			RetentionSourcePct: it.RetentionSourcePct,
			RetentionICAPct:    it.RetentionICAPct,
			RetentionIVAPct:    it.RetentionIVAPct,
		})
	}
	return items, total, nil
}

func ensureProvider(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.Provider{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %d", ErrProviderNotFound, id)
	}
	return nil
}

func ensureProducts(tx *gorm.DB, items []models.PurchaseItem) error {
	ids := make([]uint, 0, len(items))
	seen := map[uint]bool{}
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	var found []uint
	if err := tx.Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}
	have := map[uint]bool{}
	for _, id := range found {
		have[id] = true
	}
	for _, id := range ids {
		if !have[id] {
			return fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
	}
	return nil
}

func insertItems(tx *gorm.DB, purchaseID uint, items []models.PurchaseItem) error {
	for i := range items {
		items[i].ID = 0
		items[i].PurchaseID = purchaseID
	}
	return tx.Create(&items).Error
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Purchase, error) {
	if in.ProviderID == 0 {
		return nil, fmt.Errorf("%w: provider_id es obligatorio", ErrProviderNotFound)
	}
	items, total, err := buildItems(in.Items)
	if err != nil {
		return nil, err
	}

	p := models.Purchase{
		ProviderID:      in.ProviderID,
		Date:            in.Date,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		Total:           total,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProvider(tx, in.ProviderID); err != nil {
			return err
		}
		if err := ensureProducts(tx, items); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return err
		}
		return insertItems(tx, p.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, p.ID)
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Purchase, error) {
	var items []models.PurchaseItem
	var total decimal.Decimal
	if in.Items != nil {
		var err error
		if items, total, err = buildItems(*in.Items); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Purchase
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if in.ProviderID != nil {
			if err := ensureProvider(tx, *in.ProviderID); err != nil {
				return err
			}
			p.ProviderID = *in.ProviderID
		}
		if in.Date != nil {
			p.Date = *in.Date
		}
		if in.ReferenceNumber != nil {
			p.ReferenceNumber = *in.ReferenceNumber
		}
		if in.Notes != nil {
			p.Notes = *in.Notes
		}

		// Los ítems nunca se editan parcialmente: se borran y se recrean.
		if in.Items != nil {
			if err := ensureProducts(tx, items); err != nil {
				return err
			}
			if err := tx.Where("purchase_id = ?", p.ID).Delete(&models.PurchaseItem{}).Error; err != nil {
				return err
			}
			if err := insertItems(tx, p.ID, items); err != nil {
				return err
			}
			p.Total = total
		}

		return tx.Omit(clause.Associations).Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_id = ?", id).Delete(&models.PurchaseItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Purchase{}, id)
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
	return db.Preload("Provider").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("purchase_items.id ASC") }).
		Preload("Items.Product")
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Purchase, error) {
	var p models.Purchase
	if err := withDetails(s.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Purchase, error) {
	dbq := withDetails(s.db.WithContext(ctx)).Model(&models.Purchase{})
	if f.ProviderID != 0 {
		dbq = dbq.Where("provider_id = ?", f.ProviderID)
	}
	if f.From != nil {
		dbq = dbq.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("date <= ?", *f.To)
	}
	if f.Reference != "" {
		dbq = dbq.Where("reference_number = ?", f.Reference)
	}

	purchases := make([]models.Purchase, 0)
	if err := dbq.Order("date DESC, id DESC").Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
