// Package ledger derives stock and movement history from purchase and order
// items. Nothing is cached and no running balance is stored: every call
// aggregates the item tables again.
package ledger

import (
	"context"
	"sort"
	"time"

	"distribuidora-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultLowStockThreshold int64 = 10

type MovementType string

const (
	MovementPurchase MovementType = "PURCHASE"
	MovementSale     MovementType = "SALE"
)

// Movement is one purchase or sale line seen as a signed stock change.
type Movement struct {
	Type            MovementType    `json:"type"`
	TransactionID   uint            `json:"transaction_id"`
	Date            time.Time       `json:"date"`
	Quantity        int64           `json:"quantity"` // + compra, - venta
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ReferenceNumber string          `json:"reference_number"`
	Counterparty    string          `json:"counterparty"`

	recordedAt time.Time
}

type StockLevel struct {
	ProductID uint   `json:"product_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Stock     int64  `json:"stock"`
}

type CashFlowFilter struct {
	From *time.Time
	To   *time.Time
}

type CashFlowSummary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

const sumQuantity = "CAST(COALESCE(SUM(quantity), 0) AS BIGINT)"

// Stock returns purchased minus sold quantity. An unknown product id yields
// 0 without error; existence is not checked on this path.
func (s *Service) Stock(ctx context.Context, productID uint) (int64, error) {
	db := s.db.WithContext(ctx)

	var in, out int64
	if err := db.Model(&models.PurchaseItem{}).
		Select(sumQuantity).
		Where("product_id = ?", productID).
		Scan(&in).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&models.OrderItem{}).
		Select(sumQuantity).
		Where("product_id = ?", productID).
		Scan(&out).Error; err != nil {
		return 0, err
	}
	return in - out, nil
}

type movementRow struct {
	TransactionID   uint
	Date            time.Time
	CreatedAt       time.Time
	Quantity        int64
	UnitPrice       decimal.Decimal
	ReferenceNumber string
	Counterparty    string
}

// Movements lists every purchase (+) and sale (-) line of the product, most
// recent first. An unknown product id yields an empty list.
func (s *Service) Movements(ctx context.Context, productID uint) ([]Movement, error) {
	db := s.db.WithContext(ctx)

	var purchases []movementRow
	if err := db.Table("purchase_items AS pi").
		Select("pu.id AS transaction_id, pu.date AS date, pu.created_at AS created_at, pi.quantity AS quantity, pi.unit_price AS unit_price, pu.reference_number AS reference_number, COALESCE(pr.name, '') AS counterparty").
		Joins("JOIN purchases pu ON pu.id = pi.purchase_id").
		Joins("LEFT JOIN providers pr ON pr.id = pu.provider_id").
		Where("pi.product_id = ?", productID).
		Scan(&purchases).Error; err != nil {
		return nil, err
	}

	var sales []movementRow
	if err := db.Table("order_items AS oi").
		Select("o.id AS transaction_id, o.date AS date, o.created_at AS created_at, oi.quantity AS quantity, oi.unit_price AS unit_price, o.reference_number AS reference_number, COALESCE(cl.name, '') AS counterparty").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("LEFT JOIN clients cl ON cl.id = o.client_id").
		Where("oi.product_id = ?", productID).
		Scan(&sales).Error; err != nil {
		return nil, err
	}

	out := make([]Movement, 0, len(purchases)+len(sales))
	for _, r := range purchases {
		out = append(out, toMovement(MovementPurchase, r, r.Quantity))
	}
	for _, r := range sales {
		out = append(out, toMovement(MovementSale, r, -r.Quantity))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		// Compras y pedidos no comparten secuencia de ids.
		if !out[i].recordedAt.Equal(out[j].recordedAt) {
			return out[i].recordedAt.After(out[j].recordedAt)
		}
		if out[i].Type != out[j].Type {
			return out[i].Type == MovementSale
		}
		return out[i].TransactionID > out[j].TransactionID
	})
	return out, nil
}

func toMovement(t MovementType, r movementRow, qty int64) Movement {
	return Movement{
		Type:            t,
		TransactionID:   r.TransactionID,
		Date:            r.Date,
		Quantity:        qty,
		UnitPrice:       r.UnitPrice,
		ReferenceNumber: r.ReferenceNumber,
		Counterparty:    r.Counterparty,
		recordedAt:      r.CreatedAt,
	}
}

const levelsQuery = `SELECT p.id AS product_id, p.code AS code, p.name AS name, p.unit AS unit,
	CAST(COALESCE((SELECT SUM(pi.quantity) FROM purchase_items pi WHERE pi.product_id = p.id), 0) AS BIGINT)
	- CAST(COALESCE((SELECT SUM(oi.quantity) FROM order_items oi WHERE oi.product_id = p.id), 0) AS BIGINT) AS stock
	FROM products p`

// Levels returns the derived stock of every product, ordered by name.
func (s *Service) Levels(ctx context.Context) ([]StockLevel, error) {
	levels := make([]StockLevel, 0)
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM (" + levelsQuery + ") AS s ORDER BY s.name ASC, s.product_id ASC").
		Scan(&levels).Error
	return levels, err
}

// LowStock returns every product whose derived stock is at or below
// threshold, lowest stock first.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]StockLevel, error) {
	levels := make([]StockLevel, 0)
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM ("+levelsQuery+") AS s WHERE s.stock <= ? ORDER BY s.stock ASC, s.name ASC", threshold).
		Scan(&levels).Error
	return levels, err
}

// CashFlowSummary is a single grouped aggregation over cash_flows.
func (s *Service) CashFlowSummary(ctx context.Context, f CashFlowFilter) (CashFlowSummary, error) {
	type row struct {
		Type  models.CashFlowType
		Total decimal.Decimal
	}

	dbq := s.db.WithContext(ctx).Model(&models.CashFlow{})
	if f.From != nil {
		dbq = dbq.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("date <= ?", *f.To)
	}

	var rows []row
	if err := dbq.Select("type, COALESCE(SUM(amount), 0) AS total").Group("type").Scan(&rows).Error; err != nil {
		return CashFlowSummary{}, err
	}

	sum := CashFlowSummary{TotalIncome: decimal.Zero, TotalExpense: decimal.Zero}
	for _, r := range rows {
		switch r.Type {
		case models.CashFlowIncome:
			sum.TotalIncome = sum.TotalIncome.Add(r.Total)
		case models.CashFlowExpense:
			sum.TotalExpense = sum.TotalExpense.Add(r.Total)
		}
	}
	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpense)
	return sum, nil
}
