// Package dashboard aggregates sales and purchases for the admin charts.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"distribuidora-backend/internal/ledger"
	"distribuidora-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

const dateLayout = "2006-01-02"

// DefaultCount is the number of buckets when the request does not say.
func (p Period) DefaultCount() int {
	switch p {
	case Weekly:
		return 8
	case Monthly:
		return 12
	default:
		return 7
	}
}

func (p Period) Valid() bool {
	return p == Daily || p == Weekly || p == Monthly
}

// truncate returns the start of the bucket holding t: the day, the Monday of
// its week or the first day of its month.
func (p Period) truncate(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func (p Period) step(t time.Time, n int) time.Time {
	switch p {
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	case Monthly:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

type ChartPoint struct {
	Label     string          `json:"label"` // inicio del periodo, YYYY-MM-DD
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
}

type ChartTotals struct {
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
}

type SalesChart struct {
	Period      Period       `json:"period"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grand_totals"`
}

type Overview struct {
	Products        int64           `json:"products"`
	Clients         int64           `json:"clients"`
	Providers       int64           `json:"providers"`
	PendingOrders   int64           `json:"pending_orders"`
	LowStock        int             `json:"low_stock"`
	LowStockLimit   int64           `json:"low_stock_threshold"`
	CashFlowBalance decimal.Decimal `json:"cash_flow_balance"`
}

type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	lowStock int64
}

func NewService(db *gorm.DB, l *ledger.Service, lowStockThreshold int64) *Service {
	return &Service{db: db, ledger: l, lowStock: lowStockThreshold}
}

type dayTotal struct {
	Date  time.Time       `gorm:"column:date"`
	Total decimal.Decimal `gorm:"column:total"`
}

// SalesChart returns count consecutive buckets ending with the one that holds
// now. Empty buckets are included with zero totals. Cancelled orders are not
// counted as sales.
func (s *Service) SalesChart(ctx context.Context, period Period, count int, now time.Time) (*SalesChart, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("periodo inválido: %q", period)
	}
	if count <= 0 {
		count = period.DefaultCount()
	}

	last := period.truncate(now)
	start := period.step(last, -(count - 1))
	end := period.step(last, 1) // exclusive

	var sales, purchases []dayTotal
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Order{}).
		Select("date, total").
		Where("date >= ? AND date < ? AND status <> ?", start, end, models.OrderCancelled).
		Scan(&sales).Error; err != nil {
		return nil, fmt.Errorf("ventas: %w", err)
	}
	if err := db.Model(&models.Purchase{}).
		Select("date, total").
		Where("date >= ? AND date < ?", start, end).
		Scan(&purchases).Error; err != nil {
		return nil, fmt.Errorf("compras: %w", err)
	}

	points := make([]ChartPoint, count)
	index := make(map[time.Time]int, count)
	for i := 0; i < count; i++ {
		b := period.step(start, i)
		index[b] = i
		points[i] = ChartPoint{Label: b.Format(dateLayout), Sales: decimal.Zero, Purchases: decimal.Zero}
	}

	chart := &SalesChart{
		Period:      period,
		From:        start.Format(dateLayout),
		To:          end.AddDate(0, 0, -1).Format(dateLayout),
		GrandTotals: ChartTotals{Sales: decimal.Zero, Purchases: decimal.Zero},
	}
	for _, r := range sales {
		if i, ok := index[period.truncate(r.Date)]; ok {
			points[i].Sales = points[i].Sales.Add(r.Total)
			chart.GrandTotals.Sales = chart.GrandTotals.Sales.Add(r.Total)
		}
	}
	for _, r := range purchases {
		if i, ok := index[period.truncate(r.Date)]; ok {
			points[i].Purchases = points[i].Purchases.Add(r.Total)
			chart.GrandTotals.Purchases = chart.GrandTotals.Purchases.Add(r.Total)
		}
	}
	chart.Points = points
	return chart, nil
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	out := &Overview{LowStockLimit: s.lowStock}

	counts := []struct {
		model any
		dst   *int64
		where []any
	}{
		{&models.Product{}, &out.Products, nil},
		{&models.Client{}, &out.Clients, nil},
		{&models.Provider{}, &out.Providers, nil},
		{&models.Order{}, &out.PendingOrders, []any{"status = ?", models.OrderPending}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != nil {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	low, err := s.ledger.LowStock(ctx, s.lowStock)
	if err != nil {
		return nil, err
	}
	out.LowStock = len(low)

	sum, err := s.ledger.CashFlowSummary(ctx, ledger.CashFlowFilter{})
	if err != nil {
		return nil, err
	}
	out.CashFlowBalance = sum.Balance
	return out, nil
}
