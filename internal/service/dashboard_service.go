package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"go-agency-ledger/internal/repository"
)

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error)
	GetStockReport(ctx context.Context, from, to time.Time) (*StockReport, error)
}

// StockReportRow is one stock item with its movement inside the report range.
type StockReportRow struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	PricePerKg       decimal.Decimal `json:"price_per_kg"`
	QuantityKgsAdded decimal.Decimal `json:"quantity_kgs_added"`
	AvailableKgs     decimal.Decimal `json:"available_quantity_kgs"`
	SoldKgs          decimal.Decimal `json:"sold_kgs"`
	AddedInRange     decimal.Decimal `json:"added_in_range"`
	SoldInRange      decimal.Decimal `json:"sold_in_range"`
	RevenueInRange   decimal.Decimal `json:"revenue_in_range"`
}

type StockReportSummary struct {
	TotalStockAdded decimal.Decimal `json:"total_stock_added"`
	TotalStockSold  decimal.Decimal `json:"total_stock_sold"`
	TotalStockLeft  decimal.Decimal `json:"total_stock_left"`
	MostSoldProduct string          `json:"most_sold_product"`
}

type StockReport struct {
	From    time.Time          `json:"from"`
	To      time.Time          `json:"to"`
	Summary StockReportSummary `json:"summary"`
	Items   []StockReportRow   `json:"items"`
}

type dashboardService struct {
	dashRepo  repository.DashboardRepository
	stock     repository.StockRepository
	logs      repository.StockLogRepository
	threshold decimal.Decimal
	now       func() time.Time
}

func NewDashboardService(dashRepo repository.DashboardRepository, stock repository.StockRepository, logs repository.StockLogRepository, lowStockKgs decimal.Decimal) DashboardService {
	return &dashboardService{
		dashRepo:  dashRepo,
		stock:     stock,
		logs:      logs,
		threshold: lowStockKgs,
		now:       time.Now,
	}
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.logs.GetStockMovement(ctx, startDate, endDate)
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*repository.DashboardStats, error) {
	return s.dashRepo.GetDashboardStats(ctx, s.threshold)
}

// GetStockReport combines current balances with the stock log for [from, to].
// Lifetime sold is added minus available; range figures come from the log.
func (s *dashboardService) GetStockReport(ctx context.Context, from, to time.Time) (*StockReport, error) {
	if to.Before(from) {
		return nil, newValidationError("to", "report end must not be before start")
	}

	items, err := s.stock.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	movement, err := s.logs.GetProductMovement(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &StockReport{
		From: from,
		To:   to,
		Summary: StockReportSummary{
			TotalStockAdded: decimal.Zero,
			TotalStockSold:  decimal.Zero,
			TotalStockLeft:  decimal.Zero,
		},
		Items: make([]StockReportRow, 0, len(items)),
	}

	mostSold := decimal.NewFromInt(-1)
	for i := range items {
		item := &items[i]
		m := movement[item.ID]
		row := StockReportRow{
			ID:               item.ID.String(),
			Name:             item.Name,
			PricePerKg:       item.PricePerKg,
			QuantityKgsAdded: item.QuantityKgsAdded,
			AvailableKgs:     item.AvailableQuantityKgs,
			SoldKgs:          item.SoldKgs(),
			AddedInRange:     m.Added,
			SoldInRange:      m.Sold,
			RevenueInRange:   m.Revenue,
		}
		report.Items = append(report.Items, row)

		report.Summary.TotalStockAdded = report.Summary.TotalStockAdded.Add(row.QuantityKgsAdded)
		report.Summary.TotalStockLeft = report.Summary.TotalStockLeft.Add(row.AvailableKgs)
		report.Summary.TotalStockSold = report.Summary.TotalStockSold.Add(row.SoldKgs)
		if row.SoldKgs.GreaterThan(mostSold) {
			mostSold = row.SoldKgs
			report.Summary.MostSoldProduct = row.Name
		}
	}

	sort.SliceStable(report.Items, func(i, j int) bool {
		return report.Items[i].SoldKgs.GreaterThan(report.Items[j].SoldKgs)
	})
	return report, nil
}
