package repository

import (
	"context"

	"go-agency-ledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalCustomers  int64           `json:"total_customers"`
	TotalProducts   int64           `json:"total_products"`
	TotalStockItems int64           `json:"total_stock_items"`
	LowStockCount   int64           `json:"low_stock_count"`
	StockValuation  decimal.Decimal `json:"stock_valuation"`
	Bills           BillTotals      `json:"bills"`
}

type DashboardRepository interface {
	GetDashboardStats(ctx context.Context, lowStockKgs decimal.Decimal) (*DashboardStats, error)
}

type dashboardRepo struct {
	db    *gorm.DB
	bills BillRepository
}

func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db: db, bills: NewBillRepo(db)}
}

func (r *dashboardRepo) GetDashboardStats(ctx context.Context, lowStockKgs decimal.Decimal) (*DashboardStats, error) {
	stats := DashboardStats{StockValuation: decimal.Zero}
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Customer{}).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.StockItem{}).Count(&stats.TotalStockItems).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.StockItem{}).Where("available_quantity_kgs < ?", lowStockKgs).Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	row := db.Model(&model.StockItem{}).Select("COALESCE(SUM(available_quantity_kgs * price_per_kg), 0)").Row()
	if err := row.Scan(&stats.StockValuation); err != nil {
		return nil, err
	}

	totals, err := r.bills.Totals(ctx, nil)
	if err != nil {
		return nil, err
	}
	stats.Bills = *totals

	return &stats, nil
}
