package repository

import (
	"context"
	"time"

	"go-agency-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LogFilter narrows stock log listings. Zero values mean "any".
type LogFilter struct {
	ProductID *uuid.UUID
	Action    model.StockAction
	Since     *time.Time
	Limit     int
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date  string          `json:"date"`
	Added decimal.Decimal `json:"added"`
	Sold  decimal.Decimal `json:"sold"`
}

// ProductMovement is the added/sold volume of one stock item in a period.
type ProductMovement struct {
	ProductID uuid.UUID       `json:"product_id"`
	Added     decimal.Decimal `json:"added"`
	Sold      decimal.Decimal `json:"sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// StockLogRepository only appends and reads; entries are immutable.
type StockLogRepository interface {
	WithTx(tx *gorm.DB) StockLogRepository
	Append(ctx context.Context, entries ...*model.StockLogEntry) error
	FindAll(ctx context.Context, filter LogFilter) ([]model.StockLogEntry, error)
	FindByReference(ctx context.Context, referenceID string) ([]model.StockLogEntry, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetProductMovement(ctx context.Context, startDate, endDate time.Time) (map[uuid.UUID]ProductMovement, error)
}

type stockLogRepo struct {
	db *gorm.DB
}

func NewStockLogRepo(db *gorm.DB) StockLogRepository {
	return &stockLogRepo{db}
}

func (r *stockLogRepo) WithTx(tx *gorm.DB) StockLogRepository {
	return &stockLogRepo{tx}
}

func (r *stockLogRepo) Append(ctx context.Context, entries ...*model.StockLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

func (r *stockLogRepo) FindAll(ctx context.Context, filter LogFilter) ([]model.StockLogEntry, error) {
	var entries []model.StockLogEntry
	q := r.db.WithContext(ctx)
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Since != nil {
		q = q.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Order("timestamp DESC").Find(&entries).Error
	return entries, err
}

func (r *stockLogRepo) FindByReference(ctx context.Context, referenceID string) ([]model.StockLogEntry, error) {
	var entries []model.StockLogEntry
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).Order("timestamp ASC").Find(&entries).Error
	return entries, err
}

func (r *stockLogRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	rows, err := r.db.WithContext(ctx).Model(&model.StockLogEntry{}).
		Select(`
			DATE(timestamp) as date,
			COALESCE(SUM(CASE WHEN action = 'added' THEN quantity ELSE 0 END), 0) as added,
			COALESCE(SUM(CASE WHEN action = 'sold' THEN quantity ELSE 0 END), 0) as sold
		`).
		Where("timestamp BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(timestamp)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Added, &data.Sold); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *stockLogRepo) GetProductMovement(ctx context.Context, startDate, endDate time.Time) (map[uuid.UUID]ProductMovement, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.StockLogEntry{}).
		Select(`
			product_id,
			COALESCE(SUM(CASE WHEN action = 'added' THEN quantity ELSE 0 END), 0) as added,
			COALESCE(SUM(CASE WHEN action = 'sold' THEN quantity ELSE 0 END), 0) as sold,
			COALESCE(SUM(CASE WHEN action = 'sold' THEN quantity * cost_per_kg ELSE 0 END), 0) as revenue
		`).
		Where("timestamp BETWEEN ? AND ?", startDate, endDate).
		Group("product_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[uuid.UUID]ProductMovement)
	for rows.Next() {
		var m ProductMovement
		if err := rows.Scan(&m.ProductID, &m.Added, &m.Sold, &m.Revenue); err != nil {
			return nil, err
		}
		results[m.ProductID] = m
	}

	return results, rows.Err()
}
