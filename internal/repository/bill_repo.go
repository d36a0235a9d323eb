package repository

import (
	"context"
	"time"

	"go-agency-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillFilter narrows bill listings. Zero values mean "any".
type BillFilter struct {
	CustomerID *uuid.UUID
	Status     model.BillStatus
}

// BillTotals is a count and amount per status.
type BillTotals struct {
	PendingCount  int64           `json:"pending_count"`
	PaidCount     int64           `json:"paid_count"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

type BillRepository interface {
	WithTx(tx *gorm.DB) BillRepository
	Create(ctx context.Context, bill *model.Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	FindAll(ctx context.Context, filter BillFilter) ([]model.Bill, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BillStatus, paidAt *time.Time, updatedBy string) error
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	Totals(ctx context.Context, customerID *uuid.UUID) (*BillTotals, error)
}

type billRepo struct {
	db *gorm.DB
}

func NewBillRepo(db *gorm.DB) BillRepository {
	return &billRepo{db}
}

func (r *billRepo) WithTx(tx *gorm.DB) BillRepository {
	return &billRepo{tx}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts the bill together with its line items.
func (r *billRepo) Create(ctx context.Context, bill *model.Bill) error {
	return translate(r.db.WithContext(ctx).Omit("Customer").Create(bill).Error)
}

func (r *billRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Preload("Customer").
		First(&bill, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &bill, nil
}

func (r *billRepo) FindAll(ctx context.Context, filter BillFilter) ([]model.Bill, error) {
	var bills []model.Bill
	q := r.db.WithContext(ctx).Preload("Items", orderedItems).Preload("Customer")
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	err := q.Order("created_at DESC").Find(&bills).Error
	return bills, err
}

func (r *billRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BillStatus, paidAt *time.Time, updatedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.Bill{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"paid_at":    paidAt,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCustomer removes every bill of a customer, line items first.
func (r *billRepo) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	billIDs := db.Model(&model.Bill{}).Select("id").Where("customer_id = ?", customerID)

	if err := db.Where("bill_id IN (?)", billIDs).Delete(&model.BillLineItem{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("customer_id = ?", customerID).Delete(&model.Bill{})
	return res.RowsAffected, res.Error
}

func (r *billRepo) Totals(ctx context.Context, customerID *uuid.UUID) (*BillTotals, error) {
	q := r.db.WithContext(ctx).Model(&model.Bill{}).Select(`
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending_count,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN 1 ELSE 0 END), 0) AS paid_count,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN grand_total ELSE 0 END), 0) AS pending_amount,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN grand_total ELSE 0 END), 0) AS paid_amount
		`)
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}

	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := BillTotals{PendingAmount: decimal.Zero, PaidAmount: decimal.Zero}
	if rows.Next() {
		if err := rows.Scan(&totals.PendingCount, &totals.PaidCount, &totals.PendingAmount, &totals.PaidAmount); err != nil {
			return nil, err
		}
	}
	return &totals, rows.Err()
}
