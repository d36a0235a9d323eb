package repository

import (
	"context"
	"fmt"
	"time"

	"go-agency-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository interface {
	WithTx(tx *gorm.DB) StockRepository
	Create(ctx context.Context, item *model.StockItem) error
	FindAll(ctx context.Context) ([]model.StockItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	FindByName(ctx context.Context, name string) (*model.StockItem, error)
	// FindByNameForUpdate row-locks the item until the surrounding transaction ends.
	FindByNameForUpdate(ctx context.Context, name string) (*model.StockItem, error)
	FindBelow(ctx context.Context, thresholdKgs decimal.Decimal) ([]model.StockItem, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, name string, pricePerKg decimal.Decimal, arrival time.Time, updatedBy string) error
	Decrement(ctx context.Context, id uuid.UUID, deltaKg decimal.Decimal, deltaBags int, updatedBy string) error
	Increment(ctx context.Context, id uuid.UUID, deltaKg decimal.Decimal, deltaBags int, updatedBy string) error
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

func (r *stockRepo) WithTx(tx *gorm.DB) StockRepository {
	return &stockRepo{tx}
}

func (r *stockRepo) Create(ctx context.Context, item *model.StockItem) error {
	item.NameKey = model.NameKey(item.Name)
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *stockRepo) FindAll(ctx context.Context) ([]model.StockItem, error) {
	var items []model.StockItem
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *stockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	var item model.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *stockRepo) FindByName(ctx context.Context, name string) (*model.StockItem, error) {
	var item model.StockItem
	if err := r.db.WithContext(ctx).First(&item, "name_key = ?", model.NameKey(name)).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *stockRepo) FindByNameForUpdate(ctx context.Context, name string) (*model.StockItem, error) {
	var item model.StockItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "name_key = ?", model.NameKey(name)).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *stockRepo) FindBelow(ctx context.Context, thresholdKgs decimal.Decimal) ([]model.StockItem, error) {
	var items []model.StockItem
	err := r.db.WithContext(ctx).
		Where("available_quantity_kgs < ?", thresholdKgs).
		Order("available_quantity_kgs ASC").
		Find(&items).Error
	return items, err
}

func (r *stockRepo) UpdateDetails(ctx context.Context, id uuid.UUID, name string, pricePerKg decimal.Decimal, arrival time.Time, updatedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":         name,
			"name_key":     model.NameKey(name),
			"price_per_kg": pricePerKg,
			"arrival_date": arrival,
			"updated_by":   updatedBy,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Decrement is conditional: the row only changes if both balances still cover
// the request at write time, so a balance can never be stored negative.
func (r *stockRepo) Decrement(ctx context.Context, id uuid.UUID, deltaKg decimal.Decimal, deltaBags int, updatedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Where("id = ? AND available_quantity_kgs >= ? AND available_quantity_bags >= ?", id, deltaKg, deltaBags).
		Updates(map[string]interface{}{
			"available_quantity_kgs":  gorm.Expr("available_quantity_kgs - ?", deltaKg),
			"available_quantity_bags": gorm.Expr("available_quantity_bags - ?", deltaBags),
			"updated_by":              updatedBy,
		})
	if res.Error != nil {
		return fmt.Errorf("decrement stock %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.StockItem{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (r *stockRepo) Increment(ctx context.Context, id uuid.UUID, deltaKg decimal.Decimal, deltaBags int, updatedBy string) error {
	res := r.db.WithContext(ctx).Model(&model.StockItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity_kgs_added":      gorm.Expr("quantity_kgs_added + ?", deltaKg),
			"available_quantity_kgs":  gorm.Expr("available_quantity_kgs + ?", deltaKg),
			"available_quantity_bags": gorm.Expr("available_quantity_bags + ?", deltaBags),
			"updated_by":              updatedBy,
		})
	if res.Error != nil {
		return fmt.Errorf("increment stock %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
