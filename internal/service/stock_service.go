package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/ws"
)

const dateLayout = "2006-01-02"

type StockService interface {
	CreateStockItem(ctx context.Context, req *CreateStockRequest, actor Actor) (*model.StockItem, error)
	Restock(ctx context.Context, id uuid.UUID, req *RestockRequest, actor Actor) (*model.StockItem, error)
	UpdateStockItem(ctx context.Context, id uuid.UUID, req *UpdateStockRequest, actor Actor) (*model.StockItem, error)
	ListStock(ctx context.Context) ([]model.StockItem, error)
	GetStock(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	LowStock(ctx context.Context) ([]model.StockItem, error)
	LowStockBelow(ctx context.Context, thresholdKgs decimal.Decimal) ([]model.StockItem, error)
}

type CreateStockRequest struct {
	Name        string           `json:"name" validate:"required"`
	PricePerKg  *decimal.Decimal `json:"pricePerKg" validate:"required,dec_gte0,dec_scale3"`
	QuantityKgs *decimal.Decimal `json:"quantityKgs" validate:"required,dec_gt0,dec_scale3"`
	Bags        *int             `json:"bags" validate:"required,min=0"`
	ArrivalDate string           `json:"arrivalDate" validate:"required,datetime=2006-01-02"`
}

type RestockRequest struct {
	QuantityKgs *decimal.Decimal `json:"quantityKgs" validate:"required,dec_gt0,dec_scale3"`
	Bags        *int             `json:"bags" validate:"required,min=0"`
	Remarks     string           `json:"remarks" validate:"max=500"`
}

type UpdateStockRequest struct {
	Name        string           `json:"name" validate:"required"`
	PricePerKg  *decimal.Decimal `json:"pricePerKg" validate:"required,dec_gte0,dec_scale3"`
	ArrivalDate string           `json:"arrivalDate" validate:"required,datetime=2006-01-02"`
}

type stockService struct {
	db        *gorm.DB
	stock     repository.StockRepository
	products  repository.ProductRepository
	logs      repository.StockLogRepository
	events    EventPublisher
	log       *zap.Logger
	threshold decimal.Decimal
}

func NewStockService(
	db *gorm.DB,
	stock repository.StockRepository,
	products repository.ProductRepository,
	logs repository.StockLogRepository,
	events EventPublisher,
	log *zap.Logger,
	lowStockKgs decimal.Decimal,
) StockService {
	if log == nil {
		log = zap.NewNop()
	}
	return &stockService{
		db:        db,
		stock:     stock,
		products:  products,
		logs:      logs,
		events:    publisherOrNoop(events),
		log:       log,
		threshold: lowStockKgs,
	}
}

func (s *stockService) CreateStockItem(ctx context.Context, req *CreateStockRequest, actor Actor) (*model.StockItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}
	arrival, _ := time.Parse(dateLayout, req.ArrivalDate)

	// Stock can only be opened for catalog products.
	product, err := s.products.FindByName(ctx, req.Name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	item := &model.StockItem{
		Name:                  product.Name,
		PricePerKg:            *req.PricePerKg,
		QuantityKgsAdded:      *req.QuantityKgs,
		AvailableQuantityKgs:  *req.QuantityKgs,
		AvailableQuantityBags: *req.Bags,
		ArrivalDate:           arrival,
	}
	item.CreatedBy = actor.ID
	item.UpdatedBy = actor.ID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		if _, err := stock.FindByName(ctx, item.Name); err == nil {
			return ErrStockExists
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := stock.Create(ctx, item); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrStockExists
			}
			return err
		}
		return s.logs.WithTx(tx).Append(ctx, &model.StockLogEntry{
			ProductID:   item.ID,
			ProductName: item.Name,
			Action:      model.StockAdded,
			Quantity:    item.QuantityKgsAdded,
			Bags:        item.AvailableQuantityBags,
			CostPerKg:   item.PricePerKg,
			ReferenceID: item.ID.String(),
			Remarks:     fmt.Sprintf("Added %s KG (%d bags) at ₹%s per KG", item.QuantityKgsAdded.String(), item.AvailableQuantityBags, item.PricePerKg.String()),
			CreatedBy:   actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock item created", zap.String("stock_id", item.ID.String()), zap.String("name", item.Name))
	s.publishStock("stock_created", item, actor)
	return item, nil
}

func (s *stockService) Restock(ctx context.Context, id uuid.UUID, req *RestockRequest, actor Actor) (*model.StockItem, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var item *model.StockItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		if err := stock.Increment(ctx, id, *req.QuantityKgs, *req.Bags, actor.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrStockNotFound
			}
			return err
		}

		var err error
		if item, err = stock.FindByID(ctx, id); err != nil {
			return err
		}

		remarks := req.Remarks
		if remarks == "" {
			remarks = fmt.Sprintf("Restocked %s KG (%d bags)", req.QuantityKgs.String(), *req.Bags)
		}
		return s.logs.WithTx(tx).Append(ctx, &model.StockLogEntry{
			ProductID:   item.ID,
			ProductName: item.Name,
			Action:      model.StockAdded,
			Quantity:    *req.QuantityKgs,
			Bags:        *req.Bags,
			CostPerKg:   item.PricePerKg,
			ReferenceID: item.ID.String(),
			Remarks:     remarks,
			CreatedBy:   actor.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStock("stock_restocked", item, actor)
	return item, nil
}

// UpdateStockItem edits metadata only. Balances change through bills and restocks.
func (s *stockService) UpdateStockItem(ctx context.Context, id uuid.UUID, req *UpdateStockRequest, actor Actor) (*model.StockItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}
	arrival, _ := time.Parse(dateLayout, req.ArrivalDate)

	current, err := s.GetStock(ctx, id)
	if err != nil {
		return nil, err
	}
	name := current.Name
	if model.NameKey(req.Name) != current.NameKey {
		product, err := s.products.FindByName(ctx, req.Name)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}
		name = product.Name
	}

	if err := s.stock.UpdateDetails(ctx, id, name, *req.PricePerKg, arrival, actor.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrStockNotFound
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrStockExists
		}
		return nil, err
	}

	item, err := s.GetStock(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishStock("stock_updated", item, actor)
	return item, nil
}

func (s *stockService) ListStock(ctx context.Context) ([]model.StockItem, error) {
	return s.stock.FindAll(ctx)
}

func (s *stockService) GetStock(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	item, err := s.stock.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrStockNotFound
	}
	return item, err
}

func (s *stockService) LowStock(ctx context.Context) ([]model.StockItem, error) {
	return s.stock.FindBelow(ctx, s.threshold)
}

func (s *stockService) LowStockBelow(ctx context.Context, thresholdKgs decimal.Decimal) ([]model.StockItem, error) {
	if thresholdKgs.IsNegative() {
		return nil, newValidationError("threshold", "threshold must not be negative")
	}
	return s.stock.FindBelow(ctx, thresholdKgs)
}

func (s *stockService) publishStock(action string, item *model.StockItem, actor Actor) {
	s.events.Publish(ws.EventStockUpdate, map[string]interface{}{
		"action": action,
		"product": map[string]interface{}{
			"id":                      item.ID,
			"name":                    item.Name,
			"price_per_kg":            item.PricePerKg,
			"quantity_kgs_added":      item.QuantityKgsAdded,
			"available_quantity_kgs":  item.AvailableQuantityKgs,
			"available_quantity_bags": item.AvailableQuantityBags,
		},
		"user":    actor.payload(),
		"message": fmt.Sprintf("%s %s '%s'", actor.Name, strings.ReplaceAll(action, "_", " "), item.Name),
	})
}
