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

type BillService interface {
	SubmitBill(ctx context.Context, req *SubmitBillRequest, actor Actor) (*model.Bill, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.BillStatus, actor Actor) (*model.Bill, error)
	MarkPaid(ctx context.Context, id uuid.UUID, actor Actor) (*model.Bill, error)
	MarkPending(ctx context.Context, id uuid.UUID, actor Actor) (*model.Bill, error)
	GetBill(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	ListBills(ctx context.Context, filter repository.BillFilter) ([]model.Bill, error)
	ListCustomerBills(ctx context.Context, customerID uuid.UUID) ([]model.Bill, error)
}

// BillItemRequest fields are pointers so that an absent or null value fails
// validation instead of silently becoming zero.
type BillItemRequest struct {
	ProductName string           `json:"productName" validate:"required"`
	Boxes       *int             `json:"boxes" validate:"required,min=0"`
	QuantityKg  *decimal.Decimal `json:"quantityKg" validate:"required,dec_gt0,dec_scale3"`
	CostPerKg   *decimal.Decimal `json:"costPerKg" validate:"required,dec_gte0,dec_scale3"`
}

type SubmitBillRequest struct {
	CustomerID uuid.UUID         `json:"customerId" validate:"uuid_required"`
	Items      []BillItemRequest `json:"items" validate:"required,min=1,dive"`
}

type BillConfig struct {
	NumberPrefix string
}

type billService struct {
	db        *gorm.DB
	stock     repository.StockRepository
	bills     repository.BillRepository
	customers repository.CustomerRepository
	logs      repository.StockLogRepository
	events    EventPublisher
	log       *zap.Logger
	cfg       BillConfig
	now       func() time.Time
}

func NewBillService(
	db *gorm.DB,
	stock repository.StockRepository,
	bills repository.BillRepository,
	customers repository.CustomerRepository,
	logs repository.StockLogRepository,
	events EventPublisher,
	log *zap.Logger,
	cfg BillConfig,
) BillService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "BILL"
	}
	return &billService{
		db:        db,
		stock:     stock,
		bills:     bills,
		customers: customers,
		logs:      logs,
		events:    publisherOrNoop(events),
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// demand is what a bill takes from one stock item, summed over its lines.
type demand struct {
	name string
	kg   decimal.Decimal
	bags int
	item *model.StockItem
}

// aggregateDemand groups line items by normalized product name, keeping the
// order in which products first appear.
func aggregateDemand(items []BillItemRequest) []*demand {
	byKey := make(map[string]*demand)
	var ordered []*demand
	for _, it := range items {
		key := model.NameKey(it.ProductName)
		d, ok := byKey[key]
		if !ok {
			d = &demand{name: strings.TrimSpace(it.ProductName), kg: decimal.Zero}
			byKey[key] = d
			ordered = append(ordered, d)
		}
		d.kg = d.kg.Add(*it.QuantityKg)
		d.bags += *it.Boxes
	}
	return ordered
}

func (s *billService) billNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", s.cfg.NumberPrefix, at.Format("20060102"), suffix)
}

// SubmitBill validates the request against current stock and then, in one
// transaction, writes the bill, decrements stock, appends the sold log
// entries and counts the bill on the customer.
func (s *billService) SubmitBill(ctx context.Context, req *SubmitBillRequest, actor Actor) (*model.Bill, error) {
	// 1. Validate request shape
	if req == nil {
		return nil, newValidationError("items", "bill request is required")
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.ProductName) == "" {
			return nil, newValidationError(fmt.Sprintf("items[%d].productName", i), "product name is required")
		}
	}

	var (
		bill     *model.Bill
		customer *model.Customer
		demands  = aggregateDemand(req.Items)
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stock := s.stock.WithTx(tx)
		bills := s.bills.WithTx(tx)
		customers := s.customers.WithTx(tx)
		logs := s.logs.WithTx(tx)

		// 2. Customer must exist; locked so a concurrent delete waits for this bill
		var err error
		customer, err = customers.FindByIDForUpdate(ctx, req.CustomerID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCustomerNotFound
		}
		if err != nil {
			return err
		}

		// 3. Lock every stock item and check the summed demand
		for _, d := range demands {
			item, err := stock.FindByNameForUpdate(ctx, d.name)
			if errors.Is(err, repository.ErrNotFound) {
				return newValidationError("items", "product not in stock: "+d.name)
			}
			if err != nil {
				return err
			}
			if item.AvailableQuantityKgs.LessThan(d.kg) {
				return &InsufficientStockError{Product: item.Name, Available: item.AvailableQuantityKgs}
			}
			if item.AvailableQuantityBags < d.bags {
				return &InsufficientStockError{Product: item.Name, Available: decimal.NewFromInt(int64(item.AvailableQuantityBags)), Bags: true}
			}
			d.item = item
		}

		// 4. Bill with its ordered line items
		now := s.now()
		lines := make([]model.BillLineItem, len(req.Items))
		for i, it := range req.Items {
			lines[i] = model.BillLineItem{
				Position:    i + 1,
				ProductName: strings.TrimSpace(it.ProductName),
				Boxes:       *it.Boxes,
				QuantityKg:  *it.QuantityKg,
				CostPerKg:   *it.CostPerKg,
				Total:       model.LineTotal(*it.QuantityKg, *it.CostPerKg),
			}
			lines[i].CreatedBy = actor.ID
			lines[i].UpdatedBy = actor.ID
		}
		bill = &model.Bill{
			BillNumber: s.billNumber(now),
			CustomerID: customer.ID,
			Items:      lines,
			GrandTotal: model.SumTotals(lines),
			Status:     model.BillPending,
		}
		bill.CreatedAt = now
		bill.UpdatedAt = now
		bill.CreatedBy = actor.ID
		bill.UpdatedBy = actor.ID
		if err := bills.Create(ctx, bill); err != nil {
			return &LedgerError{Step: StepCreateBill, Err: err}
		}

		// 5. Conditional decrement per distinct product
		for _, d := range demands {
			err := stock.Decrement(ctx, d.item.ID, d.kg, d.bags, actor.ID)
			if errors.Is(err, repository.ErrInsufficientStock) {
				err = &InsufficientStockError{Product: d.item.Name, Available: d.item.AvailableQuantityKgs}
			}
			if err != nil {
				return &LedgerError{Step: StepDecrementStock, Err: err}
			}
			d.item.AvailableQuantityKgs = d.item.AvailableQuantityKgs.Sub(d.kg)
			d.item.AvailableQuantityBags -= d.bags
		}

		// 6. One sold entry per line item
		entries := make([]*model.StockLogEntry, len(lines))
		for i, line := range lines {
			item := demandFor(demands, line.ProductName).item
			entries[i] = &model.StockLogEntry{
				ProductID:    item.ID,
				ProductName:  item.Name,
				CustomerName: customer.Name,
				Action:       model.StockSold,
				Quantity:     line.QuantityKg,
				Bags:         line.Boxes,
				CostPerKg:    line.CostPerKg,
				ReferenceID:  bill.ID.String(),
				Remarks:      fmt.Sprintf("Sold %s KG (%d bags) at ₹%s per KG", line.QuantityKg.String(), line.Boxes, line.CostPerKg.String()),
				CreatedBy:    actor.ID,
				Timestamp:    now,
			}
		}
		if err := logs.Append(ctx, entries...); err != nil {
			return &LedgerError{Step: StepAppendLog, Err: err}
		}

		// 7. Count the bill on the customer
		if err := customers.IncrementBills(ctx, customer.ID); err != nil {
			return &LedgerError{Step: StepCountBill, Err: err}
		}
		customer.TotalBills++

		return nil
	})
	if err != nil {
		var ledgerErr *LedgerError
		if errors.As(err, &ledgerErr) {
			s.log.Warn("bill rolled back",
				zap.String("customer_id", req.CustomerID.String()),
				zap.String("step", ledgerErr.Step),
				zap.Error(ledgerErr.Err))
		}
		return nil, err
	}

	bill.Customer = customer
	s.log.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("customer_id", customer.ID.String()),
		zap.String("grand_total", bill.GrandTotal.String()),
		zap.Int("items", len(bill.Items)))

	// 8. Broadcast after commit
	s.events.Publish(ws.EventBillCreated, map[string]interface{}{
		"bill_id":     bill.ID,
		"bill_number": bill.BillNumber,
		"customer":    map[string]interface{}{"id": customer.ID, "name": customer.Name},
		"grand_total": bill.GrandTotal,
		"user":        actor.payload(),
		"message":     fmt.Sprintf("%s created bill %s for %s", actor.Name, bill.BillNumber, customer.Name),
	})
	products := make([]map[string]interface{}, len(demands))
	for i, d := range demands {
		products[i] = map[string]interface{}{
			"id":                      d.item.ID,
			"name":                    d.item.Name,
			"sold_kgs":                d.kg,
			"available_quantity_kgs":  d.item.AvailableQuantityKgs,
			"available_quantity_bags": d.item.AvailableQuantityBags,
		}
	}
	s.events.Publish(ws.EventStockUpdate, map[string]interface{}{
		"action":   "bill_created",
		"bill_id":  bill.ID,
		"products": products,
		"user":     actor.payload(),
	})

	return bill, nil
}

func demandFor(demands []*demand, productName string) *demand {
	key := model.NameKey(productName)
	for _, d := range demands {
		if model.NameKey(d.name) == key {
			return d
		}
	}
	return nil
}

func (s *billService) SetStatus(ctx context.Context, id uuid.UUID, status model.BillStatus, actor Actor) (*model.Bill, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var paidAt *time.Time
	if status == model.BillPaid {
		now := s.now()
		paidAt = &now
	}

	if err := s.bills.UpdateStatus(ctx, id, status, paidAt, actor.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}

	bill, err := s.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ws.EventBillStatus, map[string]interface{}{
		"bill_id":     bill.ID,
		"bill_number": bill.BillNumber,
		"customer_id": bill.CustomerID,
		"status":      bill.Status,
		"user":        actor.payload(),
	})

	return bill, nil
}

func (s *billService) MarkPaid(ctx context.Context, id uuid.UUID, actor Actor) (*model.Bill, error) {
	return s.SetStatus(ctx, id, model.BillPaid, actor)
}

func (s *billService) MarkPending(ctx context.Context, id uuid.UUID, actor Actor) (*model.Bill, error) {
	return s.SetStatus(ctx, id, model.BillPending, actor)
}

func (s *billService) GetBill(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	bill, err := s.bills.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBillNotFound
	}
	return bill, err
}

func (s *billService) ListBills(ctx context.Context, filter repository.BillFilter) ([]model.Bill, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.bills.FindAll(ctx, filter)
}

func (s *billService) ListCustomerBills(ctx context.Context, customerID uuid.UUID) ([]model.Bill, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return s.bills.FindAll(ctx, repository.BillFilter{CustomerID: &customerID})
}
