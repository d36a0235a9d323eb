package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection serializes transactions the way row locks do on postgres.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// recorder is an EventPublisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(eventType string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	db        *gorm.DB
	stock     repository.StockRepository
	bills     repository.BillRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	logs      repository.StockLogRepository
	events    *recorder
	actor     Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	return &fixture{
		db:        db,
		stock:     repository.NewStockRepo(db),
		bills:     repository.NewBillRepo(db),
		customers: repository.NewCustomerRepo(db),
		products:  repository.NewProductRepo(db),
		logs:      repository.NewStockLogRepo(db),
		events:    &recorder{},
		actor:     Actor{ID: "staff-1", Name: "Admin", Email: "admin@example.com"},
	}
}

func (f *fixture) billService() *billService {
	return NewBillService(f.db, f.stock, f.bills, f.customers, f.logs, f.events, nil, BillConfig{}).(*billService)
}

func (f *fixture) customerService() CustomerService {
	return NewCustomerService(f.db, f.customers, f.bills, f.events, nil)
}

func (f *fixture) stockService() StockService {
	return NewStockService(f.db, f.stock, f.products, f.logs, f.events, nil, decimal.NewFromInt(50))
}

func (f *fixture) seedStock(t *testing.T, name string, kgs int64, bags int, pricePerKg int64) *model.StockItem {
	t.Helper()
	item := &model.StockItem{
		Name:                  name,
		PricePerKg:            decimal.NewFromInt(pricePerKg),
		QuantityKgsAdded:      decimal.NewFromInt(kgs),
		AvailableQuantityKgs:  decimal.NewFromInt(kgs),
		AvailableQuantityBags: bags,
		ArrivalDate:           time.Now().Truncate(24 * time.Hour),
	}
	if err := f.stock.Create(context.Background(), item); err != nil {
		t.Fatalf("seed stock %s: %v", name, err)
	}
	return item
}

func (f *fixture) seedCustomer(t *testing.T, name, phone string) *model.Customer {
	t.Helper()
	c := &model.Customer{Name: name, Phone: phone, Address: "Market road"}
	if err := f.customers.Create(context.Background(), c); err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return c
}

func (f *fixture) available(t *testing.T, id interface{}) (decimal.Decimal, int) {
	t.Helper()
	var item model.StockItem
	if err := f.db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return item.AvailableQuantityKgs, item.AvailableQuantityBags
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(i int) *int { return &i }

func line(product string, boxes int, kg, cost string) BillItemRequest {
	return BillItemRequest{ProductName: product, Boxes: intp(boxes), QuantityKg: dec(kg), CostPerKg: dec(cost)}
}

func repositoryLogFilterFor(productID uuid.UUID, action ...model.StockAction) repository.LogFilter {
	filter := repository.LogFilter{ProductID: &productID}
	if len(action) > 0 {
		filter.Action = action[0]
	}
	return filter
}
