package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/ws"
)

func TestSubmitBill_Jaggery(t *testing.T) {
	f := newFixture(t)
	jaggery := f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	bill, err := f.billService().SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 3, "30", "40")},
	}, f.actor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !bill.GrandTotal.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("grand total = %s, want 1200", bill.GrandTotal)
	}
	if bill.Status != model.BillPending {
		t.Errorf("status = %s, want pending", bill.Status)
	}

	kgs, bags := f.available(t, jaggery.ID)
	if !kgs.Equal(decimal.NewFromInt(70)) || bags != 7 {
		t.Errorf("available = %s kg / %d bags, want 70 / 7", kgs, bags)
	}

	var entries []model.StockLogEntry
	if err := f.db.Find(&entries).Error; err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != model.StockSold || !e.Quantity.Equal(decimal.NewFromInt(30)) || e.Bags != 3 {
		t.Errorf("unexpected log entry %+v", e)
	}
	if e.ReferenceID != bill.ID.String() || e.CustomerName != "Ravi Traders" || e.ProductID != jaggery.ID {
		t.Errorf("log entry not linked: %+v", e)
	}
	if e.Remarks != "Sold 30 KG (3 bags) at ₹40 per KG" {
		t.Errorf("remarks = %q", e.Remarks)
	}

	reloaded, err := f.customers.FindByID(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	if reloaded.TotalBills != 1 {
		t.Errorf("total bills = %d, want 1", reloaded.TotalBills)
	}

	got := f.events.types()
	if len(got) != 2 || got[0] != ws.EventBillCreated || got[1] != ws.EventStockUpdate {
		t.Errorf("events = %v", got)
	}
}

func TestSubmitBill_StoresOrderedLines(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "jaggery", 100, 10, 38)
	f.seedStock(t, "tamarind", 50, 5, 90)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	bill, err := f.billService().SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items: []BillItemRequest{
			line("tamarind", 1, "12.5", "38.4"),
			line("Jaggery", 2, "20", "40"),
		},
	}, f.actor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored, err := f.billService().GetBill(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(stored.Items))
	}
	if stored.Items[0].ProductName != "tamarind" || stored.Items[1].ProductName != "Jaggery" {
		t.Errorf("order lost: %s, %s", stored.Items[0].ProductName, stored.Items[1].ProductName)
	}
	if !stored.Items[0].Total.Equal(decimal.NewFromInt(480)) {
		t.Errorf("line total = %s, want 480", stored.Items[0].Total)
	}
	if !stored.GrandTotal.Equal(decimal.NewFromInt(1280)) {
		t.Errorf("grand total = %s, want 1280", stored.GrandTotal)
	}
	if stored.Customer == nil || stored.Customer.ID != customer.ID {
		t.Errorf("customer not preloaded")
	}
}

func TestSubmitBill_InsufficientStockWritesNothing(t *testing.T) {
	f := newFixture(t)
	jaggery := f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	_, err := f.billService().SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 3, "120", "40")},
	}, f.actor)

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if !errors.Is(err, repository.ErrInsufficientStock) {
		t.Errorf("error does not match ErrInsufficientStock")
	}
	if err.Error() != "insufficient stock for jaggery. Available: 100" {
		t.Errorf("message = %q", err.Error())
	}

	kgs, _ := f.available(t, jaggery.ID)
	if !kgs.Equal(decimal.NewFromInt(100)) {
		t.Errorf("available = %s, want 100", kgs)
	}
	if n := f.count(t, &model.Bill{}); n != 0 {
		t.Errorf("bills = %d, want 0", n)
	}
	if n := f.count(t, &model.StockLogEntry{}); n != 0 {
		t.Errorf("log entries = %d, want 0", n)
	}
	if len(f.events.types()) != 0 {
		t.Errorf("events published on failure: %v", f.events.types())
	}
}

func TestSubmitBill_SumsLinesOfSameProduct(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	_, err := f.billService().SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items: []BillItemRequest{
			line("jaggery", 1, "60", "40"),
			line("JAGGERY", 1, "60", "40"),
		},
	}, f.actor)
	if !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
}

func TestSubmitBill_ChecksBags(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "jaggery", 100, 2, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	_, err := f.billService().SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 3, "10", "40")},
	}, f.actor)
	if !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
}

func TestSubmitBill_RejectsBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	jaggery := f.seedStock(t, "jaggery", 100, 10, 38)
	f.seedStock(t, "tamarind", 5, 1, 90)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	missingBoxes := line("jaggery", 1, "10", "40")
	missingBoxes.Boxes = nil

	cases := []struct {
		name  string
		req   *SubmitBillRequest
		check func(error) bool
	}{
		{
			name:  "no items",
			req:   &SubmitBillRequest{CustomerID: customer.ID},
			check: isValidation,
		},
		{
			name:  "missing boxes",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{missingBoxes}},
			check: isValidation,
		},
		{
			name:  "blank product",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{line("  ", 1, "10", "40")}},
			check: isValidation,
		},
		{
			name:  "zero quantity",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{line("jaggery", 1, "0", "40")}},
			check: isValidation,
		},
		{
			name:  "negative cost",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{line("jaggery", 1, "10", "-1")}},
			check: isValidation,
		},
		{
			name:  "quantity past three places",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{line("jaggery", 1, "0.0004", "40")}},
			check: isValidation,
		},
		{
			name:  "cost past three places",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{line("jaggery", 1, "10", "38.4501")}},
			check: isValidation,
		},
		{
			name:  "unknown product",
			req:   &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{line("ghee", 1, "10", "40")}},
			check: isValidation,
		},
		{
			name:  "unknown customer",
			req:   &SubmitBillRequest{CustomerID: uuid.New(), Items: []BillItemRequest{line("jaggery", 1, "10", "40")}},
			check: func(err error) bool { return errors.Is(err, ErrCustomerNotFound) },
		},
		{
			name: "second product short",
			req: &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{
				line("jaggery", 1, "10", "40"),
				line("tamarind", 1, "10", "90"),
			}},
			check: func(err error) bool { return errors.Is(err, repository.ErrInsufficientStock) },
		},
	}

	svc := f.billService()
	for _, tc := range cases {
		_, err := svc.SubmitBill(context.Background(), tc.req, f.actor)
		if err == nil || !tc.check(err) {
			t.Errorf("%s: unexpected err %v", tc.name, err)
		}
	}

	kgs, bags := f.available(t, jaggery.ID)
	if !kgs.Equal(decimal.NewFromInt(100)) || bags != 10 {
		t.Errorf("available = %s / %d, want untouched", kgs, bags)
	}
	if n := f.count(t, &model.Bill{}); n != 0 {
		t.Errorf("bills = %d, want 0", n)
	}
	if n := f.count(t, &model.StockLogEntry{}); n != 0 {
		t.Errorf("log entries = %d, want 0", n)
	}
}

func TestSubmitBill_KeepsFullPrecisionTotals(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")
	ctx := context.Background()

	_, err := f.billService().SubmitBill(ctx, &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 1, "12.125", "38.45"), line("jaggery", 1, "0.0004", "40")},
	}, f.actor)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Tag != "dec_scale3" {
		t.Fatalf("sub-gram line: err = %v, want dec_scale3 validation error", err)
	}

	bill, err := f.billService().SubmitBill(ctx, &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 1, "12.125", "38.45")},
	}, f.actor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := decimal.RequireFromString("466.20625")
	if !bill.GrandTotal.Equal(want) || !bill.Items[0].Total.Equal(want) {
		t.Errorf("totals = %s / %s, want %s", bill.GrandTotal, bill.Items[0].Total, want)
	}

	var stored model.Bill
	if err := f.db.Preload("Items").First(&stored, "id = ?", bill.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.GrandTotal.Equal(want) || !stored.Items[0].Total.Equal(want) {
		t.Errorf("stored totals = %s / %s, want %s", stored.GrandTotal, stored.Items[0].Total, want)
	}
	if n := f.count(t, &model.Bill{}); n != 1 {
		t.Errorf("bills = %d, want 1", n)
	}
}

func isValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func TestSubmitBill_ConcurrentRequestsNeverOversell(t *testing.T) {
	f := newFixture(t)
	jaggery := f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")
	svc := f.billService()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitBill(context.Background(), &SubmitBillRequest{
				CustomerID: customer.ID,
				Items:      []BillItemRequest{line("jaggery", 1, "60", "40")},
			}, f.actor)
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repository.ErrInsufficientStock):
			short++
		default:
			t.Errorf("unexpected err %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Fatalf("ok = %d, insufficient = %d, want 1 and 1", ok, short)
	}

	kgs, _ := f.available(t, jaggery.ID)
	if !kgs.Equal(decimal.NewFromInt(40)) {
		t.Errorf("available = %s, want 40", kgs)
	}
	if n := f.count(t, &model.Bill{}); n != 1 {
		t.Errorf("bills = %d, want 1", n)
	}
}

// brokenLogs fails every append, to force a rollback after the bill insert.
type brokenLogs struct {
	repository.StockLogRepository
}

func (b brokenLogs) WithTx(*gorm.DB) repository.StockLogRepository { return b }

func (b brokenLogs) Append(context.Context, ...*model.StockLogEntry) error {
	return errors.New("disk full")
}

func TestSubmitBill_WriteFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	jaggery := f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")

	svc := NewBillService(f.db, f.stock, f.bills, f.customers, brokenLogs{f.logs}, f.events, nil, BillConfig{})
	_, err := svc.SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 3, "30", "40")},
	}, f.actor)

	if !errors.Is(err, ErrLedgerRolledBack) {
		t.Fatalf("err = %v, want ErrLedgerRolledBack", err)
	}
	var ledgerErr *LedgerError
	if !errors.As(err, &ledgerErr) || ledgerErr.Step != StepAppendLog {
		t.Errorf("step = %v, want %q", ledgerErr, StepAppendLog)
	}

	kgs, bags := f.available(t, jaggery.ID)
	if !kgs.Equal(decimal.NewFromInt(100)) || bags != 10 {
		t.Errorf("available = %s / %d, want 100 / 10", kgs, bags)
	}
	if n := f.count(t, &model.Bill{}); n != 0 {
		t.Errorf("bills = %d, want 0", n)
	}
	if n := f.count(t, &model.BillLineItem{}); n != 0 {
		t.Errorf("bill items = %d, want 0", n)
	}
	reloaded, _ := f.customers.FindByID(context.Background(), customer.ID)
	if reloaded.TotalBills != 0 {
		t.Errorf("total bills = %d, want 0", reloaded.TotalBills)
	}
}

func TestSetStatus_TogglesPaid(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "jaggery", 100, 10, 38)
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")
	svc := f.billService()

	bill, err := svc.SubmitBill(context.Background(), &SubmitBillRequest{
		CustomerID: customer.ID,
		Items:      []BillItemRequest{line("jaggery", 1, "5", "40")},
	}, f.actor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	paid, err := svc.MarkPaid(context.Background(), bill.ID, f.actor)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != model.BillPaid || paid.PaidAt == nil {
		t.Errorf("after paid: status %s, paid_at %v", paid.Status, paid.PaidAt)
	}

	pending, err := svc.MarkPending(context.Background(), bill.ID, f.actor)
	if err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	if pending.Status != model.BillPending || pending.PaidAt != nil {
		t.Errorf("after pending: status %s, paid_at %v", pending.Status, pending.PaidAt)
	}
	if !pending.GrandTotal.Equal(bill.GrandTotal) || len(pending.Items) != 1 {
		t.Errorf("status change touched bill content")
	}

	if _, err := svc.MarkPaid(context.Background(), uuid.New(), f.actor); !errors.Is(err, ErrBillNotFound) {
		t.Errorf("unknown bill: err = %v, want ErrBillNotFound", err)
	}
	if _, err := svc.SetStatus(context.Background(), bill.ID, "void", f.actor); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad status: err = %v, want ErrInvalidStatus", err)
	}
}

func TestListBills_Filters(t *testing.T) {
	f := newFixture(t)
	f.seedStock(t, "jaggery", 100, 10, 38)
	ravi := f.seedCustomer(t, "Ravi Traders", "9876543210")
	amit := f.seedCustomer(t, "Amit Stores", "9123456780")
	svc := f.billService()

	for _, c := range []*model.Customer{ravi, ravi, amit} {
		if _, err := svc.SubmitBill(context.Background(), &SubmitBillRequest{
			CustomerID: c.ID,
			Items:      []BillItemRequest{line("jaggery", 1, "5", "40")},
		}, f.actor); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	bills, err := svc.ListCustomerBills(context.Background(), ravi.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 2 {
		t.Errorf("ravi bills = %d, want 2", len(bills))
	}

	if _, err := svc.MarkPaid(context.Background(), bills[0].ID, f.actor); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	pending, err := svc.ListBills(context.Background(), repository.BillFilter{Status: model.BillPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}

	if _, err := svc.ListCustomerBills(context.Background(), uuid.New()); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("err = %v, want ErrCustomerNotFound", err)
	}
}

func TestAggregateDemand_GroupsByNameKey(t *testing.T) {
	got := aggregateDemand([]BillItemRequest{
		line("Jaggery", 1, "10", "40"),
		line("tamarind", 2, "5", "90"),
		line(" jaggery ", 3, "2.5", "41"),
	})
	if len(got) != 2 {
		t.Fatalf("groups = %d, want 2", len(got))
	}
	if got[0].name != "Jaggery" || !got[0].kg.Equal(decimal.RequireFromString("12.5")) || got[0].bags != 4 {
		t.Errorf("jaggery group = %+v", got[0])
	}
	if got[1].name != "tamarind" || got[1].bags != 2 {
		t.Errorf("tamarind group = %+v", got[1])
	}
}
