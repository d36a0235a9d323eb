package service

import (
	"context"
	"testing"
	"time"

	"go-agency-ledger/internal/model"
)

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		period string
		want   *time.Time
		fails  bool
	}{
		{period: "", want: nil},
		{period: PeriodAll, want: nil},
		{period: PeriodToday, want: timePtr(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))},
		{period: PeriodWeek, want: timePtr(time.Date(2024, 3, 8, 14, 30, 0, 0, time.UTC))},
		{period: PeriodMonth, want: timePtr(time.Date(2024, 2, 15, 14, 30, 0, 0, time.UTC))},
		{period: "year", fails: true},
	}

	for _, tc := range cases {
		got, err := PeriodStart(tc.period, now)
		if tc.fails {
			if !isValidation(err) {
				t.Errorf("%q: err = %v, want validation error", tc.period, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.period, err)
			continue
		}
		if (got == nil) != (tc.want == nil) || (got != nil && !got.Equal(*tc.want)) {
			t.Errorf("%q: got %v, want %v", tc.period, got, tc.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestListLogs_Filters(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "jaggery")
	f.seedProduct(t, "tamarind")
	stock := f.stockService()
	ctx := context.Background()

	jaggery, err := stock.CreateStockItem(ctx, newStockReq("jaggery", "100", 10), f.actor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := stock.CreateStockItem(ctx, newStockReq("tamarind", "50", 5), f.actor); err != nil {
		t.Fatalf("create: %v", err)
	}
	customer := f.seedCustomer(t, "Ravi Traders", "9876543210")
	if _, err := f.billService().SubmitBill(ctx, &SubmitBillRequest{CustomerID: customer.ID, Items: []BillItemRequest{
		line("jaggery", 1, "10", "40"),
		line("tamarind", 1, "5", "90"),
	}}, f.actor); err != nil {
		t.Fatalf("submit: %v", err)
	}

	svc := NewStockLogService(f.logs)

	all, err := svc.ListLogs(ctx, LogQuery{Period: PeriodAll})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all = %d, want 4", len(all))
	}

	sold, err := svc.ListLogs(ctx, LogQuery{Action: model.StockSold})
	if err != nil {
		t.Fatalf("list sold: %v", err)
	}
	if len(sold) != 2 {
		t.Errorf("sold = %d, want 2", len(sold))
	}

	mine, err := svc.ListLogs(ctx, LogQuery{ProductID: &jaggery.ID})
	if err != nil {
		t.Fatalf("list product: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("jaggery entries = %d, want 2", len(mine))
	}

	if _, err := svc.ListLogs(ctx, LogQuery{Action: "moved"}); !isValidation(err) {
		t.Errorf("bad action: err = %v", err)
	}
}
