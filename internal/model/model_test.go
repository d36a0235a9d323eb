package model

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineTotal_IsExact(t *testing.T) {
	tests := []struct {
		name     string
		qty      string
		cost     string
		expected string
	}{
		{"whole kgs", "30", "40", "1200"},
		{"fractional kgs", "12.5", "38.4", "480"},
		{"tenths that floats get wrong", "0.1", "3", "0.3"},
		{"free sample", "2", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(dec(tt.qty), dec(tt.cost))
			if !got.Equal(dec(tt.expected)) {
				t.Errorf("LineTotal(%s, %s) = %s, want %s", tt.qty, tt.cost, got, tt.expected)
			}
		})
	}
}

func TestSumTotals(t *testing.T) {
	items := []BillLineItem{
		{Total: dec("1200")},
		{Total: dec("0.1")},
		{Total: dec("0.2")},
	}
	if got := SumTotals(items); !got.Equal(dec("1200.3")) {
		t.Errorf("SumTotals = %s, want 1200.3", got)
	}
	if got := SumTotals(nil); !got.IsZero() {
		t.Errorf("SumTotals(nil) = %s, want 0", got)
	}
}

func TestNameKey(t *testing.T) {
	for _, in := range []string{"jaggery", "Jaggery", "  JAGGERY ", "jaGGery\t"} {
		if got := NameKey(in); got != "jaggery" {
			t.Errorf("NameKey(%q) = %q, want jaggery", in, got)
		}
	}
}

func TestStockItem_ValuationAndSold(t *testing.T) {
	item := StockItem{
		PricePerKg:           dec("40"),
		QuantityKgsAdded:     dec("100"),
		AvailableQuantityKgs: dec("70"),
	}
	if got := item.Valuation(); !got.Equal(dec("2800")) {
		t.Errorf("Valuation = %s, want 2800", got)
	}
	if got := item.SoldKgs(); !got.Equal(dec("30")) {
		t.Errorf("SoldKgs = %s, want 30", got)
	}
}

func TestBillStatus_Valid(t *testing.T) {
	if !BillPending.Valid() || !BillPaid.Valid() {
		t.Error("pending and paid must be valid")
	}
	if BillStatus("cancelled").Valid() {
		t.Error("cancelled must not be valid")
	}
}

func TestCustomer_Password(t *testing.T) {
	var c Customer
	if c.CheckPassword("anything") {
		t.Error("customer without password must not authenticate")
	}
	if err := c.SetPassword("secret1"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !c.CheckPassword("secret1") || c.CheckPassword("secret2") {
		t.Error("password check mismatch")
	}
}

func TestLineTotal_FitsTotalColumns(t *testing.T) {
	got := LineTotal(dec("12.125"), dec("38.45"))
	if !got.Equal(dec("466.20625")) {
		t.Fatalf("LineTotal = %s, want 466.20625", got)
	}

	cache := &sync.Map{}
	for _, tt := range []struct {
		model interface{}
		field string
	}{
		{&Bill{}, "GrandTotal"},
		{&BillLineItem{}, "Total"},
	} {
		s, err := schema.Parse(tt.model, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		f := s.LookUpField(tt.field)
		if f == nil {
			t.Fatalf("%s: field missing", tt.field)
		}
		if typ := f.TagSettings["TYPE"]; typ != "decimal(20,6)" {
			t.Errorf("%s column = %s, want decimal(20,6)", tt.field, typ)
		}
	}
}
