package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
)

func (s BillStatus) Valid() bool {
	return s == BillPending || s == BillPaid
}

// Bill content is fixed at creation; only Status (and PaidAt) change afterwards.
type Bill struct {
	BaseModel
	BillNumber string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"bill_number"`
	CustomerID uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items      []BillLineItem  `gorm:"foreignKey:BillID" json:"items"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"grand_total"`
	Status     BillStatus      `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

// BillLineItem snapshots the price at bill creation; Total = QuantityKg * CostPerKg.
type BillLineItem struct {
	BaseModel
	BillID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"bill_id"`
	Position    int             `gorm:"not null" json:"position"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Boxes       int             `gorm:"not null" json:"boxes"`
	QuantityKg  decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity_kg"`
	CostPerKg   decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"cost_per_kg"`
	Total       decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"total"`
}

func (BillLineItem) TableName() string {
	return "bill_items"
}

// LineTotal is the exact product of quantity and per-kg cost. With both inputs
// at three decimal places the product fits the six-place total columns.
func LineTotal(quantityKg, costPerKg decimal.Decimal) decimal.Decimal {
	return quantityKg.Mul(costPerKg)
}

// SumTotals adds up line totals.
func SumTotals(items []BillLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}
