package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StockAction string

const (
	StockAdded StockAction = "added"
	StockSold  StockAction = "sold"
)

// StockLogEntry is an append-only audit record. Nothing updates or deletes it.
type StockLogEntry struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`
	CustomerName string          `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	Action       StockAction     `gorm:"type:varchar(10);not null;index" json:"action"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Bags         int             `gorm:"not null;default:0" json:"bags"`
	CostPerKg    decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"cost_per_kg"`
	ReferenceID  string          `gorm:"type:varchar(64);index" json:"reference_id"`
	Remarks      string          `gorm:"type:text" json:"remarks"`
	CreatedBy    string          `json:"created_by"`
	Timestamp    time.Time       `gorm:"not null;index" json:"timestamp"`
}

func (StockLogEntry) TableName() string {
	return "stock_logs"
}

func (e *StockLogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return nil
}
