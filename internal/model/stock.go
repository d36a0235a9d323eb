package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem is the sellable balance of one trade name.
// 0 <= AvailableQuantityKgs <= QuantityKgsAdded and AvailableQuantityBags >= 0 at all times.
type StockItem struct {
	BaseModel
	Name                  string          `gorm:"type:varchar(255);not null" json:"name"`
	NameKey               string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	PricePerKg            decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"price_per_kg"`
	QuantityKgsAdded      decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"quantity_kgs_added"`
	AvailableQuantityKgs  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"available_quantity_kgs"`
	AvailableQuantityBags int             `gorm:"not null;default:0" json:"available_quantity_bags"`
	ArrivalDate           time.Time       `gorm:"type:date" json:"arrival_date"`
}

// Valuation is the sale value of the remaining balance.
func (s *StockItem) Valuation() decimal.Decimal {
	return s.AvailableQuantityKgs.Mul(s.PricePerKg)
}

// SoldKgs is how much of the added quantity has left the store.
func (s *StockItem) SoldKgs() decimal.Decimal {
	return s.QuantityKgsAdded.Sub(s.AvailableQuantityKgs)
}
