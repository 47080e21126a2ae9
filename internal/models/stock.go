// internal/models/stock.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockEntry holds one pharmacy's quantity and price for one EAN. The composite
// primary key keeps at most one row per pair.
type StockEntry struct {
	PharmacyID  uint            `json:"pharmacy_id" gorm:"primaryKey;autoIncrement:false"`
	ProductEAN  string          `json:"product_ean" gorm:"column:product_ean;primaryKey;size:32"`
	Qty         int             `json:"qty" gorm:"column:qty;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	LastUpdated time.Time       `json:"last_updated" gorm:"column:last_updated;not null"`
}

func (StockEntry) TableName() string {
	return "stock"
}
