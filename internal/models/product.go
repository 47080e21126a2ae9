// internal/models/product.go
package models

// Product is the optional master catalog. Stock rows may reference EANs that
// are not catalogued here.
type Product struct {
	EAN          string `json:"ean" gorm:"column:ean;primaryKey;size:32"`
	Name         string `json:"name" gorm:"size:255;not null"`
	Description  string `json:"description" gorm:"type:text"`
	Manufacturer string `json:"manufacturer" gorm:"size:255"`
}

func (Product) TableName() string {
	return "products"
}
