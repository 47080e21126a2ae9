// internal/models/lead.go
package models

import "time"

// Lead is an append-only record of a client interaction.
type Lead struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	PharmacyID uint       `json:"pharmacy_id" gorm:"index"`
	ProductEAN string     `json:"product_ean" gorm:"column:product_ean;size:32"`
	ActionType LeadAction `json:"action_type" gorm:"column:action_type;type:varchar(50)"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Lead) TableName() string {
	return "leads"
}
