// internal/models/pharmacy.go
package models

import "github.com/farmahub/farmahub-backend/internal/geo"

type Pharmacy struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	CNPJ      *string   `json:"cnpj,omitempty" gorm:"column:cnpj;size:14;uniqueIndex"`
	APIKey    string    `json:"-" gorm:"column:api_key;size:128;uniqueIndex;not null"`
	Address   string    `json:"address" gorm:"type:text"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	SyncMode  *SyncMode `json:"sync_mode,omitempty" gorm:"type:varchar(10)"`
	// Timezone is an IANA zone name used to show the pharmacy's leads in its
	// local time. Nil falls back to the dashboard default.
	Timezone *string `json:"timezone,omitempty" gorm:"size:64"`
}

func (Pharmacy) TableName() string {
	return "pharmacies"
}

// Location is nil for pharmacies provisioned without coordinates.
func (p *Pharmacy) Location() *geo.Coordinates {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &geo.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
}
