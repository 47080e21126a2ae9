// internal/services/search_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/geo"
	"github.com/farmahub/farmahub-backend/internal/models"
)

type SearchService struct {
	db     *gorm.DB
	policy geo.Policy
}

// Offer is one pharmacy currently holding the searched product.
type Offer struct {
	PharmacyID   uint
	PharmacyName string
	Address      string
	ProductName  string
	Quantity     int
	Price        decimal.Decimal
	LastUpdated  time.Time
	Estimate     geo.Estimate
}

type offerRow struct {
	PharmacyID   uint
	PharmacyName string
	Address      string
	Latitude     *float64
	Longitude    *float64
	ProductName  *string
	Qty          int
	Price        decimal.Decimal
	LastUpdated  time.Time
}

func NewSearchService(db *gorm.DB, policy geo.Policy) *SearchService {
	return &SearchService{
		db:     db,
		policy: policy,
	}
}

// Search lists in-stock offers for ean. With requester coordinates the offers
// are ordered by distance (ties by pharmacy id) and pharmacies without
// coordinates come last; without them the order is by pharmacy id.
func (s *SearchService) Search(ctx context.Context, ean string, from *geo.Coordinates) ([]Offer, error) {
	ean = strings.TrimSpace(ean)

	var rows []offerRow
	err := s.db.WithContext(ctx).
		Table("stock AS st").
		Select("ph.id AS pharmacy_id, ph.name AS pharmacy_name, ph.address, ph.latitude, ph.longitude, " +
			"pr.name AS product_name, st.qty, st.price, st.last_updated").
		Joins("JOIN pharmacies ph ON ph.id = st.pharmacy_id").
		Joins("LEFT JOIN products pr ON pr.ean = st.product_ean").
		Where("st.product_ean = ? AND st.qty > ?", ean, 0).
		Order("ph.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search stock: %w", err)
	}

	offers := make([]Offer, 0, len(rows))
	for _, row := range rows {
		offer := Offer{
			PharmacyID:   row.PharmacyID,
			PharmacyName: row.PharmacyName,
			Address:      row.Address,
			Quantity:     row.Qty,
			Price:        row.Price,
			LastUpdated:  row.LastUpdated,
			Estimate:     geo.Unknown(),
		}
		if row.ProductName != nil {
			offer.ProductName = *row.ProductName
		}
		if from != nil {
			pharmacy := models.Pharmacy{Latitude: row.Latitude, Longitude: row.Longitude}
			offer.Estimate = s.policy.Estimate(from, pharmacy.Location())
		}
		offers = append(offers, offer)
	}

	if from != nil {
		rankOffers(offers)
	}

	return offers, nil
}

func rankOffers(offers []Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i].Estimate, offers[j].Estimate
		if a.Less(b) {
			return true
		}
		if b.Less(a) {
			return false
		}
		return offers[i].PharmacyID < offers[j].PharmacyID
	})
}
