// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/models"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

var ErrProductNotFound = errors.New("product not found")

// ProductService reads the master catalog. Catalog rows are provisioned out of
// band; sync never creates them.
type ProductService struct {
	db *gorm.DB
}

type ProductSearchParams struct {
	utils.PaginationParams
	Search  string `json:"search,omitempty"`
	InStock bool   `json:"in_stock,omitempty"`
}

// CatalogEntry is a catalog product with the number of pharmacies currently
// holding it.
type CatalogEntry struct {
	EAN          string `json:"ean"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Pharmacies   int64  `json:"pharmacies_in_stock"`
}

const inStockCount = "(SELECT COUNT(*) FROM stock st WHERE st.product_ean = products.ean AND st.qty > 0)"

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) GetProduct(ctx context.Context, ean string) (*CatalogEntry, error) {
	var entry CatalogEntry
	err := s.catalogQuery(ctx).
		Where("products.ean = ?", strings.TrimSpace(ean)).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}

	return &entry, nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]CatalogEntry, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR ean LIKE ? OR LOWER(manufacturer) LIKE ?", searchTerm, searchTerm, searchTerm)
	}

	if params.InStock {
		query = query.Where(inStockCount + " > 0")
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	sortField := "name"
	if params.Sort == "ean" {
		sortField = "ean"
	}
	order := "asc"
	if params.Order == "desc" {
		order = "desc"
	}

	var entries []CatalogEntry
	err := utils.ApplyPagination(query, params.PaginationParams).
		Select("products.ean, products.name, products.description, products.manufacturer, " + inStockCount + " AS pharmacies").
		Order(sortField + " " + order).
		Order("ean").
		Scan(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return entries, total, nil
}

func (s *ProductService) catalogQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.ean, products.name, products.description, products.manufacturer, " + inStockCount + " AS pharmacies")
}
