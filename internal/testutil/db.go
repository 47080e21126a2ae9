// internal/testutil/db.go
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/database"
	"github.com/farmahub/farmahub-backend/internal/models"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the schema applied.
// It is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := database.Initialize(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     dsn,
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { database.Close(db) })
	return db
}

// CreatePharmacy inserts a pharmacy. Pass nil coordinates for an unlocated one.
func CreatePharmacy(t testing.TB, db *gorm.DB, name, apiKey string, lat, lon *float64) *models.Pharmacy {
	t.Helper()

	p := &models.Pharmacy{
		Name:      name,
		APIKey:    apiKey,
		Address:   "Rua " + name,
		Latitude:  lat,
		Longitude: lon,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func Float(v float64) *float64 {
	return &v
}

// StockOf returns the pharmacy's stock keyed by EAN.
func StockOf(t testing.TB, db *gorm.DB, pharmacyID uint) map[string]models.StockEntry {
	t.Helper()

	var rows []models.StockEntry
	require.NoError(t, db.Where("pharmacy_id = ?", pharmacyID).Find(&rows).Error)

	out := make(map[string]models.StockEntry, len(rows))
	for _, r := range rows {
		out[r.ProductEAN] = r
	}
	return out
}

func Price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
