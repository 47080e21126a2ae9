// internal/database/connection_test.go
package database_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/database"
	"github.com/farmahub/farmahub-backend/internal/models"
	"github.com/farmahub/farmahub-backend/internal/testutil"
)

func TestSeedInitialDataIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, database.SeedInitialData(db))
	require.NoError(t, database.SeedInitialData(db))

	var pharmacies, products, stock int64
	db.Model(&models.Pharmacy{}).Count(&pharmacies)
	db.Model(&models.Product{}).Count(&products)
	db.Model(&models.StockEntry{}).Count(&stock)

	assert.Equal(t, int64(2), pharmacies)
	assert.Equal(t, int64(2), products)
	assert.Equal(t, int64(3), stock)

	var sp models.Pharmacy
	require.NoError(t, db.Where("api_key = ?", "key_farma_01").First(&sp).Error)
	require.NotNil(t, sp.Location())
	assert.InDelta(t, -23.5505, sp.Location().Latitude, 1e-9)
	require.NotNil(t, sp.Timezone)
	assert.Equal(t, "America/Sao_Paulo", *sp.Timezone)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	boom := errors.New("boom")

	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		testutil.CreatePharmacy(t, tx, "Temp", "k-temp", nil, nil)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	db.Model(&models.Pharmacy{}).Count(&count)
	assert.Zero(t, count)
}

func TestStockPrimaryKeyIsComposite(t *testing.T) {
	db := testutil.NewDB(t)
	p := testutil.CreatePharmacy(t, db, "A", "k1", nil, nil)

	row := models.StockEntry{PharmacyID: p.ID, ProductEAN: "123", Qty: 1, Price: testutil.Price("1.00")}
	require.NoError(t, db.Create(&row).Error)

	dup := row
	assert.Error(t, db.Create(&dup).Error)
}

func TestSeedInitialDataReportsStockCountFailure(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.StockEntry{}))

	err := database.SeedInitialData(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count stock")
}
