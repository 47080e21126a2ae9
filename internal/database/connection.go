// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	// Connect to database
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool. SQLite allows a single writer, so one
	// connection keeps transactions from tripping over SQLITE_BUSY.
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
	}

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", cfg.Driver).Info("Database connection established")
	return db, nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	case "postgres", "":
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Pharmacy{},
		&models.Product{},
		&models.StockEntry{},
		&models.Lead{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Search only ever reads in-stock rows of one EAN
		"CREATE INDEX IF NOT EXISTS idx_stock_ean_qty ON stock(product_ean, qty)",

		// Dashboard
		"CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_leads_pharmacy_action ON leads(pharmacy_id, action_type)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// SeedInitialData provisions the demo pharmacies (São Paulo and Salvador) and
// catalog. It is idempotent.
func SeedInitialData(db *gorm.DB) error {
	logrus.Info("Seeding initial data...")

	pharmacies := []models.Pharmacy{
		{
			Name:      "Farmácia do Bairro (SP)",
			CNPJ:      ptr("12345678000199"),
			APIKey:    "key_farma_01",
			Address:   "Rua das Flores, SP",
			Latitude:  ptr(-23.5505),
			Longitude: ptr(-46.6333),
			Timezone:  ptr("America/Sao_Paulo"),
		},
		{
			Name:      "Farmácia Pelourinho (BA)",
			CNPJ:      ptr("99887766000100"),
			APIKey:    "key_salvador",
			Address:   "Largo do Pelourinho, Salvador - BA",
			Latitude:  ptr(-12.9714),
			Longitude: ptr(-38.5114),
			Timezone:  ptr("America/Bahia"),
		},
	}

	for i := range pharmacies {
		p := &pharmacies[i]
		if err := db.Where(models.Pharmacy{APIKey: p.APIKey}).FirstOrCreate(p).Error; err != nil {
			return fmt.Errorf("failed to seed pharmacy %s: %w", p.Name, err)
		}
	}

	products := []models.Product{
		{EAN: "789101010", Name: "Dipirona 500mg"},
		{EAN: "789202020", Name: "Tylenol 750mg"},
	}
	for i := range products {
		if err := db.FirstOrCreate(&products[i], models.Product{EAN: products[i].EAN}).Error; err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].EAN, err)
		}
	}

	var stockCount int64
	if err := db.Model(&models.StockEntry{}).Count(&stockCount).Error; err != nil {
		return fmt.Errorf("failed to count stock: %w", err)
	}

	if stockCount == 0 {
		now := time.Now()
		stock := []models.StockEntry{
			{PharmacyID: pharmacies[0].ID, ProductEAN: "789101010", Qty: 50, Price: decimal.RequireFromString("10.00"), LastUpdated: now},
			{PharmacyID: pharmacies[1].ID, ProductEAN: "789101010", Qty: 100, Price: decimal.RequireFromString("9.50"), LastUpdated: now},
			{PharmacyID: pharmacies[1].ID, ProductEAN: "789202020", Qty: 20, Price: decimal.RequireFromString("29.90"), LastUpdated: now},
		}
		if err := db.Create(&stock).Error; err != nil {
			return fmt.Errorf("failed to seed stock: %w", err)
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
