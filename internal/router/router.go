// internal/router/router.go
package router

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/geo"
	"github.com/farmahub/farmahub-backend/internal/handlers"
	"github.com/farmahub/farmahub-backend/internal/middleware"
	"github.com/farmahub/farmahub-backend/internal/services"
)

// Initialize wires services, handlers and routes. Background work started here
// (rate limiter cleanup) stops when ctx is done.
func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot storage: %w", err)
	}

	syncService := services.NewSyncService(db, cfg.Sync, storageService)
	searchService := services.NewSearchService(db, geo.Policy{
		AverageSpeedKmh: cfg.Search.AverageSpeedKmh,
		PrepMinutes:     cfg.Search.PrepMinutes,
	})
	leadService := services.NewLeadService(db, cfg.Dashboard.Location())
	productService := services.NewProductService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	stockHandler := handlers.NewStockHandler(syncService)
	searchHandler := handlers.NewSearchHandler(searchService, cfg.Search.Currency)
	leadHandler := handlers.NewLeadHandler(leadService)
	productHandler := handlers.NewProductHandler(productService)

	limiter := middleware.NewRateLimiterFromConfig(cfg.RateLimit)
	go limiter.Cleanup(ctx)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())

	r.GET("/", healthHandler.Index)
	r.GET("/health", healthHandler.Health)

	api := r.Group("")
	api.Use(limiter.Middleware())
	{
		// Pharmacy integrations
		api.POST("/sync", stockHandler.Sync)
		api.POST("/update_stock", stockHandler.UpdateStock)

		// Client app
		api.GET("/search", searchHandler.Search)
		api.POST("/log_action", leadHandler.LogAction)

		// Catalog
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:ean", productHandler.GetProduct)
	}

	dashboard := r.Group("/dashboard")
	dashboard.Use(middleware.DashboardAuth(cfg.Dashboard.JWTSecret))
	{
		dashboard.GET("", leadHandler.Dashboard)
		dashboard.GET("/leads", leadHandler.ListLeads)
	}

	return r, nil
}
