// internal/handlers/health.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/i18n"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

const Version = "1.0.0"

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// GET /
func (h *HealthHandler) Index(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"status":  "online",
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyStatusOnline),
		"version": Version,
	})
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
			"version":  Version,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "ok",
		"version":  Version,
	})
}
