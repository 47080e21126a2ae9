// internal/handlers/stock.go
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/farmahub/farmahub-backend/internal/i18n"
	"github.com/farmahub/farmahub-backend/internal/inventory"
	"github.com/farmahub/farmahub-backend/internal/middleware"
	"github.com/farmahub/farmahub-backend/internal/services"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

const maxSyncBodyBytes = 16 << 20

type StockHandler struct {
	syncService *services.SyncService
}

func NewStockHandler(syncService *services.SyncService) *StockHandler {
	return &StockHandler{
		syncService: syncService,
	}
}

type UpdateStockRequest struct {
	PharmacyID uint                `json:"pharmacy_id"`
	Products   []inventory.RawItem `json:"products"`
}

// syncEnvelope covers agents that wrap the batch in an object.
type syncEnvelope struct {
	Estoque []inventory.RawItem `json:"estoque"`
	Items   []inventory.RawItem `json:"items"`
}

// POST /sync
func (h *StockHandler) Sync(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	pharmacy, err := h.syncService.ResolveAPIKey(c.Request.Context(), c.GetHeader(middleware.APIKeyHeader))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Set("pharmacy_id", pharmacy.ID)

	items, err := decodeSyncBody(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySyncInvalidBatch), err.Error())
		return
	}

	result, err := h.syncService.SyncPharmacy(c.Request.Context(), pharmacy, items)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.respond(c, result)
}

// POST /update_stock
func (h *StockHandler) UpdateStock(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySyncInvalidBatch), err.Error())
		return
	}
	if req.Products == nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySyncInvalidBatch), "products is required")
		return
	}
	c.Set("pharmacy_id", req.PharmacyID)

	result, err := h.syncService.SyncByPharmacyID(c.Request.Context(), req.PharmacyID, req.Products)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.respond(c, result)
}

func (h *StockHandler) respond(c *gin.Context, result *services.SyncResult) {
	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeySyncSuccess),
		"pharmacy_id": result.PharmacyID,
		"mode":        result.Mode,
		"received":    result.Received,
		"written":     result.Written,
		"skipped":     result.Skipped,
		"synced_at":   result.SyncedAt,
	})
}

func (h *StockHandler) handleError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var conflict *services.ModeConflictError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidAPIKey))
	case errors.Is(err, services.ErrPharmacyNotFound):
		utils.NotFoundResponse(c, i18n.KeyPharmacyNotFound)
	case errors.As(err, &conflict):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeySyncModeConflict, conflict.Pinned))
	case errors.Is(err, services.ErrTooManyItems):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySyncTooManyItems, h.syncService.MaxItems()), nil)
	case errors.Is(err, services.ErrInvalidBatch):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySyncInvalidBatch), err.Error())
	default:
		logrus.WithError(err).Error("Stock sync failed")
		utils.InternalErrorResponse(c, "")
	}
}

// decodeSyncBody accepts a bare JSON array of items or an object wrapping it
// under "estoque" or "items".
func decodeSyncBody(body io.Reader) ([]inventory.RawItem, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxSyncBodyBytes))
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}

	switch data[0] {
	case '[':
		var items []inventory.RawItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var envelope syncEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, err
		}
		if envelope.Estoque != nil {
			return envelope.Estoque, nil
		}
		if envelope.Items != nil {
			return envelope.Items, nil
		}
		return nil, errors.New("expected a list of items")
	default:
		return nil, errors.New("expected a list of items")
	}
}
