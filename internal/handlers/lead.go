// internal/handlers/lead.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/farmahub/farmahub-backend/internal/i18n"
	"github.com/farmahub/farmahub-backend/internal/services"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

type LeadHandler struct {
	leadService *services.LeadService
}

func NewLeadHandler(leadService *services.LeadService) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
	}
}

// LogActionRequest fields are all optional. A lead with gaps is still worth
// recording.
type LogActionRequest struct {
	PharmacyID uint   `json:"pharmacy_id"`
	EAN        string `json:"ean"`
	Action     string `json:"action"`
}

// POST /log_action
func (h *LeadHandler) LogAction(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req LogActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	lead, err := h.leadService.LogAction(c.Request.Context(), services.LogActionRequest{
		PharmacyID: req.PharmacyID,
		EAN:        req.EAN,
		Action:     req.Action,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to log action")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLeadRecorded),
		"lead":    lead,
	})
}

// GET /dashboard
func (h *LeadHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.leadService.Dashboard(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to build dashboard")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, dashboard)
}

// GET /dashboard/leads
func (h *LeadHandler) ListLeads(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	leads, total, err := h.leadService.ListLeads(c.Request.Context(), params)
	if err != nil {
		logrus.WithError(err).Error("Failed to list leads")
		utils.InternalErrorResponse(c, "")
		return
	}

	result := utils.CreatePaginationResult(leads, total, params)
	utils.PaginatedResponse(c, result)
}
