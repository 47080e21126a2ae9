// internal/handlers/product.go
package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/farmahub/farmahub-backend/internal/i18n"
	"github.com/farmahub/farmahub-backend/internal/services"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	if c.Query("sort") == "" {
		params.Sort = "name"
		params.Order = "asc"
	}

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Search:           strings.TrimSpace(c.Query("q")),
	}

	if inStockStr := c.Query("in_stock"); inStockStr != "" {
		if inStock, err := strconv.ParseBool(inStockStr); err == nil {
			searchParams.InStock = inStock
		}
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		logrus.WithError(err).Error("Failed to search catalog")
		utils.InternalErrorResponse(c, "")
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/:ean
func (h *ProductHandler) GetProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	ean := c.Param("ean")

	if err := utils.ValidateVar(ean, "required,ean"); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "EAN"), nil)
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), ean)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, i18n.KeyProductNotFound)
			return
		}
		logrus.WithError(err).WithField("ean", ean).Error("Failed to fetch product")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}
