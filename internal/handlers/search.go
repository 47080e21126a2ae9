// internal/handlers/search.go
package handlers

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/farmahub/farmahub-backend/internal/geo"
	"github.com/farmahub/farmahub-backend/internal/i18n"
	"github.com/farmahub/farmahub-backend/internal/services"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

var errInvalidCoordinates = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")

type SearchHandler struct {
	searchService *services.SearchService
	currency      string
}

func NewSearchHandler(searchService *services.SearchService, currency string) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		currency:      currency,
	}
}

type OfferView struct {
	PharmacyID   uint      `json:"pharmacy_id"`
	PharmacyName string    `json:"pharmacy_name"`
	Address      string    `json:"address"`
	ProductName  string    `json:"product_name,omitempty"`
	EAN          string    `json:"ean"`
	Quantity     int       `json:"quantity"`
	Price        string    `json:"price"`
	PriceDisplay string    `json:"price_display"`
	DistanceKm   *float64  `json:"distance_km"`
	ETAMinutes   *int      `json:"eta_minutes"`
	DistanceText string    `json:"distance_text"`
	ETAText      string    `json:"eta_text"`
	LastUpdated  time.Time `json:"last_updated"`
}

// GET /search?ean=&lat=&lon=
func (h *SearchHandler) Search(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	ean := strings.TrimSpace(c.Query("ean"))
	if ean == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySearchEANRequired), nil)
		return
	}

	from, err := parseCoordinates(c.Query("lat"), c.Query("lon"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeySearchInvalidCoordinate), err.Error())
		return
	}

	offers, err := h.searchService.Search(c.Request.Context(), ean, from)
	if err != nil {
		logrus.WithError(err).WithField("ean", ean).Error("Search failed")
		utils.InternalErrorResponse(c, "")
		return
	}

	views := make([]OfferView, 0, len(offers))
	for _, offer := range offers {
		views = append(views, h.offerView(lang, ean, offer))
	}

	message := i18n.T(lang, i18n.KeySearchNoResults)
	if len(views) > 0 {
		message = i18n.T(lang, i18n.KeySearchResultsFound, len(views))
	}

	utils.SuccessResponse(c, gin.H{
		"ean":        ean,
		"message":    message,
		"eta_notice": i18n.T(lang, i18n.KeySearchETANotice),
		"results":    views,
	})
}

func (h *SearchHandler) offerView(lang, ean string, offer services.Offer) OfferView {
	price := offer.Price.StringFixed(2)
	view := OfferView{
		PharmacyID:   offer.PharmacyID,
		PharmacyName: offer.PharmacyName,
		Address:      offer.Address,
		ProductName:  offer.ProductName,
		EAN:          ean,
		Quantity:     offer.Quantity,
		Price:        price,
		PriceDisplay: strings.TrimSpace(h.currency + " " + price),
		DistanceText: i18n.T(lang, i18n.KeySearchDistanceUnknown),
		ETAText:      i18n.T(lang, i18n.KeySearchETAUnknown),
		LastUpdated:  offer.LastUpdated,
	}

	if offer.Estimate.Known {
		distance := math.Round(offer.Estimate.DistanceKm*100) / 100
		eta := offer.Estimate.ETAMinutes
		view.DistanceKm = &distance
		view.ETAMinutes = &eta
		view.DistanceText = offer.Estimate.DistanceText()
		view.ETAText = offer.Estimate.ETAText()
	}

	return view
}

// parseCoordinates returns nil unless both values are present. A value that is
// present but not an in-range number is an error.
func parseCoordinates(latStr, lonStr string) (*geo.Coordinates, error) {
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)
	if latStr == "" || lonStr == "" {
		if latStr != "" || lonStr != "" {
			logrus.Debug("Ignoring partial requester coordinates")
		}
		return nil, nil
	}

	lat, err := strconv.ParseFloat(strings.Replace(latStr, ",", ".", 1), 64)
	if err != nil {
		return nil, err
	}
	lon, err := strconv.ParseFloat(strings.Replace(lonStr, ",", ".", 1), 64)
	if err != nil {
		return nil, err
	}

	coords := geo.Coordinates{Latitude: lat, Longitude: lon}
	if !coords.Valid() {
		return nil, errInvalidCoordinates
	}
	return &coords, nil
}
