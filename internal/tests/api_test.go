// internal/tests/api_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/i18n"
	"github.com/farmahub/farmahub-backend/internal/models"
	"github.com/farmahub/farmahub-backend/internal/router"
	"github.com/farmahub/farmahub-backend/internal/testutil"
	"github.com/farmahub/farmahub-backend/internal/utils"
)

const dashboardSecret = "test-dashboard-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		Details   json.RawMessage `json:"details"`
		RequestID string          `json:"request_id"`
	} `json:"error"`
}

type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	cancel context.CancelFunc
	cfg    *config.Config
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("pt_BR"))
}

func (suite *APITestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.cfg = &config.Config{
		Environment: "test",
		Sync:        config.SyncConfig{Mode: "merge", EnforceSingleMode: true, MaxItems: 50},
		Search:      config.SearchConfig{AverageSpeedKmh: 20, PrepMinutes: 10, Currency: "R$"},
		Dashboard:   config.DashboardConfig{JWTSecret: dashboardSecret, Timezone: "America/Sao_Paulo"},
		RateLimit:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	suite.rebuildRouter()
}

func (suite *APITestSuite) rebuildRouter() {
	if suite.cancel != nil {
		suite.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel

	r, err := router.Initialize(ctx, suite.db, suite.cfg)
	suite.Require().NoError(err)
	suite.router = r
}

func (suite *APITestSuite) TearDownTest() {
	if suite.cancel != nil {
		suite.cancel()
		suite.cancel = nil
	}
}

func (suite *APITestSuite) do(method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (suite *APITestSuite) adminToken(role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, utils.DashboardClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(dashboardSecret))
	suite.Require().NoError(err)
	return "Bearer " + signed
}

type searchData struct {
	Message   string `json:"message"`
	ETANotice string `json:"eta_notice"`
	Results   []struct {
		PharmacyID   uint     `json:"pharmacy_id"`
		Quantity     int      `json:"quantity"`
		Price        string   `json:"price"`
		PriceDisplay string   `json:"price_display"`
		DistanceKm   *float64 `json:"distance_km"`
		ETAMinutes   *int     `json:"eta_minutes"`
		DistanceText string   `json:"distance_text"`
		ETAText      string   `json:"eta_text"`
	} `json:"results"`
}

func (suite *APITestSuite) search(query string) searchData {
	w, env := suite.do(http.MethodGet, "/search?"+query, nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data searchData
	suite.Require().NoError(json.Unmarshal(env.Data, &data))
	return data
}

func (suite *APITestSuite) TestSyncThenSearch() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Farmácia Centro", "k1",
		testutil.Float(-12.9714), testutil.Float(-38.5114))

	w, env := suite.do(http.MethodPost, "/sync",
		`[{"ean":"789","qty":5,"price":10.0},{"ean":"790","qty":0,"price":3}]`,
		map[string]string{"X-API-KEY": "k1"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.True(suite.T(), env.Success)

	var result struct {
		PharmacyID uint   `json:"pharmacy_id"`
		Mode       string `json:"mode"`
		Written    int    `json:"written"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &result))
	assert.Equal(suite.T(), ph.ID, result.PharmacyID)
	assert.Equal(suite.T(), "merge", result.Mode)
	assert.Equal(suite.T(), 2, result.Written)

	data := suite.search("ean=789&lat=-12.9534&lon=-38.5114")
	suite.Require().Len(data.Results, 1)
	offer := data.Results[0]
	assert.Equal(suite.T(), ph.ID, offer.PharmacyID)
	assert.Equal(suite.T(), 5, offer.Quantity)
	assert.Equal(suite.T(), "10.00", offer.Price)
	assert.Equal(suite.T(), "R$ 10.00", offer.PriceDisplay)
	suite.Require().NotNil(offer.DistanceKm)
	assert.InDelta(suite.T(), 2.0, *offer.DistanceKm, 0.01)
	suite.Require().NotNil(offer.ETAMinutes)
	assert.Equal(suite.T(), 16, *offer.ETAMinutes)
	assert.Equal(suite.T(), "~16 min", offer.ETAText)
	assert.NotEmpty(suite.T(), data.ETANotice)

	// qty 0 rows are stored but never offered
	assert.Empty(suite.T(), suite.search("ean=790").Results)
}

func (suite *APITestSuite) TestReplaceSyncThenSearch() {
	suite.cfg.Sync.Mode = "replace"
	suite.rebuildRouter()
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)
	key := map[string]string{"X-API-KEY": "k1"}

	w, env := suite.do(http.MethodPost, "/sync", `[{"ean":"123","qty":50,"price":10.00}]`, key)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Contains(suite.T(), string(env.Data), `"mode":"replace"`)

	data := suite.search("ean=123")
	suite.Require().Len(data.Results, 1)
	assert.Equal(suite.T(), ph.ID, data.Results[0].PharmacyID)
	assert.Equal(suite.T(), 50, data.Results[0].Quantity)
	assert.Equal(suite.T(), "10.00", data.Results[0].Price)

	w, _ = suite.do(http.MethodPost, "/sync", `[{"ean":"123","qty":0,"price":10.00}]`, key)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Empty(suite.T(), suite.search("ean=123").Results)
}

func (suite *APITestSuite) TestSyncAcceptsEstoqueEnvelope() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)

	w, _ := suite.do(http.MethodPost, "/sync",
		map[string]interface{}{"estoque": []map[string]interface{}{{"ean": "789101010", "qty": 12, "price": 10.5}}},
		map[string]string{"X-API-KEY": "k1"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	stock := testutil.StockOf(suite.T(), suite.db, ph.ID)
	assert.Equal(suite.T(), 12, stock["789101010"].Qty)
}

func (suite *APITestSuite) TestSyncUnauthorized() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)
	suite.Require().NoError(suite.db.Create(&models.StockEntry{
		PharmacyID: ph.ID, ProductEAN: "789", Qty: 1, Price: testutil.Price("1"), LastUpdated: time.Now(),
	}).Error)

	for _, headers := range []map[string]string{nil, {"X-API-KEY": "wrong"}} {
		w, env := suite.do(http.MethodPost, "/sync", `[]`, headers)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
		suite.Require().NotNil(env.Error)
		assert.Equal(suite.T(), "UNAUTHORIZED", env.Error.Code)
	}

	assert.Len(suite.T(), testutil.StockOf(suite.T(), suite.db, ph.ID), 1)
}

func (suite *APITestSuite) TestSyncStructurallyInvalid() {
	testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)

	for _, body := range []string{``, `{"foo":1}`, `"text"`, `[1,2]`, `[{"ean":`} {
		w, _ := suite.do(http.MethodPost, "/sync", body, map[string]string{"X-API-KEY": "k1"})
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, body)
	}
}

func (suite *APITestSuite) TestSyncTooManyItems() {
	testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)

	items := make([]map[string]interface{}, 51)
	for i := range items {
		items[i] = map[string]interface{}{"ean": "1", "qty": 1, "price": 1}
	}
	w, env := suite.do(http.MethodPost, "/sync", items, map[string]string{"X-API-KEY": "k1"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	suite.Require().NotNil(env.Error)
	assert.Contains(suite.T(), env.Error.Message, "50")
}

func (suite *APITestSuite) TestSyncReportsSkippedRows() {
	testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)

	w, env := suite.do(http.MethodPost, "/sync",
		`[{"ean":"1","qty":1,"price":1},{"ean":"2","qty":"abc","price":1},{"ean":"3","qty":1,"price":1}]`,
		map[string]string{"X-API-KEY": "k1"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var result struct {
		Written int `json:"written"`
		Skipped []struct {
			Index int    `json:"index"`
			Field string `json:"field"`
		} `json:"skipped"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &result))
	assert.Equal(suite.T(), 2, result.Written)
	suite.Require().Len(result.Skipped, 1)
	assert.Equal(suite.T(), 1, result.Skipped[0].Index)
	assert.Equal(suite.T(), "qty", result.Skipped[0].Field)
}

func (suite *APITestSuite) TestUpdateStockReplacesAndPinsMode() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)

	body := map[string]interface{}{
		"pharmacy_id": ph.ID,
		"products":    []map[string]interface{}{{"ean": "111", "qty": 2, "price": "3,50"}},
	}
	w, _ := suite.do(http.MethodPost, "/update_stock", body, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	body["products"] = []map[string]interface{}{{"ean": "222", "qty": 1, "price": 1}}
	w, _ = suite.do(http.MethodPost, "/update_stock", body, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	stock := testutil.StockOf(suite.T(), suite.db, ph.ID)
	suite.Require().Len(stock, 1)
	assert.Contains(suite.T(), stock, "222")

	// the pharmacy is now pinned to replace; merge via /sync conflicts
	w, env := suite.do(http.MethodPost, "/sync", `[{"ean":"333","qty":1,"price":1}]`, map[string]string{"X-API-KEY": "k1"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	suite.Require().NotNil(env.Error)
	assert.Contains(suite.T(), env.Error.Message, "replace")
}

func (suite *APITestSuite) TestUpdateStockUnknownPharmacy() {
	w, _ := suite.do(http.MethodPost, "/update_stock", map[string]interface{}{"pharmacy_id": 404, "products": []interface{}{}}, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, _ = suite.do(http.MethodPost, "/update_stock", map[string]interface{}{"pharmacy_id": 1}, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestSearchValidation() {
	cases := map[string]int{
		"":                      http.StatusBadRequest,
		"ean=":                  http.StatusBadRequest,
		"ean=1&lat=abc&lon=1":   http.StatusBadRequest,
		"ean=1&lat=91&lon=0":    http.StatusBadRequest,
		"ean=1&lat=0&lon=-181":  http.StatusBadRequest,
		"ean=1&lat=10":          http.StatusOK,
		"ean=1&lat=-12,9&lon=1": http.StatusOK,
	}
	for query, status := range cases {
		w, _ := suite.do(http.MethodGet, "/search?"+query, nil, nil)
		assert.Equal(suite.T(), status, w.Code, query)
	}
}

func (suite *APITestSuite) TestSearchUnknownDistanceIsExplicit() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Sem Mapa", "k1", nil, nil)
	suite.Require().NoError(suite.db.Create(&models.StockEntry{
		PharmacyID: ph.ID, ProductEAN: "789", Qty: 3, Price: testutil.Price("9.9"), LastUpdated: time.Now(),
	}).Error)

	data := suite.search("ean=789&lat=-23.5505&lon=-46.6333")
	suite.Require().Len(data.Results, 1)
	assert.Nil(suite.T(), data.Results[0].DistanceKm)
	assert.Nil(suite.T(), data.Results[0].ETAMinutes)
	assert.Equal(suite.T(), "distância indisponível", data.Results[0].DistanceText)
	assert.Equal(suite.T(), "9.90", data.Results[0].Price)
}

func (suite *APITestSuite) TestSearchEnglishMessages() {
	w, env := suite.do(http.MethodGet, "/search?ean=000", nil, map[string]string{"Accept-Language": "en-US"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var data searchData
	suite.Require().NoError(json.Unmarshal(env.Data, &data))
	assert.Equal(suite.T(), "No pharmacy has this product in stock", data.Message)
	assert.Empty(suite.T(), data.Results)
}

func (suite *APITestSuite) TestLogActionAndDashboard() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)

	w, env := suite.do(http.MethodPost, "/log_action",
		map[string]interface{}{"pharmacy_id": ph.ID, "ean": "789", "action": "clique_zap"}, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	assert.True(suite.T(), env.Success)

	w, _ = suite.do(http.MethodGet, "/dashboard", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w, _ = suite.do(http.MethodGet, "/dashboard", nil, map[string]string{"Authorization": suite.adminToken("viewer")})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w, env = suite.do(http.MethodGet, "/dashboard", nil, map[string]string{"Authorization": suite.adminToken(utils.RoleAdmin)})
	suite.Require().Equal(http.StatusOK, w.Code)

	var dashboard struct {
		TotalLeads int64 `json:"total_leads"`
		ByPharmacy []struct {
			PharmacyName string `json:"pharmacy_name"`
			Total        int64  `json:"total"`
		} `json:"by_pharmacy"`
		RecentLeads []struct {
			ActionType string `json:"action_type"`
		} `json:"recent_leads"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &dashboard))
	assert.Equal(suite.T(), int64(1), dashboard.TotalLeads)
	suite.Require().Len(dashboard.ByPharmacy, 1)
	assert.Equal(suite.T(), "Centro", dashboard.ByPharmacy[0].PharmacyName)
	suite.Require().Len(dashboard.RecentLeads, 1)
	assert.Equal(suite.T(), "clique_zap", dashboard.RecentLeads[0].ActionType)

	w, _ = suite.do(http.MethodGet, "/dashboard/leads?page=1&limit=5", nil, map[string]string{"Authorization": suite.adminToken(utils.RoleAdmin)})
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))
}

func (suite *APITestSuite) TestLogActionRecordsIncompleteLeads() {
	for _, body := range []interface{}{map[string]interface{}{"ean": "789"}, `{}`, map[string]interface{}{"pharmacy_id": 3}} {
		w, _ := suite.do(http.MethodPost, "/log_action", body, nil)
		assert.Equal(suite.T(), http.StatusCreated, w.Code, body)
	}

	var count int64
	suite.Require().NoError(suite.db.Model(&models.Lead{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(3), count)

	w, _ := suite.do(http.MethodPost, "/log_action", `not json`, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestCatalog() {
	ph := testutil.CreatePharmacy(suite.T(), suite.db, "Centro", "k1", nil, nil)
	suite.Require().NoError(suite.db.Create(&models.Product{EAN: "7891000100103", Name: "Dipirona 500mg"}).Error)
	suite.Require().NoError(suite.db.Create(&models.StockEntry{
		PharmacyID: ph.ID, ProductEAN: "7891000100103", Qty: 2, Price: testutil.Price("5.90"), LastUpdated: time.Now(),
	}).Error)

	w, env := suite.do(http.MethodGet, "/products?q=dipirona&in_stock=true", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get("X-Total-Count"))
	assert.Contains(suite.T(), string(env.Data), `"pharmacies_in_stock":1`)

	w, env = suite.do(http.MethodGet, "/products/7891000100103", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(env.Data), "Dipirona 500mg")

	w, env = suite.do(http.MethodGet, "/products/7890000000000", nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	suite.Require().NotNil(env.Error)
	assert.Equal(suite.T(), "Produto não encontrado no catálogo", env.Error.Message)
	assert.Equal(suite.T(), w.Header().Get("X-Request-ID"), env.Error.RequestID)

	w, _ = suite.do(http.MethodGet, "/products/abc", nil, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestRateLimit() {
	suite.cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	suite.rebuildRouter()

	w, _ := suite.do(http.MethodGet, "/search?ean=1", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	w, env := suite.do(http.MethodGet, "/search?ean=1", nil, nil)
	assert.Equal(suite.T(), http.StatusTooManyRequests, w.Code)
	suite.Require().NotNil(env.Error)
	assert.Equal(suite.T(), "RATE_LIMITED", env.Error.Code)

	// status probes are not rate limited
	w, _ = suite.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestIndexAndHealth() {
	w, env := suite.do(http.MethodGet, "/", nil, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), string(env.Data), "online")

	w, _ = suite.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotEmpty(suite.T(), w.Header().Get("X-Request-ID"))
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
