// internal/agent/client.go
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/farmahub/farmahub-backend/internal/config"
	"github.com/farmahub/farmahub-backend/internal/inventory"
)

const maxResponseBytes = 1 << 20

// Deliverer sends a parsed stock file to the directory.
type Deliverer interface {
	Deliver(ctx context.Context, items []inventory.Item) (*DeliveryResult, error)
}

type DeliveryResult struct {
	StatusCode int
	Mode       string
	Written    int
	Skipped    int
}

// Client posts batches to the directory API.
type Client struct {
	baseURL    string
	apiKey     string
	pharmacyID uint
	endpoint   string
	httpClient *http.Client
}

type updateStockRequest struct {
	PharmacyID uint             `json:"pharmacy_id"`
	Products   []inventory.Item `json:"products"`
}

type apiResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Mode    string            `json:"mode"`
		Written int               `json:"written"`
		Skipped []json.RawMessage `json:"skipped"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg *config.AgentConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

func NewClientWithHTTP(cfg *config.AgentConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    cfg.APIURL,
		apiKey:     cfg.APIKey,
		pharmacyID: cfg.PharmacyID,
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
	}
}

func (c *Client) Deliver(ctx context.Context, items []inventory.Item) (*DeliveryResult, error) {
	var payload interface{} = items
	if c.endpoint == config.AgentEndpointUpdateStock {
		payload = updateStockRequest{PharmacyID: c.pharmacyID, Products: items}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.endpoint == config.AgentEndpointSync {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	defer resp.Body.Close()

	var decoded apiResponse
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr == nil && len(data) > 0 {
		// A non-envelope body (a proxy error page) leaves decoded empty.
		_ = json.Unmarshal(data, &decoded)
	}

	switch {
	case resp.StatusCode >= 500 || retryableStatus(resp.StatusCode):
		return nil, &ConnectivityError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	case resp.StatusCode >= 400:
		rejected := &RejectedError{StatusCode: resp.StatusCode}
		if decoded.Error != nil {
			rejected.Code = decoded.Error.Code
			rejected.Message = decoded.Error.Message
		}
		return nil, rejected
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &RejectedError{StatusCode: resp.StatusCode}
	}

	if readErr != nil {
		return nil, &ConnectivityError{Err: readErr}
	}

	return &DeliveryResult{
		StatusCode: resp.StatusCode,
		Mode:       decoded.Data.Mode,
		Written:    decoded.Data.Written,
		Skipped:    len(decoded.Data.Skipped),
	}, nil
}

// retryableStatus reports 4xx answers that say "try later" rather than
// "this batch is wrong".
func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
