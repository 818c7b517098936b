// Package limitswap provides a Go client for the limitswapd REST API.
package limitswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"limitswap/internal/domain"
	"limitswap/internal/httpapi"
)

// Client talks to a running limitswapd instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Price returns the current oracle price for the configured pair.
func (c *Client) Price(ctx context.Context) (httpapi.PriceResponse, error) {
	var out httpapi.PriceResponse
	err := c.do(ctx, http.MethodGet, "/api/price", nil, &out)
	return out, err
}

// CreateOrder places a new conditional order.
func (c *Client) CreateOrder(ctx context.Context, req httpapi.CreateOrderRequest) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders lists orders, optionally filtered by status ("" for all).
func (c *Client) ListOrders(ctx context.Context, status string) ([]*domain.Order, error) {
	path := "/api/orders"
	if status != "" {
		path += "?status=" + status
	}
	var out httpapi.OrdersResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// CreateTakeProfit attaches a take-profit to a pending order.
func (c *Client) CreateTakeProfit(ctx context.Context, parentID int64, profitTarget float64) (*domain.Order, error) {
	var out domain.Order
	req := httpapi.TakeProfitRequest{ProfitTarget: profitTarget}
	path := fmt.Sprintf("/api/orders/%d/take-profit", parentID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder cancels a pending or waiting order. The result includes any
// linked take-profit the cancellation cascaded to.
func (c *Client) CancelOrder(ctx context.Context, id int64, reason string) ([]domain.Order, error) {
	var out httpapi.CancelResponse
	req := httpapi.CancelRequest{Reason: reason}
	path := fmt.Sprintf("/api/orders/%d/cancel", id)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return out.Cancelled, nil
}

// Balances returns the balance views for a wallet.
func (c *Client) Balances(ctx context.Context, wallet string) (httpapi.BalancesResponse, error) {
	var out httpapi.BalancesResponse
	err := c.do(ctx, http.MethodGet, "/api/wallets/"+wallet+"/balances", nil, &out)
	return out, err
}

// Pnl returns the realized PnL report for a wallet.
func (c *Client) Pnl(ctx context.Context, wallet string) (httpapi.PnlResponse, error) {
	var out httpapi.PnlResponse
	err := c.do(ctx, http.MethodGet, "/api/wallets/"+wallet+"/pnl", nil, &out)
	return out, err
}
