package limitswap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"limitswap/internal/domain"
	"limitswap/internal/httpapi"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080")
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("httpClient is nil")
	}
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req httpapi.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Wallet != "main" || req.Amount != 500 {
			t.Errorf("request = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Order{ID: 7, Status: domain.StatusPending})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	o, err := c.CreateOrder(context.Background(), httpapi.CreateOrderRequest{
		Wallet: "main", Direction: "acquire", Amount: 500, TriggerPrice: 850,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID != 7 || o.Status != domain.StatusPending {
		t.Errorf("order = %+v", o)
	}
}

func TestListOrdersStatusFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "pending" {
			t.Errorf("status query = %q, want pending", got)
		}
		json.NewEncoder(w).Encode(httpapi.OrdersResponse{
			Orders: []*domain.Order{{ID: 1}, {ID: 2}},
		})
	}))
	defer srv.Close()

	orders, err := NewClient(srv.URL).ListOrders(context.Background(), "pending")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders = %d, want 2", len(orders))
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "order 99 not found"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetOrder(context.Background(), 99)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "order 99 not found" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestCancelOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/3/cancel" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req httpapi.CancelRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(httpapi.CancelResponse{
			Cancelled: []domain.Order{
				{ID: 3, Status: domain.StatusCancelled, CancelReason: req.Reason},
			},
		})
	}))
	defer srv.Close()

	cancelled, err := NewClient(srv.URL).CancelOrder(context.Background(), 3, "done with it")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if len(cancelled) != 1 {
		t.Fatalf("cancelled = %d orders, want 1", len(cancelled))
	}
	if cancelled[0].Status != domain.StatusCancelled || cancelled[0].CancelReason != "done with it" {
		t.Errorf("order = %+v", cancelled[0])
	}
}
