// Package api wraps the backend REST API. Every request carries the bearer
// token from the session; failures are reported to the caller and never
// retried here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/models"
	"github.com/example/carside/pkg/session"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     session.TokenSource
	logger     *zap.Logger
}

func NewClient(cfg *config.APIConfig, tokens session.TokenSource, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
		logger: logger,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: unexpected status %d", e.Code)
}

// flexID accepts both string and numeric JSON ids.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// PlaceOrder submits the order and returns the created order's id. The
// backend is known to answer with either {"id": ...} or {"order_id": ...}.
func (c *Client) PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (string, error) {
	var resp struct {
		ID      flexID `json:"id"`
		OrderID flexID `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", req, &resp); err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}

	id := string(resp.ID)
	if id == "" {
		id = string(resp.OrderID)
	}
	if id == "" {
		return "", fmt.Errorf("place order: response carried no order id")
	}

	c.logger.Info("Order placed", zap.String("order_id", id))
	return id, nil
}

// FetchOrder returns the full current order record.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, fmt.Errorf("fetch order %s: %w", orderID, err)
	}
	return &order, nil
}

// MyOrders returns the caller's order history, newest first.
func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// RateOrder submits a 1..5 rating for a completed order.
func (c *Client) RateOrder(ctx context.Context, orderID string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rate order: rating %d out of range 1..5", rating)
	}
	body := map[string]int{"rating": rating}
	if err := c.do(ctx, http.MethodPost, "/orders/"+orderID+"/rating", body, nil); err != nil {
		return fmt.Errorf("rate order %s: %w", orderID, err)
	}
	return nil
}

// MyCars returns the caller's registered cars.
func (c *Client) MyCars(ctx context.Context) ([]models.Car, error) {
	var cars []models.Car
	if err := c.do(ctx, http.MethodGet, "/cars", nil, &cars); err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	return cars, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
