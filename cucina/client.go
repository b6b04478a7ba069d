package cucina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the kitchen backend over its JSON REST API. Bearer
// tokens are passed per call; the client itself holds no identity.
type Client struct {
	baseURL string
	hc      *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping hits the API root, used by the health checker.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/", "", nil, nil)
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*Credentials, error) {
	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Credentials, error) {
	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Me refreshes the cached user behind a token.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Pizzas(ctx context.Context) ([]Pizza, error) {
	var pizzas []Pizza
	if err := c.do(ctx, http.MethodGet, "/api/menu/pizzas", "", nil, &pizzas); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "loaded pizzas from kitchen", slog.Int("count", len(pizzas)))
	return pizzas, nil
}

func (c *Client) MenuItems(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	if err := c.do(ctx, http.MethodGet, "/api/menu/items", "", nil, &items); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "loaded menu items from kitchen", slog.Int("count", len(items)))
	return items, nil
}

func (c *Client) Categories(ctx context.Context) (*Categories, error) {
	var categories Categories
	if err := c.do(ctx, http.MethodGet, "/api/menu/categories", "", nil, &categories); err != nil {
		return nil, err
	}
	return &categories, nil
}

// CreateOrder submits the snapshot payload. Single attempt; retries are
// the customer's call, never the client's.
func (c *Client) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", token, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/my-orders", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) AdminOrders(ctx context.Context, token string) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/api/admin/orders", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID string, status OrderStatus) error {
	payload := struct {
		Status OrderStatus `json:"status"`
	}{Status: status}
	return c.do(ctx, http.MethodPut, "/api/admin/orders/"+orderID+"/status", token, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKitchenUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError maps the backend's error shape ({"detail": "..."}) onto
// the client taxonomy: 401 is an AuthError, everything else surfaces
// the detail verbatim.
func decodeError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{Detail: payload.Detail}
	}
	if payload.Detail == "" {
		payload.Detail = resp.Status
	}
	return &BackendError{StatusCode: resp.StatusCode, Detail: payload.Detail}
}
