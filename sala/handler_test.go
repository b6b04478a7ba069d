package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taldoflemis/trattoria/cucina"
)

type fixedEstimator struct {
	miles float64
}

func (f fixedEstimator) EstimateMiles(ctx context.Context, street, city, state, zip string) (float64, error) {
	return f.miles, nil
}

// fakeKitchen records calls so tests can assert what reached the
// backend and what never left the service.
type fakeKitchen struct {
	user cucina.User

	adminOrders     []cucina.Order
	myOrders        []cucina.Order
	createOrderErr  error
	updateStatusErr error
	myOrdersErr     error

	createOrderCalls  int
	updateStatusCalls int
	lastCreateOrder   cucina.CreateOrderRequest
	lastStatusUpdate  cucina.OrderStatus
}

var _ KitchenClient = (*fakeKitchen)(nil)

func (f *fakeKitchen) Login(ctx context.Context, req cucina.LoginRequest) (*cucina.Credentials, error) {
	return &cucina.Credentials{AccessToken: "tok", TokenType: "bearer", User: f.user}, nil
}

func (f *fakeKitchen) Register(ctx context.Context, req cucina.RegisterRequest) (*cucina.Credentials, error) {
	return &cucina.Credentials{AccessToken: "tok", TokenType: "bearer", User: f.user}, nil
}

func (f *fakeKitchen) Me(ctx context.Context, token string) (*cucina.User, error) {
	return &f.user, nil
}

func (f *fakeKitchen) Pizzas(ctx context.Context) ([]cucina.Pizza, error) {
	return nil, nil
}

func (f *fakeKitchen) MenuItems(ctx context.Context) ([]cucina.MenuItem, error) {
	return nil, nil
}

func (f *fakeKitchen) Categories(ctx context.Context) (*cucina.Categories, error) {
	return &cucina.Categories{}, nil
}

func (f *fakeKitchen) CreateOrder(ctx context.Context, token string, req cucina.CreateOrderRequest) (*cucina.Order, error) {
	f.createOrderCalls++
	f.lastCreateOrder = req
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	return &cucina.Order{
		ID:        "ord-1",
		Items:     req.Items,
		OrderType: req.OrderType,
		Total:     req.Total,
		Status:    cucina.StatusPending,
	}, nil
}

func (f *fakeKitchen) MyOrders(ctx context.Context, token string) ([]cucina.Order, error) {
	if f.myOrdersErr != nil {
		return nil, f.myOrdersErr
	}
	return f.myOrders, nil
}

func (f *fakeKitchen) AdminOrders(ctx context.Context, token string) ([]cucina.Order, error) {
	return f.adminOrders, nil
}

func (f *fakeKitchen) UpdateOrderStatus(ctx context.Context, token, orderID string, status cucina.OrderStatus) error {
	f.updateStatusCalls++
	f.lastStatusUpdate = status
	return f.updateStatusErr
}

func newTestHandler(t *testing.T, fake *fakeKitchen, miles float64) (*echo.Echo, *MainHandler) {
	t.Helper()

	health, err := healthgo.New(healthgo.WithComponent(healthgo.Component{
		Name: "sala", Version: "test",
	}))
	require.NoError(t, err)

	settings := &Settings{
		Checkout: CheckoutSettings{CookieName: "sala_session", DistanceSeed: 1},
	}

	e := echo.New()
	handler, err := NewMainHandler(e, settings, fake, fixedEstimator{miles: miles}, NewGoChannelOrderFeed(), health)
	require.NoError(t, err)
	return e, handler
}

func doJSON(e *echo.Echo, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) *http.Cookie {
	t.Helper()

	rec := doJSON(e, http.MethodPost, "/v1/auth/login", `{"email":"mario@example.com","password":"secret"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "sala_session" {
			return cookie
		}
	}
	t.Fatal("no session cookie set on login")
	return nil
}

func addMargherita(t *testing.T, e *echo.Echo, cookie *http.Cookie) {
	t.Helper()

	rec := doJSON(e, http.MethodPost, "/v1/cart/items",
		`{"item_id":"pz-1","item_type":"pizza","name":"Margherita","size":"Medium","quantity":2,"price":13.95}`,
		cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutValidationNeverReachesKitchen(t *testing.T) {
	// Arrange: empty cart and a delivery order without an address.
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	// Act
	rec := doJSON(e, http.MethodPost, "/v1/checkout",
		`{"order_type":"delivery","payment_method":"cash"}`, cookie)

	// Assert
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Issues, 3)
	assert.Zero(t, fake.createOrderCalls)
}

func TestCheckoutPickupPlacesOrderAndClearsCart(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)
	addMargherita(t, e, cookie)

	// Act
	rec := doJSON(e, http.MethodPost, "/v1/checkout",
		`{"order_type":"pickup","payment_method":"cash"}`, cookie)

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ord-1", resp.OrderID)
	assert.Equal(t, cucina.StatusPending, resp.Status)
	assert.InDelta(t, 27.90, resp.Quote.Subtotal, 1e-9)
	assert.InDelta(t, 2.37, resp.Quote.Tax, 1e-9)
	assert.InDelta(t, 30.27, resp.Quote.Total, 1e-9)
	assert.Empty(t, resp.Warning)

	// The snapshot sent to the kitchen carries the rounded amounts.
	assert.InDelta(t, 30.27, fake.lastCreateOrder.Total, 1e-9)
	assert.Nil(t, fake.lastCreateOrder.DeliveryAddress)

	cartRec := doJSON(e, http.MethodGet, "/v1/cart", "", cookie)
	require.Equal(t, http.StatusOK, cartRec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(cartRec.Body.Bytes(), &cart))
	assert.Empty(t, cart.Items)
}

func TestCheckoutPricesTheSubmittedSnapshot(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)
	addMargherita(t, e, cookie)
	rec := doJSON(e, http.MethodPost, "/v1/cart/items",
		`{"item_id":"mi-1","item_type":"menu_item","name":"Tiramisu","quantity":3,"price":6.95}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// Act
	rec = doJSON(e, http.MethodPost, "/v1/checkout",
		`{"order_type":"pickup","payment_method":"cash"}`, cookie)

	// Assert: the subtotal sent to the kitchen is the sum of the very
	// items sent alongside it.
	require.Equal(t, http.StatusCreated, rec.Code)
	var itemSum float64
	for _, line := range fake.lastCreateOrder.Items {
		itemSum += line.Price * float64(line.Quantity)
	}
	require.Len(t, fake.lastCreateOrder.Items, 2)
	assert.InDelta(t, itemSum, fake.lastCreateOrder.Subtotal, 0.005)
}

func TestCheckoutOnlinePaymentCarriesWarning(t *testing.T) {
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)
	addMargherita(t, e, cookie)

	rec := doJSON(e, http.MethodPost, "/v1/checkout",
		`{"order_type":"pickup","payment_method":"online"}`, cookie)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warning)
}

func TestCheckoutOutsideDeliveryArea(t *testing.T) {
	// Arrange: the estimator puts the address past the delivery radius.
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 9.5)
	cookie := login(t, e)
	addMargherita(t, e, cookie)

	// Act
	rec := doJSON(e, http.MethodPost, "/v1/checkout",
		`{"order_type":"delivery","payment_method":"cash","delivery_address":{"street":"1 Far Away Rd","city":"Springfield","state":"IL","zip_code":"62704"}}`,
		cookie)

	// Assert
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Address outside delivery area", resp.Detail)
	assert.Zero(t, fake.createOrderCalls)
}

func TestCheckoutBackendRejectionKeepsCart(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{
		user:           cucina.User{ID: "u-1"},
		createOrderErr: &cucina.BackendError{StatusCode: http.StatusBadRequest, Detail: "Store is closed"},
	}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)
	addMargherita(t, e, cookie)

	// Act
	rec := doJSON(e, http.MethodPost, "/v1/checkout",
		`{"order_type":"pickup","payment_method":"cash"}`, cookie)

	// Assert: the rejection surfaces verbatim and the cart survives.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Store is closed", resp.Detail)

	cartRec := doJSON(e, http.MethodGet, "/v1/cart", "", cookie)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(cartRec.Body.Bytes(), &cart))
	assert.Len(t, cart.Items, 1)
}

func TestQuoteDeliveryFee(t *testing.T) {
	// Arrange: 7 miles costs the base fee plus two surcharge miles.
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 7.0)
	cookie := login(t, e)

	rec := doJSON(e, http.MethodPost, "/v1/cart/items",
		`{"item_id":"pz-1","item_type":"pizza","name":"Margherita","quantity":1,"price":20}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// Act
	quoteRec := doJSON(e, http.MethodPost, "/v1/checkout/quote",
		`{"order_type":"delivery","delivery_address":{"street":"12 Oak St","zip_code":"62704"}}`,
		cookie)

	// Assert
	require.Equal(t, http.StatusOK, quoteRec.Code)
	var quote struct {
		DeliveryFee float64 `json:"delivery_fee"`
		Tax         float64 `json:"tax"`
		Total       float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(quoteRec.Body.Bytes(), &quote))
	assert.InDelta(t, 8.00, quote.DeliveryFee, 1e-9)
	assert.InDelta(t, 1.70, quote.Tax, 1e-9)
	assert.InDelta(t, 29.70, quote.Total, 1e-9)
	assert.Zero(t, fake.createOrderCalls)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	fake := &fakeKitchen{user: cucina.User{ID: "u-1", IsAdmin: false}}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	rec := doJSON(e, http.MethodGet, "/v1/admin/orders", "", cookie)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Access denied", resp.Detail)
}

func TestAdminStatusUpdateInvalidTransition(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{
		user:        cucina.User{ID: "u-9", IsAdmin: true},
		adminOrders: []cucina.Order{{ID: "ord-1", Status: cucina.StatusPending}},
	}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	// Act: pending can never jump straight to delivered.
	rec := doJSON(e, http.MethodPut, "/v1/admin/orders/ord-1/status",
		`{"status":"delivered"}`, cookie)

	// Assert
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, fake.updateStatusCalls)
}

func TestAdminStatusUpdateRollsBackOnRejection(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{
		user:            cucina.User{ID: "u-9", IsAdmin: true},
		adminOrders:     []cucina.Order{{ID: "ord-1", Status: cucina.StatusPending}},
		updateStatusErr: &cucina.BackendError{StatusCode: http.StatusBadRequest, Detail: "Invalid status"},
	}
	e, handler := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	warmRec := doJSON(e, http.MethodGet, "/v1/admin/orders", "", cookie)
	require.Equal(t, http.StatusOK, warmRec.Code)

	// Act
	rec := doJSON(e, http.MethodPut, "/v1/admin/orders/ord-1/status",
		`{"status":"confirmed"}`, cookie)

	// Assert: the board shows the kitchen's truth again.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 1, fake.updateStatusCalls)
	order, ok := handler.board.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, cucina.StatusPending, order.Status)
}

func TestAdminStatusUpdateConfirmsOnSuccess(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{
		user:        cucina.User{ID: "u-9", IsAdmin: true},
		adminOrders: []cucina.Order{{ID: "ord-1", Status: cucina.StatusPending}},
	}
	e, handler := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	// Act: the board is cold, the handler refreshes it on its own.
	rec := doJSON(e, http.MethodPut, "/v1/admin/orders/ord-1/status",
		`{"status":"confirmed"}`, cookie)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusUpdateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, cucina.StatusConfirmed, resp.Status)
	assert.Equal(t, []cucina.OrderStatus{cucina.StatusPreparing, cucina.StatusCancelled}, resp.AllowedNext)

	order, _ := handler.board.Get("ord-1")
	assert.Equal(t, cucina.StatusConfirmed, order.Status)
	assert.Equal(t, cucina.StatusConfirmed, fake.lastStatusUpdate)
}

func TestAdminAnalytics(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{
		user: cucina.User{ID: "u-9", IsAdmin: true},
		adminOrders: []cucina.Order{
			{ID: "ord-1", Status: cucina.StatusDelivered, OrderType: cucina.OrderTypeDelivery, Total: 30.00},
			{ID: "ord-2", Status: cucina.StatusPending, OrderType: cucina.OrderTypePickup, Total: 10.00},
			{ID: "ord-3", Status: cucina.StatusCancelled, OrderType: cucina.OrderTypeDelivery, Total: 99.00},
		},
	}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	// Act
	rec := doJSON(e, http.MethodGet, "/v1/admin/analytics", "", cookie)

	// Assert: cancelled orders count in totals but never in revenue.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AnalyticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalOrders)
	assert.InDelta(t, 40.00, resp.Revenue, 1e-9)
	assert.InDelta(t, 20.00, resp.AverageOrderValue, 1e-9)
	assert.Equal(t, 1, resp.OrdersByStatus[cucina.StatusCancelled])
	assert.Equal(t, 2, resp.DeliveryOrders)
	assert.Equal(t, 1, resp.PickupOrders)
}

func TestKitchenAuthErrorEndsSession(t *testing.T) {
	// Arrange
	fake := &fakeKitchen{
		user:        cucina.User{ID: "u-1"},
		myOrdersErr: &cucina.AuthError{Detail: "Token expired"},
	}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)

	// Act
	rec := doJSON(e, http.MethodGet, "/v1/orders", "", cookie)

	// Assert: the 401 tears the session down; the cookie is dead now.
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Token expired", resp.Detail)

	cartRec := doJSON(e, http.MethodGet, "/v1/cart", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, cartRec.Code)
}

func TestCartEndpointsRequireSession(t *testing.T) {
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 3.0)

	rec := doJSON(e, http.MethodGet, "/v1/cart", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Not authenticated", resp.Detail)
}

func TestLogoutClearsSession(t *testing.T) {
	fake := &fakeKitchen{user: cucina.User{ID: "u-1"}}
	e, _ := newTestHandler(t, fake, 3.0)
	cookie := login(t, e)
	addMargherita(t, e, cookie)

	rec := doJSON(e, http.MethodPost, "/v1/auth/logout", "", cookie)

	require.Equal(t, http.StatusNoContent, rec.Code)
	cartRec := doJSON(e, http.MethodGet, "/v1/cart", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, cartRec.Code)
}
