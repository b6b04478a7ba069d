package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/taldoflemis/trattoria/conto"
	"github.com/taldoflemis/trattoria/cucina"
	"github.com/taldoflemis/trattoria/sessione"
	"github.com/taldoflemis/trattoria/tavola"
)

var (
	tracer = otel.Tracer("sala")
	meter  = otel.Meter("sala")
)

const sessionContextKey = "session"

// KitchenClient is the slice of the kitchen API the handlers need.
type KitchenClient interface {
	Login(ctx context.Context, req cucina.LoginRequest) (*cucina.Credentials, error)
	Register(ctx context.Context, req cucina.RegisterRequest) (*cucina.Credentials, error)
	Me(ctx context.Context, token string) (*cucina.User, error)
	Pizzas(ctx context.Context) ([]cucina.Pizza, error)
	MenuItems(ctx context.Context) ([]cucina.MenuItem, error)
	Categories(ctx context.Context) (*cucina.Categories, error)
	CreateOrder(ctx context.Context, token string, req cucina.CreateOrderRequest) (*cucina.Order, error)
	MyOrders(ctx context.Context, token string) ([]cucina.Order, error)
	AdminOrders(ctx context.Context, token string) ([]cucina.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID string, status cucina.OrderStatus) error
}

var _ KitchenClient = (*cucina.Client)(nil)

type MainHandler struct {
	settings  *Settings
	kitchen   KitchenClient
	sessions  *sessione.Store
	estimator conto.DistanceEstimator
	feed      OrderFeed
	board     *AdminBoard
	health    *healthgo.Health

	ordersPlacedCounter  metric.Int64Counter
	checkoutHistogram    metric.Float64Histogram
	statusUpdatesCounter metric.Int64Counter
}

type echoValidator struct {
	validate *validator.Validate
}

func (v *echoValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func NewMainHandler(
	e *echo.Echo,
	settings *Settings,
	kitchen KitchenClient,
	estimator conto.DistanceEstimator,
	feed OrderFeed,
	health *healthgo.Health,
) (*MainHandler, error) {
	ctx := context.Background()

	ordersPlacedCounter, err := meter.Int64Counter(
		"sala.orders.placed",
		metric.WithDescription("Number of orders successfully placed at the kitchen"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create orders placed counter", slog.Any("err", err))
		return nil, err
	}

	checkoutHistogram, err := meter.Float64Histogram(
		"sala.checkout.duration",
		metric.WithDescription("Duration of order submissions to the kitchen"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create checkout histogram", slog.Any("err", err))
		return nil, err
	}

	statusUpdatesCounter, err := meter.Int64Counter(
		"sala.admin.status_updates",
		metric.WithDescription("Number of order status updates issued from the admin panel"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create status updates counter", slog.Any("err", err))
		return nil, err
	}

	logger := slog.Default()
	e.HideBanner = true
	e.Validator = &echoValidator{validate: tavola.NewValidator()}
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     settings.HTTP.CORS.Origins,
		AllowMethods:     settings.HTTP.CORS.Methods,
		AllowHeaders:     settings.HTTP.CORS.Headers,
		AllowCredentials: true,
	}))
	e.Use(otelecho.Middleware("sala",
		otelecho.WithMetricAttributeFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("client.ip", r.RemoteAddr),
				attribute.String("user.agent", r.UserAgent()),
			}
		}),
		otelecho.WithEchoMetricAttributeFn(func(c echo.Context) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("handler.path", c.Path()),
				attribute.String("handler.method", c.Request().Method),
			}
		}),
	))

	handler := &MainHandler{
		settings:             settings,
		kitchen:              kitchen,
		sessions:             sessione.NewStore(),
		estimator:            estimator,
		feed:                 feed,
		board:                NewAdminBoard(),
		health:               health,
		ordersPlacedCounter:  ordersPlacedCounter,
		checkoutHistogram:    checkoutHistogram,
		statusUpdatesCounter: statusUpdatesCounter,
	}

	e.GET("/healthz", handler.HealthCheck)
	v1 := e.Group("/v1", handler.withSession)

	v1.POST("/auth/login", handler.Login)
	v1.POST("/auth/register", handler.Register)
	v1.POST("/auth/logout", handler.Logout, handler.requireSession)
	v1.GET("/auth/me", handler.Me, handler.requireSession)

	v1.GET("/menu/pizzas", handler.GetPizzas)
	v1.GET("/menu/items", handler.GetMenuItems)
	v1.GET("/menu/categories", handler.GetCategories)

	cart := v1.Group("/cart", handler.requireSession)
	cart.GET("", handler.GetCart)
	cart.POST("/items", handler.AddCartItem)
	cart.PUT("/items/:index", handler.UpdateCartItem)
	cart.DELETE("/items/:index", handler.RemoveCartItem)
	cart.DELETE("", handler.ClearCart)

	v1.POST("/checkout/quote", handler.QuoteCheckout, handler.requireSession)
	v1.POST("/checkout", handler.Checkout, handler.requireSession)

	v1.GET("/orders", handler.GetMyOrders, handler.requireSession)

	admin := v1.Group("/admin", handler.requireSession, handler.requireAdmin)
	admin.GET("/orders", handler.GetAdminOrders)
	admin.GET("/orders/sse", handler.GetLiveOrdersSSE)
	admin.PUT("/orders/:id/status", handler.UpdateOrderStatus)
	admin.GET("/analytics", handler.GetAnalytics)

	return handler, nil
}

// withSession resolves the session cookie, if any, and parks the
// session on the echo context for the handlers downstream.
func (h *MainHandler) withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(h.settings.Checkout.CookieName)
		if err == nil && cookie.Value != "" {
			if session, ok := h.sessions.Get(cookie.Value); ok {
				c.Set(sessionContextKey, session)
			}
		}
		return next(c)
	}
}

func (h *MainHandler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentSession(c) == nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: "Not authenticated"})
		}
		return next(c)
	}
}

func (h *MainHandler) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session := currentSession(c)
		if session == nil || !session.IsAdmin() {
			return c.JSON(http.StatusForbidden, ErrorResponse{Detail: "Access denied"})
		}
		return next(c)
	}
}

func currentSession(c echo.Context) *sessione.Session {
	session, _ := c.Get(sessionContextKey).(*sessione.Session)
	return session
}

func (h *MainHandler) setSessionCookie(c echo.Context, value string) {
	c.SetCookie(&http.Cookie{
		Name:     h.settings.Checkout.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *MainHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.settings.Checkout.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// kitchenError maps the client error taxonomy onto HTTP responses. An
// auth failure tears the session down; the browser has to log in again.
func (h *MainHandler) kitchenError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	if cucina.IsAuthError(err) {
		if session := currentSession(c); session != nil {
			h.sessions.End(session.ID)
			h.clearSessionCookie(c)
		}
		detail := err.Error()
		if detail == "" {
			detail = "Not authenticated"
		}
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: detail})
	}

	if errors.Is(err, cucina.ErrKitchenUnreachable) {
		slog.ErrorContext(ctx, "kitchen unreachable", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Detail: "Unable to reach the kitchen, please try again",
		})
	}

	var backendErr *cucina.BackendError
	if errors.As(err, &backendErr) {
		return c.JSON(backendErr.StatusCode, ErrorResponse{Detail: backendErr.Detail})
	}

	slog.ErrorContext(ctx, "unexpected kitchen error", slog.Any("err", err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Internal error"})
}

// HealthCheck godoc
//
// @Summary Check the health of the service
// @Tags health
// @Produce json
// @Success 200 {object} healthgo.Check
// @Failure 503 {object} healthgo.Check
// @Router /healthz [get]
func (h *MainHandler) HealthCheck(c echo.Context) error {
	check := h.health.Measure(c.Request().Context())

	statusCode := http.StatusOK
	if check.Status != healthgo.StatusOK {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, check)
}
