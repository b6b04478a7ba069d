package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/conto"
	"github.com/taldoflemis/trattoria/cucina"
)

// checkoutIssues is every problem we can catch without talking to the
// kitchen. A non-empty result means the submission never leaves sala.
func checkoutIssues(items []carrello.LineItem, orderType cucina.OrderType, addr *AddressPayload) []string {
	var issues []string
	if len(items) == 0 {
		issues = append(issues, "cart is empty")
	}
	if orderType == cucina.OrderTypeDelivery {
		if addr == nil || addr.Street == "" {
			issues = append(issues, "delivery address requires a street")
		}
		if addr == nil || addr.ZipCode == "" {
			issues = append(issues, "delivery address requires a zip code")
		}
	}
	return issues
}

// snapshotSubtotal prices one immutable cart snapshot, so the quoted
// amounts and the submitted items can never drift apart.
func snapshotSubtotal(items []carrello.LineItem) float64 {
	var total float64
	for _, line := range items {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

func (h *MainHandler) quoteFor(c echo.Context, orderType cucina.OrderType, addr *AddressPayload, subtotal float64) (conto.Quote, error) {
	if orderType == cucina.OrderTypePickup {
		return conto.ForPickup(subtotal), nil
	}

	miles, err := h.estimator.EstimateMiles(
		c.Request().Context(), addr.Street, addr.City, addr.State, addr.ZipCode,
	)
	if err != nil {
		return conto.Quote{}, err
	}
	return conto.ForDelivery(subtotal, miles)
}

// QuoteCheckout godoc
//
// @Summary Price the current cart without placing an order
// @Tags checkout
// @Accept json
// @Produce json
// @Param quote body QuoteRequest true "Quote Request"
// @Success 200 {object} conto.Quote
// @Failure 422 {object} ErrorResponse
// @Router /v1/checkout/quote [post]
func (h *MainHandler) QuoteCheckout(c echo.Context) error {
	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	items := currentSession(c).Cart.Items()
	if issues := checkoutIssues(items, req.OrderType, req.DeliveryAddress); len(issues) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Detail: "Validation failed",
			Issues: issues,
		})
	}

	quote, err := h.quoteFor(c, req.OrderType, req.DeliveryAddress, snapshotSubtotal(items))
	if errors.Is(err, conto.ErrOutsideDeliveryArea) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "Address outside delivery area"})
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to estimate distance", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Internal error"})
	}

	return c.JSON(http.StatusOK, quote.Rounded())
}

// Checkout godoc
//
// @Summary Submit the cart as an order
// @Tags checkout
// @Accept json
// @Produce json
// @Param checkout body CheckoutRequest true "Checkout Request"
// @Success 201 {object} CheckoutResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/checkout [post]
func (h *MainHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracer.Start(ctx, "MainHandler.Checkout")
	defer span.End()

	session := currentSession(c)

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	items := session.Cart.Items()
	if issues := checkoutIssues(items, req.OrderType, req.DeliveryAddress); len(issues) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Detail: "Validation failed",
			Issues: issues,
		})
	}

	if !session.StartCheckout() {
		return c.JSON(http.StatusConflict, ErrorResponse{Detail: "An order is already being placed"})
	}
	defer session.FinishCheckout()

	quote, err := h.quoteFor(c, req.OrderType, req.DeliveryAddress, snapshotSubtotal(items))
	if errors.Is(err, conto.ErrOutsideDeliveryArea) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "Address outside delivery area"})
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to estimate distance", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Internal error"})
	}
	quote = quote.Rounded()

	orderReq := cucina.CreateOrderRequest{
		Items:               items,
		DeliveryAddress:     req.DeliveryAddress.toAddress(),
		OrderType:           req.OrderType,
		PaymentMethod:       req.PaymentMethod,
		Subtotal:            quote.Subtotal,
		DeliveryFee:         quote.DeliveryFee,
		Tax:                 quote.Tax,
		Total:               quote.Total,
		SpecialInstructions: req.SpecialInstructions,
	}
	if req.OrderType == cucina.OrderTypePickup {
		orderReq.DeliveryAddress = nil
	}

	start := time.Now()
	order, err := h.kitchen.CreateOrder(ctx, session.Token, orderReq)
	h.checkoutHistogram.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		// Cart stays untouched so the customer can retry.
		return h.kitchenError(c, err)
	}

	h.ordersPlacedCounter.Add(ctx, 1)
	session.Cart.Clear()

	if err := h.feed.PubOrder(ctx, *order); err != nil {
		slog.WarnContext(ctx, "failed to publish order to live feed", slog.Any("err", err))
	}

	resp := CheckoutResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Quote:   quote,
	}
	if req.PaymentMethod == cucina.PaymentMethodOnline {
		resp.Warning = "Online payment is simulated; you will be charged on delivery"
	}

	slog.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_type", string(req.OrderType)),
	)
	return c.JSON(http.StatusCreated, resp)
}

// GetMyOrders godoc
//
// @Summary List the customer's past orders, newest first
// @Tags orders
// @Produce json
// @Success 200 {array} cucina.Order
// @Failure 401 {object} ErrorResponse
// @Router /v1/orders [get]
func (h *MainHandler) GetMyOrders(c echo.Context) error {
	orders, err := h.kitchen.MyOrders(c.Request().Context(), currentSession(c).Token)
	if err != nil {
		return h.kitchenError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}
