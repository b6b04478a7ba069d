package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taldoflemis/trattoria/conto"
	"github.com/taldoflemis/trattoria/cucina"
)

// GetAdminOrders godoc
//
// @Summary List every order in the kitchen
// @Tags admin
// @Produce json
// @Success 200 {array} cucina.Order
// @Failure 403 {object} ErrorResponse
// @Router /v1/admin/orders [get]
func (h *MainHandler) GetAdminOrders(c echo.Context) error {
	orders, err := h.kitchen.AdminOrders(c.Request().Context(), currentSession(c).Token)
	if err != nil {
		return h.kitchenError(c, err)
	}

	h.board.ReplaceAll(orders)
	return c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus godoc
//
// @Summary Move an order to its next status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body StatusUpdateRequest true "New status"
// @Success 200 {object} StatusUpdateResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/admin/orders/{id}/status [put]
func (h *MainHandler) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracer.Start(ctx, "MainHandler.UpdateOrderStatus")
	defer span.End()

	session := currentSession(c)
	orderID := c.Param("id")

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	next, err := cucina.ParseStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
	}

	if _, ok := h.board.Get(orderID); !ok {
		// Board may be cold; refresh it once before giving up.
		orders, err := h.kitchen.AdminOrders(ctx, session.Token)
		if err != nil {
			return h.kitchenError(c, err)
		}
		h.board.ReplaceAll(orders)
	}

	if err := h.board.BeginUpdate(orderID, next); err != nil {
		var transitionErr *TransitionError
		switch {
		case errors.As(err, &transitionErr):
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Detail: fmt.Sprintf("Cannot change status from %s to %s", transitionErr.From, transitionErr.To),
			})
		case errors.Is(err, ErrUpdateInFlight):
			return c.JSON(http.StatusConflict, ErrorResponse{
				Detail: "Another update for this order is in flight",
			})
		default:
			return c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Order not found"})
		}
	}

	err = h.kitchen.UpdateOrderStatus(ctx, session.Token, orderID, next)
	h.statusUpdatesCounter.Add(ctx, 1)
	if err != nil {
		h.board.Revert(orderID)
		return h.kitchenError(c, err)
	}
	h.board.Confirm(orderID)

	if updated, ok := h.board.Get(orderID); ok {
		if err := h.feed.PubOrder(ctx, updated); err != nil {
			slog.WarnContext(ctx, "failed to publish status update to live feed", slog.Any("err", err))
		}
	}

	return c.JSON(http.StatusOK, StatusUpdateResponse{
		OrderID:     orderID,
		Status:      next,
		AllowedNext: next.AllowedNext(),
	})
}

// GetAnalytics godoc
//
// @Summary Aggregate order counts and revenue
// @Tags admin
// @Produce json
// @Success 200 {object} AnalyticsResponse
// @Failure 403 {object} ErrorResponse
// @Router /v1/admin/analytics [get]
func (h *MainHandler) GetAnalytics(c echo.Context) error {
	orders, err := h.kitchen.AdminOrders(c.Request().Context(), currentSession(c).Token)
	if err != nil {
		return h.kitchenError(c, err)
	}
	h.board.ReplaceAll(orders)

	resp := AnalyticsResponse{
		TotalOrders:    len(orders),
		OrdersByStatus: make(map[cucina.OrderStatus]int),
	}
	billed := 0
	for _, order := range orders {
		resp.OrdersByStatus[order.Status]++
		switch order.OrderType {
		case cucina.OrderTypeDelivery:
			resp.DeliveryOrders++
		case cucina.OrderTypePickup:
			resp.PickupOrders++
		}
		// Cancelled orders never count toward revenue.
		if order.Status != cucina.StatusCancelled {
			resp.Revenue += order.Total
			billed++
		}
	}
	if billed > 0 {
		resp.AverageOrderValue = conto.Round2(resp.Revenue / float64(billed))
	}
	resp.Revenue = conto.Round2(resp.Revenue)

	return c.JSON(http.StatusOK, resp)
}

// GetLiveOrdersSSE godoc
//
// @Summary Stream order activity via Server-Sent Events (SSE)
// @Tags admin
// @Produce text/event-stream
// @Success 200 {object} cucina.Order
// @Router /v1/admin/orders/sse [get]
func (h *MainHandler) GetLiveOrdersSSE(c echo.Context) error {
	ctx := c.Request().Context()
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		slog.ErrorContext(ctx, "streaming unsupported by response writer")
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming unsupported")
	}

	ch, err := h.feed.SubLiveOrders(ctx, flusher)
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to live orders", slog.String("error", err.Error()))
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")

	notify := c.Request().Context().Done()
	for {
		select {
		case <-notify:
			slog.InfoContext(ctx, "client closed connection")
			return h.feed.UnsubLiveOrders(ctx, flusher)
		case order := <-ch:
			data, err := json.Marshal(order)
			if err != nil {
				slog.ErrorContext(ctx, "marshal order for SSE", slog.String("error", err.Error()))
				continue
			}
			_, err = c.Response().Writer.Write([]byte("data: " + string(data) + "\n\n"))
			if err != nil {
				slog.ErrorContext(ctx, "write SSE", slog.String("error", err.Error()))
				_ = h.feed.UnsubLiveOrders(ctx, flusher)
				return err
			}
			flusher.Flush()
		}
	}
}
