package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/conto"
)

func (h *MainHandler) cartResponse(c echo.Context) error {
	cart := currentSession(c).Cart
	return c.JSON(http.StatusOK, CartResponse{
		Items:    cart.Items(),
		Subtotal: conto.Round2(cart.Subtotal()),
	})
}

func cartIndex(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("index"))
}

// GetCart godoc
//
// @Summary Get the session cart
// @Tags cart
// @Produce json
// @Success 200 {object} CartResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/cart [get]
func (h *MainHandler) GetCart(c echo.Context) error {
	return h.cartResponse(c)
}

// AddCartItem godoc
//
// @Summary Add an item to the cart, merging equal configurations
// @Tags cart
// @Accept json
// @Produce json
// @Param item body AddCartItemRequest true "Cart Item"
// @Success 200 {object} CartResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/cart/items [post]
func (h *MainHandler) AddCartItem(c echo.Context) error {
	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	if err := currentSession(c).Cart.Add(req.toLineItem()); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
	}
	return h.cartResponse(c)
}

// UpdateCartItem godoc
//
// @Summary Change a line's quantity; zero removes the line
// @Tags cart
// @Accept json
// @Produce json
// @Param index path int true "Line index"
// @Param quantity body UpdateQuantityRequest true "New quantity"
// @Success 200 {object} CartResponse
// @Failure 422 {object} ErrorResponse
// @Router /v1/cart/items/{index} [put]
func (h *MainHandler) UpdateCartItem(c echo.Context) error {
	index, err := cartIndex(c)
	if err != nil {
		return invalidBody(c, err)
	}

	var req UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return invalidFields(c, err)
	}

	if err := currentSession(c).Cart.UpdateQuantity(index, req.Quantity); err != nil {
		return cartError(c, err)
	}
	return h.cartResponse(c)
}

// RemoveCartItem godoc
//
// @Summary Remove the line at the given index
// @Tags cart
// @Produce json
// @Param index path int true "Line index"
// @Success 200 {object} CartResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/cart/items/{index} [delete]
func (h *MainHandler) RemoveCartItem(c echo.Context) error {
	index, err := cartIndex(c)
	if err != nil {
		return invalidBody(c, err)
	}

	if err := currentSession(c).Cart.Remove(index); err != nil {
		return cartError(c, err)
	}
	return h.cartResponse(c)
}

// ClearCart godoc
//
// @Summary Empty the cart
// @Tags cart
// @Produce json
// @Success 200 {object} CartResponse
// @Router /v1/cart [delete]
func (h *MainHandler) ClearCart(c echo.Context) error {
	currentSession(c).Cart.Clear()
	return h.cartResponse(c)
}

func cartError(c echo.Context, err error) error {
	if errors.Is(err, carrello.ErrIndexOutOfRange) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Detail: err.Error()})
	}
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
}
