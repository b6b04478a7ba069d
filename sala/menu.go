package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetPizzas godoc
//
// @Summary List the pizza menu
// @Tags menu
// @Produce json
// @Success 200 {array} cucina.Pizza
// @Failure 502 {object} ErrorResponse
// @Router /v1/menu/pizzas [get]
func (h *MainHandler) GetPizzas(c echo.Context) error {
	pizzas, err := h.kitchen.Pizzas(c.Request().Context())
	if err != nil {
		return h.kitchenError(c, err)
	}
	return c.JSON(http.StatusOK, pizzas)
}

// GetMenuItems godoc
//
// @Summary List sides, drinks and desserts
// @Tags menu
// @Produce json
// @Success 200 {array} cucina.MenuItem
// @Failure 502 {object} ErrorResponse
// @Router /v1/menu/items [get]
func (h *MainHandler) GetMenuItems(c echo.Context) error {
	items, err := h.kitchen.MenuItems(c.Request().Context())
	if err != nil {
		return h.kitchenError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// GetCategories godoc
//
// @Summary List menu categories
// @Tags menu
// @Produce json
// @Success 200 {object} cucina.Categories
// @Failure 502 {object} ErrorResponse
// @Router /v1/menu/categories [get]
func (h *MainHandler) GetCategories(c echo.Context) error {
	categories, err := h.kitchen.Categories(c.Request().Context())
	if err != nil {
		return h.kitchenError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}
