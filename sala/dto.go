package main

import (
	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/conto"
	"github.com/taldoflemis/trattoria/cucina"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone"`
}

type AddCartItemRequest struct {
	ItemID   string            `json:"item_id" validate:"required"`
	ItemType carrello.ItemType `json:"item_type" validate:"required,oneof=pizza menu_item"`
	Name     string            `json:"name" validate:"required"`
	Size     string            `json:"size"`
	Quantity int               `json:"quantity" validate:"required,min=1"`
	Price    float64           `json:"price" validate:"required,gt=0"`
	Toppings []string          `json:"toppings" validate:"dive,required"`
}

func (r AddCartItemRequest) toLineItem() carrello.LineItem {
	return carrello.LineItem{
		ItemID:   r.ItemID,
		ItemType: r.ItemType,
		Name:     r.Name,
		Size:     r.Size,
		Quantity: r.Quantity,
		Price:    r.Price,
		Toppings: r.Toppings,
	}
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type AddressPayload struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Phone   string `json:"phone"`
}

func (a *AddressPayload) toAddress() *cucina.Address {
	if a == nil {
		return nil
	}
	return &cucina.Address{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Phone:   a.Phone,
	}
}

type QuoteRequest struct {
	OrderType       cucina.OrderType `json:"order_type" validate:"required,oneof=delivery pickup"`
	DeliveryAddress *AddressPayload  `json:"delivery_address"`
}

type CheckoutRequest struct {
	OrderType           cucina.OrderType     `json:"order_type" validate:"required,oneof=delivery pickup"`
	PaymentMethod       cucina.PaymentMethod `json:"payment_method" validate:"required,oneof=cash online"`
	DeliveryAddress     *AddressPayload      `json:"delivery_address"`
	SpecialInstructions string               `json:"special_instructions"`
}

type CartResponse struct {
	Items    []carrello.LineItem `json:"items"`
	Subtotal float64             `json:"subtotal"`
}

type CheckoutResponse struct {
	OrderID string             `json:"order_id"`
	Status  cucina.OrderStatus `json:"status"`
	Quote   conto.Quote        `json:"quote"`
	Warning string             `json:"warning,omitempty"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

type StatusUpdateResponse struct {
	OrderID     string               `json:"order_id"`
	Status      cucina.OrderStatus   `json:"status"`
	AllowedNext []cucina.OrderStatus `json:"allowed_next"`
}

type AnalyticsResponse struct {
	TotalOrders       int                        `json:"total_orders"`
	OrdersByStatus    map[cucina.OrderStatus]int `json:"orders_by_status"`
	Revenue           float64                    `json:"revenue"`
	AverageOrderValue float64                    `json:"average_order_value"`
	DeliveryOrders    int                        `json:"delivery_orders"`
	PickupOrders      int                        `json:"pickup_orders"`
}

// ErrorResponse mirrors the kitchen's error shape so the frontend deals
// with a single contract. Issues is only set for local validation.
type ErrorResponse struct {
	Detail string   `json:"detail"`
	Issues []string `json:"issues,omitempty"`
}
