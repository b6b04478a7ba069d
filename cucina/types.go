// Package cucina is the typed REST client for the kitchen backend: the
// external service that owns users, the menu and order storage. This
// package also carries the shared order model and the status machine.
package cucina

import (
	"time"

	"github.com/taldoflemis/trattoria/carrello"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodOnline PaymentMethod = "online"
)

// User is the backend-owned identity; the client only holds a cached
// copy next to the bearer token.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	IsAdmin   bool   `json:"is_admin"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Phone   string `json:"phone,omitempty"`
}

type Pizza struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	ImageURL    string             `json:"image_url"`
	Sizes       map[string]float64 `json:"sizes"`
	Toppings    []string           `json:"toppings"`
	IsAvailable bool               `json:"is_available"`
}

type MenuItem struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Price       float64            `json:"price"`
	Sizes       map[string]float64 `json:"sizes,omitempty"`
	ImageURL    string             `json:"image_url"`
	IsAvailable bool               `json:"is_available"`
}

type Categories struct {
	PizzaCategories []string `json:"pizza_categories"`
	OtherCategories []string `json:"other_categories"`
}

// Order is created by the backend at submission time; the item list is
// an immutable snapshot of the cart.
type Order struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"user_id,omitempty"`
	Items               []carrello.LineItem `json:"items"`
	DeliveryAddress     *Address            `json:"delivery_address,omitempty"`
	OrderType           OrderType           `json:"order_type"`
	PaymentMethod       PaymentMethod       `json:"payment_method"`
	Subtotal            float64             `json:"subtotal"`
	DeliveryFee         float64             `json:"delivery_fee"`
	Tax                 float64             `json:"tax"`
	Total               float64             `json:"total"`
	Status              OrderStatus         `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
	EstimatedDelivery   *time.Time          `json:"estimated_delivery,omitempty"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
}

// Credentials is what the auth endpoints hand back on success.
type Credentials struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// CreateOrderRequest is the snapshot payload for POST /api/orders.
type CreateOrderRequest struct {
	Items               []carrello.LineItem `json:"items"`
	DeliveryAddress     *Address            `json:"delivery_address,omitempty"`
	OrderType           OrderType           `json:"order_type"`
	PaymentMethod       PaymentMethod       `json:"payment_method"`
	Subtotal            float64             `json:"subtotal"`
	DeliveryFee         float64             `json:"delivery_fee"`
	Tax                 float64             `json:"tax"`
	Total               float64             `json:"total"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
}
