package grpcserver

import (
	"karavanCanteen/internal/cart"
	"karavanCanteen/internal/visibility"
	"karavanCanteen/models"
)

type PlaceOrderRequest struct {
	Items               []cart.Selection     `json:"items"`
	DeliveryLocation    string               `json:"delivery_location"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	PaymentMethod       models.PaymentMethod `json:"payment_method,omitempty"`
}

type TransitionOrderRequest struct {
	OrderID int64              `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

type GetOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type ListViewRequest struct {
	View visibility.View `json:"view"`
}

type ListViewResponse struct {
	View   visibility.View `json:"view"`
	Orders []models.Order  `json:"orders"`
}

// orderResponse wraps an order so every reply is a JSON object.
type orderResponse struct {
	Order *models.Order `json:"order"`
}
