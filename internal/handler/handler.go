// Package handler exposes the checkout HTTP surface. Handlers translate
// between JSON DTOs and the domain services and map domain errors to HTTP
// status codes.
package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/xenking/course-checkout/internal/domain/order"
	"github.com/xenking/course-checkout/internal/domain/payment"
)

// Cart mutates and reads the customer's open order.
type Cart interface {
	AddToCart(ctx context.Context, customerID, courseID uuid.UUID) error
	RemoveFromCart(ctx context.Context, customerID, courseID uuid.UUID) error
	GetCart(ctx context.Context, customerID uuid.UUID) ([]order.Line, error)
}

// Payments processes a payment for the customer's cart.
type Payments interface {
	Process(ctx context.Context, customerID uuid.UUID, req payment.Request) (*payment.Outcome, error)
}

// Handler serves the courses and orders API.
type Handler struct {
	cart     Cart
	payments Payments
	orders   order.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cart Cart, payments Payments, orders order.Repository) *Handler {
	return &Handler{
		cart:     cart,
		payments: payments,
		orders:   orders,
	}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /courses/{id}/buy", h.BuyCourse)
	mux.HandleFunc("GET /orders", h.ListOrders)
	mux.HandleFunc("GET /orders/cart", h.GetCart)
	mux.HandleFunc("DELETE /orders/cart/{courseId}", h.RemoveFromCart)
	mux.HandleFunc("GET /orders/payment-methods", h.PaymentMethods)
	mux.HandleFunc("POST /orders/payment", h.ProcessPayment)
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /orders/{id}/details", h.GetOrderDetails)
}
