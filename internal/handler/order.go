package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/course-checkout/internal/domain/course"
	"github.com/xenking/course-checkout/internal/domain/order"
	"github.com/xenking/course-checkout/internal/domain/payment"
	"github.com/xenking/course-checkout/internal/gateway"
)

// cartItem is a single cart line in API responses.
type cartItem struct {
	CourseID uuid.UUID `json:"courseId"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
	Discount int       `json:"discount"`
}

// orderSummary describes a completed order in API responses.
type orderSummary struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customerId"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
}

// paymentRequest is the POST /orders/payment body. Model is required for card
// payments only.
type paymentRequest struct {
	Method string        `json:"method"`
	Model  *payment.Card `json:"model,omitempty"`
}

// paymentReceipt is the JSON response for gateway payments.
type paymentReceipt struct {
	UserID      uuid.UUID `json:"userId"`
	OrderID     uuid.UUID `json:"orderId"`
	PaymentDate time.Time `json:"paymentDate"`
	Sum         float64   `json:"sum"`
}

// BuyCourse handles POST /courses/{id}/buy: add one unit of the course to the
// customer's cart.
func (h *Handler) BuyCourse(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "customer identity required")
		return
	}
	courseID, ok := pathUUID(r, "id")
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid course id")
		return
	}

	if err := h.cart.AddToCart(r.Context(), cid, courseID); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "course not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]string{"status": "added"})
}

// GetCart handles GET /orders/cart. A customer without a cart gets an empty
// array.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "customer identity required")
		return
	}

	lines, err := h.cart.GetCart(r.Context(), cid)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, linesToItems(lines))
}

// RemoveFromCart handles DELETE /orders/cart/{courseId}. Removing a course
// that is not in the cart succeeds; a missing cart is 404.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "customer identity required")
		return
	}
	courseID, ok := pathUUID(r, "courseId")
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid course id")
		return
	}

	if err := h.cart.RemoveFromCart(r.Context(), cid, courseID); err != nil {
		if errors.Is(err, order.ErrCartNotFound) {
			respondError(w, r, http.StatusNotFound, "cart not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListOrders handles GET /orders: the customer's paid and cancelled orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "customer identity required")
		return
	}

	completed, err := h.orders.ListCompletedByCustomer(r.Context(), cid)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	summaries := make([]orderSummary, len(completed))
	for i, o := range completed {
		summaries[i] = orderSummary{
			ID:         o.ID,
			CustomerID: o.CustomerID,
			Date:       o.Date,
			Status:     string(o.Status),
		}
	}
	respondJSON(w, r, http.StatusOK, summaries)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, orderSummary{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Date:       o.Date,
		Status:     string(o.Status),
	})
}

// GetOrderDetails handles GET /orders/{id}/details: the order's lines.
func (h *Handler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, linesToItems(o.Lines))
}

// PaymentMethods handles GET /orders/payment-methods.
func (h *Handler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]any{
		"paymentMethods": payment.Methods(),
	})
}

// ProcessPayment handles POST /orders/payment. Bank payments answer with the
// invoice PDF; gateway payments answer with a JSON receipt.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	cid, ok := customerID(r)
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "customer identity required")
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.payments.Process(r.Context(), cid, payment.Request{
		Method: req.Method,
		Card:   req.Model,
	})
	if err != nil {
		h.mapPaymentError(w, r, err)
		return
	}

	if outcome.Invoice != nil {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=invoice-%s.pdf", time.Now().UTC().Format("20060102150405")))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(outcome.Invoice)
		return
	}

	rc := outcome.Receipt
	respondJSON(w, r, http.StatusOK, paymentReceipt{
		UserID:      rc.UserID,
		OrderID:     rc.OrderID,
		PaymentDate: rc.PaymentDate,
		Sum:         rc.Sum.InexactFloat64(),
	})
}

// mapPaymentError converts dispatcher errors to HTTP responses.
func (h *Handler) mapPaymentError(w http.ResponseWriter, r *http.Request, err error) {
	var unknown *payment.UnknownMethodError
	switch {
	case errors.Is(err, order.ErrCartNotFound):
		respondError(w, r, http.StatusNotFound, "cart not found")
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, r, http.StatusBadRequest, "cart is empty")
	case errors.As(err, &unknown):
		respondError(w, r, http.StatusBadRequest, unknown.Error())
	case errors.Is(err, payment.ErrCardRequired):
		respondError(w, r, http.StatusBadRequest, "card details are required")
	case errors.Is(err, order.ErrVersionConflict):
		respondError(w, r, http.StatusConflict, "order was modified concurrently, retry")
	case errors.Is(err, gateway.ErrUnavailable):
		respondError(w, r, http.StatusBadGateway, "payment processing failed")
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal error")
}

func linesToItems(lines []order.Line) []cartItem {
	items := make([]cartItem, len(lines))
	for i, l := range lines {
		items[i] = cartItem{
			CourseID: l.CourseID,
			Price:    l.Price.InexactFloat64(),
			Quantity: l.Quantity,
			Discount: l.Discount,
		}
	}
	return items
}
