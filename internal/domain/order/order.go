package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart and checkout operations.
var (
	// ErrCartNotFound indicates the customer has no open order.
	ErrCartNotFound = errors.New("cart not found")
	// ErrEmptyCart indicates a checkout was attempted on an order with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound indicates the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrVersionConflict indicates a concurrent update won the optimistic
	// version check. The caller may reload and retry.
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// Order is a customer's order. An order with StatusOpen is the customer's
// cart; there is at most one per customer. Paid and cancelled orders are kept
// as historical records and never deleted.
type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Status     Status
	// Date is set on creation and refreshed when the order reaches a
	// terminal status.
	Date time.Time
	// Version is the optimistic concurrency token, advanced by the store on
	// every status update.
	Version int64
	Lines   []Line
}

// Line is a single course entry in an order. Price and Discount are snapshots
// captured at add-to-cart time and never follow later catalog changes.
type Line struct {
	OrderID  uuid.UUID
	CourseID uuid.UUID
	Price    decimal.Decimal
	Quantity int
	Discount int
}

// Subtotal returns the unrounded line amount after discount.
func (l Line) Subtotal() decimal.Decimal {
	qty := decimal.NewFromInt(int64(l.Quantity))
	factor := decimal.NewFromInt(int64(100 - l.Discount)).Div(decimal.NewFromInt(100))
	return l.Price.Mul(qty).Mul(factor)
}

// Total returns the order total: the sum of line subtotals, rounded to
// 2 decimal places at the end only.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	// FindOpenByCustomer returns the customer's open order with its lines,
	// or ErrCartNotFound if none exists.
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*Order, error)
	// FindByID returns the order with its lines, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListCompletedByCustomer returns the customer's paid and cancelled
	// orders, most recent first, without lines.
	ListCompletedByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	// Create persists a new order without lines.
	Create(ctx context.Context, o *Order) error
	// UpdateStatus persists the order's status and date. The update is
	// guarded by the order's Version: when the stored version differs the
	// call returns ErrVersionConflict and changes nothing. On success the
	// order's Version is advanced.
	UpdateStatus(ctx context.Context, o *Order) error

	// AddLine inserts a new line for an order.
	AddLine(ctx context.Context, l Line) error
	// UpdateLineQuantity sets the quantity of an existing line.
	UpdateLineQuantity(ctx context.Context, orderID, courseID uuid.UUID, quantity int) error
	// DeleteLine removes a line. Deleting an absent line is a no-op.
	DeleteLine(ctx context.Context, orderID, courseID uuid.UUID) error
}
