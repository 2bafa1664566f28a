package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/course-checkout/internal/domain/order"
	"github.com/xenking/course-checkout/internal/gateway"
)

// ErrCardRequired indicates a card payment was requested without card details.
var ErrCardRequired = errors.New("card details are required")

// Gateway charges the external payment service.
type Gateway interface {
	Charge(ctx context.Context, req gateway.ChargeRequest) error
}

// Invoicer renders the offline-payment document for bank transfers.
type Invoicer interface {
	Generate(o *order.Order, total decimal.Decimal, validity time.Time) []byte
}

// Request is a payment request for the customer's current cart.
type Request struct {
	Method string
	// Card is required for card payments only.
	Card *Card
}

// Receipt confirms a completed gateway payment.
type Receipt struct {
	UserID      uuid.UUID
	OrderID     uuid.UUID
	PaymentDate time.Time
	Sum         decimal.Decimal
}

// Outcome is the result of a successful payment. Exactly one of Invoice and
// Receipt is set: Invoice for bank transfers, Receipt for gateway payments.
type Outcome struct {
	Invoice []byte
	Receipt *Receipt
}

// Dispatcher orchestrates checkout: it freezes the cart, computes the total,
// dispatches to the selected payment strategy, and settles the order status.
type Dispatcher struct {
	orders       order.Repository
	gateway      Gateway
	invoices     Invoicer
	validityDays int
	now          func() time.Time
}

// NewDispatcher creates a Dispatcher. validityDays is the bank invoice
// validity window in days.
func NewDispatcher(orders order.Repository, gw Gateway, invoices Invoicer, validityDays int) *Dispatcher {
	return &Dispatcher{
		orders:       orders,
		gateway:      gw,
		invoices:     invoices,
		validityDays: validityDays,
		now:          time.Now,
	}
}

// Process pays for the customer's cart.
//
// The cart is moved to checkout and committed before anything else happens;
// from that point the lines are frozen and a failed payment leaves the order
// cancelled, never reusable as a cart. Validation failures after the freeze
// (unknown method, missing card details) leave the order in checkout for the
// caller to resolve. A gateway failure triggers the compensating cancellation
// and then propagates.
func (d *Dispatcher) Process(ctx context.Context, customerID uuid.UUID, req Request) (*Outcome, error) {
	cart, err := d.orders.FindOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "find cart")
	}

	if err := cart.BeginCheckout(); err != nil {
		return nil, err
	}
	if err := d.orders.UpdateStatus(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "commit checkout")
	}

	total := cart.Total()

	outcome, err := d.dispatch(ctx, cart, total, req)
	if err != nil {
		var unknown *UnknownMethodError
		if errors.As(err, &unknown) || errors.Is(err, ErrCardRequired) {
			return nil, err
		}
		return nil, d.cancel(ctx, cart, err)
	}

	if err := cart.MarkPaid(d.now().UTC()); err != nil {
		return nil, err
	}
	// Not atomic with the gateway call: when this commit fails the gateway
	// may already have charged. Known dual-write gap.
	if err := d.orders.UpdateStatus(ctx, cart); err != nil {
		return nil, errors.Wrap(err, "commit paid")
	}

	return outcome, nil
}

// dispatch selects the payment strategy by method name.
func (d *Dispatcher) dispatch(ctx context.Context, cart *order.Order, total decimal.Decimal, req Request) (*Outcome, error) {
	switch req.Method {
	case MethodBank:
		validity := d.now().UTC().AddDate(0, 0, d.validityDays)
		return &Outcome{Invoice: d.invoices.Generate(cart, total, validity)}, nil

	case MethodIBox:
		err := d.gateway.Charge(ctx, gateway.ChargeRequest{
			UserID:      cart.CustomerID,
			CourseID:    firstCourseID(cart),
			Amount:      total,
			MethodCode:  gateway.MethodCodeCash,
			Description: fmt.Sprintf("Order %s - IBox Terminal Payment", cart.ID),
			Token:       "ibox-terminal-token",
			AdditionalData: map[string]string{
				"terminal_id": "IBOX-001",
			},
		})
		if err != nil {
			return nil, err
		}
		return d.receipt(cart, total), nil

	case MethodVisa:
		if req.Card == nil {
			return nil, ErrCardRequired
		}
		last4 := req.Card.lastFour()
		err := d.gateway.Charge(ctx, gateway.ChargeRequest{
			UserID:      cart.CustomerID,
			CourseID:    firstCourseID(cart),
			Amount:      total,
			MethodCode:  gateway.MethodCodeCreditCard,
			Description: fmt.Sprintf("Order %s - Visa Payment", cart.ID),
			Token:       "visa-" + last4,
			AdditionalData: map[string]string{
				"card_holder":    req.Card.Holder,
				"card_last_four": last4,
				"expiry_month":   fmt.Sprint(req.Card.MonthExpire),
				"expiry_year":    fmt.Sprint(req.Card.YearExpire),
			},
		})
		if err != nil {
			return nil, err
		}
		return d.receipt(cart, total), nil

	default:
		return nil, &UnknownMethodError{Method: req.Method}
	}
}

// cancel is the compensating action for a failed dispatch: the order moves to
// cancelled and the dispatch error propagates. No partially paid state stays
// visible.
func (d *Dispatcher) cancel(ctx context.Context, cart *order.Order, cause error) error {
	lg := zctx.From(ctx)
	lg.Error("Payment failed, cancelling order",
		zap.Stringer("order_id", cart.ID),
		zap.Error(cause),
	)

	if err := cart.MarkCancelled(d.now().UTC()); err != nil {
		return err
	}
	if err := d.orders.UpdateStatus(ctx, cart); err != nil {
		lg.Error("Failed to cancel order", zap.Stringer("order_id", cart.ID), zap.Error(err))
	}
	return cause
}

func (d *Dispatcher) receipt(cart *order.Order, total decimal.Decimal) *Outcome {
	return &Outcome{
		Receipt: &Receipt{
			UserID:      cart.CustomerID,
			OrderID:     cart.ID,
			PaymentDate: d.now().UTC(),
			Sum:         total,
		},
	}
}

// firstCourseID returns the first line's course id, sent to the payment
// service for reference only.
func firstCourseID(o *order.Order) uuid.UUID {
	if len(o.Lines) == 0 {
		return uuid.Nil
	}
	return o.Lines[0].CourseID
}
