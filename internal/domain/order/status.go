package order

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusOpen is the initial state; the order is the customer's cart and
	// its lines may be mutated.
	StatusOpen Status = "open"
	// StatusCheckout freezes the lines while payment is being attempted.
	StatusCheckout Status = "checkout"
	// StatusPaid is terminal.
	StatusPaid Status = "paid"
	// StatusCancelled is terminal.
	StatusCancelled Status = "cancelled"
)

// IllegalTransitionError indicates a status transition outside the allowed
// table. It signals an internal invariant violation, not a user-facing
// condition.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order transition %s -> %s", e.From, e.To)
}

// transitions is the full table of legal status changes. Paid and Cancelled
// are terminal; Checkout never reverts to Open.
var transitions = map[Status][]Status{
	StatusOpen:     {StatusCheckout},
	StatusCheckout: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to without applying it. It does not check the
// non-empty-lines precondition of Open -> Checkout; use Order.BeginCheckout
// for that.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return &IllegalTransitionError{From: from, To: to}
	}
	return nil
}

// BeginCheckout moves the order from Open to Checkout. An order with no lines
// fails with ErrEmptyCart and is left unchanged. The caller is responsible
// for persisting the new status.
func (o *Order) BeginCheckout() error {
	if err := Transition(o.Status, StatusCheckout); err != nil {
		return err
	}
	if len(o.Lines) == 0 {
		return ErrEmptyCart
	}
	o.Status = StatusCheckout
	return nil
}

// MarkPaid moves the order from Checkout to Paid and refreshes its date.
func (o *Order) MarkPaid(now time.Time) error {
	if err := Transition(o.Status, StatusPaid); err != nil {
		return err
	}
	o.Status = StatusPaid
	o.Date = now
	return nil
}

// MarkCancelled moves the order from Checkout to Cancelled and refreshes its
// date.
func (o *Order) MarkCancelled(now time.Time) error {
	if err := Transition(o.Status, StatusCancelled); err != nil {
		return err
	}
	o.Status = StatusCancelled
	o.Date = now
	return nil
}
