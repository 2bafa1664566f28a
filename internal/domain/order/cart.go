package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/course-checkout/internal/domain/course"
)

// CartService mutates the customer's cart, the single open order per
// customer. The open order is created lazily on the first add.
type CartService struct {
	courses course.Repository
	orders  Repository
	now     func() time.Time
}

// NewCartService creates a CartService with the required domain dependencies.
func NewCartService(courses course.Repository, orders Repository) *CartService {
	return &CartService{
		courses: courses,
		orders:  orders,
		now:     time.Now,
	}
}

// AddToCart adds one unit of the course to the customer's cart. A line that
// already holds the course has its quantity incremented; its price and
// discount snapshots are left untouched. Otherwise a new line is inserted
// with quantity 1, no discount, and the current catalog price as snapshot.
func (s *CartService) AddToCart(ctx context.Context, customerID, courseID uuid.UUID) error {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return errors.Wrapf(err, "get course %s", courseID)
	}

	cart, err := s.orders.FindOpenByCustomer(ctx, customerID)
	switch {
	case errors.Is(err, ErrCartNotFound):
		cart = &Order{
			ID:         uuid.New(),
			CustomerID: customerID,
			Status:     StatusOpen,
			Date:       s.now().UTC(),
		}
		if err := s.orders.Create(ctx, cart); err != nil {
			return errors.Wrap(err, "create cart")
		}
	case err != nil:
		return errors.Wrap(err, "find cart")
	}

	for _, l := range cart.Lines {
		if l.CourseID == courseID {
			if err := s.orders.UpdateLineQuantity(ctx, cart.ID, courseID, l.Quantity+1); err != nil {
				return errors.Wrap(err, "increment quantity")
			}
			return nil
		}
	}

	line := Line{
		OrderID:  cart.ID,
		CourseID: courseID,
		Price:    c.Price,
		Quantity: 1,
		Discount: 0,
	}
	if err := s.orders.AddLine(ctx, line); err != nil {
		return errors.Wrap(err, "add line")
	}
	return nil
}

// RemoveFromCart deletes the course's line from the customer's cart. A
// missing line is a no-op; a missing cart is ErrCartNotFound.
func (s *CartService) RemoveFromCart(ctx context.Context, customerID, courseID uuid.UUID) error {
	cart, err := s.orders.FindOpenByCustomer(ctx, customerID)
	if err != nil {
		return errors.Wrap(err, "find cart")
	}

	if err := s.orders.DeleteLine(ctx, cart.ID, courseID); err != nil {
		return errors.Wrap(err, "delete line")
	}
	return nil
}

// GetCart returns the lines of the customer's open order. A customer without
// a cart gets an empty slice, not an error.
func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) ([]Line, error) {
	cart, err := s.orders.FindOpenByCustomer(ctx, customerID)
	if errors.Is(err, ErrCartNotFound) {
		return []Line{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find cart")
	}
	return cart.Lines, nil
}
