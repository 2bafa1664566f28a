package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/course-checkout/internal/domain/order"
)

const (
	findOpenOrderSQL = `SELECT id, customer_id, status, date, version
	FROM orders WHERE customer_id = $1 AND status = 'open'`

	findOrderSQL = `SELECT id, customer_id, status, date, version
	FROM orders WHERE id = $1`

	listCompletedSQL = `SELECT id, customer_id, status, date, version
	FROM orders WHERE customer_id = $1 AND status IN ('paid', 'cancelled')
	ORDER BY date DESC`

	listLinesSQL = `SELECT order_id, course_id, price, quantity, discount
	FROM order_lines WHERE order_id = $1 ORDER BY course_id`

	createOrderSQL = `INSERT INTO orders (id, customer_id, status, date, version)
	VALUES ($1, $2, $3, $4, $5)`

	updateStatusSQL = `UPDATE orders SET status = $2, date = $3, version = version + 1
	WHERE id = $1 AND version = $4`

	addLineSQL = `INSERT INTO order_lines (order_id, course_id, price, quantity, discount)
	VALUES ($1, $2, $3, $4, $5)`

	updateLineQuantitySQL = `UPDATE order_lines SET quantity = $3
	WHERE order_id = $1 AND course_id = $2`

	deleteLineSQL = `DELETE FROM order_lines WHERE order_id = $1 AND course_id = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// FindOpenByCustomer returns the customer's open order with its lines, or
// order.ErrCartNotFound.
func (r *OrderRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*order.Order, error) {
	o, err := r.scanOrder(ctx, findOpenOrderSQL, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrCartNotFound
		}
		return nil, fmt.Errorf("finding open order for customer %q: %w", customerID, err)
	}

	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// FindByID returns the order with its lines, or order.ErrNotFound.
func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := r.scanOrder(ctx, findOrderSQL, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}

	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListCompletedByCustomer returns the customer's paid and cancelled orders,
// most recent first, without lines.
func (r *OrderRepository) ListCompletedByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listCompletedSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.Date, &o.Version); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	return orders, nil
}

// Create persists a new order without lines.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL, o.ID, o.CustomerID, o.Status, o.Date, o.Version)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// UpdateStatus persists the order's status and date, guarded by the optimistic
// version. A lost race surfaces as order.ErrVersionConflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, o.ID, o.Status, o.Date, o.Version)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrVersionConflict
	}
	o.Version++
	return nil
}

// AddLine inserts a new order line.
func (r *OrderRepository) AddLine(ctx context.Context, l order.Line) error {
	_, err := r.pool.Exec(ctx, addLineSQL, l.OrderID, l.CourseID, l.Price, l.Quantity, l.Discount)
	if err != nil {
		return fmt.Errorf("adding line (%q, %q): %w", l.OrderID, l.CourseID, err)
	}
	return nil
}

// UpdateLineQuantity sets the quantity of an existing line.
func (r *OrderRepository) UpdateLineQuantity(ctx context.Context, orderID, courseID uuid.UUID, quantity int) error {
	_, err := r.pool.Exec(ctx, updateLineQuantitySQL, orderID, courseID, quantity)
	if err != nil {
		return fmt.Errorf("updating line (%q, %q): %w", orderID, courseID, err)
	}
	return nil
}

// DeleteLine removes a line. Deleting an absent line is a no-op.
func (r *OrderRepository) DeleteLine(ctx context.Context, orderID, courseID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, deleteLineSQL, orderID, courseID)
	if err != nil {
		return fmt.Errorf("deleting line (%q, %q): %w", orderID, courseID, err)
	}
	return nil
}

func (r *OrderRepository) scanOrder(ctx context.Context, sql string, arg any) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&o.ID, &o.CustomerID, &o.Status, &o.Date, &o.Version)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, o *order.Order) error {
	rows, err := r.pool.Query(ctx, listLinesSQL, o.ID)
	if err != nil {
		return fmt.Errorf("loading lines for order %q: %w", o.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.OrderID, &l.CourseID, &l.Price, &l.Quantity, &l.Discount); err != nil {
			return fmt.Errorf("scanning line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading lines for order %q: %w", o.ID, err)
	}
	return nil
}
