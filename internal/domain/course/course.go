package course

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested course does not exist.
var ErrNotFound = errors.New("course not found")

// Course represents a catalog entry available for purchase.
type Course struct {
	ID    uuid.UUID
	Title string
	Price decimal.Decimal
}

// Repository defines read operations for the course catalog.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Course, error)
}
