package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/course-checkout/internal/domain/course"
)

const (
	getCourseSQL = `SELECT id, title, price FROM courses WHERE id = $1`

	upsertCourseSQL = `
INSERT INTO courses (id, title, price)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, price = EXCLUDED.price`
)

var _ course.Repository = (*CourseRepository)(nil)

// CourseRepository implements course.Repository backed by PostgreSQL.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository returns a CourseRepository that uses the given pool.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID returns a single course by its identifier, or course.ErrNotFound.
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*course.Course, error) {
	var c course.Course
	err := r.pool.QueryRow(ctx, getCourseSQL, id).Scan(&c.ID, &c.Title, &c.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, course.ErrNotFound
		}
		return nil, fmt.Errorf("finding course %q: %w", id, err)
	}
	return &c, nil
}

// Upsert inserts or updates a course by id. Used by the catalog seeder.
func (r *CourseRepository) Upsert(ctx context.Context, c course.Course) error {
	if _, err := r.pool.Exec(ctx, upsertCourseSQL, c.ID, c.Title, c.Price); err != nil {
		return fmt.Errorf("upserting course %q: %w", c.ID, err)
	}
	return nil
}
