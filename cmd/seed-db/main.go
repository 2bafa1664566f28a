// Command seed-db applies the schema and loads the course catalog from a JSON
// file. Intended for local development and the integration test environment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/course-checkout/internal/domain/course"
	"github.com/xenking/course-checkout/internal/storage/postgres"
)

type courseJSON struct {
	ID    uuid.UUID       `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

func main() {
	var (
		databaseURL string
		coursesFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&coursesFile, "courses-file", "db/seed/courses.json", "path to courses JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, coursesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, coursesFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedCourses(ctx, postgres.NewCourseRepository(pool), coursesFile)
}

func seedCourses(ctx context.Context, courses *postgres.CourseRepository, coursesFile string) error {
	slog.Info("reading courses file", slog.String("path", coursesFile))

	data, err := os.ReadFile(coursesFile)
	if err != nil {
		return errors.Wrap(err, "read courses file")
	}

	var catalog []courseJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse courses JSON")
	}

	slog.Info("upserting courses", slog.Int("count", len(catalog)))

	for _, c := range catalog {
		err := courses.Upsert(ctx, course.Course{
			ID:    c.ID,
			Title: c.Title,
			Price: c.Price,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert course %s", c.ID)
		}

		slog.Info("upserted course", slog.String("id", c.ID.String()), slog.String("title", c.Title))
	}

	return nil
}
