// Command payment-stub is a stand-in for the external payment service, used
// in local development and the integration test environment. It implements
// the create and process endpoints and approves every payment, unless
// --fail-first is set to make the first N process calls return 503.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createRequest struct {
	UserID        uuid.UUID       `json:"userId"`
	CourseID      uuid.UUID       `json:"courseId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod int             `json:"paymentMethod"`
	Description   string          `json:"description"`
}

type createResponse struct {
	ID     uuid.UUID       `json:"id"`
	UserID uuid.UUID       `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
	Status int             `json:"status"`
}

func main() {
	var (
		addr      string
		failFirst int
	)
	flag.StringVar(&addr, "addr", ":5100", "listen address")
	flag.IntVar(&failFirst, "fail-first", 0, "number of process calls to fail before approving")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var processed atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments", func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		id := uuid.New()
		slog.Info("payment created",
			slog.String("id", id.String()),
			slog.String("amount", req.Amount.String()),
			slog.String("description", req.Description),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createResponse{
			ID:     id,
			UserID: req.UserID,
			Amount: req.Amount,
		})
	})
	mux.HandleFunc("POST /api/payments/{id}/process", func(w http.ResponseWriter, r *http.Request) {
		n := processed.Add(1)
		if n <= int64(failFirst) {
			slog.Info("payment declined", slog.String("id", r.PathValue("id")), slog.Int64("call", n))
			http.Error(w, "payment declined", http.StatusServiceUnavailable)
			return
		}
		slog.Info("payment processed", slog.String("id", r.PathValue("id")))
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("payment stub listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
