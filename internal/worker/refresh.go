package worker

import (
	"context"
	"log/slog"
	"time"
)

// StaleRefresher runs the staleness policy for one user's investments.
type StaleRefresher interface {
	RefreshStale(ctx context.Context, userID string)
}

// UserLister enumerates user identities with recorded ledgers.
type UserLister interface {
	Users(ctx context.Context) ([]string, error)
}

// RefreshWorker periodically sweeps every user's ledger and refreshes
// stale investments, so holdings stay current even for users who have not
// loaded the view in a while. Individual failures are logged; the sweep
// continues.
type RefreshWorker struct {
	refresher StaleRefresher
	users     UserLister
	interval  time.Duration
}

// NewRefreshWorker creates a new RefreshWorker.
func NewRefreshWorker(refresher StaleRefresher, users UserLister, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		users:     users,
		interval:  interval,
	}
}

// Run starts the sweep loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RefreshWorker) sweep(ctx context.Context) {
	users, err := w.users.Users(ctx)
	if err != nil {
		slog.Error("RefreshWorker: listing users failed", "error", err)
		return
	}
	for _, u := range users {
		if ctx.Err() != nil {
			return
		}
		w.refresher.RefreshStale(ctx, u)
	}
	slog.Info("RefreshWorker: sweep completed", "users", len(users))
}
