// Package ledger stores per-user append-only investment snapshot logs.
package ledger

import (
	"context"
	"errors"

	"github.com/holdwatch/holdwatch/internal/domain"
)

// ErrNotFound indicates that the requested investment has no history.
var ErrNotFound = errors.New("investment not found")

// Repository defines persistent storage for snapshot logs. Snapshots are
// append-only: never mutated, never deleted. Reads are full scans; callers
// filter and select in memory.
type Repository interface {
	Append(ctx context.Context, userID string, s domain.Snapshot) error
	List(ctx context.Context, userID string) ([]domain.Snapshot, error)
	Users(ctx context.Context) ([]string, error)
}
