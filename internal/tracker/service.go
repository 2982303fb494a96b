// Package tracker coordinates rate limiting, price resolution, and ledger
// appends for investment refreshes.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
	"github.com/holdwatch/holdwatch/internal/ledger"
	"github.com/holdwatch/holdwatch/internal/pricing"
	"github.com/holdwatch/holdwatch/internal/ratelimit"
)

// ErrValidation indicates missing or invalid request fields; the request is
// rejected before any side effect.
var ErrValidation = errors.New("validation failed")

// RateLimitedError is returned when a refresh is denied by the admission
// window. It carries enough structure for the caller to render a countdown.
type RateLimitedError struct {
	Seconds int64
	Reason  string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, %ds remaining", e.Seconds)
}

// PriceResolver resolves a current unit price for an investment type.
type PriceResolver interface {
	Resolve(ctx context.Context, t domain.InvestmentType) (decimal.Decimal, error)
}

// RefreshResult describes the snapshot appended by a successful refresh.
type RefreshResult struct {
	Timestamp      time.Time             `json:"timestamp"`
	UnitPrice      decimal.Decimal       `json:"unitPrice"`
	TotalValue     decimal.Decimal       `json:"totalValue"`
	InvestmentType domain.InvestmentType `json:"investmentType"`
	Amount         decimal.Decimal       `json:"amount"`
}

// Service is the update orchestrator.
type Service struct {
	repo       ledger.Repository
	resolver   PriceResolver
	limiter    *ratelimit.Limiter
	staleAfter time.Duration
	now        func() time.Time
}

// NewService creates a tracker service. staleAfter is the age beyond which
// an investment's latest snapshot triggers a best-effort auto-refresh.
func NewService(repo ledger.Repository, resolver PriceResolver, limiter *ratelimit.Limiter, staleAfter time.Duration) *Service {
	return &Service{
		repo:       repo,
		resolver:   resolver,
		limiter:    limiter,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// WithClock overrides the service's time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Refresh re-prices one investment and appends a new snapshot.
//
// The limiter entry is recorded only after the price fetch and the append
// have both succeeded, so a failed refresh never consumes the window. A
// denied refresh has no side effects at all. The (user, name) key stays
// held from admission through Record, so of two concurrent refreshes only
// the first is admitted; the second waits and then sees the fresh entry.
func (s *Service) Refresh(ctx context.Context, userID, name string) (RefreshResult, error) {
	d, release := s.limiter.Acquire(userID, name)
	if !d.Allowed {
		return RefreshResult{}, &RateLimitedError{Seconds: d.Seconds, Reason: d.Reason}
	}
	defer release()

	latest, err := s.latest(ctx, userID, name)
	if err != nil {
		return RefreshResult{}, err
	}
	if latest.InvestmentType == domain.TypeCustom {
		return RefreshResult{}, fmt.Errorf("%s: %w", name, pricing.ErrUnsupportedAsset)
	}

	unitPrice, err := s.resolver.Resolve(ctx, latest.InvestmentType)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("refreshing %s: %w", name, err)
	}

	now := s.now().UTC()
	totalValue := unitPrice.Mul(latest.Amount)
	snap := domain.Snapshot{
		InvestmentName: latest.InvestmentName,
		InvestmentType: latest.InvestmentType,
		Amount:         latest.Amount,
		Value:          totalValue,
		Timestamp:      now,
	}
	if err := s.repo.Append(ctx, userID, snap); err != nil {
		return RefreshResult{}, fmt.Errorf("recording refresh of %s: %w", name, err)
	}

	s.limiter.Record(userID, name, ratelimit.ReasonUpdate)

	return RefreshResult{
		Timestamp:      now,
		UnitPrice:      unitPrice,
		TotalValue:     totalValue,
		InvestmentType: latest.InvestmentType,
		Amount:         latest.Amount,
	}, nil
}

// Save appends a first or standalone snapshot from user-entered data. It is
// not rate-limited, but it arms the limiter so an immediate refresh of a
// just-created investment is denied with a creation cooldown.
func (s *Service) Save(ctx context.Context, userID string, snap domain.Snapshot) (time.Time, error) {
	snap.InvestmentName = strings.TrimSpace(snap.InvestmentName)
	if err := snap.Validate(); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Holding the key serializes the append+Record with any in-flight
	// refresh of the same investment.
	release := s.limiter.Hold(userID, snap.InvestmentName)
	defer release()

	snap.Timestamp = s.now().UTC()
	if err := s.repo.Append(ctx, userID, snap); err != nil {
		return time.Time{}, fmt.Errorf("saving %s: %w", snap.InvestmentName, err)
	}
	s.limiter.Record(userID, snap.InvestmentName, ratelimit.ReasonCreation)
	return snap.Timestamp, nil
}

// History returns the user's full snapshot log.
func (s *Service) History(ctx context.Context, userID string) ([]domain.Snapshot, error) {
	return s.repo.List(ctx, userID)
}

// HistoryByName returns the snapshots for one investment name.
func (s *Service) HistoryByName(ctx context.Context, userID, name string) ([]domain.Snapshot, error) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(snap domain.Snapshot, _ int) bool {
		return snap.InvestmentName == name
	}), nil
}

// Names returns the user's distinct investment names in first-appearance order.
func (s *Service) Names(ctx context.Context, userID string) ([]string, error) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Map(all, func(snap domain.Snapshot, _ int) string {
		return snap.InvestmentName
	})), nil
}

// RefreshStale refreshes every investment whose latest snapshot is
// non-CUSTOM and older than the staleness threshold. Failures, including
// rate-limit denials, are logged and swallowed: staleness refresh is
// best-effort and must never surface as a user-facing error.
func (s *Service) RefreshStale(ctx context.Context, userID string) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		slog.Error("stale refresh: reading ledger failed", "user", userID, "error", err)
		return
	}

	cutoff := s.now().Add(-s.staleAfter)
	for name, latest := range latestByName(all) {
		if latest.InvestmentType == domain.TypeCustom || latest.Timestamp.After(cutoff) {
			continue
		}
		if _, err := s.Refresh(ctx, userID, name); err != nil {
			slog.Warn("stale refresh failed", "user", userID, "investment", name, "error", err)
			continue
		}
		slog.Info("auto-refreshed stale investment", "user", userID, "investment", name)
	}
}

// latest selects the snapshot with the maximum timestamp for one name.
// When two snapshots share a timestamp the earlier row wins; callers must
// not rely on that ordering.
func (s *Service) latest(ctx context.Context, userID, name string) (domain.Snapshot, error) {
	all, err := s.repo.List(ctx, userID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reading ledger: %w", err)
	}
	matches := lo.Filter(all, func(snap domain.Snapshot, _ int) bool {
		return snap.InvestmentName == name
	})
	if len(matches) == 0 {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", name, ledger.ErrNotFound)
	}
	return lo.MaxBy(matches, func(a, b domain.Snapshot) bool {
		return a.Timestamp.After(b.Timestamp)
	}), nil
}

func latestByName(all []domain.Snapshot) map[string]domain.Snapshot {
	groups := lo.GroupBy(all, func(snap domain.Snapshot) string {
		return snap.InvestmentName
	})
	latest := make(map[string]domain.Snapshot, len(groups))
	for name, snaps := range groups {
		latest[name] = lo.MaxBy(snaps, func(a, b domain.Snapshot) bool {
			return a.Timestamp.After(b.Timestamp)
		})
	}
	return latest
}
