package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/holdwatch/holdwatch/internal/domain"
)

// PgRepository implements Repository with PostgreSQL, for deployments that
// want transactional storage instead of per-user files.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL ledger repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Append(ctx context.Context, userID string, s domain.Snapshot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO investment_snapshots (user_id, investment_name, investment_type, amount, value, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, s.InvestmentName, string(s.InvestmentType), s.Amount, s.Value, s.Timestamp)
	if err != nil {
		return fmt.Errorf("appending snapshot for %s: %w", userID, err)
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, userID string) ([]domain.Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT investment_name, investment_type, amount, value, recorded_at
		 FROM investment_snapshots
		 WHERE user_id = $1
		 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", userID, err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		var typ string
		if err := rows.Scan(&s.InvestmentName, &typ, &s.Amount, &s.Value, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		s.InvestmentType = domain.InvestmentType(typ)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func (r *PgRepository) Users(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM investment_snapshots ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
