package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/domain"
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_daily (
    day        date        NOT NULL,
    mode       text        NOT NULL,
    requests   integer     NOT NULL DEFAULT 0,
    success    integer     NOT NULL DEFAULT 0,
    fail       integer     NOT NULL DEFAULT 0,
    artifacts  integer     NOT NULL DEFAULT 0,
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (day, mode)
);
`

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// UsageRepositoryPG implements domain.UsageRepository using PostgreSQL.
type UsageRepositoryPG struct {
	pool Querier
}

// NewUsageRepository constructs the repository.
func NewUsageRepository(pool Querier) *UsageRepositoryPG {
	return &UsageRepositoryPG{pool: pool}
}

// EnsureSchema creates the counters table when missing.
func (r *UsageRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, usageSchema)
	return err
}

// IncrementCounters upserts counters for the provided day and mode.
func (r *UsageRepositoryPG) IncrementCounters(ctx context.Context, day time.Time, mode string, c domain.UsageCounters) error {
	query := `
INSERT INTO usage_daily (day, mode, requests, success, fail, artifacts)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (day, mode) DO UPDATE SET
    requests = usage_daily.requests + EXCLUDED.requests,
    success = usage_daily.success + EXCLUDED.success,
    fail = usage_daily.fail + EXCLUDED.fail,
    artifacts = usage_daily.artifacts + EXCLUDED.artifacts,
    updated_at = now();
`
	_, err := r.pool.Exec(ctx, query, day.UTC().Format("2006-01-02"), mode, c.Requests, c.Success, c.Fail, c.Artifacts)
	return err
}

// ListDay returns the counters of every mode for day.
func (r *UsageRepositoryPG) ListDay(ctx context.Context, day time.Time) ([]domain.UsageDaily, error) {
	rows, err := r.pool.Query(ctx, `
SELECT day, mode, requests, success, fail, artifacts, created_at, updated_at
FROM usage_daily
WHERE day = $1
ORDER BY mode;
`, day.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UsageDaily
	for rows.Next() {
		var u domain.UsageDaily
		if err := rows.Scan(&u.Day, &u.Mode, &u.Requests, &u.Success, &u.Fail, &u.Artifacts, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

var _ domain.UsageRepository = (*UsageRepositoryPG)(nil)
