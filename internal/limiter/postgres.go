package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter storing the last accepted submission per client hash.
type PG struct {
	pool   pgxQuerier
	window time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration) *PG {
	return NewPGWithQuerier(pool, window)
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration) *PG {
	if window <= 0 {
		window = time.Minute
	}
	return &PG{pool: q, window: window}
}

// Allow claims the cooldown slot atomically: the upsert only succeeds when the
// previous submission is older than the window.
func (l *PG) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	const claim = `
INSERT INTO submission_limiter (ip_hash, last_submit)
VALUES ($1, now())
ON CONFLICT (ip_hash) DO UPDATE
SET last_submit = now()
WHERE submission_limiter.last_submit <= now() - $2::interval
RETURNING last_submit`
	var at time.Time
	err := l.pool.QueryRow(ctx, claim, key, l.window).Scan(&at)
	switch {
	case err == nil:
		return true, 0, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, 0, err
	}

	const sel = `SELECT last_submit FROM submission_limiter WHERE ip_hash=$1`
	if err := l.pool.QueryRow(ctx, sel, key).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, l.window, nil
		}
		return false, 0, err
	}
	wait := time.Until(at.Add(l.window))
	if wait <= 0 {
		wait = time.Second
	}
	return false, wait, nil
}

// Purge removes rows older than the window. Intended for a periodic job.
func (l *PG) Purge(ctx context.Context) (int64, error) {
	const q = `DELETE FROM submission_limiter WHERE last_submit < now() - $1::interval`
	tag, err := l.pool.Exec(ctx, q, l.window)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
