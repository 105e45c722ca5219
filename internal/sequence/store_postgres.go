package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rollcall/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code raised when an insert hits a
// unique constraint.
const uniqueViolation = "23505"

// PostgresStore persists counters in the sequence_counters table. The
// conditional UPDATE carries the compare-and-swap; no row locks are held
// between read and write.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, category Category, dateKey string) (int, error) {
	var value int
	err := s.db.QueryRowContext(ctx,
		`SELECT current_value FROM sequence_counters WHERE category = $1 AND date_key = $2`,
		string(category), dateKey,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("find counter: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Create(ctx context.Context, category Category, dateKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sequence_counters (category, date_key, current_value) VALUES ($1, $2, 0)`,
		string(category), dateKey,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create counter: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, category Category, dateKey string, expected, next int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sequence_counters
		    SET current_value = $1
		  WHERE category = $2 AND date_key = $3 AND current_value = $4`,
		next, string(category), dateKey, expected,
	)
	if err != nil {
		return fmt.Errorf("cas counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cas counter rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrStale
	}
	return nil
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sequence_counters WHERE date_key < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete counters rows: %w", err)
	}
	return int(affected), nil
}
