package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rollcall/internal/event/models"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/platform/tx"
)

const uniqueViolation = "23505"

const eventColumns = `id, organizer_id, title, status, capacity_total, occupancy,
	requires_approval, groups, latitude, longitude, checkin_radius_meters,
	start_time, end_time, registration_deadline, created_at, updated_at`

// Postgres persists events in the events table. Groups live in a jsonb
// column on the event row, so sub-occupancy updates ride the same row lock
// as the parent counters.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, event *models.Event) error {
	groups, err := json.Marshal(event.Groups)
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.ID, event.OrganizerID, event.Title, event.Status,
		event.CapacityTotal, event.Occupancy, event.RequiresApproval, groups,
		event.Latitude, event.Longitude, event.CheckinRadiusMeters,
		event.StartTime, event.EndTime, event.RegistrationDeadline,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Event, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (s *Postgres) ListByOrganizer(ctx context.Context, organizerID string) ([]*models.Event, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY id`, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// Execute locks the event row with FOR UPDATE, runs validate against the
// loaded state, and writes back the mutated counters and status. When a
// transaction already rides the context (tx.Runner) it is reused; otherwise
// Execute opens its own, since FOR UPDATE holds nothing in autocommit mode.
func (s *Postgres) Execute(ctx context.Context, id string, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	if _, ok := tx.From(ctx); !ok {
		sqlTx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		event, err := s.Execute(tx.WithTx(ctx, sqlTx), id, validate, mutate)
		if err != nil {
			_ = sqlTx.Rollback()
			return nil, err
		}
		if err := sqlTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return event, nil
	}

	conn := s.conn(ctx)
	row := conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
	event, err := scanEvent(row)
	if err != nil {
		return nil, err
	}

	if err := validate(event); err != nil {
		return nil, err
	}
	mutate(event)

	groups, err := json.Marshal(event.Groups)
	if err != nil {
		return nil, fmt.Errorf("marshal groups: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		UPDATE events
		SET status = $2, capacity_total = $3, occupancy = $4, groups = $5,
		    registration_deadline = $6, updated_at = $7
		WHERE id = $1`,
		event.ID, event.Status, event.CapacityTotal, event.Occupancy, groups,
		event.RegistrationDeadline, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event  models.Event
		groups []byte
	)
	err := row.Scan(
		&event.ID, &event.OrganizerID, &event.Title, &event.Status,
		&event.CapacityTotal, &event.Occupancy, &event.RequiresApproval, &groups,
		&event.Latitude, &event.Longitude, &event.CheckinRadiusMeters,
		&event.StartTime, &event.EndTime, &event.RegistrationDeadline,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if len(groups) > 0 {
		if err := json.Unmarshal(groups, &event.Groups); err != nil {
			return nil, fmt.Errorf("unmarshal groups: %w", err)
		}
	}
	return &event, nil
}
