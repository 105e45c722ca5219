package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rollcall/internal/registration/models"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/platform/tx"
)

const uniqueViolation = "23505"

const registrationColumns = `id, event_id, participant_id, group_id, status,
	checkin_status, registered_at, approved_at, checkin_time, updated_at`

// Postgres persists registrations. Uniqueness of one non-cancelled
// registration per (event, participant) is enforced by a partial unique
// index, so concurrent duplicate creates surface as ErrConflict.
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

func (s *Postgres) Create(ctx context.Context, reg *models.Registration) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		reg.ID, reg.EventID, reg.ParticipantID, nullString(reg.GroupID),
		reg.Status, reg.CheckinStatus, reg.RegisteredAt, reg.ApprovedAt,
		reg.CheckinTime, reg.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	return scanRegistration(row)
}

func (s *Postgres) FindActiveByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Registration, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+registrationColumns+` FROM registrations
		WHERE event_id = $1 AND participant_id = $2 AND status IN ('pending', 'approved')`,
		eventID, participantID)
	return scanRegistration(row)
}

func (s *Postgres) ListByEvent(ctx context.Context, eventID string) ([]*models.Registration, error) {
	return s.list(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 ORDER BY id`, eventID)
}

func (s *Postgres) ListByParticipant(ctx context.Context, participantID string) ([]*models.Registration, error) {
	return s.list(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE participant_id = $1 ORDER BY id`, participantID)
}

func (s *Postgres) list(ctx context.Context, query string, arg any) ([]*models.Registration, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// Execute locks the registration row with FOR UPDATE across validate and
// mutate. A transaction already in the context is reused; otherwise Execute
// opens its own, since FOR UPDATE holds nothing in autocommit mode.
func (s *Postgres) Execute(ctx context.Context, id string, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	if _, ok := tx.From(ctx); !ok {
		sqlTx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin tx: %w", err)
		}
		reg, err := s.Execute(tx.WithTx(ctx, sqlTx), id, validate, mutate)
		if err != nil {
			_ = sqlTx.Rollback()
			return nil, err
		}
		if err := sqlTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return reg, nil
	}

	conn := s.conn(ctx)
	row := conn.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
	reg, err := scanRegistration(row)
	if err != nil {
		return nil, err
	}

	if err := validate(reg); err != nil {
		return nil, err
	}
	mutate(reg)

	_, err = conn.ExecContext(ctx, `
		UPDATE registrations
		SET status = $2, checkin_status = $3, approved_at = $4, checkin_time = $5, updated_at = $6
		WHERE id = $1`,
		reg.ID, reg.Status, reg.CheckinStatus, reg.ApprovedAt, reg.CheckinTime, reg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return reg, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg     models.Registration
		groupID sql.NullString
	)
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.ParticipantID, &groupID, &reg.Status,
		&reg.CheckinStatus, &reg.RegisteredAt, &reg.ApprovedAt,
		&reg.CheckinTime, &reg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	reg.GroupID = groupID.String
	return &reg, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
