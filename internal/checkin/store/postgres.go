package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rollcall/internal/checkin/models"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/platform/tx"
)

const uniqueViolation = "23505"

const checkinColumns = `id, event_id, participant_id, registration_id,
	latitude, longitude, distance_meters, is_late, is_valid, checkin_time,
	address, note`

// Postgres persists check-ins. A unique index on (event_id, participant_id)
// makes concurrent duplicate inserts surface as ErrConflict.
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

func (s *Postgres) Create(ctx context.Context, checkin *models.Checkin) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO checkins (`+checkinColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		checkin.ID, checkin.EventID, checkin.ParticipantID, checkin.RegistrationID,
		checkin.Latitude, checkin.Longitude, checkin.DistanceMeters,
		checkin.IsLate, checkin.IsValid, checkin.CheckinTime,
		checkin.Address, checkin.Note,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

func (s *Postgres) FindByEventAndParticipant(ctx context.Context, eventID, participantID string) (*models.Checkin, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+checkinColumns+` FROM checkins
		WHERE event_id = $1 AND participant_id = $2`,
		eventID, participantID)
	return scanCheckin(row)
}

func (s *Postgres) ListByEvent(ctx context.Context, eventID string) ([]*models.Checkin, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+checkinColumns+` FROM checkins WHERE event_id = $1 ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var out []*models.Checkin
	for rows.Next() {
		checkin, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, checkin)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckin(row rowScanner) (*models.Checkin, error) {
	var checkin models.Checkin
	err := row.Scan(
		&checkin.ID, &checkin.EventID, &checkin.ParticipantID, &checkin.RegistrationID,
		&checkin.Latitude, &checkin.Longitude, &checkin.DistanceMeters,
		&checkin.IsLate, &checkin.IsValid, &checkin.CheckinTime,
		&checkin.Address, &checkin.Note,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkin: %w", err)
	}
	return &checkin, nil
}
