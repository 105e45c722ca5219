package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"rollcall/pkg/platform/tx"
)

// PostgresStore appends events to the audit_events table. Appends ride any
// transaction already in the context, so an audit row commits or rolls back
// together with the domain write it describes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO audit_events
			(id, occurred_at, action, actor_id, event_id, registration_id,
			 checkin_id, decision, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), event.Timestamp, event.Action,
		nullable(event.ActorID), nullable(event.EventID),
		nullable(event.RegistrationID), nullable(event.CheckinID),
		nullable(event.Decision), nullable(event.Reason),
		nullable(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
