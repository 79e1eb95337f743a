package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder writes records into audit_events.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the event. The table is append-only; this is the only
// write path the subsystem owns.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if event.Action == "" || event.Entity == "" {
		return errors.New("audit event requires action and entity")
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	var userID pgtype.Int8
	if event.UserID != nil {
		userID = pgtype.Int8{Int64: *event.UserID, Valid: true}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (user_id, action, entity, ip, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID,
		string(event.Action),
		event.Entity,
		optionalText(event.IP),
		optionalText(event.UserAgent),
		pgtype.Timestamptz{Time: occurredAt, Valid: true},
	)
	return err
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
