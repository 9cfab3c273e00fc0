package undo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Action is one audit-log entry. Entries are append-only and deleted exactly
// once when the undo engine consumes them.
type Action struct {
	ID               string
	UserID           string
	ActionType       string
	AffectedClassIDs []string
	CreatedAt        time.Time
}

// Repository persists the action log and performs delta reversal in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AppendAction writes a new audit entry.
func (r *Repository) AppendAction(ctx context.Context, action Action) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_actions (id, user_id, action_type, affected_class_ids)
		VALUES ($1, $2, $3, $4::text[])
	`, action.ID, action.UserID, action.ActionType, pq.Array(action.AffectedClassIDs))
	return err
}

// LastAction returns the user's most recent audit entry, or nil when the
// user has none.
func (r *Repository) LastAction(ctx context.Context, userID string) (*Action, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, action_type, affected_class_ids, created_at
		FROM attendance_actions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	var action Action
	if err := row.Scan(&action.ID, &action.UserID, &action.ActionType, pq.Array(&action.AffectedClassIDs), &action.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// DeleteAction consumes an audit entry.
func (r *Repository) DeleteAction(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendance_actions WHERE id = $1`, id)
	return err
}

// DeleteDeltas removes the user's present-deltas for the given classes.
// Deleting already-deleted rows is a no-op, so retries are safe.
func (r *Repository) DeleteDeltas(ctx context.Context, userID string, classIDs []string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_records
		WHERE user_id = $1 AND class_id = ANY($2::text[])
	`, userID, pq.Array(classIDs))
	return err
}

// RestoreDeltas re-inserts present-deltas for the classes that still resolve
// to a timetable entry. Classes removed from the schedule are skipped rather
// than recreated from stale data. The conflict clause makes a retry after a
// partial restore idempotent. Returns how many classes still resolved and
// how many rows were actually inserted.
func (r *Repository) RestoreDeltas(ctx context.Context, userID string, classIDs []string, checkinTime time.Time) (resolved, restored int, err error) {
	row := r.db.QueryRowContext(ctx, `
		WITH matched AS (
			SELECT class_id, course_id, class_start_time
			FROM timetable_records
			WHERE class_id = ANY($2::text[])
		), inserted AS (
			INSERT INTO attendance_records (user_id, class_id, course_id, class_time, checkin_time)
			SELECT $1, class_id, course_id, class_start_time, $3
			FROM matched
			ON CONFLICT (user_id, class_id) DO NOTHING
			RETURNING class_id
		)
		SELECT (SELECT count(*) FROM matched), (SELECT count(*) FROM inserted)
	`, userID, pq.Array(classIDs), checkinTime)
	if err := row.Scan(&resolved, &restored); err != nil {
		return 0, 0, err
	}
	return resolved, restored, nil
}
