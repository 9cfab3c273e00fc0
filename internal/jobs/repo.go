package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Reminder is one pending class reminder, already deduplicated by the store
// against its notification log.
type Reminder struct {
	ChatID     int64
	ClassID    string
	CourseName string
	StartTime  time.Time
	Venue      string
}

// BriefClass is one class inside a daily-brief payload.
type BriefClass struct {
	CourseName string    `json:"course_name"`
	StartTime  time.Time `json:"class_start_time"`
	Venue      string    `json:"class_venue"`
}

// BriefPayload is one user's daily-brief input, assembled by the store.
type BriefPayload struct {
	ChatID  int64
	UserID  string
	Classes []BriefClass
	Date    string
}

// Repository reads notification payloads from the store. Both queries are
// set-returning procedures so dedupe and aggregation stay in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PendingClassReminders returns reminders due now that have not been sent.
func (r *Repository) PendingClassReminders(ctx context.Context) ([]Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, class_id, course_name, class_start_time, class_venue
		FROM get_pending_class_reminders()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		var rem Reminder
		var venue sql.NullString
		if err := rows.Scan(&rem.ChatID, &rem.ClassID, &rem.CourseName, &rem.StartTime, &venue); err != nil {
			return nil, err
		}
		rem.Venue = venue.String
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// DailyBriefPayloads returns one payload per opted-in user for the date.
func (r *Repository) DailyBriefPayloads(ctx context.Context, date string) ([]BriefPayload, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, user_id, classes, brief_date
		FROM get_daily_brief_payloads($1)
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads []BriefPayload
	for rows.Next() {
		var p BriefPayload
		var classesJSON []byte
		if err := rows.Scan(&p.ChatID, &p.UserID, &classesJSON, &p.Date); err != nil {
			return nil, err
		}
		if len(classesJSON) > 0 {
			if err := json.Unmarshal(classesJSON, &p.Classes); err != nil {
				return nil, err
			}
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}
