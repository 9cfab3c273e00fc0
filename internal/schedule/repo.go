package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// Class is one scheduled class occurrence from the timetable. The scheduling
// store owns these rows; this subsystem only reads them.
type Class struct {
	ClassID    string    `json:"class_id"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	IsLab      bool      `json:"is_lab"`
	Date       string    `json:"class_date"`
	StartTime  time.Time `json:"class_start_time"`
	EndTime    time.Time `json:"class_end_time"`
	Venue      string    `json:"class_venue,omitempty"`
	BatchID    string    `json:"batch_id"`
}

// Enrollment is a user's enrolled course ids and batch.
type Enrollment struct {
	CourseIDs []string
	BatchID   string
}

// Repository reads timetable and enrollment data from Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enrollment returns the user's enrollment, or nil when the user has none.
func (r *Repository) Enrollment(ctx context.Context, userID string) (*Enrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT enrolled_courses, batch_id
		FROM user_course_records
		WHERE user_id = $1
	`, userID)
	var e Enrollment
	if err := row.Scan(pq.Array(&e.CourseIDs), &e.BatchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// ClassesByDate returns the classes for a batch and course set on a date,
// ordered by start time.
func (r *Repository) ClassesByDate(ctx context.Context, batchID string, courseIDs []string, date string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, course_id, course_name, is_lab, class_date, class_start_time, class_end_time, class_venue, batch_id
		FROM timetable_records
		WHERE class_date = $1 AND batch_id = $2 AND course_id = ANY($3::text[])
		ORDER BY class_start_time
	`, date, batchID, pq.Array(courseIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []Class
	for rows.Next() {
		var c Class
		var venue sql.NullString
		if err := rows.Scan(&c.ClassID, &c.CourseID, &c.CourseName, &c.IsLab, &c.Date, &c.StartTime, &c.EndTime, &venue, &c.BatchID); err != nil {
			return nil, err
		}
		c.Venue = venue.String
		classes = append(classes, c)
	}
	return classes, rows.Err()
}
