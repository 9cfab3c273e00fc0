package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// MarkStatus is the per-class outcome of a bulk mark.
type MarkStatus string

const (
	StatusMarked  MarkStatus = "marked"
	StatusAlready MarkStatus = "already"
	StatusFailed  MarkStatus = "failed"
)

// MarkResult is one row of a mark_attendance_bulk call.
type MarkResult struct {
	ClassID string
	Status  MarkStatus
}

// DeleteResult is one row of a delete_attendance_bulk call.
type DeleteResult struct {
	ClassID string
	Deleted bool
}

// StatusResult is one row of a get_attendance_status_bulk call.
type StatusResult struct {
	ClassID  string
	IsMarked bool
}

// CourseRow is one row of get_effective_course_attendance. The store merges
// the historical snapshot with post-snapshot deltas; the shape is all this
// side knows about it.
type CourseRow struct {
	CourseID        string
	CourseName      string
	IsLab           bool
	AttendedClasses int
	TotalClasses    int
}

// MarkBulkParams carries the parallel arrays of a bulk mark. All slices are
// index-aligned with ClassIDs.
type MarkBulkParams struct {
	UserID      string
	ClassIDs    []string
	CourseIDs   []string
	ClassTimes  []time.Time
	CheckinTime time.Time
}

// Repository invokes the attendance store procedures. Each bulk operation is
// a single set-returning call so the webhook response budget stays bounded
// and there is no per-class round-trip loop.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// MarkBulk marks attendance for the given classes. The store performs a
// conflict-aware insert per class, so concurrent duplicate calls for the
// same (user, class) pair collapse to one delta row and report "already".
func (r *Repository) MarkBulk(ctx context.Context, p MarkBulkParams) ([]MarkResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, status
		FROM mark_attendance_bulk($1, $2::text[], $3::text[], $4::timestamptz[], $5)
	`, p.UserID, pq.Array(p.ClassIDs), pq.Array(p.CourseIDs), pq.Array(p.ClassTimes), p.CheckinTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MarkResult
	for rows.Next() {
		var res MarkResult
		if err := rows.Scan(&res.ClassID, &res.Status); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// DeleteBulk removes present-deltas for the given classes. Deleting is the
// "mark absent" action; a class with no delta reports deleted=false.
func (r *Repository) DeleteBulk(ctx context.Context, userID string, classIDs []string) ([]DeleteResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, deleted
		FROM delete_attendance_bulk($1, $2::text[])
	`, userID, pq.Array(classIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DeleteResult
	for rows.Next() {
		var res DeleteResult
		if err := rows.Scan(&res.ClassID, &res.Deleted); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// StatusBulk returns a read-only marked snapshot for the given classes.
func (r *Repository) StatusBulk(ctx context.Context, userID string, classIDs []string) ([]StatusResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, is_marked
		FROM get_attendance_status_bulk($1, $2::text[])
	`, userID, pq.Array(classIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StatusResult
	for rows.Next() {
		var res StatusResult
		if err := rows.Scan(&res.ClassID, &res.IsMarked); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// EffectiveCourseAttendance returns the per-course effective counts.
func (r *Repository) EffectiveCourseAttendance(ctx context.Context, userID string) ([]CourseRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT course_id, course_name, is_lab, effective_attended_classes, effective_total_classes
		FROM get_effective_course_attendance($1)
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CourseRow
	for rows.Next() {
		var res CourseRow
		if err := rows.Scan(&res.CourseID, &res.CourseName, &res.IsLab, &res.AttendedClasses, &res.TotalClasses); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
