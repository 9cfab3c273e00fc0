package attendance

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"lumenbot/internal/schedule"
)

const (
	actionAttend = "attend"
	actionAbsent = "absent"
)

// Store is the attendance mutation surface backed by the remote store.
type Store interface {
	MarkBulk(ctx context.Context, p MarkBulkParams) ([]MarkResult, error)
	DeleteBulk(ctx context.Context, userID string, classIDs []string) ([]DeleteResult, error)
	StatusBulk(ctx context.Context, userID string, classIDs []string) ([]StatusResult, error)
	EffectiveCourseAttendance(ctx context.Context, userID string) ([]CourseRow, error)
}

// ActionLogger appends an audit entry after a successful mutation. It is
// best-effort: implementations must never return an error to the mutation
// path.
type ActionLogger interface {
	LogAction(ctx context.Context, userID, actionType string, classIDs []string)
}

// ClassMark is the per-class outcome of a mark, in caller index order.
type ClassMark struct {
	Index      int
	ClassID    string
	CourseName string
	Status     MarkStatus
}

// ClassAbsence is the per-class outcome of an absence mark, in caller
// index order.
type ClassAbsence struct {
	Index      int
	ClassID    string
	CourseName string
	Deleted    bool
}

// CourseSummary is course-wise attendance for the /status view.
type CourseSummary struct {
	CourseID   string
	CourseName string
	IsLab      bool
	Attended   int
	Total      int
	Percentage float64
}

// Service coordinates bulk attendance mutations and their audit trail.
type Service struct {
	store   Store
	actions ActionLogger
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a service backed by the remote store.
func NewService(store Store, actions ActionLogger, logger *zap.Logger) *Service {
	return &Service{store: store, actions: actions, logger: logger, now: time.Now}
}

// MarkByIndices marks the selected classes present. Results come back in
// the caller-supplied index order regardless of store ordering; a class the
// store did not report is failed. An empty selection is a no-op.
func (s *Service) MarkByIndices(ctx context.Context, userID string, classes []schedule.Class, indices []int) ([]ClassMark, error) {
	selections := schedule.ResolveIndices(classes, indices)
	if len(selections) == 0 {
		return []ClassMark{}, nil
	}

	params := MarkBulkParams{
		UserID:      userID,
		ClassIDs:    make([]string, 0, len(selections)),
		CourseIDs:   make([]string, 0, len(selections)),
		ClassTimes:  make([]time.Time, 0, len(selections)),
		CheckinTime: s.now().UTC(),
	}
	for _, sel := range selections {
		params.ClassIDs = append(params.ClassIDs, sel.Class.ClassID)
		params.CourseIDs = append(params.CourseIDs, sel.Class.CourseID)
		params.ClassTimes = append(params.ClassTimes, sel.Class.StartTime)
	}

	results, err := s.store.MarkBulk(ctx, params)
	if err != nil {
		return nil, err
	}

	statusByID := make(map[string]MarkStatus, len(results))
	for _, res := range results {
		statusByID[res.ClassID] = res.Status
	}

	out := make([]ClassMark, 0, len(selections))
	var markedIDs []string
	for _, sel := range selections {
		status, ok := statusByID[sel.Class.ClassID]
		if !ok {
			status = StatusFailed
		}
		if status == StatusMarked {
			markedIDs = append(markedIDs, sel.Class.ClassID)
		}
		out = append(out, ClassMark{
			Index:      sel.Index,
			ClassID:    sel.Class.ClassID,
			CourseName: sel.Class.CourseName,
			Status:     status,
		})
	}

	if len(markedIDs) > 0 {
		s.actions.LogAction(ctx, userID, actionAttend, markedIDs)
	}
	s.logger.Debug("bulk mark",
		zap.String("user", userID),
		zap.Int("selected", len(selections)),
		zap.Int("marked", len(markedIDs)))
	return out, nil
}

// MarkAll marks every class of the day present.
func (s *Service) MarkAll(ctx context.Context, userID string, classes []schedule.Class) ([]ClassMark, error) {
	return s.MarkByIndices(ctx, userID, classes, allIndices(len(classes)))
}

// MarkClass marks a single class present and returns its status.
func (s *Service) MarkClass(ctx context.Context, userID string, cls schedule.Class) (MarkStatus, error) {
	results, err := s.MarkByIndices(ctx, userID, []schedule.Class{cls}, []int{1})
	if err != nil {
		return StatusFailed, err
	}
	if len(results) == 0 {
		return StatusFailed, nil
	}
	return results[0].Status, nil
}

// AbsentByIndices marks the selected classes absent by deleting their
// deltas. Every attempted class id is audit-logged whether or not a delta
// existed, so undo can restore the full selection.
func (s *Service) AbsentByIndices(ctx context.Context, userID string, classes []schedule.Class, indices []int) ([]ClassAbsence, error) {
	selections := schedule.ResolveIndices(classes, indices)
	if len(selections) == 0 {
		return []ClassAbsence{}, nil
	}

	classIDs := make([]string, 0, len(selections))
	for _, sel := range selections {
		classIDs = append(classIDs, sel.Class.ClassID)
	}

	results, err := s.store.DeleteBulk(ctx, userID, classIDs)
	if err != nil {
		return nil, err
	}

	deletedByID := make(map[string]bool, len(results))
	for _, res := range results {
		deletedByID[res.ClassID] = res.Deleted
	}

	out := make([]ClassAbsence, 0, len(selections))
	for _, sel := range selections {
		out = append(out, ClassAbsence{
			Index:      sel.Index,
			ClassID:    sel.Class.ClassID,
			CourseName: sel.Class.CourseName,
			Deleted:    deletedByID[sel.Class.ClassID],
		})
	}

	s.actions.LogAction(ctx, userID, actionAbsent, classIDs)
	s.logger.Debug("bulk absence",
		zap.String("user", userID),
		zap.Int("selected", len(selections)))
	return out, nil
}

// AbsentAll marks every class of the day absent.
func (s *Service) AbsentAll(ctx context.Context, userID string, classes []schedule.Class) ([]ClassAbsence, error) {
	return s.AbsentByIndices(ctx, userID, classes, allIndices(len(classes)))
}

// StatusBulk exposes the read-only marked snapshot for schedule rendering.
func (s *Service) StatusBulk(ctx context.Context, userID string, classIDs []string) (map[string]bool, error) {
	if len(classIDs) == 0 {
		return map[string]bool{}, nil
	}
	results, err := s.store.StatusBulk(ctx, userID, classIDs)
	if err != nil {
		return nil, err
	}
	marked := make(map[string]bool, len(results))
	for _, res := range results {
		marked[res.ClassID] = res.IsMarked
	}
	return marked, nil
}

// CourseAttendance returns the authoritative course-wise summary, with
// percentages rounded to one decimal.
func (s *Service) CourseAttendance(ctx context.Context, userID string) ([]CourseSummary, error) {
	rows, err := s.store.EffectiveCourseAttendance(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]CourseSummary, 0, len(rows))
	for _, row := range rows {
		var pct float64
		if row.TotalClasses > 0 {
			pct = math.Round(float64(row.AttendedClasses)/float64(row.TotalClasses)*1000) / 10
		}
		out = append(out, CourseSummary{
			CourseID:   row.CourseID,
			CourseName: row.CourseName,
			IsLab:      row.IsLab,
			Attended:   row.AttendedClasses,
			Total:      row.TotalClasses,
			Percentage: pct,
		})
	}
	return out, nil
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i + 1
	}
	return indices
}
