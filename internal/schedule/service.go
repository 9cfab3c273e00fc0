package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// IndexedClass pairs a 1-based schedule index with its class.
type IndexedClass struct {
	Index int
	Class Class
}

// ResolveIndices pairs validated 1-based indices with the day's classes by
// positional lookup. Indices must already be bounds-checked by the caller.
func ResolveIndices(classes []Class, indices []int) []IndexedClass {
	out := make([]IndexedClass, 0, len(indices))
	for _, idx := range indices {
		out = append(out, IndexedClass{Index: idx, Class: classes[idx-1]})
	}
	return out
}

// Store is the timetable read surface the service needs.
type Store interface {
	Enrollment(ctx context.Context, userID string) (*Enrollment, error)
	ClassesByDate(ctx context.Context, batchID string, courseIDs []string, date string) ([]Class, error)
}

// Service resolves a user's schedule in the operating timezone.
type Service struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a schedule service.
func NewService(store Store, loc *time.Location, logger *zap.Logger) *Service {
	return &Service{store: store, loc: loc, logger: logger, now: time.Now}
}

// Today returns today's date string (YYYY-MM-DD) in the operating timezone.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// Tomorrow returns tomorrow's date string in the operating timezone.
func (s *Service) Tomorrow() string {
	return s.now().In(s.loc).AddDate(0, 0, 1).Format("2006-01-02")
}

// ClassesOn returns the user's classes for a date, filtered by enrollment
// and batch. An unenrolled user gets an empty schedule, not an error.
func (s *Service) ClassesOn(ctx context.Context, userID, date string) ([]Class, error) {
	enrollment, err := s.store.Enrollment(ctx, userID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil || len(enrollment.CourseIDs) == 0 {
		return nil, nil
	}
	return s.store.ClassesByDate(ctx, enrollment.BatchID, enrollment.CourseIDs, date)
}

// TodayClasses returns today's classes for the user.
func (s *Service) TodayClasses(ctx context.Context, userID string) ([]Class, error) {
	return s.ClassesOn(ctx, userID, s.Today())
}

// TomorrowClasses returns tomorrow's classes for the user.
func (s *Service) TomorrowClasses(ctx context.Context, userID string) ([]Class, error) {
	return s.ClassesOn(ctx, userID, s.Tomorrow())
}

// NextClass finds the ongoing class, or one starting within ten minutes.
// Returns the 0-based index, or -1 when nothing qualifies.
func (s *Service) NextClass(classes []Class) int {
	return nextClassAt(classes, s.now())
}

func nextClassAt(classes []Class, now time.Time) int {
	const soon = 10 * time.Minute
	for i, cls := range classes {
		if !now.Before(cls.StartTime) && !now.After(cls.EndTime) {
			return i
		}
		if cls.StartTime.After(now) && cls.StartTime.Sub(now) <= soon {
			return i
		}
	}
	return -1
}
