// Package admin builds operator diagnostics for the JWT-guarded admin
// endpoint.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"lumenbot/internal/users"
)

// Diagnostics is the admin view of one user plus system-wide job health.
type Diagnostics struct {
	LastReminderRun   *time.Time `json:"last_reminder_run"`
	LastDailyBriefRun *time.Time `json:"last_daily_brief_run"`
	RemindersEnabled  bool       `json:"reminders_enabled"`
	DailyBriefEnabled bool       `json:"daily_brief_enabled"`
	CourseCount       int        `json:"course_count"`
	AttendanceHealthy bool       `json:"attendance_healthy"`
}

// Repository reads diagnostic data from the store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// LastReminderRun returns the most recent reminder sent system-wide, nil
// when none was ever sent.
func (r *Repository) LastReminderRun(ctx context.Context) (*time.Time, error) {
	return r.lastSent(ctx, `SELECT sent_at FROM class_notification_log ORDER BY sent_at DESC LIMIT 1`)
}

// LastDailyBriefRun returns the most recent daily brief sent system-wide.
func (r *Repository) LastDailyBriefRun(ctx context.Context) (*time.Time, error) {
	return r.lastSent(ctx, `SELECT sent_at FROM daily_brief_log ORDER BY sent_at DESC LIMIT 1`)
}

func (r *Repository) lastSent(ctx context.Context, query string) (*time.Time, error) {
	var sentAt time.Time
	if err := r.db.QueryRowContext(ctx, query).Scan(&sentAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sentAt, nil
}

// CourseCount returns how many courses a user is enrolled in.
func (r *Repository) CourseCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(array_length(enrolled_courses, 1), 0)
		FROM user_course_records WHERE user_id = $1
	`, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// Service assembles diagnostics. Each probe is independent; one failed
// probe zeroes its field instead of failing the whole report.
type Service struct {
	repo   *Repository
	users  *users.Repository
	probe  func(ctx context.Context, userID string) bool
	logger *zap.Logger
}

// NewService wires a diagnostics service. probe exercises the attendance
// read path for the given user and reports success.
func NewService(repo *Repository, userRepo *users.Repository, probe func(ctx context.Context, userID string) bool, logger *zap.Logger) *Service {
	return &Service{repo: repo, users: userRepo, probe: probe, logger: logger}
}

// ForUser builds the diagnostics report for a user.
func (s *Service) ForUser(ctx context.Context, userID string) Diagnostics {
	var d Diagnostics

	if t, err := s.repo.LastReminderRun(ctx); err != nil {
		s.logger.Warn("reminder run probe failed", zap.Error(err))
	} else {
		d.LastReminderRun = t
	}

	if t, err := s.repo.LastDailyBriefRun(ctx); err != nil {
		s.logger.Warn("daily brief run probe failed", zap.Error(err))
	} else {
		d.LastDailyBriefRun = t
	}

	if settings, err := s.users.Settings(ctx, userID); err != nil {
		s.logger.Warn("settings probe failed", zap.String("user", userID), zap.Error(err))
	} else {
		d.RemindersEnabled = settings.RemindersEnabled
		d.DailyBriefEnabled = settings.DailyBriefEnabled
	}

	if count, err := s.repo.CourseCount(ctx, userID); err != nil {
		s.logger.Warn("course count probe failed", zap.String("user", userID), zap.Error(err))
	} else {
		d.CourseCount = count
	}

	d.AttendanceHealthy = s.probe(ctx, userID)
	return d
}
