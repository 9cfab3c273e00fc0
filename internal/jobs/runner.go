package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumenbot/internal/attendance"
	"lumenbot/internal/telegram"
)

// Job names, used for run locks and the trigger endpoint.
const (
	JobReminders  = "reminders"
	JobDailyBrief = "daily-brief"
)

// sendGap keeps sequential sends well under the transport's per-second
// message limit.
const sendGap = 50 * time.Millisecond

// Store is the notification payload surface.
type Store interface {
	PendingClassReminders(ctx context.Context) ([]Reminder, error)
	DailyBriefPayloads(ctx context.Context, date string) ([]BriefPayload, error)
}

// Sender delivers one message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) error
}

// Locker takes a best-effort run lock so overlapping cron triggers don't
// double-send.
type Locker interface {
	AcquireJobLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseJobLock(ctx context.Context, name string) error
}

// Greeter resolves a greeting-safe name for a user.
type Greeter interface {
	Greeting(ctx context.Context, userID string) (string, error)
}

// Courses resolves a user's course-wise attendance for the brief footer.
type Courses interface {
	CourseAttendance(ctx context.Context, userID string) ([]attendance.CourseSummary, error)
}

// Runner executes the notification jobs.
type Runner struct {
	store   Store
	sender  Sender
	locker  Locker
	greeter Greeter
	courses Courses
	loc     *time.Location
	lockTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRunner wires a job runner.
func NewRunner(store Store, sender Sender, locker Locker, greeter Greeter, courses Courses, loc *time.Location, lockTTL time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		store:   store,
		sender:  sender,
		locker:  locker,
		greeter: greeter,
		courses: courses,
		loc:     loc,
		lockTTL: lockTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// RunReminders sends all pending class reminders. One failed send never
// aborts the run; the store's notification log keeps redelivery idempotent.
func (r *Runner) RunReminders(ctx context.Context) error {
	release, ok := r.lock(ctx, JobReminders)
	if !ok {
		return nil
	}
	defer release()

	start := r.now()
	r.logger.Info("reminders job starting")

	reminders, err := r.store.PendingClassReminders(ctx)
	if err != nil {
		r.logger.Error("reminders fetch failed", zap.Error(err))
		return err
	}

	var sent, failed int
	for _, rem := range reminders {
		if err := r.sender.SendMessage(ctx, rem.ChatID, formatReminder(rem, r.loc), &telegram.SendOptions{ParseMode: "Markdown"}); err != nil {
			failed++
			sendsTotal.WithLabelValues(JobReminders, "failed").Inc()
			r.logger.Error("reminder send failed", zap.Int64("chat", rem.ChatID), zap.Error(err))
			continue
		}
		sent++
		sendsTotal.WithLabelValues(JobReminders, "sent").Inc()
		if len(reminders) > 1 {
			time.Sleep(sendGap)
		}
	}

	r.logger.Info("reminders job complete",
		zap.Duration("took", r.now().Sub(start)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Int("total", len(reminders)))
	return nil
}

// RunDailyBrief sends the morning summary to every opted-in user.
func (r *Runner) RunDailyBrief(ctx context.Context) error {
	release, ok := r.lock(ctx, JobDailyBrief)
	if !ok {
		return nil
	}
	defer release()

	start := r.now()
	today := r.now().In(r.loc).Format("2006-01-02")
	r.logger.Info("daily brief job starting", zap.String("date", today))

	payloads, err := r.store.DailyBriefPayloads(ctx, today)
	if err != nil {
		r.logger.Error("daily brief fetch failed", zap.Error(err))
		return err
	}

	var sent, failed int
	for _, payload := range payloads {
		text := r.buildBrief(ctx, payload)
		if err := r.sender.SendMessage(ctx, payload.ChatID, text, nil); err != nil {
			failed++
			sendsTotal.WithLabelValues(JobDailyBrief, "failed").Inc()
			r.logger.Error("brief send failed",
				zap.Int64("chat", payload.ChatID),
				zap.String("user", payload.UserID),
				zap.Error(err))
			continue
		}
		sent++
		sendsTotal.WithLabelValues(JobDailyBrief, "sent").Inc()
		if len(payloads) > 1 {
			time.Sleep(sendGap)
		}
	}

	r.logger.Info("daily brief job complete",
		zap.Duration("took", r.now().Sub(start)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Int("total", len(payloads)))
	return nil
}

func (r *Runner) lock(ctx context.Context, name string) (func(), bool) {
	acquired, err := r.locker.AcquireJobLock(ctx, name, r.lockTTL)
	if err != nil {
		// Without redis the lock degrades to best-effort; run anyway.
		r.logger.Warn("job lock unavailable", zap.String("job", name), zap.Error(err))
		return func() {}, true
	}
	if !acquired {
		r.logger.Info("job already running, skipping", zap.String("job", name))
		return nil, false
	}
	return func() {
		if err := r.locker.ReleaseJobLock(ctx, name); err != nil {
			r.logger.Warn("job lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

// buildBrief assembles one user's morning summary. Attendance data failures
// degrade the brief rather than dropping it.
func (r *Runner) buildBrief(ctx context.Context, payload BriefPayload) string {
	var b strings.Builder

	greeting, err := r.greeter.Greeting(ctx, payload.UserID)
	if err == nil && greeting != "" {
		fmt.Fprintf(&b, "Good morning, %s.\n\n", greeting)
	} else {
		fmt.Fprintf(&b, "Good morning. Here's your brief for %s.\n\n", payload.Date)
	}

	if len(payload.Classes) == 0 {
		b.WriteString("No classes today.\n")
	} else {
		b.WriteString("Today's classes:\n")
		for _, cls := range payload.Classes {
			name := cls.CourseName
			if name == "" {
				name = "Class"
			}
			line := fmt.Sprintf("- %s @ %s", name, cls.StartTime.In(r.loc).Format("15:04"))
			if cls.Venue != "" {
				line += " • " + cls.Venue
			}
			b.WriteString(line + "\n")
		}
	}

	courses, err := r.courses.CourseAttendance(ctx, payload.UserID)
	if err != nil {
		r.logger.Error("brief attendance fetch failed", zap.String("user", payload.UserID), zap.Error(err))
		b.WriteString("\nAttendance data unavailable right now.\n")
	} else if len(courses) > 0 {
		b.WriteString("\nYour attendance:\n")
		for _, course := range courses {
			labTag := ""
			if course.IsLab {
				labTag = " 🧪"
			}
			fmt.Fprintf(&b, "%s%s: %d/%d (%.1f%%)\n", course.CourseName, labTag, course.Attended, course.Total, course.Percentage)
		}
	}

	b.WriteString("\nKeep it up.")
	return b.String()
}

func formatReminder(rem Reminder, loc *time.Location) string {
	venueLine := ""
	if rem.Venue != "" {
		venueLine = "\n📍 " + rem.Venue
	}
	return fmt.Sprintf("⏰ *Class Reminder*\n\n*%s* starts at %s.%s",
		rem.CourseName, rem.StartTime.In(loc).Format("15:04"), venueLine)
}
