package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Settings holds a user's notification preferences.
type Settings struct {
	RemindersEnabled  bool
	DailyBriefEnabled bool
}

// Repository reads and mutates account-linking and settings data.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UserIDByChat resolves a chat id to the linked app user id. Returns "" when
// the chat is not linked.
func (r *Repository) UserIDByChat(ctx context.Context, chatID int64) (string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id FROM telegram_user_mappings WHERE chat_id = $1
	`, chatID)
	var userID string
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}

// Unlink removes the chat's account link. Idempotent; attendance data and
// the app account are untouched.
func (r *Repository) Unlink(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM telegram_user_mappings WHERE chat_id = $1
	`, chatID)
	return err
}

// ToggleReminders flips the user's class-reminder setting and returns the
// new state. The upsert keeps the flip atomic for first-time users.
func (r *Repository) ToggleReminders(ctx context.Context, userID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_settings (user_id, reminders_enabled)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET reminders_enabled = NOT user_settings.reminders_enabled
		RETURNING reminders_enabled
	`, userID)
	var enabled bool
	return enabled, row.Scan(&enabled)
}

// ToggleDailyBrief flips the user's daily-brief setting and returns the new
// state.
func (r *Repository) ToggleDailyBrief(ctx context.Context, userID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_settings (user_id, daily_brief_enabled)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET daily_brief_enabled = NOT user_settings.daily_brief_enabled
		RETURNING daily_brief_enabled
	`, userID)
	var enabled bool
	return enabled, row.Scan(&enabled)
}

// Settings returns the user's notification settings, defaulting to disabled
// when no row exists.
func (r *Repository) Settings(ctx context.Context, userID string) (Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT reminders_enabled, daily_brief_enabled FROM user_settings WHERE user_id = $1
	`, userID)
	var s Settings
	if err := row.Scan(&s.RemindersEnabled, &s.DailyBriefEnabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	return s, nil
}

// Greeting returns a greeting-safe name for the user: display name first,
// then username, capitalized. Returns "" when neither is set.
func (r *Repository) Greeting(ctx context.Context, userID string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(display_name, ''), COALESCE(username, '')
		FROM user_profiles WHERE user_id = $1
	`, userID)
	var displayName, username string
	if err := row.Scan(&displayName, &username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if name := strings.TrimSpace(displayName); name != "" {
		return capitalize(name), nil
	}
	if name := strings.TrimSpace(username); name != "" {
		return capitalize(name), nil
	}
	return "", nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
