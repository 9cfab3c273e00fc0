package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumenbot/internal/attendance"
	"lumenbot/internal/schedule"
	"lumenbot/internal/telegram"
	"lumenbot/internal/undo"
)

const genericErrorReply = "Something didn't go through. Try again in a moment."

// Transport is the outgoing chat surface the router speaks to.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *telegram.SendOptions) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, opts *telegram.SendOptions) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// UserStore is the account-linking surface the router needs.
type UserStore interface {
	UserIDByChat(ctx context.Context, chatID int64) (string, error)
	Unlink(ctx context.Context, chatID int64) error
	ToggleReminders(ctx context.Context, userID string) (bool, error)
	ToggleDailyBrief(ctx context.Context, userID string) (bool, error)
	Greeting(ctx context.Context, userID string) (string, error)
}

// Router dispatches incoming updates to command and callback handlers. One
// Router is constructed at process start and shared by all webhook
// invocations; it holds no per-update state.
type Router struct {
	tg         Transport
	schedules  *schedule.Service
	attendance *attendance.Service
	undo       *undo.Service
	users      UserStore
	logger     *zap.Logger
	loc        *time.Location
	appBaseURL string
}

// NewRouter wires the router's collaborators.
func NewRouter(tg Transport, schedules *schedule.Service, att *attendance.Service, und *undo.Service, users UserStore, loc *time.Location, appBaseURL string, logger *zap.Logger) *Router {
	return &Router{
		tg:         tg,
		schedules:  schedules,
		attendance: att,
		undo:       und,
		users:      users,
		logger:     logger,
		loc:        loc,
		appBaseURL: appBaseURL,
	}
}

// HandleUpdate routes one webhook update. Handler failures are logged and
// answered with a user-visible message; nothing here is fatal to the
// process.
func (r *Router) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		updatesHandled.WithLabelValues("callback").Inc()
		r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		updatesHandled.WithLabelValues("command").Inc()
		r.handleCommand(ctx, upd.Message)
	default:
		updatesHandled.WithLabelValues("other").Inc()
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *telegram.Message) {
	cmd, args := splitCommand(msg.Text)
	chatID := msg.Chat.ID

	// /start and /help work before the account is linked.
	switch cmd {
	case "start":
		r.cmdStart(ctx, chatID)
		return
	case "help":
		r.cmdHelp(ctx, chatID)
		return
	}

	userID, err := r.users.UserIDByChat(ctx, chatID)
	if err != nil {
		r.logger.Error("chat lookup failed", zap.Int64("chat", chatID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if userID == "" {
		r.reply(ctx, chatID, "⚠️ You need to connect your account first.\n\nUse /start to link your Telegram with Attendrix.")
		return
	}

	switch cmd {
	case "attend", "a":
		r.cmdAttend(ctx, chatID, userID, args)
	case "absent", "ab":
		r.cmdAbsent(ctx, chatID, userID, args)
	case "attend_all", "aa":
		r.cmdAttendAll(ctx, chatID, userID)
	case "absent_all":
		r.cmdAbsentAll(ctx, chatID, userID)
	case "today":
		r.cmdToday(ctx, chatID, userID)
	case "tomorrow":
		r.cmdTomorrow(ctx, chatID, userID)
	case "status", "s":
		r.cmdStatus(ctx, chatID, userID)
	case "undo", "u":
		r.cmdUndo(ctx, chatID, userID)
	case "reset":
		r.cmdReset(ctx, chatID)
	case "remind_me":
		r.cmdRemindMe(ctx, chatID, userID)
	case "daily_brief":
		r.cmdDailyBrief(ctx, chatID, userID)
	default:
		// Unknown commands are ignored, matching group-chat etiquette.
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.Message == nil {
		r.answer(ctx, cb.ID, "This action has expired.", true)
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, ActionSelect+":"):
		r.callbackSelect(ctx, cb, chatID)
	case strings.HasPrefix(cb.Data, ActionConfirm+":"):
		r.callbackConfirm(ctx, cb, chatID)
	case strings.HasPrefix(cb.Data, ActionAttendAll+":"), strings.HasPrefix(cb.Data, ActionAbsentAll+":"):
		r.callbackAll(ctx, cb, chatID)
	case cb.Data == ResetConfirm:
		r.callbackResetConfirm(ctx, cb, chatID)
	case cb.Data == ResetCancel:
		r.callbackResetCancel(ctx, cb, chatID)
	default:
		r.answer(ctx, cb.ID, "Unknown action.", true)
	}
}

// userFromCallback resolves the linked user for a button tap; callbacks can
// arrive long after the keyboard was issued, so the link is re-checked.
func (r *Router) userFromCallback(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) (string, bool) {
	userID, err := r.users.UserIDByChat(ctx, chatID)
	if err != nil {
		r.logger.Error("chat lookup failed", zap.Int64("chat", chatID), zap.Error(err))
		r.answer(ctx, cb.ID, genericErrorReply, true)
		return "", false
	}
	if userID == "" {
		r.answer(ctx, cb.ID, "Please connect your account using /start", true)
		return "", false
	}
	return userID, true
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.tg.SendMessage(ctx, chatID, text, nil); err != nil {
		r.logger.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) replyMarkdown(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) {
	opts := &telegram.SendOptions{ParseMode: "Markdown", ReplyMarkup: markup}
	if err := r.tg.SendMessage(ctx, chatID, text, opts); err != nil {
		r.logger.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) answer(ctx context.Context, callbackID, text string, showAlert bool) {
	if err := r.tg.AnswerCallbackQuery(ctx, callbackID, text, showAlert); err != nil {
		r.logger.Error("answer callback failed", zap.Error(err))
	}
}

// typing fires a chat action; a UX helper that must never fail a handler.
func (r *Router) typing(ctx context.Context, chatID int64) {
	_ = r.tg.SendChatAction(ctx, chatID, "typing")
}

// splitCommand strips the slash and bot-name suffix, returning the command
// and its argument tail.
func splitCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	cmd, args, _ = strings.Cut(text, " ")
	cmd = strings.TrimPrefix(cmd, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// parseIndices extracts 1-based class indices from command arguments,
// accepting comma or space separation and dropping anything out of range.
func parseIndices(args string, max int) []int {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	var indices []int
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > max {
			continue
		}
		indices = append(indices, n)
	}
	return indices
}
