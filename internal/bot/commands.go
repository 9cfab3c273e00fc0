package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lumenbot/internal/attendance"
	"lumenbot/internal/selection"
	"lumenbot/internal/telegram"
)

func (r *Router) cmdStart(ctx context.Context, chatID int64) {
	userID, err := r.users.UserIDByChat(ctx, chatID)
	if err != nil {
		r.logger.Error("chat lookup failed", zap.Int64("chat", chatID), zap.Error(err))
		r.reply(ctx, chatID, "An error occurred. Please try again.")
		return
	}
	if userID != "" {
		r.reply(ctx, chatID, "✅ You are already connected to Attendrix.\n\nYour account is active and ready to use. Type /help to see available commands.")
		return
	}

	connectLink := fmt.Sprintf("%s?chatID=%d", r.appBaseURL, chatID)
	keyboard := telegram.NewKeyboard([]telegram.InlineKeyboardButton{
		{Text: "🔗 Connect Account", URL: connectLink},
	})
	r.replyMarkdown(ctx, chatID,
		"👋 *Welcome to Lumen*\n\n"+
			"I'm your digital attendance assistant. To get started, you must link your Telegram account with your Attendrix profile.\n\n"+
			"Click the button below to authenticate.",
		keyboard)
}

func (r *Router) cmdHelp(ctx context.Context, chatID int64) {
	help := "*Lumen Commands*\n\n" +
		"/attend - Mark classes present (or /a 1 2)\n" +
		"/absent - Mark classes absent (or /ab 1 2)\n" +
		"/attend\\_all - Mark every class present\n" +
		"/absent\\_all - Mark every class absent\n" +
		"/today - Today's schedule\n" +
		"/tomorrow - Tomorrow's schedule\n" +
		"/status - Course-wise attendance\n" +
		"/undo - Revert your last action (same day only)\n" +
		"/remind\\_me - Toggle class reminders\n" +
		"/daily\\_brief - Toggle the morning summary\n" +
		"/reset - Disconnect your account"
	r.replyMarkdown(ctx, chatID, help, nil)
}

func (r *Router) cmdAttend(ctx context.Context, chatID int64, userID, args string) {
	r.typing(ctx, chatID)

	classes, err := r.schedules.TodayClasses(ctx, userID)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if len(classes) == 0 {
		r.reply(ctx, chatID, "No classes scheduled for today.")
		return
	}

	// Smart default: with a single class and no arguments, mark it directly.
	if args == "" && len(classes) == 1 {
		status, err := r.attendance.MarkClass(ctx, userID, classes[0])
		if err != nil {
			r.logger.Error("mark failed", zap.String("user", userID), zap.Error(err))
			r.reply(ctx, chatID, genericErrorReply)
			return
		}
		mutationsTotal.WithLabelValues("attend").Inc()
		switch status {
		case attendance.StatusMarked:
			r.replyMarkdown(ctx, chatID, fmt.Sprintf("Marked present.\n\n%s\n\n_Use /undo to revert if needed._", classes[0].CourseName), nil)
		case attendance.StatusAlready:
			r.reply(ctx, chatID, fmt.Sprintf("Already marked present for %s.", classes[0].CourseName))
		default:
			r.reply(ctx, chatID, genericErrorReply)
		}
		return
	}

	if args != "" {
		indices := parseIndices(args, len(classes))
		if len(indices) == 0 {
			r.reply(ctx, chatID, "I couldn't find those class numbers. Use /today to see your schedule.")
			return
		}

		results, err := r.attendance.MarkByIndices(ctx, userID, classes, indices)
		if err != nil {
			r.logger.Error("bulk mark failed", zap.String("user", userID), zap.Error(err))
			r.reply(ctx, chatID, genericErrorReply)
			return
		}
		mutationsTotal.WithLabelValues("attend").Inc()
		r.replyMarkdown(ctx, chatID, formatMarkSummary(results), nil)
		return
	}

	// No arguments: show the selection keyboard, pre-selecting the class
	// that is ongoing or about to start.
	date := r.schedules.Today()
	mask := 0
	text := "*Select classes to mark present:*\nTap to select, then confirm. Or: /attend 1 2"
	if next := r.schedules.NextClass(classes); next >= 0 {
		mask = selection.Toggle(0, next)
		text = fmt.Sprintf("*Current/Upcoming Class Pre-selected*\n\n%s is starting soon.\n\nTap to adjust selection, then confirm.", classes[next].CourseName)
	}
	r.replyMarkdown(ctx, chatID, text, BuildAttendanceKeyboard(classes, date, mask, r.loc))
}

func (r *Router) cmdAbsent(ctx context.Context, chatID int64, userID, args string) {
	r.typing(ctx, chatID)

	classes, err := r.schedules.TodayClasses(ctx, userID)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if len(classes) == 0 {
		r.reply(ctx, chatID, "📭 You have no classes scheduled for today.")
		return
	}

	if args == "" && len(classes) == 1 {
		if _, err := r.attendance.AbsentByIndices(ctx, userID, classes, []int{1}); err != nil {
			r.logger.Error("absence failed", zap.String("user", userID), zap.Error(err))
			r.reply(ctx, chatID, genericErrorReply)
			return
		}
		mutationsTotal.WithLabelValues("absent").Inc()
		r.replyMarkdown(ctx, chatID, fmt.Sprintf("Marked absent.\n\n%s\n\n_Use /undo to revert if needed._", classes[0].CourseName), nil)
		return
	}

	if args != "" {
		indices := parseIndices(args, len(classes))
		if len(indices) == 0 {
			r.reply(ctx, chatID, "I couldn't find those class numbers. Use /today to see your schedule.")
			return
		}

		results, err := r.attendance.AbsentByIndices(ctx, userID, classes, indices)
		if err != nil {
			r.logger.Error("bulk absence failed", zap.String("user", userID), zap.Error(err))
			r.reply(ctx, chatID, genericErrorReply)
			return
		}
		mutationsTotal.WithLabelValues("absent").Inc()
		r.replyMarkdown(ctx, chatID,
			fmt.Sprintf("Marked %d %s absent.\n\n_Use /undo to revert if needed._", len(results), pluralClass(len(results))), nil)
		return
	}

	date := r.schedules.Today()
	r.replyMarkdown(ctx, chatID,
		"*Select classes to mark absent:*\nTap to select, then confirm. Or: /absent 1 2",
		BuildAttendanceKeyboard(classes, date, 0, r.loc))
}

func (r *Router) cmdAttendAll(ctx context.Context, chatID int64, userID string) {
	r.typing(ctx, chatID)

	classes, err := r.schedules.TodayClasses(ctx, userID)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if len(classes) == 0 {
		r.reply(ctx, chatID, "📭 You have no classes scheduled for today.")
		return
	}

	results, err := r.attendance.MarkAll(ctx, userID, classes)
	if err != nil {
		r.logger.Error("mark all failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	mutationsTotal.WithLabelValues("attend").Inc()

	marked, already, _ := countStatuses(results)
	summary := fmt.Sprintf("Marked %d %s present", marked, pluralClass(marked))
	if already > 0 {
		summary += fmt.Sprintf(" (%d already marked)", already)
	}
	summary += ".\n\n_Use /undo to revert if needed._"
	r.replyMarkdown(ctx, chatID, summary, nil)
}

func (r *Router) cmdAbsentAll(ctx context.Context, chatID int64, userID string) {
	r.typing(ctx, chatID)

	classes, err := r.schedules.TodayClasses(ctx, userID)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if len(classes) == 0 {
		r.reply(ctx, chatID, "📭 You have no classes scheduled for today.")
		return
	}

	if _, err := r.attendance.AbsentAll(ctx, userID, classes); err != nil {
		r.logger.Error("absent all failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	mutationsTotal.WithLabelValues("absent").Inc()
	r.replyMarkdown(ctx, chatID,
		fmt.Sprintf("Marked all %d %s absent.\n\n_Use /undo to revert if needed._", len(classes), pluralClass(len(classes))), nil)
}

func (r *Router) cmdToday(ctx context.Context, chatID int64, userID string) {
	r.typing(ctx, chatID)

	classes, err := r.schedules.TodayClasses(ctx, userID)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if len(classes) == 0 {
		r.reply(ctx, chatID, "📭 You have no classes scheduled for today.")
		return
	}

	classIDs := make([]string, len(classes))
	for i, cls := range classes {
		classIDs[i] = cls.ClassID
	}
	marked, err := r.attendance.StatusBulk(ctx, userID, classIDs)
	if err != nil {
		r.logger.Error("status fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Today's Schedule (%s)*\n\n", r.schedules.Today())
	for i, cls := range classes {
		status := "⏸️"
		if marked[cls.ClassID] {
			status = "✅"
		}
		fmt.Fprintf(&b, "%d. *%s* %s\n", i+1, cls.CourseName, status)
		fmt.Fprintf(&b, "   ⏰ %s - %s\n", cls.StartTime.In(r.loc).Format("15:04"), cls.EndTime.In(r.loc).Format("15:04"))
		if cls.Venue != "" {
			fmt.Fprintf(&b, "   📍 %s\n", cls.Venue)
		}
		b.WriteString("\n")
	}
	r.replyMarkdown(ctx, chatID, b.String(), nil)
}

func (r *Router) cmdTomorrow(ctx context.Context, chatID int64, userID string) {
	r.typing(ctx, chatID)

	classes, err := r.schedules.TomorrowClasses(ctx, userID)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if len(classes) == 0 {
		r.reply(ctx, chatID, "No classes scheduled for tomorrow.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Tomorrow's Schedule (%s)*\n\n", r.schedules.Tomorrow())
	for i, cls := range classes {
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, cls.CourseName)
		fmt.Fprintf(&b, "   ⏰ %s - %s\n", cls.StartTime.In(r.loc).Format("15:04"), cls.EndTime.In(r.loc).Format("15:04"))
		if cls.Venue != "" {
			fmt.Fprintf(&b, "   📍 %s\n", cls.Venue)
		}
		b.WriteString("\n")
	}
	r.replyMarkdown(ctx, chatID, b.String(), nil)
}

func (r *Router) cmdStatus(ctx context.Context, chatID int64, userID string) {
	r.typing(ctx, chatID)

	courses, err := r.attendance.CourseAttendance(ctx, userID)
	if err != nil {
		r.logger.Error("course attendance failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, "Couldn't load your attendance data right now. Try again in a moment.")
		return
	}
	if len(courses) == 0 {
		r.reply(ctx, chatID, "❌ No courses found.")
		return
	}

	header := "*Your Attendance*\n\n"
	if greeting, err := r.users.Greeting(ctx, userID); err == nil && greeting != "" {
		header = fmt.Sprintf("*Your Attendance, %s*\n\n", greeting)
	}

	var b strings.Builder
	b.WriteString(header)
	for _, course := range courses {
		labTag := ""
		if course.IsLab {
			labTag = " 🧪"
		}
		fmt.Fprintf(&b, "%s%s\n", course.CourseName, labTag)
		fmt.Fprintf(&b, "  %d / %d (%.1f%%)\n\n", course.Attended, course.Total, course.Percentage)
	}
	b.WriteString("\n_Updated in real-time as you mark attendance._")
	r.replyMarkdown(ctx, chatID, strings.TrimSpace(b.String()), nil)
}

func (r *Router) cmdUndo(ctx context.Context, chatID int64, userID string) {
	r.typing(ctx, chatID)

	result := r.undo.UndoLast(ctx, userID)
	outcome := "refused"
	if result.Success {
		outcome = "success"
	}
	undoTotal.WithLabelValues(outcome).Inc()
	r.reply(ctx, chatID, result.Message)
}

func (r *Router) cmdReset(ctx context.Context, chatID int64) {
	keyboard := telegram.NewKeyboard(
		[]telegram.InlineKeyboardButton{{Text: "✅ Yes, disconnect my account", CallbackData: ResetConfirm}},
		[]telegram.InlineKeyboardButton{{Text: "❌ Cancel", CallbackData: ResetCancel}},
	)
	r.replyMarkdown(ctx, chatID,
		"*Account Disconnect*\n\n"+
			"This will remove the link between your Telegram and Attendrix.\n\n"+
			"*What happens:*\n"+
			"• Your Telegram link is removed\n"+
			"• You'll need to run /start to reconnect\n\n"+
			"*What's preserved:*\n"+
			"• All your attendance records\n"+
			"• Your Attendrix account\n"+
			"• Your course enrollments\n\n"+
			"Are you sure?",
		keyboard)
}

func (r *Router) cmdRemindMe(ctx context.Context, chatID int64, userID string) {
	enabled, err := r.users.ToggleReminders(ctx, userID)
	if err != nil {
		r.logger.Error("toggle reminders failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if enabled {
		r.reply(ctx, chatID, "Class reminders enabled. You'll be notified 10 minutes before each class.")
	} else {
		r.reply(ctx, chatID, "Class reminders disabled.")
	}
}

func (r *Router) cmdDailyBrief(ctx context.Context, chatID int64, userID string) {
	enabled, err := r.users.ToggleDailyBrief(ctx, userID)
	if err != nil {
		r.logger.Error("toggle daily brief failed", zap.String("user", userID), zap.Error(err))
		r.reply(ctx, chatID, genericErrorReply)
		return
	}
	if enabled {
		r.reply(ctx, chatID, "Daily brief enabled. You'll receive a morning summary at 8:00 AM.")
	} else {
		r.reply(ctx, chatID, "Daily brief disabled.")
	}
}

// formatMarkSummary builds the /attend result message: a compact count line,
// expanded per-class lines only when something failed.
func formatMarkSummary(results []attendance.ClassMark) string {
	marked, already, failed := countStatuses(results)

	summary := fmt.Sprintf("Marked %d %s present", marked, pluralClass(marked))
	if already > 0 {
		summary += fmt.Sprintf(" (%d already marked)", already)
	}

	if failed > 0 {
		var lines []string
		for _, res := range results {
			switch res.Status {
			case attendance.StatusMarked:
				lines = append(lines, fmt.Sprintf("%d. %s - Marked ✅", res.Index, res.CourseName))
			case attendance.StatusAlready:
				lines = append(lines, fmt.Sprintf("%d. %s - Already marked ✓", res.Index, res.CourseName))
			default:
				lines = append(lines, fmt.Sprintf("%d. %s - Failed ❌", res.Index, res.CourseName))
			}
		}
		summary += "\n\n" + strings.Join(lines, "\n")
	}

	return summary + "\n\n_Use /undo to revert if needed._"
}

func countStatuses(results []attendance.ClassMark) (marked, already, failed int) {
	for _, res := range results {
		switch res.Status {
		case attendance.StatusMarked:
			marked++
		case attendance.StatusAlready:
			already++
		default:
			failed++
		}
	}
	return marked, already, failed
}

func pluralClass(n int) string {
	if n == 1 {
		return "class"
	}
	return "classes"
}
