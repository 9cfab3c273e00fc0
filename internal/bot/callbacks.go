package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lumenbot/internal/selection"
	"lumenbot/internal/telegram"
)

func (r *Router) callbackSelect(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	payload, err := ParseSelect(cb.Data)
	if err != nil {
		r.answer(ctx, cb.ID, "Invalid selection", false)
		return
	}

	userID, ok := r.userFromCallback(ctx, cb, chatID)
	if !ok {
		return
	}

	classes, err := r.schedules.ClassesOn(ctx, userID, payload.Date)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.answer(ctx, cb.ID, "An error occurred", false)
		return
	}
	if len(classes) == 0 {
		r.answer(ctx, cb.ID, "No classes found for this date.", false)
		return
	}
	// The payload may predate a schedule change; re-check the index bound.
	if payload.Index >= len(classes) {
		r.answer(ctx, cb.ID, "Invalid class selection", false)
		return
	}

	newMask := selection.Toggle(payload.Mask, payload.Index)
	keyboard := BuildAttendanceKeyboard(classes, payload.Date, newMask, r.loc)
	if err := r.tg.EditMessageReplyMarkup(ctx, chatID, cb.Message.MessageID, keyboard); err != nil {
		r.logger.Error("keyboard edit failed", zap.Int64("chat", chatID), zap.Error(err))
	}
	r.answer(ctx, cb.ID, "", false)
}

func (r *Router) callbackConfirm(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	payload, err := ParseConfirm(cb.Data)
	if err != nil {
		r.answer(ctx, cb.ID, "Invalid data format", false)
		return
	}

	userID, ok := r.userFromCallback(ctx, cb, chatID)
	if !ok {
		return
	}

	classes, err := r.schedules.ClassesOn(ctx, userID, payload.Date)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.answer(ctx, cb.ID, "An error occurred", false)
		return
	}

	indices := selection.Indices(payload.Mask, len(classes))
	if len(indices) == 0 {
		r.answer(ctx, cb.ID, "⚠️ No classes selected!", true)
		return
	}

	opts := &telegram.SendOptions{ParseMode: "Markdown"}
	if payload.Kind == "attend" {
		results, err := r.attendance.MarkByIndices(ctx, userID, classes, indices)
		if err != nil {
			r.logger.Error("bulk mark failed", zap.String("user", userID), zap.Error(err))
			r.answer(ctx, cb.ID, "An error occurred", false)
			return
		}
		mutationsTotal.WithLabelValues("attend").Inc()

		marked, already, failed := countStatuses(results)
		text := fmt.Sprintf("✅ *Attendance Marked*\n\nSelected: %d\nNew: %d | Existing: %d | Failed: %d\n\n_Your stats will reflect this immediately._",
			len(indices), marked, already, failed)
		if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, text, opts); err != nil {
			r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
		}
	} else {
		if _, err := r.attendance.AbsentByIndices(ctx, userID, classes, indices); err != nil {
			r.logger.Error("bulk absence failed", zap.String("user", userID), zap.Error(err))
			r.answer(ctx, cb.ID, "An error occurred", false)
			return
		}
		mutationsTotal.WithLabelValues("absent").Inc()

		text := fmt.Sprintf("📝 *Absence Recorded*\n\nMarked absent for %d selected class(es).", len(indices))
		if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, text, opts); err != nil {
			r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
		}
	}
	r.answer(ctx, cb.ID, "", false)
}

func (r *Router) callbackAll(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	action, date, err := ParseAll(cb.Data)
	if err != nil {
		r.answer(ctx, cb.ID, "Invalid data format", false)
		return
	}

	userID, ok := r.userFromCallback(ctx, cb, chatID)
	if !ok {
		return
	}

	classes, err := r.schedules.ClassesOn(ctx, userID, date)
	if err != nil {
		r.logger.Error("schedule fetch failed", zap.String("user", userID), zap.Error(err))
		r.answer(ctx, cb.ID, "An error occurred", false)
		return
	}
	if len(classes) == 0 {
		r.answer(ctx, cb.ID, "No classes found.", false)
		return
	}

	opts := &telegram.SendOptions{ParseMode: "Markdown"}
	if action == ActionAttendAll {
		results, err := r.attendance.MarkAll(ctx, userID, classes)
		if err != nil {
			r.logger.Error("mark all failed", zap.String("user", userID), zap.Error(err))
			r.answer(ctx, cb.ID, "An error occurred", false)
			return
		}
		mutationsTotal.WithLabelValues("attend").Inc()

		marked, already, _ := countStatuses(results)
		text := fmt.Sprintf("✅ *All Attendance Marked*\n\nTotal: %d\nNew: %d | Existing: %d\n\n_Your stats will reflect this immediately._",
			len(classes), marked, already)
		if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, text, opts); err != nil {
			r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
		}
	} else {
		if _, err := r.attendance.AbsentAll(ctx, userID, classes); err != nil {
			r.logger.Error("absent all failed", zap.String("user", userID), zap.Error(err))
			r.answer(ctx, cb.ID, "An error occurred", false)
			return
		}
		mutationsTotal.WithLabelValues("absent").Inc()

		text := fmt.Sprintf("📝 *All Absences Recorded*\n\nMarked absent for all %d classes.", len(classes))
		if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, text, opts); err != nil {
			r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
		}
	}
	r.answer(ctx, cb.ID, "", false)
}

func (r *Router) callbackResetConfirm(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	r.answer(ctx, cb.ID, "", false)

	if err := r.users.Unlink(ctx, chatID); err != nil {
		r.logger.Error("unlink failed", zap.Int64("chat", chatID), zap.Error(err))
		if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, "Something didn't go through. Try /reset again.", nil); err != nil {
			r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
		}
		return
	}

	text := "*Account Disconnected*\n\nYour Telegram is no longer linked to Attendrix.\n\nTo reconnect, use /start."
	opts := &telegram.SendOptions{ParseMode: "Markdown"}
	if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, text, opts); err != nil {
		r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) callbackResetCancel(ctx context.Context, cb *telegram.CallbackQuery, chatID int64) {
	r.answer(ctx, cb.ID, "", false)
	if err := r.tg.EditMessageText(ctx, chatID, cb.Message.MessageID, "Disconnect cancelled.", nil); err != nil {
		r.logger.Error("message edit failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}
