package bot

import (
	"fmt"
	"time"

	"lumenbot/internal/schedule"
	"lumenbot/internal/selection"
	"lumenbot/internal/telegram"
)

// BuildAttendanceKeyboard renders the multi-select keyboard for a day's
// classes. The current mask rides inside every button payload so the bot
// holds no per-session state between taps.
func BuildAttendanceKeyboard(classes []schedule.Class, date string, mask int, loc *time.Location) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton

	for i, cls := range classes {
		check := "⬜ "
		if selection.IsSet(mask, i) {
			check = "✅ "
		}
		label := fmt.Sprintf("%s%s (%s)", check, cls.CourseName, cls.StartTime.In(loc).Format("15:04"))
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("%s:%s:%d:%d", ActionSelect, date, i, mask),
		}})
	}

	if mask != 0 {
		rows = append(rows, []telegram.InlineKeyboardButton{
			{
				Text:         "Attend Selected 🙋‍♂️",
				CallbackData: fmt.Sprintf("%s:%s:attend:%d", ActionConfirm, date, mask),
			},
			{
				Text:         "Absent Selected 🙅‍♂️",
				CallbackData: fmt.Sprintf("%s:%s:absent:%d", ActionConfirm, date, mask),
			},
		})
	}

	rows = append(rows, []telegram.InlineKeyboardButton{
		{Text: "Attend All 🚀", CallbackData: fmt.Sprintf("%s:%s", ActionAttendAll, date)},
		{Text: "Absent All 😴", CallbackData: fmt.Sprintf("%s:%s", ActionAbsentAll, date)},
	})

	return telegram.NewKeyboard(rows...)
}
