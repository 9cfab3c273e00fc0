package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"lumenbot/internal/attendance"
	"lumenbot/internal/schedule"
	"lumenbot/internal/telegram"
	"lumenbot/internal/undo"
)

type recordedSend struct {
	chatID int64
	text   string
}

type mockTransport struct {
	sends   []recordedSend
	edits   []recordedSend
	answers []string
	alerts  []bool
}

func (m *mockTransport) SendMessage(_ context.Context, chatID int64, text string, _ *telegram.SendOptions) error {
	m.sends = append(m.sends, recordedSend{chatID, text})
	return nil
}

func (m *mockTransport) EditMessageText(_ context.Context, chatID, _ int64, text string, _ *telegram.SendOptions) error {
	m.edits = append(m.edits, recordedSend{chatID, text})
	return nil
}

func (m *mockTransport) EditMessageReplyMarkup(_ context.Context, _, _ int64, _ *telegram.InlineKeyboardMarkup) error {
	return nil
}

func (m *mockTransport) AnswerCallbackQuery(_ context.Context, _ string, text string, showAlert bool) error {
	m.answers = append(m.answers, text)
	m.alerts = append(m.alerts, showAlert)
	return nil
}

func (m *mockTransport) SendChatAction(_ context.Context, _ int64, _ string) error {
	return nil
}

func (m *mockTransport) lastSend(t *testing.T) string {
	t.Helper()
	if len(m.sends) == 0 {
		t.Fatal("no message sent")
	}
	return m.sends[len(m.sends)-1].text
}

type mockUsers struct {
	userID string
}

func (m *mockUsers) UserIDByChat(_ context.Context, _ int64) (string, error) { return m.userID, nil }
func (m *mockUsers) Unlink(_ context.Context, _ int64) error                 { return nil }
func (m *mockUsers) ToggleReminders(_ context.Context, _ string) (bool, error) {
	return true, nil
}
func (m *mockUsers) ToggleDailyBrief(_ context.Context, _ string) (bool, error) {
	return true, nil
}
func (m *mockUsers) Greeting(_ context.Context, _ string) (string, error) { return "Asha", nil }

type mockScheduleStore struct {
	classes []schedule.Class
}

func (m *mockScheduleStore) Enrollment(_ context.Context, _ string) (*schedule.Enrollment, error) {
	return &schedule.Enrollment{CourseIDs: []string{"MA101"}, BatchID: "b1"}, nil
}

func (m *mockScheduleStore) ClassesByDate(_ context.Context, _ string, _ []string, _ string) ([]schedule.Class, error) {
	return m.classes, nil
}

type mockAttendanceStore struct {
	markResults []attendance.MarkResult
}

func (m *mockAttendanceStore) MarkBulk(_ context.Context, p attendance.MarkBulkParams) ([]attendance.MarkResult, error) {
	if m.markResults != nil {
		return m.markResults, nil
	}
	out := make([]attendance.MarkResult, len(p.ClassIDs))
	for i, id := range p.ClassIDs {
		out[i] = attendance.MarkResult{ClassID: id, Status: attendance.StatusMarked}
	}
	return out, nil
}

func (m *mockAttendanceStore) DeleteBulk(_ context.Context, _ string, classIDs []string) ([]attendance.DeleteResult, error) {
	out := make([]attendance.DeleteResult, len(classIDs))
	for i, id := range classIDs {
		out[i] = attendance.DeleteResult{ClassID: id, Deleted: true}
	}
	return out, nil
}

func (m *mockAttendanceStore) StatusBulk(_ context.Context, _ string, classIDs []string) ([]attendance.StatusResult, error) {
	out := make([]attendance.StatusResult, len(classIDs))
	for i, id := range classIDs {
		out[i] = attendance.StatusResult{ClassID: id, IsMarked: i == 0}
	}
	return out, nil
}

func (m *mockAttendanceStore) EffectiveCourseAttendance(_ context.Context, _ string) ([]attendance.CourseRow, error) {
	return []attendance.CourseRow{
		{CourseID: "MA101", CourseName: "Calculus", AttendedClasses: 8, TotalClasses: 10},
	}, nil
}

type mockUndoStore struct {
	last *undo.Action
}

func (m *mockUndoStore) AppendAction(_ context.Context, _ undo.Action) error { return nil }
func (m *mockUndoStore) LastAction(_ context.Context, _ string) (*undo.Action, error) {
	return m.last, nil
}
func (m *mockUndoStore) DeleteAction(_ context.Context, _ string) error { return nil }
func (m *mockUndoStore) DeleteDeltas(_ context.Context, _ string, _ []string) error {
	return nil
}
func (m *mockUndoStore) RestoreDeltas(_ context.Context, _ string, classIDs []string, _ time.Time) (int, int, error) {
	return len(classIDs), len(classIDs), nil
}

func todayClasses() []schedule.Class {
	start := time.Now().Add(2 * time.Hour)
	return []schedule.Class{
		{ClassID: "c1", CourseID: "MA101", CourseName: "Calculus", StartTime: start, EndTime: start.Add(50 * time.Minute)},
		{ClassID: "c2", CourseID: "MA101", CourseName: "Physics", StartTime: start.Add(time.Hour), EndTime: start.Add(110 * time.Minute)},
	}
}

func newTestRouter(tg *mockTransport, users *mockUsers, classes []schedule.Class, undoStore *mockUndoStore) *Router {
	logger := zap.NewNop()
	schedules := schedule.NewService(&mockScheduleStore{classes: classes}, time.UTC, logger)
	undoSvc := undo.NewService(undoStore, time.UTC, logger)
	attendanceSvc := attendance.NewService(&mockAttendanceStore{}, undoSvc, logger)
	return NewRouter(tg, schedules, attendanceSvc, undoSvc, users, time.UTC, "https://app.example/connect", logger)
}

func command(text string) telegram.Update {
	return telegram.Update{
		UpdateID: 1,
		Message: &telegram.Message{
			MessageID: 10,
			Chat:      telegram.Chat{ID: 42},
			Text:      text,
		},
	}
}

func TestUnlinkedUserGetsConnectPrompt(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: ""}, todayClasses(), &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/attend"))

	text := tg.lastSend(t)
	if !strings.Contains(text, "connect your account") {
		t.Errorf("reply = %q", text)
	}
}

func TestStartOffersConnectLink(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: ""}, nil, &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/start"))

	if len(tg.sends) != 1 {
		t.Fatalf("sends = %d", len(tg.sends))
	}
	if !strings.Contains(tg.sends[0].text, "Welcome to Lumen") {
		t.Errorf("reply = %q", tg.sends[0].text)
	}
}

func TestAttendWithIndices(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, todayClasses(), &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/attend 1,2"))

	text := tg.lastSend(t)
	if !strings.Contains(text, "2 classes") {
		t.Errorf("summary = %q", text)
	}
}

func TestAttendBadIndices(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, todayClasses(), &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/attend 9"))

	if !strings.Contains(tg.lastSend(t), "couldn't find those class numbers") {
		t.Errorf("reply = %q", tg.lastSend(t))
	}
}

func TestAttendNoClasses(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, nil, &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/attend"))

	if !strings.Contains(tg.lastSend(t), "No classes scheduled") {
		t.Errorf("reply = %q", tg.lastSend(t))
	}
}

func TestUndoNothing(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, todayClasses(), &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/undo"))

	if !strings.Contains(tg.lastSend(t), "Nothing to undo") {
		t.Errorf("reply = %q", tg.lastSend(t))
	}
}

func TestUndoSameDayAttend(t *testing.T) {
	tg := &mockTransport{}
	undoStore := &mockUndoStore{last: &undo.Action{
		ID:               "a1",
		UserID:           "u1",
		ActionType:       undo.ActionAttend,
		AffectedClassIDs: []string{"c1", "c2"},
		CreatedAt:        time.Now(),
	}}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, todayClasses(), undoStore)

	router.HandleUpdate(context.Background(), command("/undo"))

	if !strings.Contains(tg.lastSend(t), "Undid attendance for 2 classes.") {
		t.Errorf("reply = %q", tg.lastSend(t))
	}
}

func TestCallbackWithoutMessageExpires(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, todayClasses(), &mockUndoStore{})

	router.HandleUpdate(context.Background(), telegram.Update{
		UpdateID:      2,
		CallbackQuery: &telegram.CallbackQuery{ID: "cb1", Data: "att_a_all:2026-03-10"},
	})

	if len(tg.answers) != 1 || !strings.Contains(tg.answers[0], "expired") {
		t.Errorf("answers = %v", tg.answers)
	}
}

func TestCommandAliases(t *testing.T) {
	tg := &mockTransport{}
	router := newTestRouter(tg, &mockUsers{userID: "u1"}, todayClasses(), &mockUndoStore{})

	router.HandleUpdate(context.Background(), command("/s"))

	text := tg.lastSend(t)
	if !strings.Contains(text, "Calculus") || !strings.Contains(text, "8 / 10") {
		t.Errorf("status reply = %q", text)
	}
}
