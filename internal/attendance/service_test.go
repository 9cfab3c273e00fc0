package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"lumenbot/internal/schedule"
)

type mockStore struct {
	markParams  *MarkBulkParams
	markResults []MarkResult
	markErr     error

	deleteIDs     []string
	deleteResults []DeleteResult

	statusResults []StatusResult

	courseRows []CourseRow
	courseErr  error
}

func (m *mockStore) MarkBulk(_ context.Context, p MarkBulkParams) ([]MarkResult, error) {
	m.markParams = &p
	return m.markResults, m.markErr
}

func (m *mockStore) DeleteBulk(_ context.Context, _ string, classIDs []string) ([]DeleteResult, error) {
	m.deleteIDs = classIDs
	return m.deleteResults, nil
}

func (m *mockStore) StatusBulk(_ context.Context, _ string, _ []string) ([]StatusResult, error) {
	return m.statusResults, nil
}

func (m *mockStore) EffectiveCourseAttendance(_ context.Context, _ string) ([]CourseRow, error) {
	return m.courseRows, m.courseErr
}

type mockLogger struct {
	actionType string
	classIDs   []string
	calls      int
}

func (m *mockLogger) LogAction(_ context.Context, _ string, actionType string, classIDs []string) {
	m.actionType = actionType
	m.classIDs = classIDs
	m.calls++
}

func testClasses() []schedule.Class {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return []schedule.Class{
		{ClassID: "c1", CourseID: "MA101", CourseName: "Calculus", StartTime: base},
		{ClassID: "c2", CourseID: "PH102", CourseName: "Physics", StartTime: base.Add(time.Hour)},
		{ClassID: "c3", CourseID: "CS103", CourseName: "Programming", StartTime: base.Add(2 * time.Hour)},
	}
}

func TestMarkByIndicesPreservesCallerOrder(t *testing.T) {
	store := &mockStore{
		// Store reports out of order.
		markResults: []MarkResult{
			{ClassID: "c3", Status: StatusMarked},
			{ClassID: "c1", Status: StatusAlready},
		},
	}
	logged := &mockLogger{}
	svc := NewService(store, logged, zap.NewNop())

	out, err := svc.MarkByIndices(context.Background(), "u1", testClasses(), []int{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if out[0].ClassID != "c1" || out[0].Status != StatusAlready {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].ClassID != "c3" || out[1].Status != StatusMarked {
		t.Errorf("out[1] = %+v", out[1])
	}
}

func TestMarkByIndicesEmptySelectionSkipsStore(t *testing.T) {
	store := &mockStore{}
	logged := &mockLogger{}
	svc := NewService(store, logged, zap.NewNop())

	out, err := svc.MarkByIndices(context.Background(), "u1", testClasses(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("want empty result, got %v", out)
	}
	if store.markParams != nil {
		t.Error("store must not be called for an empty selection")
	}
	if logged.calls != 0 {
		t.Error("nothing may be audit-logged for an empty selection")
	}
}

func TestMarkByIndicesMissingResultFailed(t *testing.T) {
	store := &mockStore{
		markResults: []MarkResult{{ClassID: "c1", Status: StatusMarked}},
	}
	svc := NewService(store, &mockLogger{}, zap.NewNop())

	out, err := svc.MarkByIndices(context.Background(), "u1", testClasses(), []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if out[1].ClassID != "c2" || out[1].Status != StatusFailed {
		t.Errorf("unreported class must default to failed, got %+v", out[1])
	}
}

func TestMarkByIndicesAuditsOnlyNewMarks(t *testing.T) {
	store := &mockStore{
		markResults: []MarkResult{
			{ClassID: "c1", Status: StatusMarked},
			{ClassID: "c2", Status: StatusAlready},
			{ClassID: "c3", Status: StatusFailed},
		},
	}
	logged := &mockLogger{}
	svc := NewService(store, logged, zap.NewNop())

	if _, err := svc.MarkAll(context.Background(), "u1", testClasses()); err != nil {
		t.Fatal(err)
	}
	if logged.calls != 1 {
		t.Fatalf("LogAction calls = %d, want 1", logged.calls)
	}
	if logged.actionType != actionAttend {
		t.Errorf("action = %q", logged.actionType)
	}
	if len(logged.classIDs) != 1 || logged.classIDs[0] != "c1" {
		t.Errorf("only newly marked ids belong in the audit entry, got %v", logged.classIDs)
	}
}

func TestMarkByIndicesAllAlreadySkipsAudit(t *testing.T) {
	store := &mockStore{
		markResults: []MarkResult{{ClassID: "c1", Status: StatusAlready}},
	}
	logged := &mockLogger{}
	svc := NewService(store, logged, zap.NewNop())

	if _, err := svc.MarkByIndices(context.Background(), "u1", testClasses(), []int{1}); err != nil {
		t.Fatal(err)
	}
	if logged.calls != 0 {
		t.Error("a mutation that changed nothing must not be audit-logged")
	}
}

func TestMarkByIndicesStoreError(t *testing.T) {
	store := &mockStore{markErr: errors.New("store down")}
	logged := &mockLogger{}
	svc := NewService(store, logged, zap.NewNop())

	if _, err := svc.MarkByIndices(context.Background(), "u1", testClasses(), []int{1}); err == nil {
		t.Fatal("expected error")
	}
	if logged.calls != 0 {
		t.Error("failed mutation must not be audit-logged")
	}
}

func TestAbsentByIndicesAuditsAllAttempted(t *testing.T) {
	store := &mockStore{
		deleteResults: []DeleteResult{
			{ClassID: "c1", Deleted: true},
			{ClassID: "c2", Deleted: false},
		},
	}
	logged := &mockLogger{}
	svc := NewService(store, logged, zap.NewNop())

	out, err := svc.AbsentByIndices(context.Background(), "u1", testClasses(), []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if !out[0].Deleted || out[1].Deleted {
		t.Errorf("out = %+v", out)
	}
	if logged.actionType != actionAbsent {
		t.Errorf("action = %q", logged.actionType)
	}
	// Undo restores the whole selection, not just the rows that existed.
	if len(logged.classIDs) != 2 {
		t.Errorf("audit ids = %v, want both attempted classes", logged.classIDs)
	}
}

func TestStatusBulkEmptyNoCall(t *testing.T) {
	svc := NewService(&mockStore{}, &mockLogger{}, zap.NewNop())
	marked, err := svc.StatusBulk(context.Background(), "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(marked) != 0 {
		t.Errorf("marked = %v", marked)
	}
}

func TestCourseAttendancePercentage(t *testing.T) {
	store := &mockStore{
		courseRows: []CourseRow{
			{CourseID: "MA101", CourseName: "Calculus", AttendedClasses: 2, TotalClasses: 3},
			{CourseID: "PH102", CourseName: "Physics", AttendedClasses: 0, TotalClasses: 0},
		},
	}
	svc := NewService(store, &mockLogger{}, zap.NewNop())

	out, err := svc.CourseAttendance(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Percentage != 66.7 {
		t.Errorf("pct = %v, want 66.7", out[0].Percentage)
	}
	if out[1].Percentage != 0 {
		t.Errorf("zero-total course pct = %v, want 0", out[1].Percentage)
	}
}
