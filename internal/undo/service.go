package undo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Action types recorded in the audit log.
const (
	ActionAttend = "attend"
	ActionAbsent = "absent"
)

// Store is the audit-log and reversal surface the engine needs.
type Store interface {
	AppendAction(ctx context.Context, action Action) error
	LastAction(ctx context.Context, userID string) (*Action, error)
	DeleteAction(ctx context.Context, id string) error
	DeleteDeltas(ctx context.Context, userID string, classIDs []string) error
	RestoreDeltas(ctx context.Context, userID string, classIDs []string, checkinTime time.Time) (resolved, restored int, err error)
}

// Result is the user-facing outcome of an undo attempt.
type Result struct {
	Success    bool
	Message    string
	ClassCount int
}

// Service undoes a user's most recent same-day attendance action.
type Service struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an undo engine operating in the given timezone.
func NewService(store Store, loc *time.Location, logger *zap.Logger) *Service {
	return &Service{store: store, loc: loc, logger: logger, now: time.Now}
}

// LogAction appends an audit entry after a successful mutation. Best-effort:
// a failed write is logged and dropped, never surfaced to the mutation path.
// Empty class lists are skipped entirely.
func (s *Service) LogAction(ctx context.Context, userID, actionType string, classIDs []string) {
	if len(classIDs) == 0 {
		return
	}
	action := Action{
		UserID:           userID,
		ActionType:       actionType,
		AffectedClassIDs: classIDs,
	}
	if err := s.store.AppendAction(ctx, action); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("user", userID),
			zap.String("action", actionType),
			zap.Error(err))
	}
}

// UndoLast reverts the user's most recent action if it was created today in
// the operating timezone. Stale entries are refused but left intact; store
// errors leave the entry intact so a retry can attempt it again.
func (s *Service) UndoLast(ctx context.Context, userID string) Result {
	action, err := s.store.LastAction(ctx, userID)
	if err != nil {
		s.logger.Error("fetch last action failed", zap.String("user", userID), zap.Error(err))
		return Result{Message: "Something didn't go through. Try again in a moment."}
	}
	if action == nil {
		return Result{Message: "Nothing to undo. All actions are from previous days."}
	}

	actionDate := action.CreatedAt.In(s.loc).Format("2006-01-02")
	today := s.now().In(s.loc).Format("2006-01-02")
	if actionDate != today {
		return Result{
			Message: fmt.Sprintf("Can only undo today's actions. Last action was on %s.", actionDate),
		}
	}

	var count int
	switch action.ActionType {
	case ActionAttend:
		// The deltas were created by the very action being undone, so the
		// delete is unconditional.
		if err := s.store.DeleteDeltas(ctx, userID, action.AffectedClassIDs); err != nil {
			s.logger.Error("revert attend failed", zap.String("user", userID), zap.Error(err))
			return Result{Message: "Something didn't go through. Try again in a moment."}
		}
		count = len(action.AffectedClassIDs)
	case ActionAbsent:
		resolved, restored, err := s.store.RestoreDeltas(ctx, userID, action.AffectedClassIDs, s.now().UTC())
		if err != nil {
			s.logger.Error("revert absence failed", zap.String("user", userID), zap.Error(err))
			return Result{Message: "Something didn't go through. Try again in a moment."}
		}
		if resolved == 0 {
			// Nothing safe to restore; keep the entry so the refusal is
			// visible rather than silently discarding history.
			return Result{Message: "Something didn't go through. Try again in a moment."}
		}
		count = restored
	default:
		s.logger.Error("unknown action type", zap.String("type", action.ActionType))
		return Result{Message: "Something didn't go through. Try again in a moment."}
	}

	// The reversal already happened; a failed consume only risks a no-op
	// retry, so it does not fail the undo.
	if err := s.store.DeleteAction(ctx, action.ID); err != nil {
		s.logger.Error("consume action failed", zap.String("id", action.ID), zap.Error(err))
	}

	verb := "attendance"
	if action.ActionType == ActionAbsent {
		verb = "absence"
	}
	return Result{
		Success:    true,
		Message:    fmt.Sprintf("Undid %s for %d %s.", verb, count, pluralClass(count)),
		ClassCount: count,
	}
}

func pluralClass(n int) string {
	if n == 1 {
		return "class"
	}
	return "classes"
}
