package wellbeing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/clock"
	"github.com/wellbeingchat/backend/internal/notify"
	"github.com/wellbeingchat/backend/internal/service/wellbeing"
	"github.com/wellbeingchat/backend/internal/store"
)

type recordingNotifier struct {
	fired []notify.Notification
}

func (r *recordingNotifier) Fire(_ context.Context, _ string, n notify.Notification) error {
	r.fired = append(r.fired, n)
	return nil
}

// 2024-05-08 is a Wednesday.
var wednesday = time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)

func newService() (*wellbeing.Service, *clock.Fake, *recordingNotifier, store.Store) {
	st := store.NewMemoryStore()
	fake := clock.NewFake(wednesday)
	n := &recordingNotifier{}
	return wellbeing.NewService(st, n, wellbeing.Config{Clock: fake, Location: time.UTC}), fake, n, st
}

func TestPlanCoversEveryWeekday(t *testing.T) {
	plan := wellbeing.Plan()
	if len(plan) != 7 || plan[0].Day != "Sunday" || plan[3].Name != "Brisk Walk" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if wellbeing.TaskFor(time.Saturday).Name != "Meditation" {
		t.Fatalf("unexpected saturday task: %+v", wellbeing.TaskFor(time.Saturday))
	}
}

func TestSetCompletedOnlyToday(t *testing.T) {
	svc, _, _, st := newService()
	ctx := context.Background()

	if err := svc.SetCompleted(ctx, "ada", "Monday", true); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.SetCompleted(ctx, "ada", "wednesday", true); err != nil {
		t.Fatalf("SetCompleted err: %v", err)
	}

	var completed map[string]bool
	if _, err := st.Load(ctx, "ada", store.KeyCompletedTasks, &completed); err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if !completed["2024-05-08-Wednesday"] {
		t.Fatalf("unexpected completion map: %v", completed)
	}

	overview, err := svc.Overview(ctx, "ada")
	if err != nil {
		t.Fatalf("Overview err: %v", err)
	}
	if overview.Today != "Wednesday" || !overview.Tasks[3].Today || !overview.Tasks[3].Completed {
		t.Fatalf("unexpected overview: %+v", overview)
	}
}

func TestTimerExpiryCompletesTaskAndNotifies(t *testing.T) {
	svc, fake, n, _ := newService()
	ctx := context.Background()

	state, err := svc.Start(ctx, "ada", "Wednesday")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if !state.Running || state.RemainingSeconds != int(wellbeing.TaskDuration/time.Second) {
		t.Fatalf("unexpected timer state: %+v", state)
	}

	fake.Advance(wellbeing.TaskDuration)
	if len(n.fired) != 1 || n.fired[0].Title != "Task Complete!" {
		t.Fatalf("unexpected notifications: %+v", n.fired)
	}

	overview, _ := svc.Overview(ctx, "ada")
	if !overview.Tasks[3].Completed || overview.Timer != nil {
		t.Fatalf("unexpected overview after expiry: %+v", overview)
	}
	if _, err := svc.Start(ctx, "ada", "Wednesday"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("completed task should not restart, got %v", err)
	}
}

func TestTimerPauseKeepsRemaining(t *testing.T) {
	svc, fake, n, _ := newService()
	ctx := context.Background()

	if _, err := svc.Start(ctx, "ada", "Wednesday"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	fake.Advance(10 * time.Minute)
	state, err := svc.Pause(ctx, "ada")
	if err != nil {
		t.Fatalf("Pause err: %v", err)
	}
	if state.Running || state.RemainingSeconds != 20*60 {
		t.Fatalf("unexpected paused state: %+v", state)
	}

	fake.Advance(time.Hour)
	if len(n.fired) != 0 {
		t.Fatal("paused timer must not fire")
	}

	if _, err := svc.Start(ctx, "ada", "Wednesday"); err != nil {
		t.Fatalf("resume err: %v", err)
	}
	fake.Advance(20 * time.Minute)
	if len(n.fired) != 1 {
		t.Fatalf("expected completion after resume, got %d", len(n.fired))
	}
}

func TestTimerResetDiscards(t *testing.T) {
	svc, fake, n, _ := newService()
	ctx := context.Background()

	if _, err := svc.Start(ctx, "ada", "Wednesday"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	svc.Reset(ctx, "ada")
	fake.Advance(wellbeing.TaskDuration)
	if len(n.fired) != 0 {
		t.Fatal("reset timer must not fire")
	}
	if _, err := svc.Pause(ctx, "ada"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected no active timer, got %v", err)
	}
}

func TestStartRejectsOtherDay(t *testing.T) {
	svc, _, _, _ := newService()
	if _, err := svc.Start(context.Background(), "ada", "Friday"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
