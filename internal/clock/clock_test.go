package clock

import (
	"testing"
	"time"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var order []string
	c.AfterFunc(2*time.Minute, func() { order = append(order, "second") })
	c.AfterFunc(time.Minute, func() { order = append(order, "first") })

	c.Advance(90 * time.Second)
	if len(order) != 1 || order[0] != "first" {
		t.Fatalf("unexpected fire order after 90s: %v", order)
	}

	c.Advance(time.Minute)
	if len(order) != 2 || order[1] != "second" {
		t.Fatalf("unexpected fire order: %v", order)
	}
	if got := c.Now(); !got.Equal(start.Add(150 * time.Second)) {
		t.Fatalf("unexpected now: %s", got)
	}
}

func TestFakeStoppedTimerNeverFires(t *testing.T) {
	c := NewFake(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	fired := false
	timer := c.AfterFunc(time.Minute, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("expected first Stop to report true")
	}
	if timer.Stop() {
		t.Fatal("expected second Stop to report false")
	}
	c.Advance(time.Hour)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeCallbackCanRearm(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fires []time.Time
	var arm func()
	arm = func() {
		c.AfterFunc(time.Hour, func() {
			fires = append(fires, c.Now())
			arm()
		})
	}
	arm()

	c.Advance(3 * time.Hour)
	if len(fires) != 3 {
		t.Fatalf("expected 3 fires, got %d", len(fires))
	}
	if !fires[2].Equal(start.Add(3 * time.Hour)) {
		t.Fatalf("unexpected third fire time: %s", fires[2])
	}
	if len(c.Pending()) != 1 {
		t.Fatalf("expected one re-armed timer, got %d", len(c.Pending()))
	}
}
