package timer

import (
	"testing"
	"time"
)

func newFakeTimer(interval time.Duration, start time.Time) (*IntervalTimer, *time.Time) {
	cur := start
	t := &IntervalTimer{interval: interval, last: start, now: func() time.Time { return cur }}
	return t, &cur
}

func TestUpdateFalseBeforeIntervalElapses(t *testing.T) {
	start := time.Unix(0, 0)
	timer, cur := newFakeTimer(5*time.Second, start)
	*cur = start.Add(4 * time.Second)
	if timer.Update() {
		t.Fatal("Update() = true before the interval elapsed")
	}
}

func TestUpdateTrueAndResetsReferencePoint(t *testing.T) {
	start := time.Unix(0, 0)
	timer, cur := newFakeTimer(5*time.Second, start)
	*cur = start.Add(5 * time.Second)
	if !timer.Update() {
		t.Fatal("Update() = false at exactly the interval")
	}
	// Reference point reset: another sub-interval tick should be false.
	*cur = cur.Add(1 * time.Second)
	if timer.Update() {
		t.Fatal("Update() = true right after a reset reference point")
	}
}

func TestSyncNowSuppressesElapse(t *testing.T) {
	start := time.Unix(0, 0)
	timer, cur := newFakeTimer(5*time.Second, start)
	*cur = start.Add(10 * time.Second)
	timer.SyncNow()
	if timer.Update() {
		t.Fatal("Update() = true immediately after SyncNow")
	}
}

func TestElapsedAndInterval(t *testing.T) {
	start := time.Unix(0, 0)
	timer, cur := newFakeTimer(5*time.Second, start)
	*cur = start.Add(3 * time.Second)
	if timer.Elapsed() != 3*time.Second {
		t.Fatalf("Elapsed() = %s, want 3s", timer.Elapsed())
	}
	if timer.Interval() != 5*time.Second {
		t.Fatalf("Interval() = %s, want 5s", timer.Interval())
	}
}
