package app

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/puzzbot/internal/clock"
)

func TestDebouncer_FiresAfterDelay(t *testing.T) {
	c := clock.Fake(testStart)
	d := NewDebouncer(c)
	var fired atomic.Int32

	d.Schedule("t1", time.Second, func() { fired.Add(1) })
	if !d.Pending("t1") {
		t.Fatal("expected t1 to be pending")
	}
	c.Advance(999 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("fired early")
	}
	c.Advance(time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired %d times, want 1", fired.Load())
	}
	if d.Pending("t1") {
		t.Error("t1 still pending after firing")
	}
}

func TestDebouncer_RescheduleReplacesTimer(t *testing.T) {
	c := clock.Fake(testStart)
	d := NewDebouncer(c)
	var first, second atomic.Int32

	d.Schedule("t1", time.Second, func() { first.Add(1) })
	c.Advance(500 * time.Millisecond)
	d.Schedule("t1", time.Second, func() { second.Add(1) })
	c.Advance(500 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 0 {
		t.Fatal("replaced timer fired")
	}
	c.Advance(500 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("first=%d second=%d, want 0 and 1", first.Load(), second.Load())
	}
	if c.PendingCount() != 0 {
		t.Errorf("expected no pending timers, got %d", c.PendingCount())
	}
}

func TestDebouncer_CancelPreventsFire(t *testing.T) {
	c := clock.Fake(testStart)
	d := NewDebouncer(c)
	var fired atomic.Int32

	d.Schedule("t1", time.Second, func() { fired.Add(1) })
	if !d.Cancel("t1") {
		t.Fatal("Cancel should report a pending callback")
	}
	if d.Cancel("t1") {
		t.Error("second Cancel should report nothing pending")
	}
	c.Advance(time.Hour)
	if fired.Load() != 0 {
		t.Error("cancelled callback fired")
	}
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	c := clock.Fake(testStart)
	d := NewDebouncer(c)
	var a, b atomic.Int32

	d.Schedule("a", time.Second, func() { a.Add(1) })
	d.Schedule("b", 2*time.Second, func() { b.Add(1) })
	d.Cancel("a")
	c.Advance(2 * time.Second)
	if a.Load() != 0 || b.Load() != 1 {
		t.Errorf("a=%d b=%d, want 0 and 1", a.Load(), b.Load())
	}
}

func TestDebouncer_ZeroDelayRunsImmediately(t *testing.T) {
	d := NewDebouncer(clock.Fake(testStart))
	ran := false
	d.Schedule("t1", 0, func() { ran = true })
	if !ran {
		t.Error("zero delay should run before Schedule returns")
	}
	if d.Pending("t1") {
		t.Error("nothing should be pending")
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	c := clock.Fake(testStart)
	d := NewDebouncer(c)
	var fired atomic.Int32
	d.Schedule("a", time.Second, func() { fired.Add(1) })
	d.Schedule("b", time.Second, func() { fired.Add(1) })

	d.Stop()
	c.Advance(time.Minute)
	if fired.Load() != 0 {
		t.Errorf("fired %d after Stop", fired.Load())
	}
}

func TestDebouncer_RealClock(t *testing.T) {
	d := NewDebouncer(clock.Real())
	done := make(chan struct{})
	d.Schedule("t1", 10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}
	d.Stop()
}
