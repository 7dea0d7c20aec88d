package keylock

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		runtime.Gosched()
	}
}

func TestLockIsFIFOPerKey(t *testing.T) {
	var m Map
	ctx := context.Background()

	unlock, err := m.Lock(ctx, "puzzle-1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			release, err := m.Lock(ctx, "puzzle-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			release()
		}(i)
		waitFor(t, func() bool { return m.Waiting("puzzle-1") == i })
	}

	unlock()
	wg.Wait()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0 after all releases", m.Len())
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	var m Map
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, "A")
	if err != nil {
		t.Fatalf("Lock A: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, "B")
	if err != nil {
		t.Fatalf("Lock B blocked behind A: %v", err)
	}
	unlockB()
}

func TestLockCancelledWhileWaiting(t *testing.T) {
	var m Map
	unlock, _ := m.Lock(context.Background(), "table-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Lock(ctx, "table-1")
		done <- err
	}()
	waitFor(t, func() bool { return m.Waiting("table-1") == 1 })
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if m.Waiting("table-1") != 0 {
		t.Errorf("cancelled waiter still queued")
	}

	unlock()
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	var m Map
	unlock, _ := m.Lock(context.Background(), "k")
	unlock()
	unlock()

	again, err := m.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}
