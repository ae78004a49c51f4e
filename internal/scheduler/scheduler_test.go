package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSchedulerRunsCycles(t *testing.T) {
	var cycles atomic.Int32
	s := NewScheduler(10*time.Millisecond, 0, func(context.Context) {
		cycles.Add(1)
	}, zap.NewNop())

	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for cycles.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d cycles ran before deadline", cycles.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestSchedulerInitialDelay(t *testing.T) {
	var cycles atomic.Int32
	s := NewScheduler(10*time.Millisecond, time.Hour, func(context.Context) {
		cycles.Add(1)
	}, zap.NewNop())

	s.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if n := cycles.Load(); n != 0 {
		t.Errorf("cycle ran during initial delay: %d", n)
	}
}

func TestSchedulerStopDuringDelay(t *testing.T) {
	s := NewScheduler(time.Hour, time.Hour, func(context.Context) {}, zap.NewNop())
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while waiting out the initial delay")
	}
}

func TestSchedulerRecoversFromPanic(t *testing.T) {
	var cycles atomic.Int32
	s := NewScheduler(10*time.Millisecond, 0, func(context.Context) {
		if cycles.Add(1) == 1 {
			panic("first cycle explodes")
		}
	}, zap.NewNop())

	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for cycles.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not survive a panicking cycle")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()
}

func TestSchedulerRunning(t *testing.T) {
	s := NewScheduler(time.Hour, 0, func(context.Context) {}, zap.NewNop())
	s.Start(context.Background())
	if !s.Running() {
		t.Error("Running() should be true after Start")
	}
	s.Stop()
	if s.Running() {
		t.Error("Running() should be false after Stop")
	}
}
