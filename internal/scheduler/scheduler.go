// Package scheduler runs the periodic sync cycle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CycleFunc is one sync cycle. It must respect ctx cancellation.
type CycleFunc func(ctx context.Context)

// Scheduler runs a cycle function on a fixed interval after an initial
// delay. A panicking cycle is recovered and logged; the loop keeps ticking.
type Scheduler struct {
	cycle        CycleFunc
	interval     time.Duration
	initialDelay time.Duration
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for the given cycle function.
func NewScheduler(interval, initialDelay time.Duration, cycle CycleFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cycle:        cycle,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logger,
	}
}

// Start begins the scheduling loop in a goroutine and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.initialDelay > 0 {
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(s.initialDelay):
			}
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// First cycle fires after the initial delay, then on each tick.
		s.runCycle()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runCycle()
			}
		}
	}()
}

// Stop signals the scheduler to stop and waits for the loop to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Running reports whether the scheduling loop is active.
func (s *Scheduler) Running() bool {
	return s.ctx != nil && s.ctx.Err() == nil
}

// runCycle runs one cycle with a panic boundary and a per-cycle timeout.
func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync cycle panicked", zap.Any("panic", r))
		}
	}()

	s.cycle(ctx)
}
