package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context)

// Scheduler runs registered tasks on their own background goroutines: an
// immediate first run, then one run per interval (or cron schedule) until
// Stop. A task panic is isolated to that invocation; the loop keeps
// going. Stop prevents future invocations and waits for in-flight runs
// to finish, it does not interrupt them.
type Scheduler struct {
	logger *observability.Logger
	done   chan struct{}
	wg     sync.WaitGroup

	mu          sync.Mutex
	cron        *cron.Cron
	cronStarted bool
	stopped     bool
}

func NewScheduler(logger *observability.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Every registers a task that runs now and then every interval.
func (s *Scheduler) Every(interval time.Duration, name string, task Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.safeRun(name, task)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.safeRun(name, task)
			}
		}
	}()
}

// Cron registers a task on a cron expression; it also runs once
// immediately.
func (s *Scheduler) Cron(expr, name string, task Task) error {
	s.mu.Lock()
	if s.cron == nil {
		s.cron = cron.New()
	}
	_, err := s.cron.AddFunc(expr, func() {
		s.safeRun(name, task)
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if !s.cronStarted {
		s.cron.Start()
		s.cronStarted = true
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.safeRun(name, task)
	}()

	return nil
}

// Stop prevents further invocations and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)
	if s.cronStarted {
		// Waits for running cron jobs too.
		<-s.cron.Stop().Done()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) safeRun(name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled task panicked, scheduler keeps running",
				"task", name,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	task(context.Background())
}
