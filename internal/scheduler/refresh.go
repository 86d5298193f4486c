package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Refresher reloads market data. session.Manager implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type RefreshSchedulerConfig struct {
	Interval time.Duration // 0 disables the ticker
	Timeout  time.Duration // per run, default 60s
	// OnRefresh, when set, is called after every scheduled run.
	OnRefresh func(err error)
}

// RefreshScheduler reloads the trade list on a fixed interval. The first
// load of a session is not its job.
type RefreshScheduler struct {
	target Refresher
	cfg    RefreshSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewRefreshScheduler(target Refresher, cfg RefreshSchedulerConfig) *RefreshScheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &RefreshScheduler{target: target, cfg: cfg}
}

func (s *RefreshScheduler) Start() {
	if s.cfg.Interval <= 0 {
		fmt.Println("[SCHEDULER] Periodic refresh disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
				err := s.target.Refresh(ctx)
				cancel()
				if err != nil {
					fmt.Printf("[SCHEDULER] Refresh failed: %v\n", err)
				}
				if s.cfg.OnRefresh != nil {
					s.cfg.OnRefresh(err)
				}
			}
		}
	}()

	fmt.Printf("[SCHEDULER] Started (every %s)\n", s.cfg.Interval)
}

// Stop halts the ticker and waits for a run in progress to return.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RefreshNow triggers a reload outside the schedule.
func (s *RefreshScheduler) RefreshNow(ctx context.Context) error {
	fmt.Println("[SCHEDULER] Manual refresh triggered")
	if err := s.target.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}
