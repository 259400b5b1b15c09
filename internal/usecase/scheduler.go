package usecase

import (
	"context"
	"sync/atomic"
	"time"

	applogger "CoinSage/pkg/logger"
)

// Scheduler triggers the knowledge pipeline on a fixed interval. A tick that
// fires while the previous run is still in flight is skipped rather than
// stacked.
type Scheduler struct {
	updater  *KnowledgeUpdater
	interval time.Duration
	l        *applogger.Logger

	running atomic.Bool
}

func NewScheduler(updater *KnowledgeUpdater, interval time.Duration, l *applogger.Logger) *Scheduler {
	return &Scheduler{updater: updater, interval: interval, l: l}
}

// Run blocks until ctx is cancelled. The first run fires immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.l.Warn("scheduler: previous pipeline run still in flight, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	if err := s.updater.UpdateKnowledgeBase(ctx); err != nil {
		s.l.Error("scheduler: pipeline run failed", applogger.Error(err))
		return
	}
	s.l.Info("scheduler: pipeline run complete",
		applogger.Duration("took", time.Since(start)))
}
