package channel

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-iotlink/internal/task"
	"github.com/arloliu/go-iotlink/logger"
)

// retryScheduler owns the background worker of one channel generation and holds at most
// one pending reconnect task.
//
// A stopped scheduler is never restarted; the channel creates a new one instead.
type retryScheduler struct {
	worker    *task.Manager
	scheduled atomic.Bool
	logger    logger.Logger
}

func newRetryScheduler(ctx context.Context, l logger.Logger) *retryScheduler {
	return &retryScheduler{
		worker: task.NewManager(ctx, l),
		logger: l,
	}
}

// schedule runs fn once after delay.
//
// It returns false without scheduling anything if a task is already pending or the
// scheduler is stopped. The pending flag clears when fn starts.
func (s *retryScheduler) schedule(delay time.Duration, fn func(ctx context.Context)) bool {
	if !s.scheduled.CompareAndSwap(false, true) {
		s.logger.Debug("reconnect already pending, skip", "delay", delay)
		return false
	}

	err := s.worker.StartAfter("reconnect", delay, func(ctx context.Context) {
		s.scheduled.Store(false)
		fn(ctx)
	})
	if err != nil {
		s.scheduled.Store(false)
		s.logger.Debug("failed to schedule reconnect", "error", err)

		return false
	}

	return true
}

// pending reports whether a scheduled task has not started yet.
func (s *retryScheduler) pending() bool {
	return s.scheduled.Load()
}

// stop cancels the pending task and signals every worker goroutine. It doesn't wait.
func (s *retryScheduler) stop() {
	s.worker.Stop()
	s.scheduled.Store(false)
}

// wait waits at most timeout for the worker goroutines to exit.
func (s *retryScheduler) wait(timeout time.Duration) bool {
	return s.worker.WaitTimeout(timeout)
}
