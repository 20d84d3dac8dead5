// Package task runs the background goroutines owned by a channel: the socket reader,
// the keep-alive interval and delayed reconnect attempts.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-iotlink/logger"
)

// TaskFunc represents a function that performs a task within a goroutine managed by the Manager.
// It should return true to continue running the task, or false to stop the goroutine.
type TaskFunc func() bool

// DelayedFunc represents a function executed once by a delayed task.
// The context is canceled when the Manager is stopped.
type DelayedFunc func(ctx context.Context)

// Manager manages the lifecycle of goroutines (tasks).
// It provides a structured way to start, stop, and wait for goroutines, ensuring proper
// cancellation and resource cleanup.
//
// A Manager is single use: once Stop is called, no new task can be started on it.
// Owners replace a stopped Manager with a fresh one instead of resurrecting it.
//
// Example Usage:
//
//	worker := task.NewManager(ctx, logger)
//
//	// run once after one second
//	_ = worker.StartAfter("reconnect", time.Second, func(ctx context.Context) {
//	    // ... task logic ...
//	})
//
//	// stop all goroutines and wait for them
//	worker.Stop()
//	worker.Wait()
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers sync.Map     // map[string]*time.Ticker
	taskMu  sync.RWMutex // protect task creation during Wait()
}

// NewManager creates a new Manager with the given context as the parent context and logger.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context that is canceled when the Manager stops.
func (mgr *Manager) Context() context.Context {
	return mgr.ctx
}

// Stopped reports whether Stop has been called or the parent context is done.
func (mgr *Manager) Stopped() bool {
	return mgr.ctx.Err() != nil
}

// Start starts a new goroutine with the given name and task function.
//
// The taskFunc is called repeatedly until it returns false or the Manager is stopped.
func (mgr *Manager) Start(name string, taskFunc TaskFunc) error {
	mgr.logger.Debug("start task", "name", name)

	starter, err := mgr.newTaskStarter(name)
	if err != nil {
		return err
	}

	starter.startTask(func() {
		mgr.runTaskLoop(name, taskFunc)
	})

	return starter.waitForStart()
}

// StartAfter starts a goroutine that runs taskFunc once after delay.
//
// The task is dropped without running if the Manager is stopped before the delay elapses.
// A non-positive delay runs the task immediately.
func (mgr *Manager) StartAfter(name string, delay time.Duration, taskFunc DelayedFunc) error {
	mgr.logger.Debug("start delayed task", "name", name, "delay", delay)

	starter, err := mgr.newTaskStarter(name)
	if err != nil {
		return err
	}

	starter.startTask(func() {
		timer := timers.get(delay)
		defer timers.put(timer)

		select {
		case <-mgr.ctx.Done():
			mgr.logger.Debug("delayed task canceled", "name", name)
			return
		case <-timer.C:
		}

		mgr.callWithRecover(name, func() {
			taskFunc(mgr.ctx)
		})
	})

	return starter.waitForStart()
}

// StartInterval starts a new goroutine that executes the given task function at the specified interval.
// If runNow is true, the task function is executed immediately before starting the interval.
// The function returns a *time.Ticker that can be used to reset the interval.
func (mgr *Manager) StartInterval(name string, taskFunc TaskFunc, interval time.Duration, runNow bool) (*time.Ticker, error) {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval, "runNow", runNow)

	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)

	// store ticker before starting goroutine
	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return nil, fmt.Errorf("interval task %s already exists", name)
	}

	cleanup := func() {
		ticker.Stop()
		mgr.tickers.Delete(name)
	}

	if runNow {
		if !mgr.callWithRecoverBool(name, taskFunc) {
			cleanup()
			mgr.logger.Debug("interval task terminated by runNow", "name", name)
			return ticker, nil
		}
	}

	starter, err := mgr.newTaskStarter(name)
	if err != nil {
		cleanup()
		return nil, err
	}

	starter.startTask(func() {
		defer cleanup()

		for {
			select {
			case <-mgr.ctx.Done():
				return
			case <-ticker.C:
				if !mgr.callWithRecoverBool(name, taskFunc) {
					return
				}
			}
		}
	})

	if err := starter.waitForStart(); err != nil {
		cleanup()
		return nil, err
	}

	return ticker, nil
}

// callWithRecover calls a function with panic protection
func (mgr *Manager) callWithRecover(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
		}
	}()

	fn()
}

// callWithRecoverBool calls a function that returns bool with panic protection.
// A panicking task is stopped.
func (mgr *Manager) callWithRecoverBool(name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			ok = false
		}
	}()

	return fn()
}

// Stop signals all running goroutines. It does not wait for them; use Wait for that.
func (mgr *Manager) Stop() {
	mgr.tickers.Range(func(_, value any) bool {
		if ticker, ok := value.(*time.Ticker); ok {
			ticker.Stop()
		}

		return true
	})

	mgr.cancel()
}

// Wait waits for all goroutines to terminate.
//
// Wait must not be called from one of the Manager's own tasks.
func (mgr *Manager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()
}

// WaitTimeout waits for all goroutines to terminate for at most timeout.
// It returns false if the goroutines are still running when the timeout expires.
func (mgr *Manager) WaitTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	timer := timers.get(timeout)
	defer timers.put(timer)

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// TaskCount returns the number of currently running goroutines.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

// taskStarter encapsulates common startup logic
type taskStarter struct {
	mgr     *Manager
	name    string
	started chan struct{}
}

func (mgr *Manager) newTaskStarter(name string) (*taskStarter, error) {
	select {
	case <-mgr.ctx.Done():
		return nil, fmt.Errorf("task manager already stopped, can't start %s", name)
	default:
	}

	return &taskStarter{
		mgr:     mgr,
		name:    name,
		started: make(chan struct{}),
	}, nil
}

// startTask runs the common startup sequence for all tasks
func (s *taskStarter) startTask(taskBody func()) {
	s.mgr.taskMu.RLock()
	defer s.mgr.taskMu.RUnlock()

	s.mgr.wg.Add(1)
	s.mgr.count.Add(1)

	go func() {
		defer s.mgr.wg.Done()
		defer func() {
			s.mgr.count.Add(-1)
			s.mgr.logger.Debug("task terminated", "name", s.name, "task_count", s.mgr.TaskCount())
		}()

		close(s.started)

		taskBody()
	}()
}

// waitForStart waits for the task goroutine to be scheduled.
func (s *taskStarter) waitForStart() error {
	timer := timers.get(5 * time.Second)
	defer timers.put(timer)

	select {
	case <-s.started:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for %s to start", s.name)
	}
}

// runTaskLoop runs a task function in a loop with context cancellation
func (mgr *Manager) runTaskLoop(name string, taskFunc TaskFunc) {
	for {
		select {
		case <-mgr.ctx.Done():
			return
		default:
			if !mgr.callWithRecoverBool(name, taskFunc) {
				return
			}
		}
	}
}
