package channel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-iotlink/logger"
	"github.com/stretchr/testify/require"
)

func TestRetryScheduler_SinglePendingTask(t *testing.T) {
	require := require.New(t)

	sched := newRetryScheduler(context.Background(), logger.NewPermissiveMockLogger())
	defer sched.stop()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32

	require.True(sched.schedule(50*time.Millisecond, func(_ context.Context) {
		runs.Add(1)
		close(started)
		<-release
	}))
	require.True(sched.pending())

	// a second request while one is pending is dropped
	require.False(sched.schedule(0, func(_ context.Context) { runs.Add(1) }))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("scheduled task did not start")
	}

	// the flag is cleared as soon as the task body starts
	require.False(sched.pending())

	done := make(chan struct{})
	require.True(sched.schedule(0, func(_ context.Context) {
		runs.Add(1)
		close(done)
	}))

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second task did not run")
	}
	require.Equal(int32(2), runs.Load())
}

func TestRetryScheduler_Stop(t *testing.T) {
	require := require.New(t)

	sched := newRetryScheduler(context.Background(), logger.NewPermissiveMockLogger())

	var fired atomic.Bool
	require.True(sched.schedule(200*time.Millisecond, func(_ context.Context) { fired.Store(true) }))
	require.True(sched.pending())

	sched.stop()
	require.False(sched.pending())
	require.True(sched.wait(time.Second))
	require.False(fired.Load())

	// a stopped scheduler accepts nothing
	require.False(sched.schedule(0, func(_ context.Context) { fired.Store(true) }))
	require.False(sched.pending())
}
