package failover

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-iotlink/logger"
	"github.com/arloliu/go-iotlink/transport"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...Option) *DefaultManager {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewPermissiveMockLogger())}, opts...)
	m, err := NewDefaultManager(opts...)
	require.NoError(t, err)

	return m
}

func TestDefaultManager_Defaults(t *testing.T) {
	require := require.New(t)

	m := newTestManager(t)

	require.Equal(RetryDecision(5*time.Second), m.OnFailover(NoConnectivity))
	require.Equal(RetryDecision(10*time.Second), m.OnFailover(EndpointVerificationFailed))
	require.Equal(FailureDecision(), m.OnFailover(EndpointCredentialsRevoked))
	require.Equal(NoOpDecision(), m.OnFailover(Status(99)))
	require.Equal(4, m.Attempts())
}

func TestDefaultManager_GenericBackoff(t *testing.T) {
	require := require.New(t)

	m := newTestManager(t,
		WithRetryDelay(time.Second),
		WithBackoffFactor(2),
		WithMaxRetryDelay(5*time.Second),
	)

	expected := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, delay := range expected {
		d := m.OnFailover(Generic)
		require.Equal(Retry, d.Action, "attempt %d", i+1)
		require.Equal(delay, d.RetryDelay, "attempt %d", i+1)
	}

	server := transport.NewServerInfo("10.0.0.1", 9000, nil)
	m.OnServerConnected(server)
	require.Equal(0, m.Attempts())
	require.Equal(RetryDecision(time.Second), m.OnFailover(Generic))
}

func TestDefaultManager_MaxRetries(t *testing.T) {
	require := require.New(t)

	m := newTestManager(t, WithMaxRetries(2))

	require.Equal(Retry, m.OnFailover(NoConnectivity).Action)
	require.Equal(Retry, m.OnFailover(NoConnectivity).Action)
	require.Equal(Failure, m.OnFailover(NoConnectivity).Action)

	m.OnServerConnected(transport.NewServerInfo("host", 1, nil))
	require.Equal(Retry, m.OnFailover(NoConnectivity).Action)
}

func TestDefaultManager_Strategy(t *testing.T) {
	require := require.New(t)

	var seen []int
	m := newTestManager(t,
		WithMaxRetries(3),
		WithStrategy(func(status Status, attempt int) Decision {
			seen = append(seen, attempt)
			if status == Generic {
				return NoOpDecision()
			}
			return RetryDecision(time.Duration(attempt) * time.Millisecond)
		}),
	)

	require.Equal(NoOpDecision(), m.OnFailover(Generic))
	require.Equal(RetryDecision(2*time.Millisecond), m.OnFailover(NoConnectivity))
	require.Equal(RetryDecision(3*time.Millisecond), m.OnFailover(NoConnectivity))
	require.Equal(FailureDecision(), m.OnFailover(NoConnectivity))
	require.Equal([]int{1, 2, 3, 4}, seen)
}

func TestDefaultManager_ServerRecords(t *testing.T) {
	require := require.New(t)

	var mu sync.Mutex
	var notified []Status
	m := newTestManager(t, WithServerFailedHandler(func(_ transport.ServerInfo, status Status) {
		mu.Lock()
		notified = append(notified, status)
		mu.Unlock()
	}))

	a := transport.NewServerInfo("a.example.com", 9000, []byte{1})
	b := transport.NewServerInfo("b.example.com", 9000, nil)

	_, ok := m.Stats(a)
	require.False(ok)

	m.OnServerFailed(a, NoConnectivity)
	m.OnServerFailed(a, Generic)
	m.OnServerFailed(b, EndpointVerificationFailed)

	stats, ok := m.Stats(a)
	require.True(ok)
	require.Equal(2, stats.Failures)
	require.Equal(Generic, stats.LastStatus)
	require.False(stats.LastFailure.IsZero())

	stats, ok = m.Stats(b)
	require.True(ok)
	require.Equal(1, stats.Failures)

	// bookkeeping never consumes retry budget
	require.Equal(0, m.Attempts())

	require.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) == 3
	}, time.Second, 5*time.Millisecond)

	m.OnServerConnected(a)
	stats, ok = m.Stats(a)
	require.True(ok)
	require.Equal(0, stats.Failures)
	require.False(stats.LastConnected.IsZero())
}

func TestDefaultManager_Concurrent(t *testing.T) {
	m := newTestManager(t)
	server := transport.NewServerInfo("host", 1, nil)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.OnServerFailed(server, NoConnectivity)
				m.OnFailover(NoConnectivity)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1600, m.Attempts())
	stats, _ := m.Stats(server)
	require.Equal(t, 1600, stats.Failures)
}

func TestDefaultManager_Options(t *testing.T) {
	tests := []struct {
		description string
		opt         Option
	}{
		{"negative no connectivity delay", WithNoConnectivityDelay(-time.Second)},
		{"zero retry delay", WithRetryDelay(0)},
		{"negative max retry delay", WithMaxRetryDelay(-1)},
		{"backoff factor below one", WithBackoffFactor(0.5)},
		{"verification delay too long", WithVerificationRetryDelay(2 * time.Hour)},
		{"negative max retries", WithMaxRetries(-1)},
		{"nil strategy", WithStrategy(nil)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			m, err := NewDefaultManager(tt.opt)
			require.Error(t, err)
			require.Nil(t, m)
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	require := require.New(t)

	require.Equal(time.Duration(0), backoffDelay(0, time.Second, 2, 3, false, nil))
	require.Equal(time.Second, backoffDelay(time.Second, 0, 0.5, 5, false, nil))
	require.Equal(8*time.Second, backoffDelay(time.Second, 0, 2, 4, false, nil))
	require.Equal(500*time.Millisecond, backoffDelay(time.Second, 0, 2, 1, true, nil))

	rng := rand.New(rand.NewSource(1)) //nolint:gosec
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffDelay(time.Second, 4*time.Second, 2, attempt, true, rng)
		require.GreaterOrEqual(d, 500*time.Millisecond)
		require.Less(d, 6*time.Second)
	}
}

func TestDecision_String(t *testing.T) {
	require := require.New(t)

	require.Equal("retry(2s)", RetryDecision(2*time.Second).String())
	require.Equal("failure", FailureDecision().String())
	require.Equal("noop", NoOpDecision().String())
	require.Equal(time.Duration(0), RetryDecision(-time.Second).RetryDelay)
	require.Equal("endpoint-credentials-revoked", EndpointCredentialsRevoked.String())
}
