package failover

import (
	"math/rand"
	"sync"
	"time"

	"github.com/arloliu/go-iotlink/logger"
	"github.com/arloliu/go-iotlink/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// Manager converts server failures into decisions.
//
// Implementations must be safe for concurrent use; a Manager may be shared by several
// channels.
type Manager interface {
	// OnServerConnected reports that server accepted the endpoint.
	OnServerConnected(server transport.ServerInfo)
	// OnServerFailed records a failure of server. It is called for every failure.
	OnServerFailed(server transport.ServerInfo, status Status)
	// OnFailover requests a decision for a server specific failure.
	OnFailover(status Status) Decision
}

// ServerStats is the failure record DefaultManager keeps per server endpoint.
type ServerStats struct {
	// Failures is the number of failures since the last successful connection.
	Failures int
	// LastStatus is the status of the most recent failure.
	LastStatus Status
	// LastFailure is the time of the most recent failure.
	LastFailure time.Time
	// LastConnected is the time of the most recent successful connection.
	LastConnected time.Time
}

// DefaultManager is the built-in Manager.
//
// Policy per status:
//   - NoConnectivity: retry after a fixed delay.
//   - Generic: retry with exponential backoff.
//   - EndpointVerificationFailed: retry after a fixed delay.
//   - EndpointCredentialsRevoked: failure.
//
// When a retry budget is configured, the first request beyond it is answered with Failure.
type DefaultManager struct {
	mu sync.Mutex

	noConnectivityDelay    time.Duration
	retryDelay             time.Duration
	maxRetryDelay          time.Duration
	backoffFactor          float64
	jitter                 bool
	verificationRetryDelay time.Duration
	maxRetries             int
	strategy               Strategy
	failedHandler          ServerFailedHandler
	logger                 logger.Logger

	// attempts counts failover requests since the last successful connection.
	attempts int
	rng      *rand.Rand
	records  *xsync.MapOf[string, ServerStats]
}

var _ Manager = (*DefaultManager)(nil)

// NewDefaultManager creates a DefaultManager with the given options applied to the defaults.
func NewDefaultManager(opts ...Option) (*DefaultManager, error) {
	m := &DefaultManager{
		noConnectivityDelay:    5 * time.Second,
		retryDelay:             2 * time.Second,
		maxRetryDelay:          60 * time.Second,
		backoffFactor:          2,
		verificationRetryDelay: 10 * time.Second,
		logger:                 logger.GetLogger(),
		rng:                    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // jitter only
		records:                xsync.NewMapOf[string, ServerStats](),
	}

	for _, opt := range opts {
		if err := opt.apply(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// OnServerConnected resets the retry budget and the failure record of server.
func (m *DefaultManager) OnServerConnected(server transport.ServerInfo) {
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()

	m.records.Store(server.Address(), ServerStats{LastConnected: time.Now()})
	m.logger.Debug("server connected", "server", server.Address())
}

// OnServerFailed updates the failure record of server and notifies the ServerFailedHandler.
func (m *DefaultManager) OnServerFailed(server transport.ServerInfo, status Status) {
	m.mu.Lock()
	key := server.Address()
	stats, _ := m.records.Load(key)
	stats.Failures++
	stats.LastStatus = status
	stats.LastFailure = time.Now()
	m.records.Store(key, stats)
	handler := m.failedHandler
	m.mu.Unlock()

	m.logger.Debug("server failed", "server", key, "status", status, "failures", stats.Failures)

	if handler != nil {
		go handler(server, status)
	}
}

// OnFailover returns the decision for status.
func (m *DefaultManager) OnFailover(status Status) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++

	var d Decision
	if m.strategy != nil {
		d = m.strategy(status, m.attempts)
	} else {
		d = m.decide(status, m.attempts)
	}

	if d.Action == Retry && m.maxRetries > 0 && m.attempts > m.maxRetries {
		m.logger.Warn("retry budget exhausted", "status", status, "attempts", m.attempts, "max_retries", m.maxRetries)
		d = FailureDecision()
	}

	m.logger.Debug("failover decision", "status", status, "attempt", m.attempts, "decision", d)

	return d
}

func (m *DefaultManager) decide(status Status, attempt int) Decision {
	switch status {
	case NoConnectivity:
		return RetryDecision(m.noConnectivityDelay)
	case Generic:
		return RetryDecision(backoffDelay(m.retryDelay, m.maxRetryDelay, m.backoffFactor, attempt, m.jitter, m.rng))
	case EndpointVerificationFailed:
		return RetryDecision(m.verificationRetryDelay)
	case EndpointCredentialsRevoked:
		return FailureDecision()
	default:
		return NoOpDecision()
	}
}

// Stats returns the failure record of server and whether one exists.
func (m *DefaultManager) Stats(server transport.ServerInfo) (ServerStats, bool) {
	return m.records.Load(server.Address())
}

// Attempts returns the number of failover requests since the last successful connection.
func (m *DefaultManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.attempts
}
