package channel

import (
	"sync/atomic"
)

// ChannelMetrics contains atomic metrics for a channel.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ChannelMetrics struct {
	// ConnectAttemptCount indicates the number of socket dial attempts.
	ConnectAttemptCount atomic.Uint64
	// ConnectErrCount indicates the number of failed dials and handshake writes.
	ConnectErrCount atomic.Uint64

	// SyncSendCount indicates the number of sync requests sent.
	SyncSendCount atomic.Uint64
	// SyncRecvCount indicates the number of sync responses received.
	SyncRecvCount atomic.Uint64
	// SyncErrCount indicates the number of sync codec errors.
	SyncErrCount atomic.Uint64

	// PingSendCount indicates the number of ping requests sent.
	PingSendCount atomic.Uint64
	// PingRecvCount indicates the number of ping responses received.
	PingRecvCount atomic.Uint64

	// DecodeErrCount indicates the number of inbound streams dropped on a decode error.
	DecodeErrCount atomic.Uint64

	// ReconnectScheduleCount indicates the number of reconnect attempts scheduled.
	ReconnectScheduleCount atomic.Uint64
	// FailoverCount indicates the number of failover decisions requested.
	FailoverCount atomic.Uint64
	// FailureCount indicates the number of times the failure listener was notified.
	FailureCount atomic.Uint64

	// OpenedGauge is 1 while the channel is opened.
	OpenedGauge atomic.Uint32
}

func (m *ChannelMetrics) incConnectAttemptCount() {
	m.ConnectAttemptCount.Add(1)
}

func (m *ChannelMetrics) incConnectErrCount() {
	m.ConnectErrCount.Add(1)
}

func (m *ChannelMetrics) incSyncSendCount() {
	m.SyncSendCount.Add(1)
}

func (m *ChannelMetrics) incSyncRecvCount() {
	m.SyncRecvCount.Add(1)
}

func (m *ChannelMetrics) incSyncErrCount() {
	m.SyncErrCount.Add(1)
}

func (m *ChannelMetrics) incPingSendCount() {
	m.PingSendCount.Add(1)
}

func (m *ChannelMetrics) incPingRecvCount() {
	m.PingRecvCount.Add(1)
}

func (m *ChannelMetrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *ChannelMetrics) incReconnectScheduleCount() {
	m.ReconnectScheduleCount.Add(1)
}

func (m *ChannelMetrics) incFailoverCount() {
	m.FailoverCount.Add(1)
}

func (m *ChannelMetrics) incFailureCount() {
	m.FailureCount.Add(1)
}

func (m *ChannelMetrics) setOpened(opened bool) {
	if opened {
		m.OpenedGauge.Store(1)
	} else {
		m.OpenedGauge.Store(0)
	}
}
