package channel

import "errors"

var (
	// ErrConfigNil indicates that the channel configuration is nil.
	ErrConfigNil = errors.New("channel config is nil")
	// ErrFailoverManagerNil indicates that no failover manager was given.
	ErrFailoverManagerNil = errors.New("failover manager is nil")
	// ErrFailureListenerNil indicates that no failure listener was given.
	ErrFailureListenerNil = errors.New("failure listener is nil")
)
