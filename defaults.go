package cog

import (
	"sync"
	"time"
)

// globalDefaults holds configuration applied to every new node and flow.
// Lifecycle steps are always per-node; only retry policy, wait, and the
// logger participate in defaults.
var globalDefaults = &nodeDefaults{
	maxAttempts: 1,
	logger:      NopLogger{},
}

type nodeDefaults struct {
	mu sync.RWMutex

	maxAttempts int
	wait        time.Duration
	logger      Logger
}

// SetDefaults configures global defaults for all subsequently created nodes.
// Only WithRetry and WithLogger are honored; lifecycle options are ignored.
func SetDefaults(opts ...Option) {
	globalDefaults.mu.Lock()
	defer globalDefaults.mu.Unlock()

	tmp := options{
		maxAttempts: globalDefaults.maxAttempts,
		wait:        globalDefaults.wait,
		logger:      globalDefaults.logger,
	}
	for _, opt := range opts {
		opt(&tmp)
	}

	globalDefaults.maxAttempts = tmp.maxAttempts
	globalDefaults.wait = tmp.wait
	if tmp.logger != nil {
		globalDefaults.logger = tmp.logger
	}
}

// ResetDefaults restores the initial defaults: single attempt, no wait,
// no-op logger.
func ResetDefaults() {
	globalDefaults.mu.Lock()
	defer globalDefaults.mu.Unlock()

	globalDefaults.maxAttempts = 1
	globalDefaults.wait = 0
	globalDefaults.logger = NopLogger{}
}

// DefaultLogger returns the logger used by nodes without one of their own.
func DefaultLogger() Logger {
	globalDefaults.mu.RLock()
	defer globalDefaults.mu.RUnlock()
	return globalDefaults.logger
}

// getDefaults snapshots the global defaults as an options value.
func getDefaults() options {
	globalDefaults.mu.RLock()
	defer globalDefaults.mu.RUnlock()

	return options{
		maxAttempts: globalDefaults.maxAttempts,
		wait:        globalDefaults.wait,
		logger:      globalDefaults.logger,
	}
}
