package tui

import (
	"context"
	"log"
	"sync"
	"time"
)

// ShutdownManager coordinates graceful shutdown of the background pieces:
// poll loops first, then the export sinks, then storage. Shutdown runs at
// most once, so the quit key and a signal can both call it.
type ShutdownManager struct {
	// DrainTimeout bounds how long the sinks may take to flush.
	DrainTimeout time.Duration

	// StopPolling stops every poll loop.
	StopPolling func()

	// CloseSinks flushes and closes the export sinks.
	CloseSinks func(ctx context.Context) error

	// CloseStorage closes the key-value store.
	CloseStorage func() error

	once sync.Once
}

// NewShutdownManager creates a ShutdownManager with a 5-second drain timeout.
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{
		DrainTimeout: 5 * time.Second,
	}
}

// Shutdown stops polling, drains the sinks (up to DrainTimeout) and closes
// storage. Calls after the first return nil immediately.
func (sm *ShutdownManager) Shutdown() error {
	var firstErr error
	sm.once.Do(func() {
		if sm.StopPolling != nil {
			sm.StopPolling()
		}

		if sm.CloseSinks != nil {
			ctx, cancel := context.WithTimeout(context.Background(), sm.DrainTimeout)
			if err := sm.CloseSinks(ctx); err != nil {
				log.Printf("WARNING: closing export sinks: %v", err)
				firstErr = err
			}
			cancel()
		}

		if sm.CloseStorage != nil {
			if err := sm.CloseStorage(); err != nil {
				log.Printf("WARNING: closing storage: %v", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	})
	return firstErr
}
