// Package ratelimit implements per-key sliding-window counters. A window
// admits a request when fewer than the limit of earlier hits fall inside it.
package ratelimit

import (
	"context"
	"time"
)

// Store records hits in a sliding window.
type Store interface {
	// Hit records a hit for key and returns how many hits, including this
	// one, fall within window. The returned id identifies the hit for Undo.
	Hit(ctx context.Context, key string, window time.Duration) (count int, id string, err error)
	// Undo removes a previously recorded hit.
	Undo(ctx context.Context, key, id string) error
}
