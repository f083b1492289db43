// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"time"
)

// Status is the outcome of a bounded confirmation poll.
type Status uint8

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Poll invokes [check] on a fixed [cadence] until it reports a terminal
// status, [attempts] checks have been made, or the context is canceled.
// The first check runs immediately. A StatusPending result after the final
// attempt is returned as-is; the caller decides what a timeout means. The
// returned error is the error reported alongside the terminal status, or
// the context error on cancellation.
func Poll(ctx context.Context, check func(context.Context) (Status, error), cadence time.Duration, attempts int) (Status, error) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	var (
		status  Status
		lastErr error
	)
	for i := 0; i < attempts; i++ {
		status, lastErr = check(ctx)
		if status != StatusPending {
			return status, lastErr
		}

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return StatusPending, ctx.Err()
		case <-ticker.C:
		}
	}
	return StatusPending, lastErr
}
