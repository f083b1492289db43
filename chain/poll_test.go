// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTest = errors.New("non-nil error")

func TestPollConfirmsImmediately(t *testing.T) {
	require := require.New(t)

	calls := 0
	status, err := Poll(context.Background(), func(context.Context) (Status, error) {
		calls++
		return StatusConfirmed, nil
	}, time.Millisecond, 5)
	require.NoError(err)
	require.Equal(StatusConfirmed, status)
	require.Equal(1, calls)
}

func TestPollRejected(t *testing.T) {
	require := require.New(t)

	status, err := Poll(context.Background(), func(context.Context) (Status, error) {
		return StatusRejected, errTest
	}, time.Millisecond, 5)
	require.ErrorIs(err, errTest)
	require.Equal(StatusRejected, status)
}

func TestPollExhaustsAttempts(t *testing.T) {
	require := require.New(t)

	calls := 0
	status, err := Poll(context.Background(), func(context.Context) (Status, error) {
		calls++
		return StatusPending, nil
	}, time.Millisecond, 3)
	require.NoError(err)
	require.Equal(StatusPending, status)
	require.Equal(3, calls)
}

func TestPollEventualConfirmation(t *testing.T) {
	require := require.New(t)

	calls := 0
	status, err := Poll(context.Background(), func(context.Context) (Status, error) {
		calls++
		if calls < 3 {
			return StatusPending, nil
		}
		return StatusConfirmed, nil
	}, time.Millisecond, 10)
	require.NoError(err)
	require.Equal(StatusConfirmed, status)
	require.Equal(3, calls)
}

func TestPollCancellation(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := Poll(ctx, func(context.Context) (Status, error) {
		return StatusPending, nil
	}, time.Hour, 5)
	require.ErrorIs(err, context.Canceled)
	require.Equal(StatusPending, status)
}
