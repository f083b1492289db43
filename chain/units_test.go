// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolToLamports(t *testing.T) {
	require := require.New(t)

	require.Zero(SolToLamports(0))
	require.Zero(SolToLamports(-1))
	require.Equal(Sol, SolToLamports(1))
	require.Equal(uint64(5_000_000), SolToLamports(0.005))
	require.Equal(uint64(1_000), SolToLamports(0.000001))
}

func TestLamportsToSolRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, sol := range []float64{0.001, 0.05, 1, 12.5} {
		require.InDelta(sol, LamportsToSol(SolToLamports(sol)), 1e-9)
	}
}
