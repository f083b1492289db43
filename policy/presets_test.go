// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseIntensity(t *testing.T) {
	require := require.New(t)

	for _, i := range []Intensity{Low, Medium, High} {
		parsed, err := ParseIntensity(i.String())
		require.NoError(err)
		require.Equal(i, parsed)
	}

	_, err := ParseIntensity("extreme")
	require.Error(err)
}

func TestDefaultTableBounds(t *testing.T) {
	require := require.New(t)

	table := DefaultTable()
	for _, presets := range []map[Intensity]Preset{table.Bot, table.Activity} {
		require.Len(presets, 3)
		for _, p := range presets {
			require.Less(p.MinSwapSol, p.MaxSwapSol)
			require.Less(p.MinInterval, p.MaxInterval)
		}
	}
	for _, p := range table.Activity {
		require.Greater(p.TransferChance, 0.0)
	}
	for _, p := range table.Bot {
		require.Zero(p.TransferChance)
	}

	require.Equal(30*time.Second, table.Volume.MinInterval)
	require.Equal(0.05, table.Volume.MaxSwapSol)
}
