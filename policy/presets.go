// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"encoding/json"
	"fmt"
	"time"
)

// Intensity selects one of the named preset levels.
type Intensity uint8

const (
	Low Intensity = iota + 1
	Medium
	High
)

func (i Intensity) String() string {
	switch i {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

func (i Intensity) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

func ParseIntensity(s string) (Intensity, error) {
	switch s {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return 0, fmt.Errorf("unknown intensity %q", s)
	}
}

// Preset is the tuple of timing and size bounds that parameterizes a
// session. Presets are snapshotted into the session at creation; later
// changes to the tables never affect running sessions.
type Preset struct {
	MinSwapSol     float64
	MaxSwapSol     float64
	MinInterval    time.Duration
	MaxInterval    time.Duration
	TransferChance float64
}

// Table holds the preset tables a session orchestrator snapshots from.
type Table struct {
	Bot      map[Intensity]Preset
	Activity map[Intensity]Preset
	Volume   Preset
}

// DefaultTable returns the authoritative intensity presets.
func DefaultTable() Table {
	return Table{
		Bot: map[Intensity]Preset{
			Low: {
				MinSwapSol:  0.005,
				MaxSwapSol:  0.02,
				MinInterval: 60 * time.Second,
				MaxInterval: 300 * time.Second,
			},
			Medium: {
				MinSwapSol:  0.01,
				MaxSwapSol:  0.05,
				MinInterval: 30 * time.Second,
				MaxInterval: 120 * time.Second,
			},
			High: {
				MinSwapSol:  0.02,
				MaxSwapSol:  0.10,
				MinInterval: 15 * time.Second,
				MaxInterval: 60 * time.Second,
			},
		},
		Activity: map[Intensity]Preset{
			Low: {
				MinSwapSol:     0.002,
				MaxSwapSol:     0.01,
				MinInterval:    120 * time.Second,
				MaxInterval:    600 * time.Second,
				TransferChance: 0.3,
			},
			Medium: {
				MinSwapSol:     0.005,
				MaxSwapSol:     0.02,
				MinInterval:    60 * time.Second,
				MaxInterval:    300 * time.Second,
				TransferChance: 0.4,
			},
			High: {
				MinSwapSol:     0.01,
				MaxSwapSol:     0.05,
				MinInterval:    30 * time.Second,
				MaxInterval:    120 * time.Second,
				TransferChance: 0.5,
			},
		},
		Volume: Preset{
			MinSwapSol:  0.01,
			MaxSwapSol:  0.05,
			MinInterval: 30 * time.Second,
			MaxInterval: 120 * time.Second,
		},
	}
}
