// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import "math"

// Denominations of value
const (
	Lamport  uint64 = 1
	MilliSol uint64 = 1_000_000 * Lamport
	Sol      uint64 = 1_000 * MilliSol
)

// SolToLamports converts a fractional display amount to integer base units.
// All arithmetic that feeds the chain happens in lamports; floats are for
// display and reporting only.
func SolToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(math.Round(sol * float64(Sol)))
}

// LamportsToSol converts integer base units to a display amount.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(Sol)
}
