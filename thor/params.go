// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"
)

// Time constants, in seconds.
const (
	Day  uint64 = 86400
	Week uint64 = 7 * Day
	Year uint64 = 365 * Day

	// MaxLockDuration is the longest a vote-escrow lock may run.
	MaxLockDuration uint64 = 4 * Year

	// DefaultRewardWindow is the duration a window distributor spreads each funding over.
	DefaultRewardWindow uint64 = Week

	// MaxClaimEpochs bounds how many epochs one epoch-tracker claim walks.
	MaxClaimEpochs = 50
)

// Keys of governance params.
var (
	KeyPoolOwnedRate      = BytesToBytes32([]byte("pool-owned-rate"))
	KeyVotingEscrowedRate = BytesToBytes32([]byte("voting-escrowed-rate"))
)

// Precision is the fixed point scale of amounts and rates (18 decimals).
var Precision = big.NewInt(1e18)

// RoundDown floors t to a multiple of period.
func RoundDown(t, period uint64) uint64 {
	if period == 0 {
		return t
	}
	return t / period * period
}

// RoundUp ceils t to a multiple of period.
func RoundUp(t, period uint64) uint64 {
	if period == 0 {
		return t
	}
	return (t + period - 1) / period * period
}
