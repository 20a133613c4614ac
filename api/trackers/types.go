// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trackers

import "github.com/vechain/tokenomics/api/restutil"

// PoolPosition is an account's stake in one pool tracker.
type PoolPosition struct {
	Staked               *restutil.Amount `json:"staked"`
	Shares               *restutil.Amount `json:"shares"`
	Claimable            *restutil.Amount `json:"claimable"`
	CumulativeRewards    *restutil.Amount `json:"cumulativeRewards"`
	AverageStakedAmounts *restutil.Amount `json:"averageStakedAmounts"`
}

// EpochPosition is an account's standing in one epoch tracker.
type EpochPosition struct {
	Claimable            *restutil.Amount `json:"claimable"`
	TimeCursor           uint64           `json:"timeCursor"`
	CumulativeRewards    *restutil.Amount `json:"cumulativeRewards"`
	AverageStakedAmounts *restutil.Amount `json:"averageStakedAmounts"`
}

// EpochSnapshot is what one epoch tracker recorded for an epoch.
type EpochSnapshot struct {
	Tokens   *restutil.Amount `json:"tokens"`
	VeSupply *restutil.Amount `json:"veSupply"`
}

// Epoch is an epoch across all epoch trackers.
type Epoch struct {
	Start    uint64                    `json:"start"`
	Closed   bool                      `json:"closed"`
	Trackers map[string]*EpochSnapshot `json:"trackers"`
}
