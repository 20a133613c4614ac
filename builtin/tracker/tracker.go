// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tracker holds what the pool tracker and the epoch tracker share.
package tracker

import (
	"math/big"

	"github.com/vechain/tokenomics/thor"
)

// Distributor pushes pending rewards to the trackers it serves.
type Distributor interface {
	UpdateRewards(now uint64) error
}

// Tracker turns reward inflow into claimable balances.
type Tracker interface {
	Address() thor.Address
	UpdateRewards(now uint64) error
	Claimable(account thor.Address, now uint64) (*big.Int, error)
	Claim(account, receiver thor.Address, now uint64) (*big.Int, error)
	ClaimForAccount(caller, account, receiver thor.Address, now uint64) (*big.Int, error)
	CumulativeRewards(account thor.Address) (*big.Int, error)
	AverageStakedAmounts(account thor.Address) (*big.Int, error)
}

// AccrueAverage folds reward, earned while staking staked, into the running
// stake average weighted by cumulative rewards. It returns the new average and
// the new cumulative rewards.
func AccrueAverage(avg, cumulative, staked, reward *big.Int) (*big.Int, *big.Int) {
	if reward.Sign() <= 0 || staked.Sign() <= 0 {
		return avg, cumulative
	}
	next := new(big.Int).Add(cumulative, reward)
	nextAvg := thor.MulDiv(avg, cumulative, next)
	nextAvg.Add(nextAvg, thor.MulDiv(staked, reward, next))
	return nextAvg, next
}
