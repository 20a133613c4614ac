// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package distributor turns reward inflow into a per-second emission and pushes it
// to the pool tracker and the vote-escrow tracker. Distributors never call trackers,
// trackers pull by calling UpdateRewards before they read their balance.
package distributor

import (
	"math/big"

	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "distributor")

// Manager provides the live split rates, as fractions of 1e18.
type Manager interface {
	PoolOwnedRate() (*big.Int, error)
	VotingEscrowedRate() (*big.Int, error)
}

// FeeDistribution splits amount into a holder share, an extra share and the rounding dust.
// holderProportion+extraProportion must not exceed 1e18.
func FeeDistribution(amount, holderProportion, extraProportion *big.Int) (holder, extra, dust *big.Int) {
	holder = thor.MulFrac(amount, holderProportion)
	extra = thor.MulFrac(amount, extraProportion)
	dust = new(big.Int).Sub(amount, holder)
	dust.Sub(dust, extra)
	return
}

func checkRate(rate *big.Int) bool {
	return rate.Sign() >= 0 && rate.Cmp(thor.Precision) <= 0
}
