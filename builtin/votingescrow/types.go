// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package votingescrow

import (
	"math/big"
)

// LockedBalance is an account's lock: the sum of both token kinds and the week aligned unlock time.
type LockedBalance struct {
	Amount *big.Int
	End    uint64
}

func (l *LockedBalance) IsEmpty() bool {
	return l.Amount.Sign() == 0 && l.End == 0
}

// DepositedBalance splits a lock by token kind, so withdrawals return what was deposited.
type DepositedBalance struct {
	Primary  *big.Int
	Escrowed *big.Int
}

// slopeAndBias returns the decay rate and the weight at now of a lock.
func (l *LockedBalance) slopeAndBias(now uint64, maxTime *big.Int) (slope, bias *big.Int) {
	if l.End <= now || l.Amount.Sign() <= 0 {
		return new(big.Int), new(big.Int)
	}
	slope = new(big.Int).Quo(l.Amount, maxTime)
	bias = new(big.Int).Mul(slope, new(big.Int).SetUint64(l.End-now))
	return slope, bias
}
