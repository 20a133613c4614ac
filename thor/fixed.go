// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MulDiv returns floor(x*y/d). Amounts fitting in 256 bits take the uint256 fast path with a
// 512-bit intermediate product; anything else falls back to big.Int. d must not be zero.
func MulDiv(x, y, d *big.Int) *big.Int {
	if x.Sign() >= 0 && y.Sign() >= 0 && d.Sign() > 0 {
		ux, overflowX := uint256.FromBig(x)
		uy, overflowY := uint256.FromBig(y)
		ud, overflowD := uint256.FromBig(d)
		if !overflowX && !overflowY && !overflowD {
			if z, overflow := new(uint256.Int).MulDivOverflow(ux, uy, ud); !overflow {
				return z.ToBig()
			}
		}
	}
	z := new(big.Int).Mul(x, y)
	return z.Quo(z, d)
}

// MulDivUp returns ceil(x*y/d) for non-negative x and y. d must be positive.
func MulDivUp(x, y, d *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	q, r := z.QuoRem(z, d, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// MulFrac returns floor(x*frac/1e18).
func MulFrac(x, frac *big.Int) *big.Int {
	return MulDiv(x, frac, Precision)
}

// OneMinus returns 1e18-frac.
func OneMinus(frac *big.Int) *big.Int {
	return new(big.Int).Sub(Precision, frac)
}

// Min returns the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) > 0 {
		return a
	}
	return b
}

// SubFloor returns max(a-b, 0).
func SubFloor(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a, b)
}

// Ether scales a whole number of tokens to 18 decimals.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Precision)
}
