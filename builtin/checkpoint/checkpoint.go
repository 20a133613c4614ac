// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package checkpoint keeps an ordered history of decaying values.
//
// Each Point records a value (Bias) at a time (Ts) together with the rate (Slope)
// it decays at afterwards. Historical lookups binary search the latest point not
// after the query time and extrapolate from there, floored at zero.
package checkpoint

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/thor"
)

// Point is a snapshot of a linearly decaying value.
type Point struct {
	Bias  *big.Int
	Slope *big.Int // decay per second, never negative
	Ts    uint64
}

// ValueAt extrapolates the point to t, floored at zero. Times before Ts return Bias.
func (p *Point) ValueAt(t uint64) *big.Int {
	v := new(big.Int).Set(p.Bias)
	if t > p.Ts {
		v.Sub(v, new(big.Int).Mul(p.Slope, new(big.Int).SetUint64(t-p.Ts)))
	}
	if v.Sign() < 0 {
		return new(big.Int)
	}
	return v
}

func (p *Point) copy() *Point {
	return &Point{
		Bias:  new(big.Int).Set(p.Bias),
		Slope: new(big.Int).Set(p.Slope),
		Ts:    p.Ts,
	}
}

// Ledger is an append-only, time ordered sequence of points.
type Ledger struct {
	points *solidity.Mapping[solidity.Uint64Key, *Point]
	length *solidity.Uint64
}

// New binds a ledger to pos in the component's storage.
func New(ctx *solidity.Context, pos thor.Bytes32) *Ledger {
	return &Ledger{
		points: solidity.NewMapping[solidity.Uint64Key, *Point](ctx, pos),
		length: solidity.NewUint64(ctx, thor.Blake2b(pos.Bytes(), []byte("length"))),
	}
}

// Len returns the number of points.
func (l *Ledger) Len() (uint64, error) {
	return l.length.Get()
}

// At returns the i-th point.
func (l *Ledger) At(i uint64) (*Point, error) {
	n, err := l.length.Get()
	if err != nil {
		return nil, err
	}
	if i >= n {
		return nil, reverts.Newf(reverts.OutOfRange, "point %d of %d", i, n)
	}
	return l.points.Get(solidity.Uint64Key(i))
}

// Last returns the latest point, or false if the ledger is empty.
func (l *Ledger) Last() (*Point, bool, error) {
	n, err := l.length.Get()
	if err != nil || n == 0 {
		return nil, false, err
	}
	p, err := l.points.Get(solidity.Uint64Key(n - 1))
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Append adds p to the end of the ledger. A point at the same time as the last one replaces it.
func (l *Ledger) Append(p *Point) error {
	if p.Bias.Sign() < 0 || p.Slope.Sign() < 0 {
		return reverts.New(reverts.InvalidArgument, "negative point")
	}
	n, err := l.length.Get()
	if err != nil {
		return err
	}
	if n > 0 {
		last, err := l.points.Get(solidity.Uint64Key(n - 1))
		if err != nil {
			return err
		}
		switch {
		case p.Ts < last.Ts:
			return reverts.Newf(reverts.InvalidArgument, "point at %d before last point at %d", p.Ts, last.Ts)
		case p.Ts == last.Ts:
			return l.points.Set(solidity.Uint64Key(n-1), p.copy())
		}
	}
	if err := l.points.Set(solidity.Uint64Key(n), p.copy()); err != nil {
		return err
	}
	l.length.Set(n + 1)
	return nil
}

// Find returns the latest point with Ts <= t and its index.
func (l *Ledger) Find(t uint64) (*Point, uint64, error) {
	n, err := l.length.Get()
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, reverts.New(reverts.OutOfRange, "empty ledger")
	}
	first, err := l.points.Get(0)
	if err != nil {
		return nil, 0, err
	}
	if t < first.Ts {
		return nil, 0, reverts.Newf(reverts.OutOfRange, "time %d before first point at %d", t, first.Ts)
	}

	// invariant: points[lo].Ts <= t
	lo, hi := uint64(0), n-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		p, err := l.points.Get(solidity.Uint64Key(mid))
		if err != nil {
			return nil, 0, err
		}
		if p.Ts <= t {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	p, err := l.points.Get(solidity.Uint64Key(lo))
	if err != nil {
		return nil, 0, err
	}
	return p, lo, nil
}

// ValueAt returns the value at t.
func (l *Ledger) ValueAt(t uint64) (*big.Int, error) {
	p, _, err := l.Find(t)
	if err != nil {
		return nil, err
	}
	return p.ValueAt(t), nil
}
