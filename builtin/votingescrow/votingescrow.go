// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package votingescrow

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/checkpoint"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "votingescrow")

var (
	lockedSlot            = thor.BytesToBytes32([]byte("locked"))
	depositedSlot         = thor.BytesToBytes32([]byte("deposited"))
	slopeChangesSlot      = thor.BytesToBytes32([]byte("slope-changes"))
	pointHistorySlot      = thor.BytesToBytes32([]byte("point-history"))
	userPointHistorySlot  = thor.BytesToBytes32([]byte("user-point-history"))
	totalLockedSlot       = thor.BytesToBytes32([]byte("total-locked"))
	averageUnlockTimeSlot = thor.BytesToBytes32([]byte("average-unlock-time"))

	maxTime = new(big.Int).SetUint64(thor.MaxLockDuration)
)

// maxWeeks bounds the weekly walk of a supply lookup. Locks last at most
// MaxLockDuration, so every slope has reached zero by then.
const maxWeeks = 255

// Config wires the escrow to the two token kinds it accepts.
type Config struct {
	Primary  *token.Token
	Escrowed *token.Token
}

// VotingEscrow converts locked tokens into a voting weight decaying linearly to zero at the unlock time.
type VotingEscrow struct {
	ctx          *solidity.Context
	cfg          Config
	auth         *authority.Authority
	locked       *solidity.Mapping[thor.Address, *LockedBalance]
	deposited    *solidity.Mapping[thor.Address, *DepositedBalance]
	slopeChanges *solidity.Mapping[solidity.Uint64Key, *big.Int]
	pointHistory *checkpoint.Ledger
	totalLocked  *solidity.Uint256
	avgUnlock    *solidity.Uint64
}

// New binds an escrow to ctx.
func New(ctx *solidity.Context, owner thor.Address, cfg Config) *VotingEscrow {
	return &VotingEscrow{
		ctx:          ctx,
		cfg:          cfg,
		auth:         authority.New(ctx, owner),
		locked:       solidity.NewMapping[thor.Address, *LockedBalance](ctx, lockedSlot),
		deposited:    solidity.NewMapping[thor.Address, *DepositedBalance](ctx, depositedSlot),
		slopeChanges: solidity.NewMapping[solidity.Uint64Key, *big.Int](ctx, slopeChangesSlot),
		pointHistory: checkpoint.New(ctx, pointHistorySlot),
		totalLocked:  solidity.NewUint256(ctx, totalLockedSlot),
		avgUnlock:    solidity.NewUint64(ctx, averageUnlockTimeSlot),
	}
}

func (v *VotingEscrow) Address() thor.Address {
	return v.ctx.Address()
}

func (v *VotingEscrow) Authority() *authority.Authority {
	return v.auth
}

func (v *VotingEscrow) userPointHistory(account thor.Address) *checkpoint.Ledger {
	return checkpoint.New(v.ctx, thor.Blake2b(account.Bytes(), userPointHistorySlot.Bytes()))
}

func (v *VotingEscrow) getLocked(account thor.Address) (*LockedBalance, error) {
	l, err := v.locked.Get(account)
	if err != nil {
		return nil, err
	}
	if l.Amount == nil {
		l.Amount = new(big.Int)
	}
	return l, nil
}

func (v *VotingEscrow) getDeposited(account thor.Address) (*DepositedBalance, error) {
	d, err := v.deposited.Get(account)
	if err != nil {
		return nil, err
	}
	if d.Primary == nil {
		d.Primary = new(big.Int)
	}
	if d.Escrowed == nil {
		d.Escrowed = new(big.Int)
	}
	return d, nil
}

// Deposit locks amount of token for account until unlockTime, floored to a week.
// Depositing into an open lock adds to it and may extend it, never shorten it.
func (v *VotingEscrow) Deposit(account, tok thor.Address, amount *big.Int, unlockTime, now uint64) error {
	return v.ctx.Atomic("votingescrow.deposit", func() error {
		return v.deposit(account, account, tok, amount, unlockTime, now)
	})
}

// DepositFor locks tokens paid by funder into account's lock. Only handlers may call it.
func (v *VotingEscrow) DepositFor(caller, funder, account, tok thor.Address, amount *big.Int, unlockTime, now uint64) error {
	return v.ctx.Atomic("votingescrow.depositFor", func() error {
		if err := v.auth.CheckHandler(caller); err != nil {
			return err
		}
		return v.deposit(funder, account, tok, amount, unlockTime, now)
	})
}

func (v *VotingEscrow) deposit(funder, account, tok thor.Address, amount *big.Int, unlockTime, now uint64) error {
	if amount.Sign() <= 0 {
		return reverts.New(reverts.InvalidArgument, "zero amount")
	}
	var kind *token.Token
	switch tok {
	case v.cfg.Primary.Address():
		kind = v.cfg.Primary
	case v.cfg.Escrowed.Address():
		kind = v.cfg.Escrowed
	default:
		return reverts.Newf(reverts.InvalidArgument, "token %v not accepted", tok)
	}

	unlock := thor.RoundDown(unlockTime, thor.Week)
	old, err := v.getLocked(account)
	if err != nil {
		return err
	}
	if old.Amount.Sign() > 0 && old.End <= now {
		return reverts.New(reverts.InvalidArgument, "lock expired, withdraw first")
	}
	if unlock <= now {
		return reverts.Newf(reverts.InvalidArgument, "unlock time %d not in the future", unlock)
	}
	if unlock > now+thor.MaxLockDuration {
		return reverts.Newf(reverts.InvalidArgument, "unlock time %d exceeds max lock duration", unlock)
	}
	if old.Amount.Sign() > 0 && unlock < old.End {
		return reverts.Newf(reverts.InvalidArgument, "unlock time %d before current unlock time %d", unlock, old.End)
	}

	if err := kind.TransferFrom(v.Address(), funder, v.Address(), amount); err != nil {
		return err
	}
	dep, err := v.getDeposited(account)
	if err != nil {
		return err
	}
	if kind == v.cfg.Primary {
		dep.Primary.Add(dep.Primary, amount)
	} else {
		dep.Escrowed.Add(dep.Escrowed, amount)
	}
	if err := v.deposited.Set(account, dep); err != nil {
		return err
	}
	if err := v.totalLocked.Add(amount); err != nil {
		return err
	}

	next := &LockedBalance{Amount: new(big.Int).Add(old.Amount, amount), End: unlock}
	if err := v.applyLock(account, old, next, now); err != nil {
		return err
	}
	logger.Debug("deposit", "account", account, "token", kind.Symbol(), "amount", amount, "unlock", unlock)
	return v.ctx.Emit("Deposit",
		[]thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(tok)},
		amount, unlock, now)
}

// IncreaseUnlockTime extends an open lock without changing its amount.
func (v *VotingEscrow) IncreaseUnlockTime(account thor.Address, unlockTime, now uint64) error {
	return v.ctx.Atomic("votingescrow.increaseUnlockTime", func() error {
		unlock := thor.RoundDown(unlockTime, thor.Week)
		old, err := v.getLocked(account)
		if err != nil {
			return err
		}
		if old.Amount.Sign() == 0 {
			return reverts.New(reverts.InvalidArgument, "nothing is locked")
		}
		if old.End <= now {
			return reverts.New(reverts.InvalidArgument, "lock expired")
		}
		if unlock <= old.End {
			return reverts.Newf(reverts.InvalidArgument, "unlock time %d not after current unlock time %d", unlock, old.End)
		}
		if unlock > now+thor.MaxLockDuration {
			return reverts.Newf(reverts.InvalidArgument, "unlock time %d exceeds max lock duration", unlock)
		}
		next := &LockedBalance{Amount: new(big.Int).Set(old.Amount), End: unlock}
		if err := v.applyLock(account, old, next, now); err != nil {
			return err
		}
		return v.ctx.Emit("IncreaseUnlockTime", []thor.Bytes32{solidity.AddressTopic(account)}, unlock, now)
	})
}

// Withdraw returns both token kinds of an expired lock to account.
func (v *VotingEscrow) Withdraw(account thor.Address, now uint64) error {
	return v.ctx.Atomic("votingescrow.withdraw", func() error {
		old, err := v.getLocked(account)
		if err != nil {
			return err
		}
		if now < old.End {
			return reverts.Newf(reverts.LockNotExpired, "lock ends at %d", old.End)
		}
		if old.Amount.Sign() == 0 {
			return reverts.New(reverts.InvalidArgument, "nothing is locked")
		}
		dep, err := v.getDeposited(account)
		if err != nil {
			return err
		}
		if err := v.totalLocked.Sub(old.Amount); err != nil {
			return err
		}
		if err := v.applyLock(account, old, &LockedBalance{Amount: new(big.Int)}, now); err != nil {
			return err
		}
		v.deposited.Delete(account)

		if err := v.cfg.Primary.Transfer(v.Address(), account, dep.Primary); err != nil {
			return err
		}
		if err := v.cfg.Escrowed.Transfer(v.Address(), account, dep.Escrowed); err != nil {
			return err
		}
		logger.Debug("withdraw", "account", account, "amount", old.Amount)
		return v.ctx.Emit("Withdraw", []thor.Bytes32{solidity.AddressTopic(account)}, old.Amount, now)
	})
}

// Checkpoint brings the global history up to now.
func (v *VotingEscrow) Checkpoint(now uint64) error {
	return v.ctx.Atomic("votingescrow.checkpoint", func() error {
		return v.checkpoint(nil, nil, nil, now)
	})
}

// applyLock stores the new lock, updates the average unlock time and writes checkpoints.
func (v *VotingEscrow) applyLock(account thor.Address, old, next *LockedBalance, now uint64) error {
	if err := v.updateAverageUnlockTime(old, next); err != nil {
		return err
	}
	if next.IsEmpty() {
		v.locked.Delete(account)
	} else if err := v.locked.Set(account, next); err != nil {
		return err
	}
	return v.checkpoint(&account, old, next, now)
}

// updateAverageUnlockTime replaces old's contribution to the amount weighted average by next's.
// totalLocked must already include the change.
func (v *VotingEscrow) updateAverageUnlockTime(old, next *LockedBalance) error {
	avg, err := v.avgUnlock.Get()
	if err != nil {
		return err
	}
	total, err := v.totalLocked.Get()
	if err != nil {
		return err
	}
	prevTotal := new(big.Int).Sub(total, next.Amount)
	prevTotal.Add(prevTotal, old.Amount)

	sum := new(big.Int).Mul(new(big.Int).SetUint64(avg), prevTotal)
	sum.Sub(sum, new(big.Int).Mul(old.Amount, new(big.Int).SetUint64(old.End)))
	sum.Add(sum, new(big.Int).Mul(next.Amount, new(big.Int).SetUint64(next.End)))
	if sum.Sign() < 0 || total.Sign() == 0 {
		v.avgUnlock.Set(0)
		return nil
	}
	v.avgUnlock.Set(sum.Quo(sum, total).Uint64())
	return nil
}

// checkpoint walks the global history week by week up to now, then applies an
// account's lock change to both the global and the account history.
func (v *VotingEscrow) checkpoint(account *thor.Address, old, next *LockedBalance, now uint64) error {
	var (
		oldSlope, oldBias = new(big.Int), new(big.Int)
		newSlope, newBias = new(big.Int), new(big.Int)
		oldDSlope         = new(big.Int)
		newDSlope         = new(big.Int)
		err               error
	)
	if account != nil {
		oldSlope, oldBias = old.slopeAndBias(now, maxTime)
		newSlope, newBias = next.slopeAndBias(now, maxTime)

		if oldDSlope, err = v.slopeChanges.Get(solidity.Uint64Key(old.End)); err != nil {
			return err
		}
		if next.End != 0 {
			if next.End == old.End {
				newDSlope = oldDSlope
			} else if newDSlope, err = v.slopeChanges.Get(solidity.Uint64Key(next.End)); err != nil {
				return err
			}
		}
	}

	lastPoint := &checkpoint.Point{Bias: new(big.Int), Slope: new(big.Int), Ts: now}
	last, ok, err := v.pointHistory.Last()
	if err != nil {
		return err
	}
	if ok {
		lastPoint = &checkpoint.Point{Bias: new(big.Int).Set(last.Bias), Slope: new(big.Int).Set(last.Slope), Ts: last.Ts}
	}
	if now < lastPoint.Ts {
		return reverts.Newf(reverts.InvalidArgument, "time %d before last checkpoint %d", now, lastPoint.Ts)
	}

	// the walk always reaches now, one point per idle week
	lastCheckpoint := lastPoint.Ts
	ti := thor.RoundDown(lastCheckpoint, thor.Week)
	for {
		ti += thor.Week
		dSlope := new(big.Int)
		if ti > now {
			ti = now
		} else if dSlope, err = v.slopeChanges.Get(solidity.Uint64Key(ti)); err != nil {
			return err
		}
		lastPoint.Bias.Sub(lastPoint.Bias, new(big.Int).Mul(lastPoint.Slope, new(big.Int).SetUint64(ti-lastCheckpoint)))
		lastPoint.Slope.Sub(lastPoint.Slope, dSlope)
		if lastPoint.Bias.Sign() < 0 {
			lastPoint.Bias.SetInt64(0)
		}
		if lastPoint.Slope.Sign() < 0 {
			lastPoint.Slope.SetInt64(0)
		}
		lastCheckpoint = ti
		lastPoint.Ts = ti
		if ti == now {
			break
		}
		if err := v.pointHistory.Append(lastPoint); err != nil {
			return err
		}
	}

	if account != nil {
		lastPoint.Slope.Add(lastPoint.Slope, newSlope).Sub(lastPoint.Slope, oldSlope)
		lastPoint.Bias.Add(lastPoint.Bias, newBias).Sub(lastPoint.Bias, oldBias)
		if lastPoint.Slope.Sign() < 0 {
			lastPoint.Slope.SetInt64(0)
		}
		if lastPoint.Bias.Sign() < 0 {
			lastPoint.Bias.SetInt64(0)
		}
	}
	if err := v.pointHistory.Append(lastPoint); err != nil {
		return err
	}
	if account == nil {
		return nil
	}

	// slopeChanges[t] holds the slope that stops decaying at t
	if old.End > now {
		oldDSlope = new(big.Int).Sub(oldDSlope, oldSlope)
		if next.End == old.End {
			oldDSlope.Add(oldDSlope, newSlope)
		}
		if err := v.setSlopeChange(old.End, oldDSlope); err != nil {
			return err
		}
	}
	if next.End > now && next.End > old.End {
		if err := v.setSlopeChange(next.End, new(big.Int).Add(newDSlope, newSlope)); err != nil {
			return err
		}
	}

	return v.userPointHistory(*account).Append(&checkpoint.Point{Bias: newBias, Slope: newSlope, Ts: now})
}

func (v *VotingEscrow) setSlopeChange(t uint64, slope *big.Int) error {
	if slope.Sign() <= 0 {
		v.slopeChanges.Delete(solidity.Uint64Key(t))
		return nil
	}
	return v.slopeChanges.Set(solidity.Uint64Key(t), slope)
}

// BalanceOf returns account's weight at now.
func (v *VotingEscrow) BalanceOf(account thor.Address, now uint64) (*big.Int, error) {
	return v.BalanceOfAt(account, now)
}

// BalanceOfAt returns account's weight at t. Times before its first lock give zero.
func (v *VotingEscrow) BalanceOfAt(account thor.Address, t uint64) (*big.Int, error) {
	p, _, err := v.userPointHistory(account).Find(t)
	if err != nil {
		if reverts.IsKind(err, reverts.OutOfRange) {
			return new(big.Int), nil
		}
		return nil, err
	}
	return p.ValueAt(t), nil
}

// TotalSupply returns the total weight at now.
func (v *VotingEscrow) TotalSupply(now uint64) (*big.Int, error) {
	return v.TotalSupplyAt(now)
}

// TotalSupplyAt returns the total weight at t, applying scheduled slope changes
// between the last checkpoint before t and t.
func (v *VotingEscrow) TotalSupplyAt(t uint64) (*big.Int, error) {
	p, _, err := v.pointHistory.Find(t)
	if err != nil {
		if reverts.IsKind(err, reverts.OutOfRange) {
			return new(big.Int), nil
		}
		return nil, err
	}
	bias := new(big.Int).Set(p.Bias)
	slope := new(big.Int).Set(p.Slope)
	ts := p.Ts

	ti := thor.RoundDown(ts, thor.Week)
	for i := 0; i < maxWeeks; i++ {
		ti += thor.Week
		dSlope := new(big.Int)
		if ti > t {
			ti = t
		} else if dSlope, err = v.slopeChanges.Get(solidity.Uint64Key(ti)); err != nil {
			return nil, err
		}
		bias.Sub(bias, new(big.Int).Mul(slope, new(big.Int).SetUint64(ti-ts)))
		if ti == t {
			break
		}
		slope.Sub(slope, dSlope)
		ts = ti
	}
	if bias.Sign() < 0 {
		return new(big.Int), nil
	}
	return bias, nil
}

// AverageUnlockTime is the amount weighted average unlock time of all locks.
func (v *VotingEscrow) AverageUnlockTime() (uint64, error) {
	return v.avgUnlock.Get()
}

// TotalLocked is the sum of every locked amount, expired locks included until withdrawn.
func (v *VotingEscrow) TotalLocked() (*big.Int, error) {
	return v.totalLocked.Get()
}

// LockedAmount is account's locked amount, both token kinds together.
func (v *VotingEscrow) LockedAmount(account thor.Address) (*big.Int, error) {
	l, err := v.getLocked(account)
	if err != nil {
		return nil, err
	}
	return l.Amount, nil
}

// LockedEnd is account's week aligned unlock time, or zero without a lock.
func (v *VotingEscrow) LockedEnd(account thor.Address) (uint64, error) {
	l, err := v.getLocked(account)
	if err != nil {
		return 0, err
	}
	return l.End, nil
}

// DepositedBalances returns account's locked primary and escrowed tokens.
func (v *VotingEscrow) DepositedBalances(account thor.Address) (*DepositedBalance, error) {
	return v.getDeposited(account)
}

// UserPointEpoch is the number of checkpoints of account.
func (v *VotingEscrow) UserPointEpoch(account thor.Address) (uint64, error) {
	return v.userPointHistory(account).Len()
}

// UserPointHistory returns account's i-th checkpoint.
func (v *VotingEscrow) UserPointHistory(account thor.Address, i uint64) (*checkpoint.Point, error) {
	return v.userPointHistory(account).At(i)
}

// Epoch is the number of global checkpoints.
func (v *VotingEscrow) Epoch() (uint64, error) {
	return v.pointHistory.Len()
}

// PointHistory returns the i-th global checkpoint.
func (v *VotingEscrow) PointHistory(i uint64) (*checkpoint.Point, error) {
	return v.pointHistory.At(i)
}
