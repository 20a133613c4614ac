// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epochtracker pays a distributor's stream to vote-escrow holders in epochs.
// Tokens arriving during an epoch are credited to that epoch and become claimable
// once it closes, in proportion to each holder's weight at the epoch start.
package epochtracker

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/checkpoint"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/builtin/tracker"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "epochtracker")

var (
	tokensPerEpochSlot    = thor.BytesToBytes32([]byte("tokens-per-epoch"))
	veSupplySlot          = thor.BytesToBytes32([]byte("ve-supply"))
	timeCursorSlot        = thor.BytesToBytes32([]byte("time-cursor"))
	lastTokenTimeSlot     = thor.BytesToBytes32([]byte("last-token-time"))
	tokenLastBalanceSlot  = thor.BytesToBytes32([]byte("token-last-balance"))
	undistributedSlot     = thor.BytesToBytes32([]byte("undistributed"))
	sweepCursorSlot       = thor.BytesToBytes32([]byte("sweep-cursor"))
	timeCursorOfSlot      = thor.BytesToBytes32([]byte("time-cursor-of"))
	cumulativeRewardsSlot = thor.BytesToBytes32([]byte("cumulative-rewards"))
	averageStakedSlot     = thor.BytesToBytes32([]byte("average-staked-amounts"))
)

// VotingEscrow is the weight source of the tracker.
type VotingEscrow interface {
	Checkpoint(now uint64) error
	TotalSupplyAt(t uint64) (*big.Int, error)
	BalanceOfAt(account thor.Address, t uint64) (*big.Int, error)
	UserPointEpoch(account thor.Address) (uint64, error)
	UserPointHistory(account thor.Address, i uint64) (*checkpoint.Point, error)
	LockedAmount(account thor.Address) (*big.Int, error)
}

// Config wires an epoch tracker.
type Config struct {
	RewardToken  *token.Token
	Distributor  tracker.Distributor
	VotingEscrow VotingEscrow
	// StartTime is floored to the epoch length. Nothing is credited to earlier epochs.
	StartTime uint64
	// EpochLength defaults to a week.
	EpochLength uint64
}

type EpochTracker struct {
	ctx               *solidity.Context
	cfg               Config
	auth              *authority.Authority
	tokensPerEpoch    *solidity.Mapping[solidity.Uint64Key, *big.Int]
	veSupply          *solidity.Mapping[solidity.Uint64Key, *big.Int]
	timeCursor        *solidity.Uint64
	lastTokenTime     *solidity.Uint64
	tokenLastBalance  *solidity.Uint256
	undistributed     *solidity.Uint256
	sweepCursor       *solidity.Uint64
	timeCursorOf      *solidity.Mapping[thor.Address, uint64]
	cumulativeRewards *solidity.Mapping[thor.Address, *big.Int]
	averageStaked     *solidity.Mapping[thor.Address, *big.Int]
}

var _ tracker.Tracker = (*EpochTracker)(nil)

func New(ctx *solidity.Context, owner thor.Address, cfg Config) *EpochTracker {
	if cfg.EpochLength == 0 {
		cfg.EpochLength = thor.Week
	}
	cfg.StartTime = thor.RoundDown(cfg.StartTime, cfg.EpochLength)
	return &EpochTracker{
		ctx:               ctx,
		cfg:               cfg,
		auth:              authority.New(ctx, owner),
		tokensPerEpoch:    solidity.NewMapping[solidity.Uint64Key, *big.Int](ctx, tokensPerEpochSlot),
		veSupply:          solidity.NewMapping[solidity.Uint64Key, *big.Int](ctx, veSupplySlot),
		timeCursor:        solidity.NewUint64(ctx, timeCursorSlot),
		lastTokenTime:     solidity.NewUint64(ctx, lastTokenTimeSlot),
		tokenLastBalance:  solidity.NewUint256(ctx, tokenLastBalanceSlot),
		undistributed:     solidity.NewUint256(ctx, undistributedSlot),
		sweepCursor:       solidity.NewUint64(ctx, sweepCursorSlot),
		timeCursorOf:      solidity.NewMapping[thor.Address, uint64](ctx, timeCursorOfSlot),
		cumulativeRewards: solidity.NewMapping[thor.Address, *big.Int](ctx, cumulativeRewardsSlot),
		averageStaked:     solidity.NewMapping[thor.Address, *big.Int](ctx, averageStakedSlot),
	}
}

func (e *EpochTracker) Address() thor.Address {
	return e.ctx.Address()
}

func (e *EpochTracker) Authority() *authority.Authority {
	return e.auth
}

func (e *EpochTracker) StartTime() uint64 {
	return e.cfg.StartTime
}

func (e *EpochTracker) EpochLength() uint64 {
	return e.cfg.EpochLength
}

// cursor reads a time cursor that never sits before the start.
func (e *EpochTracker) cursor(u *solidity.Uint64) (uint64, error) {
	t, err := u.Get()
	if err != nil {
		return 0, err
	}
	if t < e.cfg.StartTime {
		t = e.cfg.StartTime
	}
	return t, nil
}

func (e *EpochTracker) TimeCursor() (uint64, error)         { return e.cursor(e.timeCursor) }
func (e *EpochTracker) LastTokenTime() (uint64, error)      { return e.cursor(e.lastTokenTime) }
func (e *EpochTracker) SweepCursor() (uint64, error)        { return e.cursor(e.sweepCursor) }
func (e *EpochTracker) TokenLastBalance() (*big.Int, error) { return e.tokenLastBalance.Get() }
func (e *EpochTracker) Undistributed() (*big.Int, error)    { return e.undistributed.Get() }

func (e *EpochTracker) TokensPerEpoch(epoch uint64) (*big.Int, error) {
	return e.tokensPerEpoch.Get(solidity.Uint64Key(epoch))
}

func (e *EpochTracker) VeSupply(epoch uint64) (*big.Int, error) {
	return e.veSupply.Get(solidity.Uint64Key(epoch))
}

// TimeCursorOf is the first epoch account has not claimed, zero before its first claim.
func (e *EpochTracker) TimeCursorOf(account thor.Address) (uint64, error) {
	return e.timeCursorOf.Get(account)
}

func (e *EpochTracker) CumulativeRewards(account thor.Address) (*big.Int, error) {
	return e.cumulativeRewards.Get(account)
}

func (e *EpochTracker) AverageStakedAmounts(account thor.Address) (*big.Int, error) {
	return e.averageStaked.Get(account)
}

func (e *EpochTracker) addTokens(epoch uint64, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	key := solidity.Uint64Key(epoch)
	v, err := e.tokensPerEpoch.Get(key)
	if err != nil {
		return err
	}
	return e.tokensPerEpoch.Set(key, v.Add(v, amount))
}

// CheckpointToken credits the tokens received since the last checkpoint to the
// epochs they arrived in, pro rata to the time elapsed in each.
func (e *EpochTracker) CheckpointToken(now uint64) error {
	return e.ctx.Atomic("epochtracker.checkpointToken", func() error {
		return e.checkpointToken(now)
	})
}

func (e *EpochTracker) checkpointToken(now uint64) error {
	if err := e.cfg.Distributor.UpdateRewards(now); err != nil {
		return err
	}
	balance, err := e.cfg.RewardToken.BalanceOf(e.Address())
	if err != nil {
		return err
	}
	last, err := e.tokenLastBalance.Get()
	if err != nil {
		return err
	}
	toDistribute := thor.SubFloor(balance, last)
	if err := e.tokenLastBalance.Set(balance); err != nil {
		return err
	}

	t, err := e.cursor(e.lastTokenTime)
	if err != nil {
		return err
	}
	length := e.cfg.EpochLength
	if now <= t {
		return e.addTokens(thor.RoundDown(t, length), toDistribute)
	}
	sinceLast := new(big.Int).SetUint64(now - t)
	remaining := new(big.Int).Set(toDistribute)
	for epoch := thor.RoundDown(t, length); ; epoch += length {
		next := epoch + length
		if now < next {
			if err := e.addTokens(epoch, remaining); err != nil {
				return err
			}
			break
		}
		share := thor.MulDiv(toDistribute, new(big.Int).SetUint64(next-t), sinceLast)
		if err := e.addTokens(epoch, share); err != nil {
			return err
		}
		remaining.Sub(remaining, share)
		t = next
	}
	e.lastTokenTime.Set(now)

	if toDistribute.Sign() > 0 {
		logger.Debug("token checkpoint", "amount", toDistribute, "now", now)
	}
	return e.ctx.Emit("CheckpointToken", nil, now, toDistribute)
}

// CheckpointTotalSupply records the vote-escrow supply at every epoch start
// strictly before now that has no record yet.
func (e *EpochTracker) CheckpointTotalSupply(now uint64) error {
	return e.ctx.Atomic("epochtracker.checkpointTotalSupply", func() error {
		return e.checkpointTotalSupply(now)
	})
}

func (e *EpochTracker) checkpointTotalSupply(now uint64) error {
	if err := e.cfg.VotingEscrow.Checkpoint(now); err != nil {
		return err
	}
	t, err := e.cursor(e.timeCursor)
	if err != nil {
		return err
	}
	for ; t < now; t += e.cfg.EpochLength {
		supply, err := e.cfg.VotingEscrow.TotalSupplyAt(t)
		if err != nil {
			return err
		}
		if err := e.veSupply.Set(solidity.Uint64Key(t), supply); err != nil {
			return err
		}
	}
	e.timeCursor.Set(t)
	return nil
}

// sweep moves the tokens of closed epochs nobody held weight in to the undistributed pot.
func (e *EpochTracker) sweep() error {
	lastToken, err := e.cursor(e.lastTokenTime)
	if err != nil {
		return err
	}
	closed := thor.RoundDown(lastToken, e.cfg.EpochLength)
	s, err := e.cursor(e.sweepCursor)
	if err != nil {
		return err
	}
	swept := new(big.Int)
	for ; s < closed; s += e.cfg.EpochLength {
		supply, err := e.veSupply.Get(solidity.Uint64Key(s))
		if err != nil {
			return err
		}
		if supply.Sign() > 0 {
			continue
		}
		tokens, err := e.tokensPerEpoch.Get(solidity.Uint64Key(s))
		if err != nil {
			return err
		}
		swept.Add(swept, tokens)
	}
	e.sweepCursor.Set(s)
	if swept.Sign() == 0 {
		return nil
	}
	logger.Debug("unclaimable epochs swept", "amount", swept)
	return e.undistributed.Add(swept)
}

// UpdateRewards checkpoints the supply and the token.
func (e *EpochTracker) UpdateRewards(now uint64) error {
	return e.ctx.Atomic("epochtracker.updateRewards", func() error {
		return e.updateRewards(now)
	})
}

func (e *EpochTracker) updateRewards(now uint64) error {
	if err := e.checkpointTotalSupply(now); err != nil {
		return err
	}
	if err := e.checkpointToken(now); err != nil {
		return err
	}
	return e.sweep()
}

// Claim pays account's share of closed epochs to receiver, or to account if receiver is zero.
// One call walks at most thor.MaxClaimEpochs epochs.
func (e *EpochTracker) Claim(account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = e.ctx.Atomic("epochtracker.claim", func() error {
		amount, err = e.claim(account, receiver, now)
		return err
	})
	return
}

// ClaimForAccount claims on behalf of account. Only handlers may call it.
func (e *EpochTracker) ClaimForAccount(caller, account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = e.ctx.Atomic("epochtracker.claimForAccount", func() error {
		if err := e.auth.CheckHandler(caller); err != nil {
			return err
		}
		amount, err = e.claim(account, receiver, now)
		return err
	})
	return
}

// Claimable is what Claim would pay now.
func (e *EpochTracker) Claimable(account thor.Address, now uint64) (amount *big.Int, err error) {
	err = e.ctx.Simulate(func() error {
		amount, err = e.claim(account, account, now)
		return err
	})
	return
}

func (e *EpochTracker) claim(account, receiver thor.Address, now uint64) (*big.Int, error) {
	if receiver.IsZero() {
		receiver = account
	}
	if err := e.updateRewards(now); err != nil {
		return nil, err
	}
	amount, err := e.accountShare(account)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := e.tokenLastBalance.Sub(amount); err != nil {
		return nil, err
	}
	if err := e.cfg.RewardToken.Transfer(e.Address(), receiver, amount); err != nil {
		return nil, err
	}

	staked, err := e.cfg.VotingEscrow.LockedAmount(account)
	if err != nil {
		return nil, err
	}
	avg, err := e.averageStaked.Get(account)
	if err != nil {
		return nil, err
	}
	cum, err := e.cumulativeRewards.Get(account)
	if err != nil {
		return nil, err
	}
	avg, cum = tracker.AccrueAverage(avg, cum, staked, amount)
	if err := e.averageStaked.Set(account, avg); err != nil {
		return nil, err
	}
	if err := e.cumulativeRewards.Set(account, cum); err != nil {
		return nil, err
	}
	logger.Debug("claimed", "account", account, "receiver", receiver, "amount", amount)
	return amount, e.ctx.Emit("Claimed", []thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(receiver)}, amount)
}

// accountShare walks account's unclaimed closed epochs and advances its cursor.
func (e *EpochTracker) accountShare(account thor.Address) (*big.Int, error) {
	amount := new(big.Int)
	points, err := e.cfg.VotingEscrow.UserPointEpoch(account)
	if err != nil || points == 0 {
		return amount, err
	}
	cursor, err := e.timeCursorOf.Get(account)
	if err != nil {
		return nil, err
	}
	if cursor == 0 {
		first, err := e.cfg.VotingEscrow.UserPointHistory(account, 0)
		if err != nil {
			return nil, err
		}
		cursor = max(thor.RoundUp(first.Ts, e.cfg.EpochLength), e.cfg.StartTime)
	}
	lastToken, err := e.cursor(e.lastTokenTime)
	if err != nil {
		return nil, err
	}
	closed := thor.RoundDown(lastToken, e.cfg.EpochLength)

	for i := 0; i < thor.MaxClaimEpochs && cursor < closed; i++ {
		key := solidity.Uint64Key(cursor)
		supply, err := e.veSupply.Get(key)
		if err != nil {
			return nil, err
		}
		if supply.Sign() > 0 {
			balance, err := e.cfg.VotingEscrow.BalanceOfAt(account, cursor)
			if err != nil {
				return nil, err
			}
			tokens, err := e.tokensPerEpoch.Get(key)
			if err != nil {
				return nil, err
			}
			amount.Add(amount, thor.MulDiv(balance, tokens, supply))
		}
		cursor += e.cfg.EpochLength
	}
	if err := e.timeCursorOf.Set(account, cursor); err != nil {
		return nil, err
	}
	return amount, nil
}

// RecoverUndistributed sends the tokens of epochs without any weight to receiver.
func (e *EpochTracker) RecoverUndistributed(caller, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = e.ctx.Atomic("epochtracker.recoverUndistributed", func() error {
		if err := e.auth.CheckHandler(caller); err != nil {
			return err
		}
		if err := e.updateRewards(now); err != nil {
			return err
		}
		if amount, err = e.undistributed.Get(); err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return nil
		}
		if err := e.undistributed.Set(new(big.Int)); err != nil {
			return err
		}
		if err := e.tokenLastBalance.Sub(amount); err != nil {
			return err
		}
		if err := e.cfg.RewardToken.Transfer(e.Address(), receiver, amount); err != nil {
			return err
		}
		return e.ctx.Emit("UndistributedRecovered", []thor.Bytes32{solidity.AddressTopic(receiver)}, amount)
	})
	return
}
