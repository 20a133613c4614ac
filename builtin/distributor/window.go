// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributor

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/thor"
)

var (
	windowRateSlot        = thor.BytesToBytes32([]byte("reward-rate"))
	windowLastUpdateSlot  = thor.BytesToBytes32([]byte("last-update-time"))
	windowBeginSlot       = thor.BytesToBytes32([]byte("epoch-begin-time"))
	windowEndSlot         = thor.BytesToBytes32([]byte("epoch-end-time"))
	windowUndistributed   = thor.BytesToBytes32([]byte("pending-undistributed"))
	windowPoolRateSlot    = thor.BytesToBytes32([]byte("pool-reward-rate"))
	windowHolderSlot      = thor.BytesToBytes32([]byte("holder-proportion"))
	windowExtraSlot       = thor.BytesToBytes32([]byte("extra-proportion"))
	windowExtraRecvSlot   = thor.BytesToBytes32([]byte("extra-receiver"))
	windowSinkSlot        = thor.BytesToBytes32([]byte("sink"))
	windowInitializedSlot = thor.BytesToBytes32([]byte("initialized"))
)

// WindowConfig wires a window distributor.
type WindowConfig struct {
	Token      *token.Token
	Manager    Manager
	PoolTarget thor.Address
	VeTarget   thor.Address
	// Duration is the length of a reward window, thor.DefaultRewardWindow if zero.
	Duration uint64
}

// Window spreads each funding over a fixed-length window. Funding an active window
// folds the unreleased remainder into a new rate over the remaining time.
type Window struct {
	ctx           *solidity.Context
	cfg           WindowConfig
	auth          *authority.Authority
	rate          *solidity.Uint256
	lastUpdate    *solidity.Uint64
	begin         *solidity.Uint64
	end           *solidity.Uint64
	undistributed *solidity.Uint256
	poolRate      *solidity.Uint256
	holder        *solidity.Uint256
	extra         *solidity.Uint256
	extraReceiver *solidity.Address
	sink          *solidity.Uint256
	initialized   *solidity.Raw[bool]
}

func NewWindow(ctx *solidity.Context, owner thor.Address, cfg WindowConfig) *Window {
	if cfg.Duration == 0 {
		cfg.Duration = thor.DefaultRewardWindow
	}
	return &Window{
		ctx:           ctx,
		cfg:           cfg,
		auth:          authority.New(ctx, owner),
		rate:          solidity.NewUint256(ctx, windowRateSlot),
		lastUpdate:    solidity.NewUint64(ctx, windowLastUpdateSlot),
		begin:         solidity.NewUint64(ctx, windowBeginSlot),
		end:           solidity.NewUint64(ctx, windowEndSlot),
		undistributed: solidity.NewUint256(ctx, windowUndistributed),
		poolRate:      solidity.NewUint256(ctx, windowPoolRateSlot),
		holder:        solidity.NewUint256(ctx, windowHolderSlot),
		extra:         solidity.NewUint256(ctx, windowExtraSlot),
		extraReceiver: solidity.NewAddress(ctx, windowExtraRecvSlot),
		sink:          solidity.NewUint256(ctx, windowSinkSlot),
		initialized:   solidity.NewRaw[bool](ctx, windowInitializedSlot),
	}
}

func (w *Window) Address() thor.Address {
	return w.ctx.Address()
}

func (w *Window) Authority() *authority.Authority {
	return w.auth
}

// Duration is how long each funding is spread over.
func (w *Window) Duration() uint64 {
	return w.cfg.Duration
}

// Initialize sets the pool reward rate and gives the holders the whole funding.
func (w *Window) Initialize(caller thor.Address, poolRewardRate *big.Int) error {
	return w.ctx.Atomic("window.initialize", func() error {
		if err := w.auth.CheckOwner(caller); err != nil {
			return err
		}
		done, err := w.initialized.Get()
		if err != nil {
			return err
		}
		if done {
			return reverts.New(reverts.InvalidArgument, "already initialized")
		}
		if !checkRate(poolRewardRate) {
			return reverts.Newf(reverts.InvalidArgument, "pool reward rate %v out of [0, 1e18]", poolRewardRate)
		}
		if err := w.poolRate.Set(poolRewardRate); err != nil {
			return err
		}
		if err := w.holder.Set(thor.Precision); err != nil {
			return err
		}
		return w.initialized.Set(true)
	})
}

// RewardRate is the amount released per second in the current window.
func (w *Window) RewardRate() (*big.Int, error) { return w.rate.Get() }

// LastUpdateTime is when rewards were last pushed to the trackers.
func (w *Window) LastUpdateTime() (uint64, error) { return w.lastUpdate.Get() }

// EpochBeginTime and EpochEndTime bound the current window.
func (w *Window) EpochBeginTime() (uint64, error) { return w.begin.Get() }
func (w *Window) EpochEndTime() (uint64, error)   { return w.end.Get() }

// PendingUndistributed is funding not yet scheduled over a window.
func (w *Window) PendingUndistributed() (*big.Int, error) { return w.undistributed.Get() }

// PoolRewardRate is the part of the pool share passed on to pool stakers, as a fraction of 1e18.
func (w *Window) PoolRewardRate() (*big.Int, error) { return w.poolRate.Get() }

// HolderRewardProportion and ExtraRewardProportion split each funding, as fractions of 1e18.
func (w *Window) HolderRewardProportion() (*big.Int, error) { return w.holder.Get() }
func (w *Window) ExtraRewardProportion() (*big.Int, error)  { return w.extra.Get() }

// ExtraReceiver gets the extra share of each funding.
func (w *Window) ExtraReceiver() (thor.Address, error) { return w.extraReceiver.Get() }

// Sink is the pool owned share held back until RecoverSink.
func (w *Window) Sink() (*big.Int, error) { return w.sink.Get() }

// PendingRewards is the amount released since the last update and not yet pushed.
func (w *Window) PendingRewards(now uint64) (*big.Int, error) {
	last, err := w.lastUpdate.Get()
	if err != nil {
		return nil, err
	}
	end, err := w.end.Get()
	if err != nil {
		return nil, err
	}
	if now > end {
		now = end
	}
	if now <= last {
		return new(big.Int), nil
	}
	rate, err := w.rate.Get()
	if err != nil {
		return nil, err
	}
	return rate.Mul(rate, new(big.Int).SetUint64(now-last)), nil
}

// split divides total into the pool share, the vote-escrow share and the sink remainder.
func (w *Window) split(total *big.Int) (pool, ve, sink *big.Int, err error) {
	poolRate, err := w.poolRate.Get()
	if err != nil {
		return nil, nil, nil, err
	}
	owned, err := w.cfg.Manager.PoolOwnedRate()
	if err != nil {
		return nil, nil, nil, err
	}
	shared := thor.MulFrac(total, thor.OneMinus(owned))
	pool = thor.MulFrac(shared, poolRate)
	ve = thor.MulFrac(shared, thor.OneMinus(poolRate))
	sink = new(big.Int).Sub(total, pool)
	sink.Sub(sink, ve)
	return
}

// PendingPoolRewards is the pool tracker's part of the pending rewards.
func (w *Window) PendingPoolRewards(now uint64) (*big.Int, error) {
	total, err := w.PendingRewards(now)
	if err != nil {
		return nil, err
	}
	pool, _, _, err := w.split(total)
	return pool, err
}

// PendingVotingEscrowRewards is the vote-escrow tracker's part of the pending rewards.
func (w *Window) PendingVotingEscrowRewards(now uint64) (*big.Int, error) {
	total, err := w.PendingRewards(now)
	if err != nil {
		return nil, err
	}
	_, ve, _, err := w.split(total)
	return ve, err
}

// UpdateRewards pushes the pending rewards to the trackers.
func (w *Window) UpdateRewards(now uint64) error {
	return w.ctx.Atomic("window.updateRewards", func() error {
		return w.updateRewards(now)
	})
}

func (w *Window) updateRewards(now uint64) error {
	total, err := w.PendingRewards(now)
	if err != nil {
		return err
	}
	if total.Sign() > 0 {
		pool, ve, sink, err := w.split(total)
		if err != nil {
			return err
		}
		if err := w.cfg.Token.Transfer(w.Address(), w.cfg.PoolTarget, pool); err != nil {
			return err
		}
		if err := w.cfg.Token.Transfer(w.Address(), w.cfg.VeTarget, ve); err != nil {
			return err
		}
		if err := w.sink.Add(sink); err != nil {
			return err
		}
		logger.Debug("rewards distributed", "pool", pool, "ve", ve, "sink", sink, "now", now)
		if err := w.ctx.Emit("RewardsDistributed", nil, pool, ve, sink); err != nil {
			return err
		}
	}
	last, err := w.lastUpdate.Get()
	if err != nil {
		return err
	}
	if now > last {
		w.lastUpdate.Set(now)
	}
	return nil
}

// NotifyReward funds the window with amount pulled from caller.
func (w *Window) NotifyReward(caller thor.Address, amount *big.Int, now uint64) error {
	return w.ctx.Atomic("window.notifyReward", func() error {
		if amount.Sign() <= 0 {
			return reverts.New(reverts.InvalidArgument, "zero amount")
		}
		if err := w.updateRewards(now); err != nil {
			return err
		}
		if err := w.cfg.Token.TransferFrom(w.Address(), caller, w.Address(), amount); err != nil {
			return err
		}
		hp, err := w.holder.Get()
		if err != nil {
			return err
		}
		ep, err := w.extra.Get()
		if err != nil {
			return err
		}
		holder, extra, dust := FeeDistribution(amount, hp, ep)
		if extra.Sign() > 0 {
			receiver, err := w.extraReceiver.Get()
			if err != nil {
				return err
			}
			if receiver.IsZero() {
				return reverts.New(reverts.InvalidArgument, "extra receiver not set")
			}
			if err := w.cfg.Token.Transfer(w.Address(), receiver, extra); err != nil {
				return err
			}
		}

		funded, err := w.undistributed.Get()
		if err != nil {
			return err
		}
		funded.Add(funded, holder).Add(funded, dust)

		end, err := w.end.Get()
		if err != nil {
			return err
		}
		var period uint64
		if now >= end {
			period = w.cfg.Duration
			w.begin.Set(now)
			w.end.Set(now + period)
		} else {
			period = end - now
			rate, err := w.rate.Get()
			if err != nil {
				return err
			}
			funded.Add(funded, rate.Mul(rate, new(big.Int).SetUint64(period)))
		}
		span := new(big.Int).SetUint64(period)
		rate, remainder := new(big.Int).QuoRem(funded, span, new(big.Int))
		if err := w.rate.Set(rate); err != nil {
			return err
		}
		if err := w.undistributed.Set(remainder); err != nil {
			return err
		}
		w.lastUpdate.Set(now)

		logger.Debug("reward notified", "amount", amount, "rate", rate, "period", period)
		return w.ctx.Emit("RewardNotified", []thor.Bytes32{solidity.AddressTopic(caller)}, amount, holder, extra, dust, rate)
	})
}

// SetPoolRewardRate changes the pool part of the shared rewards. Rewards pending so far
// are pushed with the old rate.
func (w *Window) SetPoolRewardRate(caller thor.Address, rate *big.Int, now uint64) error {
	return w.ctx.Atomic("window.setPoolRewardRate", func() error {
		if err := w.auth.CheckHandler(caller); err != nil {
			return err
		}
		if !checkRate(rate) {
			return reverts.Newf(reverts.InvalidArgument, "pool reward rate %v out of [0, 1e18]", rate)
		}
		if err := w.updateRewards(now); err != nil {
			return err
		}
		if err := w.poolRate.Set(rate); err != nil {
			return err
		}
		return w.ctx.Emit("SetPoolRewardRate", nil, rate)
	})
}

func (w *Window) setProportion(caller thor.Address, event string, target, other *solidity.Uint256, value *big.Int) error {
	if err := w.auth.CheckHandler(caller); err != nil {
		return err
	}
	o, err := other.Get()
	if err != nil {
		return err
	}
	if value.Sign() < 0 || new(big.Int).Add(value, o).Cmp(thor.Precision) > 0 {
		return reverts.Newf(reverts.InvalidArgument, "proportion %v exceeds the remaining %v", value, thor.OneMinus(o))
	}
	if err := target.Set(value); err != nil {
		return err
	}
	return w.ctx.Emit(event, nil, value)
}

// SetHolderRewardProportion sets the holder share. Holder and extra shares together may not exceed 1e18.
func (w *Window) SetHolderRewardProportion(caller thor.Address, value *big.Int) error {
	return w.ctx.Atomic("window.setHolderRewardProportion", func() error {
		return w.setProportion(caller, "SetHolderRewardProportion", w.holder, w.extra, value)
	})
}

// SetExtraRewardProportion sets the share paid to the extra receiver.
func (w *Window) SetExtraRewardProportion(caller thor.Address, value *big.Int) error {
	return w.ctx.Atomic("window.setExtraRewardProportion", func() error {
		return w.setProportion(caller, "SetExtraRewardProportion", w.extra, w.holder, value)
	})
}

// SetExtraReceiver sets who gets the extra share. Only handlers may call it.
func (w *Window) SetExtraReceiver(caller, receiver thor.Address) error {
	return w.ctx.Atomic("window.setExtraReceiver", func() error {
		if err := w.auth.CheckHandler(caller); err != nil {
			return err
		}
		w.extraReceiver.Set(receiver)
		return w.ctx.Emit("SetExtraReceiver", []thor.Bytes32{solidity.AddressTopic(receiver)})
	})
}

// RecoverSink sends the rewards owned by the pool to receiver.
func (w *Window) RecoverSink(caller, receiver thor.Address) error {
	return w.ctx.Atomic("window.recoverSink", func() error {
		if err := w.auth.CheckHandler(caller); err != nil {
			return err
		}
		amount, err := w.sink.Get()
		if err != nil {
			return err
		}
		if err := w.sink.Set(new(big.Int)); err != nil {
			return err
		}
		if err := w.cfg.Token.Transfer(w.Address(), receiver, amount); err != nil {
			return err
		}
		return w.ctx.Emit("SinkRecovered", []thor.Bytes32{solidity.AddressTopic(receiver)}, amount)
	})
}
