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
	fixedRateSlot = thor.BytesToBytes32([]byte("reward-rate"))
	fixedLastSlot = thor.BytesToBytes32([]byte("last-distribution-time"))
)

// FixedRateConfig wires a fixed-rate distributor. The distributor mints Token, so it
// must hold the token's minter role.
type FixedRateConfig struct {
	Token      *token.Token
	Manager    Manager
	PoolTarget thor.Address
	VeTarget   thor.Address
}

// FixedRate mints a constant amount per second.
type FixedRate struct {
	ctx  *solidity.Context
	cfg  FixedRateConfig
	auth *authority.Authority
	rate *solidity.Uint256
	last *solidity.Uint64
}

func NewFixedRate(ctx *solidity.Context, owner thor.Address, cfg FixedRateConfig) *FixedRate {
	return &FixedRate{
		ctx:  ctx,
		cfg:  cfg,
		auth: authority.New(ctx, owner),
		rate: solidity.NewUint256(ctx, fixedRateSlot),
		last: solidity.NewUint64(ctx, fixedLastSlot),
	}
}

func (f *FixedRate) Address() thor.Address {
	return f.ctx.Address()
}

func (f *FixedRate) Authority() *authority.Authority {
	return f.auth
}

func (f *FixedRate) RewardRate() (*big.Int, error) {
	return f.rate.Get()
}

func (f *FixedRate) LastDistributionTime() (uint64, error) {
	return f.last.Get()
}

func (f *FixedRate) PendingRewards(now uint64) (*big.Int, error) {
	last, err := f.last.Get()
	if err != nil {
		return nil, err
	}
	if now <= last {
		return new(big.Int), nil
	}
	rate, err := f.rate.Get()
	if err != nil {
		return nil, err
	}
	return rate.Mul(rate, new(big.Int).SetUint64(now-last)), nil
}

func (f *FixedRate) split(total *big.Int) (pool, ve *big.Int, err error) {
	owned, err := f.cfg.Manager.PoolOwnedRate()
	if err != nil {
		return nil, nil, err
	}
	escrowed, err := f.cfg.Manager.VotingEscrowedRate()
	if err != nil {
		return nil, nil, err
	}
	pool = thor.MulFrac(thor.MulFrac(total, thor.OneMinus(owned)), thor.OneMinus(escrowed))
	ve = new(big.Int).Sub(total, pool)
	return
}

func (f *FixedRate) PendingPoolRewards(now uint64) (*big.Int, error) {
	total, err := f.PendingRewards(now)
	if err != nil {
		return nil, err
	}
	pool, _, err := f.split(total)
	return pool, err
}

func (f *FixedRate) PendingVotingEscrowRewards(now uint64) (*big.Int, error) {
	total, err := f.PendingRewards(now)
	if err != nil {
		return nil, err
	}
	_, ve, err := f.split(total)
	return ve, err
}

// UpdateRewards mints the emission since the last distribution to the trackers.
func (f *FixedRate) UpdateRewards(now uint64) error {
	return f.ctx.Atomic("fixedrate.updateRewards", func() error {
		return f.updateRewards(now)
	})
}

func (f *FixedRate) updateRewards(now uint64) error {
	last, err := f.last.Get()
	if err != nil {
		return err
	}
	if now <= last {
		return nil
	}
	total, err := f.PendingRewards(now)
	if err != nil {
		return err
	}
	if total.Sign() > 0 {
		pool, ve, err := f.split(total)
		if err != nil {
			return err
		}
		if err := f.cfg.Token.Mint(f.Address(), f.cfg.PoolTarget, pool); err != nil {
			return err
		}
		if err := f.cfg.Token.Mint(f.Address(), f.cfg.VeTarget, ve); err != nil {
			return err
		}
		logger.Debug("rewards minted", "pool", pool, "ve", ve, "now", now)
		if err := f.ctx.Emit("RewardsDistributed", nil, pool, ve, new(big.Int)); err != nil {
			return err
		}
	}
	f.last.Set(now)
	return nil
}

// SetRewardRate distributes what accrued at the old rate, then switches to rate.
func (f *FixedRate) SetRewardRate(caller thor.Address, rate *big.Int, now uint64) error {
	return f.ctx.Atomic("fixedrate.setRewardRate", func() error {
		if err := f.auth.CheckHandler(caller); err != nil {
			return err
		}
		if rate.Sign() < 0 {
			return reverts.Newf(reverts.InvalidArgument, "negative reward rate %v", rate)
		}
		if err := f.updateRewards(now); err != nil {
			return err
		}
		if err := f.rate.Set(rate); err != nil {
			return err
		}
		return f.ctx.Emit("SetRewardRate", nil, rate)
	})
}

// SetLastDistributionTime moves the emission start. A time in the future pauses the emission until then.
func (f *FixedRate) SetLastDistributionTime(caller thor.Address, t uint64) error {
	return f.ctx.Atomic("fixedrate.setLastDistributionTime", func() error {
		if err := f.auth.CheckHandler(caller); err != nil {
			return err
		}
		f.last.Set(t)
		return f.ctx.Emit("SetLastDistributionTime", nil, t)
	})
}
