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
	"github.com/vechain/tokenomics/builtin/tracker"
	"github.com/vechain/tokenomics/thor"
)

var (
	mirrorRateSlot       = thor.BytesToBytes32([]byte("mirror-reward-rate"))
	mirrorLastSlot       = thor.BytesToBytes32([]byte("mirror-last-update-time"))
	mirrorPerTokenSlot   = thor.BytesToBytes32([]byte("mirror-reward-per-token"))
	mirrorSupplySlot     = thor.BytesToBytes32([]byte("mirror-total-supply"))
	mirrorBalancesSlot   = thor.BytesToBytes32([]byte("mirror-balances"))
	mirrorPaidSlot       = thor.BytesToBytes32([]byte("mirror-paid-per-token"))
	mirrorRewardsSlot    = thor.BytesToBytes32([]byte("mirror-rewards"))
	mirrorCumulativeSlot = thor.BytesToBytes32([]byte("mirror-cumulative-rewards"))
	mirrorAverageSlot    = thor.BytesToBytes32([]byte("mirror-average-staked"))
)

// StakeSource reports the stakes a Mirror follows, usually a pool tracker.
type StakeSource interface {
	StakedAmounts(account thor.Address) (*big.Int, error)
}

// MirrorConfig wires a mirror distributor. Token is paid out of the
// distributor's own balance, so it has to be funded beforehand.
type MirrorConfig struct {
	Token  *token.Token
	Source StakeSource
	// Holder, if set, is weighted by what it holds of HolderToken instead of
	// by its stake, so unstaked liquidity still earns.
	Holder      thor.Address
	HolderToken *token.Token
}

// Mirror pays a fixed rate stream to accounts weighted by balances mirrored
// from a stake source. Balances are refreshed whenever an account is updated,
// which the source triggers on every stake change.
type Mirror struct {
	ctx         *solidity.Context
	cfg         MirrorConfig
	auth        *authority.Authority
	rate        *solidity.Uint256
	last        *solidity.Uint64
	perToken    *solidity.Uint256
	totalSupply *solidity.Uint256
	balances    *solidity.Mapping[thor.Address, *big.Int]
	paid        *solidity.Mapping[thor.Address, *big.Int]
	rewards     *solidity.Mapping[thor.Address, *big.Int]
	cumulative  *solidity.Mapping[thor.Address, *big.Int]
	average     *solidity.Mapping[thor.Address, *big.Int]
}

var _ tracker.Tracker = (*Mirror)(nil)

func NewMirror(ctx *solidity.Context, owner thor.Address, cfg MirrorConfig) *Mirror {
	return &Mirror{
		ctx:         ctx,
		cfg:         cfg,
		auth:        authority.New(ctx, owner),
		rate:        solidity.NewUint256(ctx, mirrorRateSlot),
		last:        solidity.NewUint64(ctx, mirrorLastSlot),
		perToken:    solidity.NewUint256(ctx, mirrorPerTokenSlot),
		totalSupply: solidity.NewUint256(ctx, mirrorSupplySlot),
		balances:    solidity.NewMapping[thor.Address, *big.Int](ctx, mirrorBalancesSlot),
		paid:        solidity.NewMapping[thor.Address, *big.Int](ctx, mirrorPaidSlot),
		rewards:     solidity.NewMapping[thor.Address, *big.Int](ctx, mirrorRewardsSlot),
		cumulative:  solidity.NewMapping[thor.Address, *big.Int](ctx, mirrorCumulativeSlot),
		average:     solidity.NewMapping[thor.Address, *big.Int](ctx, mirrorAverageSlot),
	}
}

func (m *Mirror) Address() thor.Address {
	return m.ctx.Address()
}

func (m *Mirror) Authority() *authority.Authority {
	return m.auth
}

func (m *Mirror) RewardRate() (*big.Int, error) {
	return m.rate.Get()
}

func (m *Mirror) LastUpdateTime() (uint64, error) {
	return m.last.Get()
}

// BalanceOf is the weight last mirrored for account.
func (m *Mirror) BalanceOf(account thor.Address) (*big.Int, error) {
	return m.balances.Get(account)
}

func (m *Mirror) TotalSupply() (*big.Int, error) {
	return m.totalSupply.Get()
}

func (m *Mirror) CumulativeRewards(account thor.Address) (*big.Int, error) {
	return m.cumulative.Get(account)
}

func (m *Mirror) AverageStakedAmounts(account thor.Address) (*big.Int, error) {
	return m.average.Get(account)
}

// RewardPerToken is the accumulator as it would be at now. Time without any
// weight accrues nothing.
func (m *Mirror) RewardPerToken(now uint64) (*big.Int, error) {
	stored, err := m.perToken.Get()
	if err != nil {
		return nil, err
	}
	supply, err := m.totalSupply.Get()
	if err != nil {
		return nil, err
	}
	last, err := m.last.Get()
	if err != nil {
		return nil, err
	}
	if supply.Sign() == 0 || now <= last {
		return stored, nil
	}
	rate, err := m.rate.Get()
	if err != nil {
		return nil, err
	}
	emitted := rate.Mul(rate, new(big.Int).SetUint64(now-last))
	return stored.Add(stored, thor.MulDiv(emitted, thor.Precision, supply)), nil
}

func (m *Mirror) accrue(now uint64) (*big.Int, error) {
	perToken, err := m.RewardPerToken(now)
	if err != nil {
		return nil, err
	}
	if err := m.perToken.Set(perToken); err != nil {
		return nil, err
	}
	last, err := m.last.Get()
	if err != nil {
		return nil, err
	}
	if now > last {
		m.last.Set(now)
	}
	return perToken, nil
}

// settle credits account with what its mirrored balance earned, then mirrors
// its current weight.
func (m *Mirror) settle(account thor.Address, perToken *big.Int) error {
	bal, err := m.balances.Get(account)
	if err != nil {
		return err
	}
	paid, err := m.paid.Get(account)
	if err != nil {
		return err
	}
	if earned := thor.MulDiv(bal, new(big.Int).Sub(perToken, paid), thor.Precision); earned.Sign() > 0 {
		rewards, err := m.rewards.Get(account)
		if err != nil {
			return err
		}
		if err := m.rewards.Set(account, rewards.Add(rewards, earned)); err != nil {
			return err
		}
		avg, err := m.average.Get(account)
		if err != nil {
			return err
		}
		cum, err := m.cumulative.Get(account)
		if err != nil {
			return err
		}
		avg, cum = tracker.AccrueAverage(avg, cum, bal, earned)
		if err := m.average.Set(account, avg); err != nil {
			return err
		}
		if err := m.cumulative.Set(account, cum); err != nil {
			return err
		}
	}
	if err := m.paid.Set(account, perToken); err != nil {
		return err
	}

	var next *big.Int
	if !m.cfg.Holder.IsZero() && account == m.cfg.Holder {
		next, err = m.cfg.HolderToken.BalanceOf(account)
	} else {
		next, err = m.cfg.Source.StakedAmounts(account)
	}
	if err != nil {
		return err
	}
	if next.Cmp(bal) == 0 {
		return nil
	}
	supply, err := m.totalSupply.Get()
	if err != nil {
		return err
	}
	supply.Add(supply, next).Sub(supply, bal)
	if err := m.totalSupply.Set(supply); err != nil {
		return err
	}
	if next.Sign() == 0 {
		m.balances.Delete(account)
		return nil
	}
	return m.balances.Set(account, next)
}

// updateRewards accrues up to now and refreshes the holder, whose rewards are
// paid out straight away, and account if given.
func (m *Mirror) updateRewards(account *thor.Address, now uint64) error {
	perToken, err := m.accrue(now)
	if err != nil {
		return err
	}
	if holder := m.cfg.Holder; !holder.IsZero() {
		if err := m.settle(holder, perToken); err != nil {
			return err
		}
		if _, err := m.payout(holder, holder); err != nil {
			return err
		}
	}
	if account == nil || *account == m.cfg.Holder {
		return nil
	}
	return m.settle(*account, perToken)
}

// UpdateRewards accrues the stream up to now.
func (m *Mirror) UpdateRewards(now uint64) error {
	return m.ctx.Atomic("mirror.updateRewards", func() error {
		return m.updateRewards(nil, now)
	})
}

// UpdateAccount settles account and mirrors its current weight. Anyone may call
// it, the weight is read from the source.
func (m *Mirror) UpdateAccount(account thor.Address, now uint64) error {
	return m.ctx.Atomic("mirror.updateAccount", func() error {
		return m.updateRewards(&account, now)
	})
}

func (m *Mirror) payout(account, receiver thor.Address) (*big.Int, error) {
	amount, err := m.rewards.Get(account)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	m.rewards.Delete(account)
	if err := m.cfg.Token.Transfer(m.Address(), receiver, amount); err != nil {
		return nil, err
	}
	logger.Debug("mirror claimed", "account", account, "receiver", receiver, "amount", amount)
	return amount, m.ctx.Emit("Claimed", []thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(receiver)}, amount)
}

func (m *Mirror) claim(account, receiver thor.Address, now uint64) (*big.Int, error) {
	if receiver.IsZero() {
		receiver = account
	}
	if err := m.updateRewards(&account, now); err != nil {
		return nil, err
	}
	return m.payout(account, receiver)
}

// Claim pays account's rewards to receiver, or to account if receiver is zero.
func (m *Mirror) Claim(account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = m.ctx.Atomic("mirror.claim", func() error {
		amount, err = m.claim(account, receiver, now)
		return err
	})
	return
}

// ClaimForAccount claims on behalf of account. Only handlers may call it.
func (m *Mirror) ClaimForAccount(caller, account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = m.ctx.Atomic("mirror.claimForAccount", func() error {
		if err := m.auth.CheckHandler(caller); err != nil {
			return err
		}
		amount, err = m.claim(account, receiver, now)
		return err
	})
	return
}

// Claimable is what Claim would pay now.
func (m *Mirror) Claimable(account thor.Address, now uint64) (amount *big.Int, err error) {
	err = m.ctx.Simulate(func() error {
		if err := m.updateRewards(&account, now); err != nil {
			return err
		}
		amount, err = m.rewards.Get(account)
		return err
	})
	return
}

// SetRewardRate accrues at the old rate, then pays rate per second from now on.
func (m *Mirror) SetRewardRate(caller thor.Address, rate *big.Int, now uint64) error {
	return m.ctx.Atomic("mirror.setRewardRate", func() error {
		if err := m.auth.CheckHandler(caller); err != nil {
			return err
		}
		if rate.Sign() < 0 {
			return reverts.Newf(reverts.InvalidArgument, "negative reward rate %v", rate)
		}
		if _, err := m.accrue(now); err != nil {
			return err
		}
		m.last.Set(now)
		if err := m.rate.Set(rate); err != nil {
			return err
		}
		return m.ctx.Emit("SetRewardRate", nil, rate)
	})
}
