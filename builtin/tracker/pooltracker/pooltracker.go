// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pooltracker

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/builtin/tracker"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "pooltracker")

var (
	depositTokensSlot      = thor.BytesToBytes32([]byte("deposit-tokens"))
	stakedAmountsSlot      = thor.BytesToBytes32([]byte("staked-amounts"))
	depositBalancesSlot    = thor.BytesToBytes32([]byte("deposit-balances"))
	totalDepositSupplySlot = thor.BytesToBytes32([]byte("total-deposit-supply"))
	totalStakedSlot        = thor.BytesToBytes32([]byte("total-staked"))
	cumulativePerTokenSlot = thor.BytesToBytes32([]byte("cumulative-reward-per-token"))
	accountedBalanceSlot   = thor.BytesToBytes32([]byte("accounted-balance"))
	previousCumulatedSlot  = thor.BytesToBytes32([]byte("previous-cumulated"))
	claimableRewardSlot    = thor.BytesToBytes32([]byte("claimable-reward"))
	cumulativeRewardsSlot  = thor.BytesToBytes32([]byte("cumulative-rewards"))
	averageStakedSlot      = thor.BytesToBytes32([]byte("average-staked-amounts"))
)

// DepositToken is what a pool tracker takes in: a plain token, or the shares
// of another pool tracker.
type DepositToken interface {
	Address() thor.Address
	TransferFrom(spender, from, to thor.Address, amount *big.Int) error
	Transfer(from, to thor.Address, amount *big.Int) error
}

// Listener is told after an account's staked amount changed.
type Listener interface {
	UpdateAccount(account thor.Address, now uint64) error
}

// Config wires a pool tracker. Tokens are the handles of every token that may
// become a deposit token.
type Config struct {
	// Symbol names the shares minted to stakers.
	Symbol      string
	RewardToken *token.Token
	Distributor tracker.Distributor
	Tokens      []DepositToken
}

// PoolTracker pays a distributor's stream to stakers in proportion to their
// staked amounts, through a cumulative reward-per-token accumulator.
//
// Staking mints shares one to one, unstaking burns them. Shares move only
// through handlers and keep earning for the account that staked, so another
// tracker or a vester can hold them while the staker is still paid.
type PoolTracker struct {
	ctx                *solidity.Context
	cfg                Config
	auth               *authority.Authority
	shares             *token.Token
	listener           Listener
	tokens             map[thor.Address]DepositToken
	depositTokens      *solidity.Mapping[thor.Address, bool]
	stakedAmounts      *solidity.Mapping[thor.Address, *big.Int]
	depositBalances    *solidity.Mapping[solidity.AddressPair, *big.Int]
	totalDepositSupply *solidity.Mapping[thor.Address, *big.Int]
	totalStaked        *solidity.Uint256
	cumulativePerToken *solidity.Uint256
	accountedBalance   *solidity.Uint256
	previousCumulated  *solidity.Mapping[thor.Address, *big.Int]
	claimableReward    *solidity.Mapping[thor.Address, *big.Int]
	cumulativeRewards  *solidity.Mapping[thor.Address, *big.Int]
	averageStaked      *solidity.Mapping[thor.Address, *big.Int]
}

var (
	_ tracker.Tracker = (*PoolTracker)(nil)
	_ DepositToken    = (*PoolTracker)(nil)
)

func New(ctx *solidity.Context, owner thor.Address, cfg Config) *PoolTracker {
	tokens := make(map[thor.Address]DepositToken, len(cfg.Tokens))
	for _, tk := range cfg.Tokens {
		tokens[tk.Address()] = tk
	}
	return &PoolTracker{
		ctx:                ctx,
		cfg:                cfg,
		auth:               authority.New(ctx, owner),
		shares:             token.New(ctx, cfg.Symbol, owner),
		tokens:             tokens,
		depositTokens:      solidity.NewMapping[thor.Address, bool](ctx, depositTokensSlot),
		stakedAmounts:      solidity.NewMapping[thor.Address, *big.Int](ctx, stakedAmountsSlot),
		depositBalances:    solidity.NewMapping[solidity.AddressPair, *big.Int](ctx, depositBalancesSlot),
		totalDepositSupply: solidity.NewMapping[thor.Address, *big.Int](ctx, totalDepositSupplySlot),
		totalStaked:        solidity.NewUint256(ctx, totalStakedSlot),
		cumulativePerToken: solidity.NewUint256(ctx, cumulativePerTokenSlot),
		accountedBalance:   solidity.NewUint256(ctx, accountedBalanceSlot),
		previousCumulated:  solidity.NewMapping[thor.Address, *big.Int](ctx, previousCumulatedSlot),
		claimableReward:    solidity.NewMapping[thor.Address, *big.Int](ctx, claimableRewardSlot),
		cumulativeRewards:  solidity.NewMapping[thor.Address, *big.Int](ctx, cumulativeRewardsSlot),
		averageStaked:      solidity.NewMapping[thor.Address, *big.Int](ctx, averageStakedSlot),
	}
}

func (p *PoolTracker) Address() thor.Address {
	return p.ctx.Address()
}

func (p *PoolTracker) Authority() *authority.Authority {
	return p.auth
}

// SetListener registers l to follow every stake change. It is wiring, nothing is stored.
func (p *PoolTracker) SetListener(l Listener) {
	p.listener = l
}

func (p *PoolTracker) Symbol() string {
	return p.cfg.Symbol
}

// BalanceOf returns the shares held by account.
func (p *PoolTracker) BalanceOf(account thor.Address) (*big.Int, error) {
	return p.shares.BalanceOf(account)
}

// Transfer moves shares held by from, which must be a handler.
func (p *PoolTracker) Transfer(from, to thor.Address, amount *big.Int) error {
	return p.ctx.Atomic("pooltracker.transfer", func() error {
		if err := p.auth.CheckHandler(from); err != nil {
			return err
		}
		return p.shares.Transfer(from, to, amount)
	})
}

// TransferFrom lets a handler move shares of from without an allowance.
func (p *PoolTracker) TransferFrom(spender, from, to thor.Address, amount *big.Int) error {
	return p.ctx.Atomic("pooltracker.transferFrom", func() error {
		if err := p.auth.CheckHandler(spender); err != nil {
			return err
		}
		return p.shares.Transfer(from, to, amount)
	})
}

func (p *PoolTracker) IsDepositToken(tok thor.Address) (bool, error) {
	return p.depositTokens.Get(tok)
}

func (p *PoolTracker) StakedAmounts(account thor.Address) (*big.Int, error) {
	return p.stakedAmounts.Get(account)
}

func (p *PoolTracker) DepositBalances(account, tok thor.Address) (*big.Int, error) {
	return p.depositBalances.Get(solidity.AddressPair{A: account, B: tok})
}

func (p *PoolTracker) TotalDepositSupply(tok thor.Address) (*big.Int, error) {
	return p.totalDepositSupply.Get(tok)
}

// TotalSupply is the sum of all staked amounts, which is also the share supply.
func (p *PoolTracker) TotalSupply() (*big.Int, error) {
	return p.totalStaked.Get()
}

func (p *PoolTracker) CumulativeRewardPerToken() (*big.Int, error) {
	return p.cumulativePerToken.Get()
}

func (p *PoolTracker) CumulativeRewards(account thor.Address) (*big.Int, error) {
	return p.cumulativeRewards.Get(account)
}

func (p *PoolTracker) AverageStakedAmounts(account thor.Address) (*big.Int, error) {
	return p.averageStaked.Get(account)
}

// SetDepositToken allows or disallows staking tok. Only the owner may call it.
func (p *PoolTracker) SetDepositToken(caller, tok thor.Address, allowed bool) error {
	return p.ctx.Atomic("pooltracker.setDepositToken", func() error {
		if err := p.auth.CheckOwner(caller); err != nil {
			return err
		}
		if tok == p.cfg.RewardToken.Address() {
			return reverts.New(reverts.InvalidArgument, "reward token cannot be deposited")
		}
		if _, ok := p.tokens[tok]; !ok {
			return reverts.Newf(reverts.InvalidArgument, "unknown token %v", tok)
		}
		if allowed {
			if err := p.depositTokens.Set(tok, true); err != nil {
				return err
			}
		} else {
			p.depositTokens.Delete(tok)
		}
		return p.ctx.Emit("SetDepositToken", []thor.Bytes32{solidity.AddressTopic(tok)}, allowed)
	})
}

// UpdateRewards pulls the distributor and folds new rewards into the accumulator.
func (p *PoolTracker) UpdateRewards(now uint64) error {
	return p.ctx.Atomic("pooltracker.updateRewards", func() error {
		return p.updateRewards(nil, now)
	})
}

func (p *PoolTracker) updateRewards(account *thor.Address, now uint64) error {
	supply, err := p.totalStaked.Get()
	if err != nil {
		return err
	}
	if supply.Sign() > 0 {
		if err := p.cfg.Distributor.UpdateRewards(now); err != nil {
			return err
		}
	}
	cum, err := p.cumulativePerToken.Get()
	if err != nil {
		return err
	}
	// without stakers the inflow stays unaccounted and is shared by the first ones
	if supply.Sign() > 0 {
		balance, err := p.cfg.RewardToken.BalanceOf(p.Address())
		if err != nil {
			return err
		}
		accounted, err := p.accountedBalance.Get()
		if err != nil {
			return err
		}
		delta := thor.SubFloor(balance, accounted)
		if inc := thor.MulDiv(delta, thor.Precision, supply); inc.Sign() > 0 {
			cum.Add(cum, inc)
			if err := p.cumulativePerToken.Set(cum); err != nil {
				return err
			}
			// the part of delta inc cannot express stays unaccounted for the next update
			if err := p.accountedBalance.Add(thor.MulDivUp(inc, supply, thor.Precision)); err != nil {
				return err
			}
		}
	}
	if account == nil || cum.Sign() == 0 {
		return nil
	}
	return p.settle(*account, cum)
}

// settle credits account with what its stake earned since its last settlement.
func (p *PoolTracker) settle(account thor.Address, cum *big.Int) error {
	staked, err := p.stakedAmounts.Get(account)
	if err != nil {
		return err
	}
	prev, err := p.previousCumulated.Get(account)
	if err != nil {
		return err
	}
	reward := thor.MulDiv(staked, new(big.Int).Sub(cum, prev), thor.Precision)
	if err := p.previousCumulated.Set(account, cum); err != nil {
		return err
	}
	if reward.Sign() == 0 {
		return nil
	}
	claimable, err := p.claimableReward.Get(account)
	if err != nil {
		return err
	}
	if err := p.claimableReward.Set(account, claimable.Add(claimable, reward)); err != nil {
		return err
	}
	avg, err := p.averageStaked.Get(account)
	if err != nil {
		return err
	}
	total, err := p.cumulativeRewards.Get(account)
	if err != nil {
		return err
	}
	avg, total = tracker.AccrueAverage(avg, total, staked, reward)
	if err := p.averageStaked.Set(account, avg); err != nil {
		return err
	}
	return p.cumulativeRewards.Set(account, total)
}

// Stake deposits amount of tok from account.
func (p *PoolTracker) Stake(account, tok thor.Address, amount *big.Int, now uint64) error {
	return p.ctx.Atomic("pooltracker.stake", func() error {
		return p.stake(account, account, tok, amount, now)
	})
}

// StakeForAccount stakes tokens paid by funder for account. Only handlers may call it.
func (p *PoolTracker) StakeForAccount(caller, funder, account, tok thor.Address, amount *big.Int, now uint64) error {
	return p.ctx.Atomic("pooltracker.stakeForAccount", func() error {
		if err := p.auth.CheckHandler(caller); err != nil {
			return err
		}
		return p.stake(funder, account, tok, amount, now)
	})
}

func (p *PoolTracker) depositToken(tok thor.Address) (DepositToken, error) {
	allowed, err := p.depositTokens.Get(tok)
	if err != nil {
		return nil, err
	}
	tk, ok := p.tokens[tok]
	if !allowed || !ok {
		return nil, reverts.Newf(reverts.InvalidArgument, "token %v not accepted", tok)
	}
	return tk, nil
}

func addTo[K solidity.Key](m *solidity.Mapping[K, *big.Int], key K, delta *big.Int) error {
	v, err := m.Get(key)
	if err != nil {
		return err
	}
	v.Add(v, delta)
	if v.Sign() < 0 {
		return reverts.Newf(reverts.InvalidArgument, "amount exceeds balance by %v", new(big.Int).Neg(v))
	}
	if v.Sign() == 0 {
		m.Delete(key)
		return nil
	}
	return m.Set(key, v)
}

func (p *PoolTracker) stake(funder, account, tok thor.Address, amount *big.Int, now uint64) error {
	if amount.Sign() <= 0 {
		return reverts.New(reverts.InvalidArgument, "zero amount")
	}
	tk, err := p.depositToken(tok)
	if err != nil {
		return err
	}
	if err := p.updateRewards(&account, now); err != nil {
		return err
	}
	if err := tk.TransferFrom(p.Address(), funder, p.Address(), amount); err != nil {
		return err
	}
	if err := p.move(account, tok, amount, now); err != nil {
		return err
	}
	if err := p.shares.Mint(p.Address(), account, amount); err != nil {
		return err
	}
	logger.Debug("staked", "account", account, "token", tok, "amount", amount)
	return p.ctx.Emit("Staked", []thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(tok)}, amount)
}

// move applies a signed stake change to every balance it affects.
func (p *PoolTracker) move(account, tok thor.Address, delta *big.Int, now uint64) error {
	if err := addTo(p.depositBalances, solidity.AddressPair{A: account, B: tok}, delta); err != nil {
		return err
	}
	if err := addTo(p.totalDepositSupply, tok, delta); err != nil {
		return err
	}
	if err := addTo(p.stakedAmounts, account, delta); err != nil {
		return err
	}
	supply, err := p.totalStaked.Get()
	if err != nil {
		return err
	}
	if err := p.totalStaked.Set(supply.Add(supply, delta)); err != nil {
		return err
	}
	if p.listener == nil {
		return nil
	}
	return p.listener.UpdateAccount(account, now)
}

// Unstake returns amount of tok to receiver, or to account if receiver is zero.
func (p *PoolTracker) Unstake(account, tok thor.Address, amount *big.Int, receiver thor.Address, now uint64) error {
	return p.ctx.Atomic("pooltracker.unstake", func() error {
		return p.unstake(account, tok, amount, receiver, now)
	})
}

// UnstakeForAccount unstakes on behalf of account. Only handlers may call it.
func (p *PoolTracker) UnstakeForAccount(caller, account, tok thor.Address, amount *big.Int, receiver thor.Address, now uint64) error {
	return p.ctx.Atomic("pooltracker.unstakeForAccount", func() error {
		if err := p.auth.CheckHandler(caller); err != nil {
			return err
		}
		return p.unstake(account, tok, amount, receiver, now)
	})
}

func (p *PoolTracker) unstake(account, tok thor.Address, amount *big.Int, receiver thor.Address, now uint64) error {
	if amount.Sign() <= 0 {
		return reverts.New(reverts.InvalidArgument, "zero amount")
	}
	tk, ok := p.tokens[tok]
	if !ok {
		return reverts.Newf(reverts.InvalidArgument, "unknown token %v", tok)
	}
	if receiver.IsZero() {
		receiver = account
	}
	if err := p.updateRewards(&account, now); err != nil {
		return err
	}
	if err := p.move(account, tok, new(big.Int).Neg(amount), now); err != nil {
		return err
	}
	// shares lent to a vester or another tracker must come back first
	if err := p.shares.Burn(account, amount); err != nil {
		return err
	}
	if err := tk.Transfer(p.Address(), receiver, amount); err != nil {
		return err
	}
	logger.Debug("unstaked", "account", account, "token", tok, "amount", amount)
	return p.ctx.Emit("Unstaked", []thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(tok)}, amount, receiver)
}

// Claim pays account's claimable rewards to receiver, or to account if receiver is zero.
func (p *PoolTracker) Claim(account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = p.ctx.Atomic("pooltracker.claim", func() error {
		amount, err = p.claim(account, receiver, now)
		return err
	})
	return
}

// ClaimForAccount claims on behalf of account. Only handlers may call it.
func (p *PoolTracker) ClaimForAccount(caller, account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = p.ctx.Atomic("pooltracker.claimForAccount", func() error {
		if err := p.auth.CheckHandler(caller); err != nil {
			return err
		}
		amount, err = p.claim(account, receiver, now)
		return err
	})
	return
}

// Claimable is what Claim would pay now.
func (p *PoolTracker) Claimable(account thor.Address, now uint64) (amount *big.Int, err error) {
	err = p.ctx.Simulate(func() error {
		if err := p.updateRewards(&account, now); err != nil {
			return err
		}
		amount, err = p.claimableReward.Get(account)
		return err
	})
	return
}

func (p *PoolTracker) claim(account, receiver thor.Address, now uint64) (*big.Int, error) {
	if receiver.IsZero() {
		receiver = account
	}
	if err := p.updateRewards(&account, now); err != nil {
		return nil, err
	}
	amount, err := p.claimableReward.Get(account)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	p.claimableReward.Delete(account)
	if err := p.accountedBalance.Sub(amount); err != nil {
		return nil, err
	}
	if err := p.cfg.RewardToken.Transfer(p.Address(), receiver, amount); err != nil {
		return nil, err
	}
	logger.Debug("claimed", "account", account, "receiver", receiver, "amount", amount)
	return amount, p.ctx.Emit("Claimed", []thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(receiver)}, amount)
}
