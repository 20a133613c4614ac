// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vester

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "vester")

var (
	positionsSlot    = thor.BytesToBytes32([]byte("positions"))
	vestedVolumeSlot = thor.BytesToBytes32([]byte("vested-volume"))
)

// Source caps what an account may vest, usually a reward tracker.
type Source interface {
	CumulativeRewards(account thor.Address) (*big.Int, error)
	AverageStakedAmounts(account thor.Address) (*big.Int, error)
}

// PairToken is locked alongside escrowed deposits. Pool tracker shares qualify
// as well as plain tokens.
type PairToken interface {
	Address() thor.Address
	TransferFrom(spender, from, to thor.Address, amount *big.Int) error
	Transfer(from, to thor.Address, amount *big.Int) error
}

// Config wires a vester.
type Config struct {
	VestingDuration uint64
	// EscrowedToken is deposited and burned as it vests.
	EscrowedToken *token.Token
	// PairToken, if set, must be locked alongside the escrowed token.
	PairToken PairToken
	// ClaimableToken is paid out from the vester's own balance.
	ClaimableToken *token.Token
	Source         Source
	// LimitVolume makes vested amounts count against the cap for good.
	LimitVolume bool
}

// Position is the vesting state of an account.
type Position struct {
	Balance         *big.Int // escrowed tokens not vested yet
	CumulativeClaim *big.Int // vested since the position opened
	Claimed         *big.Int // paid out of CumulativeClaim
	PairAmount      *big.Int
	LastVestingTime uint64
}

func (p *Position) normalize() {
	for _, v := range []**big.Int{&p.Balance, &p.CumulativeClaim, &p.Claimed, &p.PairAmount} {
		if *v == nil {
			*v = new(big.Int)
		}
	}
}

func (p *Position) isEmpty() bool {
	return p.Balance.Sign() == 0 && p.CumulativeClaim.Sign() == 0 && p.Claimed.Sign() == 0 &&
		p.PairAmount.Sign() == 0 && p.LastVestingTime == 0
}

// Vester releases escrowed tokens linearly over VestingDuration into ClaimableToken.
type Vester struct {
	ctx          *solidity.Context
	cfg          Config
	auth         *authority.Authority
	positions    *solidity.Mapping[thor.Address, *Position]
	vestedVolume *solidity.Mapping[thor.Address, *big.Int]
}

// New binds a vester to ctx. The vesting duration must be positive.
func New(ctx *solidity.Context, owner thor.Address, cfg Config) (*Vester, error) {
	if cfg.VestingDuration == 0 {
		return nil, reverts.New(reverts.InvalidArgument, "zero vesting duration")
	}
	return &Vester{
		ctx:          ctx,
		cfg:          cfg,
		auth:         authority.New(ctx, owner),
		positions:    solidity.NewMapping[thor.Address, *Position](ctx, positionsSlot),
		vestedVolume: solidity.NewMapping[thor.Address, *big.Int](ctx, vestedVolumeSlot),
	}, nil
}

func (v *Vester) Address() thor.Address {
	return v.ctx.Address()
}

func (v *Vester) Authority() *authority.Authority {
	return v.auth
}

func (v *Vester) Position(account thor.Address) (*Position, error) {
	p, err := v.positions.Get(account)
	if err != nil {
		return nil, err
	}
	p.normalize()
	return p, nil
}

func (v *Vester) setPosition(account thor.Address, p *Position) error {
	if p.isEmpty() {
		v.positions.Delete(account)
		return nil
	}
	return v.positions.Set(account, p)
}

func (v *Vester) BalanceOf(account thor.Address) (*big.Int, error) {
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	return p.Balance, nil
}

func (v *Vester) PairAmounts(account thor.Address) (*big.Int, error) {
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	return p.PairAmount, nil
}

func (v *Vester) ClaimedAmounts(account thor.Address) (*big.Int, error) {
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	return p.Claimed, nil
}

func (v *Vester) CumulativeClaimAmounts(account thor.Address) (*big.Int, error) {
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	return p.CumulativeClaim, nil
}

// VestedVolume is everything account ever vested. Withdrawals keep it.
func (v *Vester) VestedVolume(account thor.Address) (*big.Int, error) {
	return v.vestedVolume.Get(account)
}

// GetTotalVested is the escrowed amount the position was funded with and has not withdrawn.
func (v *Vester) GetTotalVested(account thor.Address) (*big.Int, error) {
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	return p.Balance.Add(p.Balance, p.CumulativeClaim), nil
}

func (v *Vester) GetVestedAmount(account thor.Address) (*big.Int, error) {
	return v.GetTotalVested(account)
}

func (v *Vester) GetCombinedAverageStakedAmount(account thor.Address) (*big.Int, error) {
	return v.cfg.Source.AverageStakedAmounts(account)
}

// GetPairAmount is the pair token lock required to vest esAmount.
func (v *Vester) GetPairAmount(account thor.Address, esAmount *big.Int) (*big.Int, error) {
	cum, err := v.cfg.Source.CumulativeRewards(account)
	if err != nil {
		return nil, err
	}
	if cum.Sign() == 0 {
		return new(big.Int), nil
	}
	avg, err := v.cfg.Source.AverageStakedAmounts(account)
	if err != nil {
		return nil, err
	}
	return thor.MulDiv(esAmount, avg, cum), nil
}

// nextClaimable is what vests between the last vesting time and now.
func (v *Vester) nextClaimable(p *Position, now uint64) *big.Int {
	if now <= p.LastVestingTime || p.Balance.Sign() == 0 {
		return new(big.Int)
	}
	vested := new(big.Int).Add(p.Balance, p.CumulativeClaim)
	next := thor.MulDiv(vested, new(big.Int).SetUint64(now-p.LastVestingTime), new(big.Int).SetUint64(v.cfg.VestingDuration))
	return thor.Min(next, p.Balance)
}

// Claimable is the vested amount not paid yet.
func (v *Vester) Claimable(account thor.Address, now uint64) (*big.Int, error) {
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Sub(p.CumulativeClaim, p.Claimed)
	return amount.Add(amount, v.nextClaimable(p, now)), nil
}

// GetMaxVestableAmount caps the balance account may vest. With volume limiting,
// what already vested, or vests by now, no longer counts as capacity.
func (v *Vester) GetMaxVestableAmount(account thor.Address, now uint64) (*big.Int, error) {
	cum, err := v.cfg.Source.CumulativeRewards(account)
	if err != nil {
		return nil, err
	}
	if !v.cfg.LimitVolume {
		return cum, nil
	}
	volume, err := v.vestedVolume.Get(account)
	if err != nil {
		return nil, err
	}
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	used := new(big.Int).Add(volume, v.nextClaimable(p, now))
	return thor.SubFloor(cum, used), nil
}

// updateVesting moves what vested by now out of the balance and burns it.
func (v *Vester) updateVesting(account thor.Address, p *Position, now uint64) error {
	amount := v.nextClaimable(p, now)
	p.LastVestingTime = now
	if amount.Sign() == 0 {
		return nil
	}
	p.Balance.Sub(p.Balance, amount)
	p.CumulativeClaim.Add(p.CumulativeClaim, amount)
	volume, err := v.vestedVolume.Get(account)
	if err != nil {
		return err
	}
	if err := v.vestedVolume.Set(account, volume.Add(volume, amount)); err != nil {
		return err
	}
	if err := v.cfg.EscrowedToken.Burn(v.Address(), amount); err != nil {
		return err
	}
	return v.ctx.Emit("Vested", []thor.Bytes32{solidity.AddressTopic(account)}, amount)
}

// Deposit starts vesting amount of the escrowed token held by account.
func (v *Vester) Deposit(account thor.Address, amount *big.Int, now uint64) error {
	return v.ctx.Atomic("vester.deposit", func() error {
		return v.deposit(account, amount, now)
	})
}

// DepositForAccount deposits account's tokens on its behalf. Only handlers may call it.
func (v *Vester) DepositForAccount(caller, account thor.Address, amount *big.Int, now uint64) error {
	return v.ctx.Atomic("vester.depositForAccount", func() error {
		if err := v.auth.CheckHandler(caller); err != nil {
			return err
		}
		return v.deposit(account, amount, now)
	})
}

func (v *Vester) deposit(account thor.Address, amount *big.Int, now uint64) error {
	if amount.Sign() <= 0 {
		return reverts.New(reverts.InvalidArgument, "zero amount")
	}
	p, err := v.Position(account)
	if err != nil {
		return err
	}
	if err := v.updateVesting(account, p, now); err != nil {
		return err
	}
	if err := v.cfg.EscrowedToken.TransferFrom(v.Address(), account, v.Address(), amount); err != nil {
		return err
	}
	p.Balance.Add(p.Balance, amount)

	if v.cfg.PairToken != nil {
		next, err := v.GetPairAmount(account, p.Balance)
		if err != nil {
			return err
		}
		if next.Cmp(p.PairAmount) > 0 {
			diff := new(big.Int).Sub(next, p.PairAmount)
			if err := v.cfg.PairToken.TransferFrom(v.Address(), account, v.Address(), diff); err != nil {
				return err
			}
			p.PairAmount = next
		}
	}
	if err := v.setPosition(account, p); err != nil {
		return err
	}

	if v.cfg.LimitVolume {
		limit, err := v.GetMaxVestableAmount(account, now)
		if err != nil {
			return err
		}
		if p.Balance.Cmp(limit) > 0 {
			return reverts.Newf(reverts.MaxVestableExceeded, "max vestable amount exceeded: %v > %v", p.Balance, limit)
		}
	}
	logger.Debug("deposit", "account", account, "amount", amount, "balance", p.Balance)
	return v.ctx.Emit("Deposit", []thor.Bytes32{solidity.AddressTopic(account)}, amount)
}

// Claim pays account's vested tokens to receiver, or to account if receiver is zero.
func (v *Vester) Claim(account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = v.ctx.Atomic("vester.claim", func() error {
		amount, err = v.claim(account, receiver, now)
		return err
	})
	return
}

// ClaimForAccount claims on behalf of account. Only handlers may call it.
func (v *Vester) ClaimForAccount(caller, account, receiver thor.Address, now uint64) (amount *big.Int, err error) {
	err = v.ctx.Atomic("vester.claimForAccount", func() error {
		if err := v.auth.CheckHandler(caller); err != nil {
			return err
		}
		amount, err = v.claim(account, receiver, now)
		return err
	})
	return
}

func (v *Vester) claim(account, receiver thor.Address, now uint64) (*big.Int, error) {
	if receiver.IsZero() {
		receiver = account
	}
	p, err := v.Position(account)
	if err != nil {
		return nil, err
	}
	if err := v.updateVesting(account, p, now); err != nil {
		return nil, err
	}
	amount := new(big.Int).Sub(p.CumulativeClaim, p.Claimed)
	p.Claimed.Add(p.Claimed, amount)
	if err := v.setPosition(account, p); err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := v.cfg.ClaimableToken.Transfer(v.Address(), receiver, amount); err != nil {
		return nil, err
	}
	logger.Debug("claim", "account", account, "receiver", receiver, "amount", amount)
	return amount, v.ctx.Emit("Claim", []thor.Bytes32{solidity.AddressTopic(account), solidity.AddressTopic(receiver)}, amount)
}

// Withdraw claims what vested, then hands back the unvested balance and the pair lock.
func (v *Vester) Withdraw(account thor.Address, now uint64) error {
	return v.ctx.Atomic("vester.withdraw", func() error {
		if _, err := v.claim(account, account, now); err != nil {
			return err
		}
		p, err := v.Position(account)
		if err != nil {
			return err
		}
		if new(big.Int).Add(p.Balance, p.CumulativeClaim).Sign() == 0 {
			return reverts.New(reverts.InvalidArgument, "vested amount is zero")
		}
		if p.PairAmount.Sign() > 0 {
			if err := v.cfg.PairToken.Transfer(v.Address(), account, p.PairAmount); err != nil {
				return err
			}
		}
		if err := v.cfg.EscrowedToken.Transfer(v.Address(), account, p.Balance); err != nil {
			return err
		}
		v.positions.Delete(account)
		logger.Debug("withdraw", "account", account, "balance", p.Balance, "pair", p.PairAmount)
		return v.ctx.Emit("Withdraw", []thor.Bytes32{solidity.AddressTopic(account)}, p.Balance, p.PairAmount)
	})
}
