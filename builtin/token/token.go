// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/thor"
)

var (
	balancesSlot    = thor.BytesToBytes32([]byte("balances"))
	allowancesSlot  = thor.BytesToBytes32([]byte("allowances"))
	mintersSlot     = thor.BytesToBytes32([]byte("minters"))
	totalSupplySlot = thor.BytesToBytes32([]byte("total-supply"))
)

// Token is a fungible ledger with a minter role.
type Token struct {
	ctx         *solidity.Context
	symbol      string
	auth        *authority.Authority
	balances    *solidity.Mapping[thor.Address, *big.Int]
	allowances  *solidity.Mapping[solidity.AddressPair, *big.Int]
	minters     *solidity.Mapping[thor.Address, bool]
	totalSupply *solidity.Uint256
}

func New(ctx *solidity.Context, symbol string, owner thor.Address) *Token {
	return &Token{
		ctx:         ctx,
		symbol:      symbol,
		auth:        authority.New(ctx, owner),
		balances:    solidity.NewMapping[thor.Address, *big.Int](ctx, balancesSlot),
		allowances:  solidity.NewMapping[solidity.AddressPair, *big.Int](ctx, allowancesSlot),
		minters:     solidity.NewMapping[thor.Address, bool](ctx, mintersSlot),
		totalSupply: solidity.NewUint256(ctx, totalSupplySlot),
	}
}

func (t *Token) Address() thor.Address {
	return t.ctx.Address()
}

func (t *Token) Symbol() string {
	return t.symbol
}

func (t *Token) BalanceOf(addr thor.Address) (*big.Int, error) {
	return t.balances.Get(addr)
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

func (t *Token) Allowance(owner, spender thor.Address) (*big.Int, error) {
	return t.allowances.Get(solidity.AddressPair{A: owner, B: spender})
}

func (t *Token) IsMinter(addr thor.Address) (bool, error) {
	return t.minters.Get(addr)
}

func checkAmount(amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.Newf(reverts.InvalidArgument, "negative amount %v", amount)
	}
	return nil
}

func (t *Token) addBalance(addr thor.Address, amount *big.Int) error {
	bal, err := t.balances.Get(addr)
	if err != nil {
		return err
	}
	return t.balances.Set(addr, bal.Add(bal, amount))
}

func (t *Token) subBalance(addr thor.Address, amount *big.Int) error {
	bal, err := t.balances.Get(addr)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.Newf(reverts.InsufficientBalance, "%s: balance %v of %v below %v", t.symbol, bal, addr, amount)
	}
	if bal.Cmp(amount) == 0 {
		t.balances.Delete(addr)
		return nil
	}
	return t.balances.Set(addr, bal.Sub(bal, amount))
}

func (t *Token) transfer(from, to thor.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	if err := t.subBalance(from, amount); err != nil {
		return err
	}
	if err := t.addBalance(to, amount); err != nil {
		return err
	}
	return t.ctx.Emit("Transfer", []thor.Bytes32{solidity.AddressTopic(from), solidity.AddressTopic(to)}, amount)
}

// Transfer moves amount from the caller to a recipient.
func (t *Token) Transfer(from, to thor.Address, amount *big.Int) error {
	return t.ctx.Atomic("token.transfer", func() error {
		return t.transfer(from, to, amount)
	})
}

func (t *Token) Approve(owner, spender thor.Address, amount *big.Int) error {
	return t.ctx.Atomic("token.approve", func() error {
		if err := checkAmount(amount); err != nil {
			return err
		}
		if err := t.allowances.Set(solidity.AddressPair{A: owner, B: spender}, amount); err != nil {
			return err
		}
		return t.ctx.Emit("Approval", []thor.Bytes32{solidity.AddressTopic(owner), solidity.AddressTopic(spender)}, amount)
	})
}

// TransferFrom moves amount out of from on behalf of spender, consuming allowance.
// A holder moving its own tokens needs no allowance.
func (t *Token) TransferFrom(spender, from, to thor.Address, amount *big.Int) error {
	return t.ctx.Atomic("token.transferFrom", func() error {
		if err := checkAmount(amount); err != nil {
			return err
		}
		if spender != from && amount.Sign() > 0 {
			key := solidity.AddressPair{A: from, B: spender}
			allowance, err := t.allowances.Get(key)
			if err != nil {
				return err
			}
			if allowance.Cmp(amount) < 0 {
				return reverts.Newf(reverts.InsufficientBalance, "%s: allowance %v of %v below %v", t.symbol, allowance, spender, amount)
			}
			if err := t.allowances.Set(key, allowance.Sub(allowance, amount)); err != nil {
				return err
			}
		}
		return t.transfer(from, to, amount)
	})
}

// Mint creates tokens. Only minters, and the component the token lives at, may call it.
func (t *Token) Mint(caller, to thor.Address, amount *big.Int) error {
	return t.ctx.Atomic("token.mint", func() error {
		ok := caller == t.Address()
		if !ok {
			var err error
			if ok, err = t.minters.Get(caller); err != nil {
				return err
			}
		}
		if !ok {
			return reverts.Newf(reverts.Unauthorized, "%s: %v is not a minter", t.symbol, caller)
		}
		if err := checkAmount(amount); err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return nil
		}
		if err := t.totalSupply.Add(amount); err != nil {
			return err
		}
		if err := t.addBalance(to, amount); err != nil {
			return err
		}
		return t.ctx.Emit("Transfer", []thor.Bytes32{{}, solidity.AddressTopic(to)}, amount)
	})
}

// Burn destroys tokens held by holder.
func (t *Token) Burn(holder thor.Address, amount *big.Int) error {
	return t.ctx.Atomic("token.burn", func() error {
		if err := checkAmount(amount); err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return nil
		}
		if err := t.subBalance(holder, amount); err != nil {
			return err
		}
		if err := t.totalSupply.Sub(amount); err != nil {
			return err
		}
		return t.ctx.Emit("Transfer", []thor.Bytes32{solidity.AddressTopic(holder), {}}, amount)
	})
}

// SetMinter grants or revokes the minter role. Only the owner may call it.
func (t *Token) SetMinter(caller, minter thor.Address, allowed bool) error {
	return t.ctx.Atomic("token.setMinter", func() error {
		if err := t.auth.CheckOwner(caller); err != nil {
			return err
		}
		if allowed {
			if err := t.minters.Set(minter, true); err != nil {
				return err
			}
		} else {
			t.minters.Delete(minter)
		}
		return t.ctx.Emit("MinterSet", []thor.Bytes32{solidity.AddressTopic(minter)}, allowed)
	})
}
