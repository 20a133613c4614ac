// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var (
	owner  = thor.BytesToAddress([]byte("owner"))
	minter = thor.BytesToAddress([]byte("minter"))
	alice  = thor.BytesToAddress([]byte("alice"))
	bob    = thor.BytesToAddress([]byte("bob"))
)

func newToken(t *testing.T) *Token {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db, nil)
	tk := New(solidity.NewContext(thor.BytesToAddress([]byte("mux")), st), "MUX", owner)
	require.NoError(t, tk.SetMinter(owner, minter, true))
	return tk
}

func balanceOf(t *testing.T, tk *Token, addr thor.Address) string {
	bal, err := tk.BalanceOf(addr)
	require.NoError(t, err)
	return bal.String()
}

func TestMintBurn(t *testing.T) {
	tk := newToken(t)

	err := tk.Mint(alice, alice, thor.Ether(1))
	assert.True(t, reverts.IsKind(err, reverts.Unauthorized))

	require.NoError(t, tk.Mint(minter, alice, thor.Ether(100)))
	assert.Equal(t, thor.Ether(100).String(), balanceOf(t, tk, alice))

	require.NoError(t, tk.Burn(alice, thor.Ether(40)))
	supply, err := tk.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(60).String(), supply.String())

	err = tk.Burn(alice, thor.Ether(61))
	assert.True(t, reverts.IsKind(err, reverts.InsufficientBalance))

	err = tk.SetMinter(minter, alice, true)
	assert.True(t, reverts.IsKind(err, reverts.Unauthorized))

	require.NoError(t, tk.SetMinter(owner, minter, false))
	ok, err := tk.IsMinter(minter)
	require.NoError(t, err)
	assert.False(t, ok)

	// the hosting component issues its own token
	require.NoError(t, tk.Mint(tk.Address(), bob, thor.Ether(1)))
	assert.Equal(t, thor.Ether(1).String(), balanceOf(t, tk, bob))
}

func TestTransfer(t *testing.T) {
	tk := newToken(t)
	require.NoError(t, tk.Mint(minter, alice, big.NewInt(100)))

	require.NoError(t, tk.Transfer(alice, bob, big.NewInt(30)))
	assert.Equal(t, "70", balanceOf(t, tk, alice))
	assert.Equal(t, "30", balanceOf(t, tk, bob))

	err := tk.Transfer(alice, bob, big.NewInt(71))
	assert.True(t, reverts.IsKind(err, reverts.InsufficientBalance))
	assert.Equal(t, "70", balanceOf(t, tk, alice))

	err = tk.Transfer(alice, bob, big.NewInt(-1))
	assert.True(t, reverts.IsKind(err, reverts.InvalidArgument))

	require.NoError(t, tk.Transfer(alice, bob, new(big.Int)))
	require.NoError(t, tk.Transfer(alice, alice, big.NewInt(70)))
	assert.Equal(t, "70", balanceOf(t, tk, alice))
}

func TestTransferFrom(t *testing.T) {
	tk := newToken(t)
	spender := thor.BytesToAddress([]byte("escrow"))
	require.NoError(t, tk.Mint(minter, alice, big.NewInt(100)))

	err := tk.TransferFrom(spender, alice, spender, big.NewInt(10))
	assert.True(t, reverts.IsKind(err, reverts.InsufficientBalance))

	require.NoError(t, tk.Approve(alice, spender, big.NewInt(50)))
	require.NoError(t, tk.TransferFrom(spender, alice, spender, big.NewInt(20)))

	allowance, err := tk.Allowance(alice, spender)
	require.NoError(t, err)
	assert.Equal(t, "30", allowance.String())
	assert.Equal(t, "80", balanceOf(t, tk, alice))
	assert.Equal(t, "20", balanceOf(t, tk, spender))

	// self transfer needs no allowance
	require.NoError(t, tk.TransferFrom(alice, alice, bob, big.NewInt(80)))
	assert.Equal(t, "0", balanceOf(t, tk, alice))

	// failed transfer keeps the allowance
	err = tk.TransferFrom(spender, alice, spender, big.NewInt(1))
	assert.True(t, reverts.IsKind(err, reverts.InsufficientBalance))
	allowance, err = tk.Allowance(alice, spender)
	require.NoError(t, err)
	assert.Equal(t, "30", allowance.String())
}
