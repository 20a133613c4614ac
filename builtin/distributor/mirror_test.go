// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/thor"
)

type stakes map[thor.Address]*big.Int

func (s stakes) StakedAmounts(account thor.Address) (*big.Int, error) {
	if v, ok := s[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func TestMirror(t *testing.T) {
	st := newState(t)
	arb, mlp := newToken(t, st, "ARB"), newToken(t, st, "MLP")
	user2 := thor.BytesToAddress([]byte("user2"))
	holder := thor.BytesToAddress([]byte("liquidity"))
	source := stakes{}

	m := NewMirror(solidity.NewContext(thor.BytesToAddress([]byte("arb-distributor")), st), owner, MirrorConfig{
		Token:       arb,
		Source:      source,
		Holder:      holder,
		HolderToken: mlp,
	})
	stake := func(account thor.Address, amount *big.Int, now uint64) {
		source[account] = amount
		require.NoError(t, m.UpdateAccount(account, now))
	}
	claim := func(account thor.Address, now uint64) *big.Int {
		amount, err := m.Claim(account, thor.Address{}, now)
		require.NoError(t, err)
		return amount
	}

	stake(user0, thor.Ether(100), 0)
	stake(user1, thor.Ether(300), 0)
	bal, err := m.BalanceOf(user1)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(300).String(), bal.String())

	require.NoError(t, arb.Mint(owner, m.Address(), thor.Ether(10000)))
	err = m.SetRewardRate(user0, milli(100), 10)
	assert.True(t, reverts.IsKind(err, reverts.Unauthorized))
	err = m.SetRewardRate(owner, big.NewInt(-1), 10)
	assert.True(t, reverts.IsKind(err, reverts.InvalidArgument))
	require.NoError(t, m.SetRewardRate(owner, milli(100), 10))

	// a quarter of 0.1/s for 20s
	claimable, err := m.Claimable(user0, 30)
	require.NoError(t, err)
	assert.Equal(t, milli(500).String(), claimable.String())
	assert.Equal(t, milli(500).String(), claim(user0, 30).String())
	assert.Equal(t, milli(500).String(), balanceOf(t, arb, user0).String())

	// a new staker dilutes from its first update on
	stake(user2, thor.Ether(100), 50)
	assert.Equal(t, milli(900).String(), claim(user0, 70).String())

	// the holder weighs its token balance, and is paid on every update
	require.NoError(t, mlp.Mint(owner, holder, thor.Ether(500)))
	require.NoError(t, m.UpdateAccount(holder, 80))
	bal, err = m.BalanceOf(holder)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(500).String(), bal.String())
	claim(user0, 100)
	assert.Equal(t, thor.Ether(1).String(), balanceOf(t, arb, holder).String())

	supply, err := m.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(1000).String(), supply.String())

	_, err = m.ClaimForAccount(user0, user1, user0, 100)
	assert.True(t, reverts.IsKind(err, reverts.Unauthorized))

	// leaving stops the accrual
	stake(user1, new(big.Int), 100)
	cum, err := m.CumulativeRewards(user1)
	require.NoError(t, err)
	amount := claim(user1, 200)
	assert.Equal(t, cum.String(), amount.String())
	assert.Equal(t, "0", claim(user1, 300).String())
}
