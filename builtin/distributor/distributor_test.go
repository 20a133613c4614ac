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

	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var (
	owner      = thor.BytesToAddress([]byte("owner"))
	user0      = thor.BytesToAddress([]byte("user0"))
	user1      = thor.BytesToAddress([]byte("user1"))
	poolTarget = thor.BytesToAddress([]byte("pool-tracker"))
	veTarget   = thor.BytesToAddress([]byte("ve-tracker"))
)

type manager struct {
	poolOwned, votingEscrowed *big.Int
}

func newManager() *manager {
	return &manager{new(big.Int), new(big.Int)}
}

func (m *manager) PoolOwnedRate() (*big.Int, error)      { return m.poolOwned, nil }
func (m *manager) VotingEscrowedRate() (*big.Int, error) { return m.votingEscrowed, nil }

// milli returns n/1000 scaled to 18 decimals.
func milli(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e15))
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func newState(t *testing.T) *state.State {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return state.New(db, nil)
}

func newToken(t *testing.T, st *state.State, symbol string) *token.Token {
	tk := token.New(solidity.NewContext(thor.BytesToAddress([]byte(symbol)), st), symbol, owner)
	require.NoError(t, tk.SetMinter(owner, owner, true))
	return tk
}

func balanceOf(t *testing.T, tk *token.Token, addr thor.Address) *big.Int {
	b, err := tk.BalanceOf(addr)
	require.NoError(t, err)
	return b
}

func closeTo(t *testing.T, want, got *big.Int, eps int64) {
	t.Helper()
	diff := new(big.Int).Sub(want, got)
	assert.True(t, diff.CmpAbs(big.NewInt(eps)) <= 0, "want %v got %v", want, got)
}

func TestFeeDistribution(t *testing.T) {
	tests := []struct {
		name                string
		hp, ep, amount      *big.Int
		holder, extra, dust *big.Int
	}{
		{"0.7/0.3 one token", milli(700), milli(300), thor.Ether(1), milli(700), milli(300), big.NewInt(0)},
		{"0.7/0.3 one wei", milli(700), milli(300), big.NewInt(1), big.NewInt(0), big.NewInt(0), big.NewInt(1)},
		{"0.7/0.3 one token and a wei", milli(700), milli(300), new(big.Int).Add(thor.Ether(1), big.NewInt(1)), milli(700), milli(300), big.NewInt(1)},
		{"0.85/0.15 one token", milli(850), milli(150), thor.Ether(1), milli(850), milli(150), big.NewInt(0)},
		{"0.85/0.15 one wei", milli(850), milli(150), big.NewInt(1), big.NewInt(0), big.NewInt(0), big.NewInt(1)},
		{
			"0.85/0.15 one token less a wei", milli(850), milli(150), new(big.Int).Sub(thor.Ether(1), big.NewInt(1)),
			mustBig("849999999999999999"), mustBig("149999999999999999"), big.NewInt(1),
		},
		{"holders only", thor.Precision, big.NewInt(0), thor.Ether(5), thor.Ether(5), big.NewInt(0), big.NewInt(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holder, extra, dust := FeeDistribution(tt.amount, tt.hp, tt.ep)
			assert.Equal(t, tt.holder.String(), holder.String())
			assert.Equal(t, tt.extra.String(), extra.String())
			assert.Equal(t, tt.dust.String(), dust.String())
		})
	}
}
