// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vester

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var (
	owner = thor.BytesToAddress([]byte("owner"))
	user0 = thor.BytesToAddress([]byte("user0"))
)

const (
	day364 = 364 * thor.Day
	year   = thor.Year
)

type source struct {
	cumulative, average map[thor.Address]*big.Int
}

func (s *source) CumulativeRewards(account thor.Address) (*big.Int, error) {
	return value(s.cumulative[account]), nil
}

func (s *source) AverageStakedAmounts(account thor.Address) (*big.Int, error) {
	return value(s.average[account]), nil
}

func value(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

type fixture struct {
	mux, esmux, pair *token.Token
	src              *source
	vester           *Vester
}

func newFixture(t *testing.T, withPair, limitVolume bool) *fixture {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db, nil)

	newToken := func(symbol string) *token.Token {
		tk := token.New(solidity.NewContext(thor.BytesToAddress([]byte(symbol)), st), symbol, owner)
		require.NoError(t, tk.SetMinter(owner, owner, true))
		return tk
	}
	f := &fixture{
		mux:   newToken("MUX"),
		esmux: newToken("esMUX"),
		src: &source{
			cumulative: map[thor.Address]*big.Int{user0: thor.Ether(200)},
			average:    map[thor.Address]*big.Int{user0: thor.Ether(1000)},
		},
	}
	cfg := Config{
		VestingDuration: 4 * year,
		EscrowedToken:   f.esmux,
		ClaimableToken:  f.mux,
		Source:          f.src,
		LimitVolume:     limitVolume,
	}
	if withPair {
		f.pair = newToken("PAIR")
		cfg.PairToken = f.pair
	}
	f.vester, err = New(solidity.NewContext(thor.BytesToAddress([]byte("vMUX")), st), owner, cfg)
	require.NoError(t, err)

	require.NoError(t, f.mux.Mint(owner, f.vester.Address(), thor.Ether(1000000)))
	require.NoError(t, f.esmux.Mint(owner, user0, thor.Ether(1000)))
	require.NoError(t, f.esmux.Approve(user0, f.vester.Address(), thor.Ether(1000)))
	if withPair {
		require.NoError(t, f.pair.Mint(owner, user0, thor.Ether(2000)))
		require.NoError(t, f.pair.Approve(user0, f.vester.Address(), thor.Ether(2000)))
	}
	return f
}

// ether parses a decimal token amount.
func ether(s string) string {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic(s)
	}
	r.Mul(r, new(big.Rat).SetInt(thor.Precision))
	return new(big.Int).Quo(r.Num(), r.Denom()).String()
}

type view func(thor.Address) (*big.Int, error)

func get(t *testing.T, fn view) string {
	t.Helper()
	v, err := fn(user0)
	require.NoError(t, err)
	return v.String()
}

func (f *fixture) claimable(t *testing.T, now uint64) string {
	t.Helper()
	v, err := f.vester.Claimable(user0, now)
	require.NoError(t, err)
	return v.String()
}

func (f *fixture) maxVestable(t *testing.T, now uint64) string {
	t.Helper()
	v, err := f.vester.GetMaxVestableAmount(user0, now)
	require.NoError(t, err)
	return v.String()
}

func balanceOf(t *testing.T, tk *token.Token, addr thor.Address) string {
	t.Helper()
	v, err := tk.BalanceOf(addr)
	require.NoError(t, err)
	return v.String()
}

func TestVestWithoutPair(t *testing.T) {
	f := newFixture(t, false, false)

	assert.Equal(t, ether("200"), f.maxVestable(t, 0))
	assert.Equal(t, ether("1000"), get(t, f.vester.GetCombinedAverageStakedAmount))

	now := day364
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))
	assert.Equal(t, ether("100"), get(t, f.vester.GetTotalVested))
	assert.Equal(t, ether("100"), get(t, f.vester.BalanceOf))
	assert.Equal(t, ether("100"), get(t, f.vester.GetVestedAmount))
	assert.Equal(t, "0", f.claimable(t, now))

	now = day364 + year
	assert.Equal(t, ether("100"), get(t, f.vester.GetTotalVested))
	assert.Equal(t, ether("100"), get(t, f.vester.BalanceOf))
	assert.Equal(t, ether("25"), f.claimable(t, now))

	_, err := f.vester.Claim(user0, thor.Address{}, now)
	require.NoError(t, err)
	assert.Equal(t, ether("100"), get(t, f.vester.GetTotalVested))
	assert.Equal(t, ether("75"), get(t, f.vester.BalanceOf))
	assert.Equal(t, "0", f.claimable(t, now))
	assert.Equal(t, ether("25"), balanceOf(t, f.mux, user0))
	// vested escrow is burned
	assert.Equal(t, ether("75"), balanceOf(t, f.esmux, f.vester.Address()))

	now = day364 + 4*year
	require.NoError(t, f.vester.Withdraw(user0, now))
	assert.Equal(t, "0", get(t, f.vester.GetTotalVested))
	assert.Equal(t, "0", get(t, f.vester.BalanceOf))
	assert.Equal(t, "0", get(t, f.vester.GetVestedAmount))
	assert.Equal(t, "0", f.claimable(t, now))
	assert.Equal(t, ether("100"), balanceOf(t, f.mux, user0))
	assert.Equal(t, ether("900"), balanceOf(t, f.esmux, user0))
}

func TestVestWithPair(t *testing.T) {
	f := newFixture(t, true, false)

	now := day364
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))
	assert.Equal(t, ether("100"), get(t, f.vester.GetTotalVested))
	assert.Equal(t, "0", f.claimable(t, now))
	// 100 / 200 * 1000
	assert.Equal(t, ether("500"), get(t, f.vester.PairAmounts))

	now = day364 + year
	f.src.average[user0] = thor.Ether(1500)
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))
	assert.Equal(t, ether("200"), get(t, f.vester.GetTotalVested))
	assert.Equal(t, ether("175"), get(t, f.vester.BalanceOf))
	assert.Equal(t, ether("25"), f.claimable(t, now))
	// 175 / 200 * 1500
	assert.Equal(t, ether("1312.5"), get(t, f.vester.PairAmounts))
	assert.Equal(t, ether("687.5"), balanceOf(t, f.pair, user0))

	_, err := f.vester.Claim(user0, thor.Address{}, now)
	require.NoError(t, err)
	assert.Equal(t, ether("200"), get(t, f.vester.GetTotalVested))
	assert.Equal(t, ether("175"), get(t, f.vester.BalanceOf))
	assert.Equal(t, "0", f.claimable(t, now))
	assert.Equal(t, ether("25"), balanceOf(t, f.mux, user0))
	assert.Equal(t, ether("1312.5"), get(t, f.vester.PairAmounts))

	now = day364 + 5*year
	require.NoError(t, f.vester.Withdraw(user0, now))
	assert.Equal(t, "0", get(t, f.vester.GetTotalVested))
	assert.Equal(t, "0", get(t, f.vester.BalanceOf))
	assert.Equal(t, "0", f.claimable(t, now))
	assert.Equal(t, ether("200"), balanceOf(t, f.mux, user0))
	assert.Equal(t, ether("2000"), balanceOf(t, f.pair, user0))
}

func TestVestLimitVolume(t *testing.T) {
	f := newFixture(t, false, true)

	assert.Equal(t, ether("200"), f.maxVestable(t, 0))

	now := day364
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))
	assert.Equal(t, ether("200"), f.maxVestable(t, now))

	now = day364 + year
	assert.Equal(t, ether("175"), f.maxVestable(t, now))
	_, err := f.vester.Claim(user0, thor.Address{}, now)
	require.NoError(t, err)
	assert.Equal(t, ether("175"), f.maxVestable(t, now))

	now = day364 + 2*year
	assert.Equal(t, ether("150"), f.maxVestable(t, now))
	require.NoError(t, f.vester.Withdraw(user0, now))
	assert.Equal(t, ether("50"), balanceOf(t, f.mux, user0))
	assert.Equal(t, ether("150"), f.maxVestable(t, now))
	assert.Equal(t, ether("50"), get(t, f.vester.VestedVolume))

	now = day364 + 3*year
	assert.Equal(t, "0", f.claimable(t, now))
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))
	assert.Equal(t, "0", f.claimable(t, now))

	now = day364 + 4*year
	assert.Equal(t, ether("25"), f.claimable(t, now))

	err = f.vester.Deposit(user0, thor.Ether(51), now)
	assert.True(t, reverts.IsKind(err, reverts.MaxVestableExceeded), "got %v", err)
	_, err = f.vester.Claim(user0, thor.Address{}, now)
	require.NoError(t, err)

	assert.Equal(t, ether("125"), f.maxVestable(t, now))
	assert.Equal(t, ether("100"), get(t, f.vester.GetTotalVested))
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(25), now))
	assert.Equal(t, ether("125"), f.maxVestable(t, now))
}

func TestVestLimitVolumeRaisedCap(t *testing.T) {
	f := newFixture(t, false, true)

	now := day364
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))
	assert.Equal(t, ether("200"), f.maxVestable(t, now))

	now = day364 + 3*year
	assert.Equal(t, ether("75"), f.claimable(t, now))
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(100), now))

	f.src.cumulative[user0] = thor.Ether(400)
	require.NoError(t, f.vester.Deposit(user0, thor.Ether(200), now))

	require.NoError(t, f.vester.Withdraw(user0, now))
	assert.Equal(t, "0", f.claimable(t, now))
	assert.Equal(t, "0", get(t, f.vester.BalanceOf))
	assert.Equal(t, ether("325"), f.maxVestable(t, now))
}

func TestVesterErrors(t *testing.T) {
	f := newFixture(t, false, false)
	router := thor.BytesToAddress([]byte("router"))

	assert.True(t, reverts.IsKind(f.vester.Deposit(user0, big.NewInt(0), 0), reverts.InvalidArgument))
	assert.True(t, reverts.IsKind(f.vester.Deposit(user0, thor.Ether(1001), 0), reverts.InsufficientBalance))
	assert.True(t, reverts.IsKind(f.vester.Withdraw(user0, 0), reverts.InvalidArgument))
	assert.True(t, reverts.IsKind(f.vester.DepositForAccount(router, user0, thor.Ether(1), 0), reverts.Unauthorized))

	require.NoError(t, f.vester.Authority().SetHandler(owner, router, true))
	require.NoError(t, f.vester.DepositForAccount(router, user0, thor.Ether(100), 0))

	// drain the vester so the payout cannot be covered
	require.NoError(t, f.mux.Transfer(f.vester.Address(), owner, thor.Ether(1000000)))
	_, err := f.vester.ClaimForAccount(router, user0, router, year)
	assert.True(t, reverts.IsKind(err, reverts.InsufficientBalance))

	require.NoError(t, f.mux.Mint(owner, f.vester.Address(), thor.Ether(25)))
	claimed, err := f.vester.ClaimForAccount(router, user0, router, year)
	require.NoError(t, err)
	assert.Equal(t, ether("25"), claimed.String())
	assert.Equal(t, ether("25"), balanceOf(t, f.mux, router))
}

func TestNewRejectsZeroDuration(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	st := state.New(db, nil)

	_, err = New(solidity.NewContext(thor.BytesToAddress([]byte("vMUX")), st), owner, Config{
		EscrowedToken:  token.New(solidity.NewContext(thor.BytesToAddress([]byte("esMUX")), st), "esMUX", owner),
		ClaimableToken: token.New(solidity.NewContext(thor.BytesToAddress([]byte("MUX")), st), "MUX", owner),
		Source:         &source{},
	})
	assert.True(t, reverts.IsKind(err, reverts.InvalidArgument))
}
