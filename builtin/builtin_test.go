// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var (
	owner = thor.BytesToAddress([]byte("owner"))
	alice = thor.BytesToAddress([]byte("alice"))
)

func newSuite(t *testing.T) *Suite {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := DefaultConfig()
	cfg.StartTime = thor.Week
	s, err := NewSuite(state.New(db, nil), owner, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	return s
}

func closeTo(t *testing.T, want, got *big.Int) {
	t.Helper()
	diff := new(big.Int).Sub(want, got)
	assert.True(t, diff.CmpAbs(big.NewInt(1e8)) <= 0, "want %v got %v", want, got)
}

func TestInitialize(t *testing.T) {
	s := newSuite(t)

	ok, err := s.EsMUX.IsMinter(EmissionDistributorAddress)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.FeePoolTracker.IsDepositToken(MLPAddress)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.EmissionPoolTracker.IsDepositToken(FeePoolTrackerAddress)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.EmissionPoolTracker.IsDepositToken(MLPAddress)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, addr := range []thor.Address{EmissionPoolTrackerAddress, RouterAddress} {
		ok, err := s.FeePoolTracker.Authority().IsHandler(addr)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	for _, addr := range []thor.Address{RouterAddress, MlpVesterAddress} {
		ok, err := s.EmissionPoolTracker.Authority().IsHandler(addr)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	rate, err := s.FeeDistributor.PoolRewardRate()
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", rate.String())

	// the fee window accepts a single initialization
	assert.True(t, reverts.IsRevertErr(s.FeeDistributor.Initialize(owner, rate)))

	tk, ok := s.Token("WETH")
	assert.True(t, ok)
	assert.Equal(t, WETHAddress, tk.Address())
	assert.Len(t, s.Trackers(), 5)
	assert.Len(t, s.Vesters(), 2)
}

func TestNewSuiteRejectsZeroVesting(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	cfg := DefaultConfig()
	cfg.VestingDuration = 0
	_, err = NewSuite(state.New(db, nil), owner, cfg)
	assert.True(t, reverts.IsKind(err, reverts.InvalidArgument), "got %v", err)
	assert.Panics(t, func() { MustNewSuite(state.New(db, nil), owner, cfg) })
}

func TestFeeFlow(t *testing.T) {
	s := newSuite(t)
	start := thor.Week
	half := new(big.Int).Div(thor.Precision, big.NewInt(2))
	require.NoError(t, s.Params.Set(owner, thor.KeyPoolOwnedRate, half))

	require.NoError(t, s.MLP.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MLP.Approve(alice, FeePoolTrackerAddress, thor.Ether(100)))
	require.NoError(t, s.FeePoolTracker.Stake(alice, MLPAddress, thor.Ether(100), start))

	require.NoError(t, s.MUX.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MUX.Approve(alice, VeMUXAddress, thor.Ether(100)))
	require.NoError(t, s.VotingEscrow.Deposit(alice, MUXAddress, thor.Ether(100), start+4*thor.Year, start))

	require.NoError(t, s.WETH.Mint(owner, owner, thor.Ether(1000)))
	require.NoError(t, s.WETH.Approve(owner, FeeDistributorAddress, thor.Ether(1000)))
	require.NoError(t, s.FeeDistributor.NotifyReward(owner, thor.Ether(1000), start))

	// half is owned by the pool, the shared half splits evenly
	end := start + thor.Week
	claimed, err := s.FeePoolTracker.Claim(alice, thor.Address{}, end)
	require.NoError(t, err)
	closeTo(t, thor.Ether(250), claimed)
	sink, err := s.FeeDistributor.Sink()
	require.NoError(t, err)
	closeTo(t, thor.Ether(500), sink)

	// the epoch in progress pays nothing yet
	pending, err := s.FeeVeTracker.Claimable(alice, start+3*thor.Day)
	require.NoError(t, err)
	assert.Equal(t, "0", pending.String())

	claimed, err = s.FeeVeTracker.Claim(alice, thor.Address{}, end)
	require.NoError(t, err)
	closeTo(t, thor.Ether(250), claimed)

	bal, err := s.WETH.BalanceOf(alice)
	require.NoError(t, err)
	closeTo(t, thor.Ether(500), bal)
}

func TestEmissionAndVesting(t *testing.T) {
	s := newSuite(t)
	start := thor.Week
	half := new(big.Int).Div(thor.Precision, big.NewInt(2))
	require.NoError(t, s.Params.Set(owner, thor.KeyVotingEscrowedRate, half))

	require.NoError(t, s.MLP.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MLP.Approve(alice, FeePoolTrackerAddress, thor.Ether(100)))
	require.NoError(t, s.StakeMlp(alice, thor.Ether(100), start))
	require.NoError(t, s.EmissionDistributor.SetRewardRate(owner, big.NewInt(1e17), start))

	now := start + thor.Day
	claimed, err := s.EmissionPoolTracker.Claim(alice, thor.Address{}, now)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(4320).String(), claimed.String())

	maxVestable, err := s.MlpVester.GetMaxVestableAmount(alice, now)
	require.NoError(t, err)
	assert.Equal(t, claimed.String(), maxVestable.String())

	require.NoError(t, s.MUX.Mint(owner, MlpVesterAddress, thor.Ether(4320)))
	require.NoError(t, s.EsMUX.Approve(alice, MlpVesterAddress, claimed))
	require.NoError(t, s.MlpVester.Deposit(alice, claimed, now))

	// vesting locks the sMLP the rewards were earned with
	pair, err := s.MlpVester.PairAmounts(alice)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(100).String(), pair.String())
	shares, err := s.EmissionPoolTracker.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, "0", shares.String())
	err = s.UnstakeMlp(alice, thor.Ether(100), now)
	assert.True(t, reverts.IsKind(err, reverts.InsufficientBalance))

	vested, err := s.MlpVester.Claim(alice, thor.Address{}, now+thor.Year)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(1080).String(), vested.String())

	bal, err := s.MUX.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, vested.String(), bal.String())
	burnt, err := s.EsMUX.BalanceOf(MlpVesterAddress)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(3240).String(), burnt.String())
}

func TestStakeMlpEarnsEveryReward(t *testing.T) {
	s := newSuite(t)
	start := thor.Week
	end := start + thor.Day
	half := new(big.Int).Div(thor.Precision, big.NewInt(2))
	require.NoError(t, s.Params.Set(owner, thor.KeyPoolOwnedRate, half))
	require.NoError(t, s.Params.Set(owner, thor.KeyVotingEscrowedRate, half))

	require.NoError(t, s.MLP.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MLP.Approve(alice, FeePoolTrackerAddress, thor.Ether(100)))
	err := s.StakeMlp(alice, thor.Ether(101), start)
	assert.True(t, reverts.IsRevertErr(err))
	require.NoError(t, s.StakeMlp(alice, thor.Ether(100), start))

	// fMLP sits in the emission tracker, alice holds sMLP
	for _, c := range []struct {
		name string
		get  func() (*big.Int, error)
		want *big.Int
	}{
		{"fee staked", func() (*big.Int, error) { return s.FeePoolTracker.StakedAmounts(alice) }, thor.Ether(100)},
		{"emission staked", func() (*big.Int, error) { return s.EmissionPoolTracker.StakedAmounts(alice) }, thor.Ether(100)},
		{"fMLP held", func() (*big.Int, error) { return s.FeePoolTracker.BalanceOf(alice) }, new(big.Int)},
		{"fMLP escrowed", func() (*big.Int, error) { return s.FeePoolTracker.BalanceOf(EmissionPoolTrackerAddress) }, thor.Ether(100)},
		{"sMLP held", func() (*big.Int, error) { return s.EmissionPoolTracker.BalanceOf(alice) }, thor.Ether(100)},
		{"arb weight", func() (*big.Int, error) { return s.ArbDistributor.BalanceOf(alice) }, thor.Ether(100)},
	} {
		got, err := c.get()
		require.NoError(t, err)
		assert.Equal(t, c.want.String(), got.String(), c.name)
	}

	require.NoError(t, s.MUX.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MUX.Approve(alice, VeMUXAddress, thor.Ether(100)))
	require.NoError(t, s.VotingEscrow.Deposit(alice, MUXAddress, thor.Ether(100), start+4*thor.Year, start))

	require.NoError(t, s.WETH.Mint(owner, owner, thor.Ether(1000)))
	require.NoError(t, s.WETH.Approve(owner, FeeDistributorAddress, thor.Ether(1000)))
	require.NoError(t, s.FeeDistributor.NotifyReward(owner, thor.Ether(1000), start))
	require.NoError(t, s.EmissionDistributor.SetRewardRate(owner, big.NewInt(1e17), start))
	require.NoError(t, s.ARB.Mint(owner, ArbDistributorAddress, thor.Ether(1000)))
	require.NoError(t, s.ArbDistributor.SetRewardRate(owner, big.NewInt(1e15), start))

	esMUX, err := s.EmissionPoolTracker.Claim(alice, thor.Address{}, end)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(4320).String(), esMUX.String())
	arb, err := s.ArbDistributor.Claim(alice, thor.Address{}, end)
	require.NoError(t, err)
	assert.Equal(t, "86400000000000000000", arb.String())
	weth, err := s.FeePoolTracker.Claim(alice, thor.Address{}, start+thor.Week)
	require.NoError(t, err)
	closeTo(t, thor.Ether(250), weth)

	require.NoError(t, s.UnstakeMlp(alice, thor.Ether(100), start+thor.Week))
	bal, err := s.MLP.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(100).String(), bal.String())
	weight, err := s.ArbDistributor.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, "0", weight.String())
}
