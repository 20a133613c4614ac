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
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/thor"
)

type windowFixture struct {
	dist *Window
	weth *token.Token
	m    *manager
}

func newWindow(t *testing.T) *windowFixture {
	st := newState(t)
	weth := newToken(t, st, "WETH")
	m := newManager()
	dist := NewWindow(solidity.NewContext(thor.BytesToAddress([]byte("fee-distributor")), st), owner, WindowConfig{
		Token:      weth,
		Manager:    m,
		PoolTarget: poolTarget,
		VeTarget:   veTarget,
	})
	require.NoError(t, dist.Initialize(owner, milli(500)))

	require.NoError(t, weth.Mint(owner, user0, thor.Ether(50000)))
	require.NoError(t, weth.Approve(user0, dist.Address(), thor.Ether(50000)))
	return &windowFixture{dist, weth, m}
}

func (f *windowFixture) rate(t *testing.T) *big.Int {
	r, err := f.dist.RewardRate()
	require.NoError(t, err)
	return r
}

func (f *windowFixture) pending(t *testing.T, now uint64) *big.Int {
	p, err := f.dist.PendingRewards(now)
	require.NoError(t, err)
	return p
}

func (f *windowFixture) span(t *testing.T) uint64 {
	begin, err := f.dist.EpochBeginTime()
	require.NoError(t, err)
	end, err := f.dist.EpochEndTime()
	require.NoError(t, err)
	return end - begin
}

func mulUint(x *big.Int, n uint64) *big.Int {
	return new(big.Int).Mul(x, new(big.Int).SetUint64(n))
}

func TestWindowFunding(t *testing.T) {
	f := newWindow(t)

	require.NoError(t, f.dist.NotifyReward(user0, thor.Ether(5000), thor.Week))
	span := f.span(t)
	assert.Equal(t, thor.DefaultRewardWindow, span)
	rate := new(big.Int).Quo(thor.Ether(5000), new(big.Int).SetUint64(span))
	assert.Equal(t, rate.String(), f.rate(t).String())
	assert.Equal(t, thor.Ether(5000).String(), balanceOf(t, f.weth, f.dist.Address()).String())

	closeTo(t, mulUint(rate, 3000), f.pending(t, thor.Week+3000), 1000000)
	// capped at the window end
	closeTo(t, thor.Ether(5000), f.pending(t, 2*thor.Week+2000), 1000000)

	// restart after the window elapsed
	now := 3*thor.Week + thor.Day
	require.NoError(t, f.dist.NotifyReward(user0, thor.Ether(2000), now))
	closeTo(t, thor.Ether(2000), balanceOf(t, f.weth, f.dist.Address()), 1000000)
	span = f.span(t)
	rate = new(big.Int).Quo(thor.Ether(2000), new(big.Int).SetUint64(span))
	closeTo(t, rate, f.rate(t), 1000)

	now += thor.Day
	closeTo(t, mulUint(rate, thor.Day), f.pending(t, now), 1000000)

	// top up an active window, the remainder is spread over what is left of it
	rate = f.rate(t)
	require.NoError(t, f.dist.NotifyReward(user0, thor.Ether(1000), now))
	want := new(big.Int).Sub(thor.Ether(3000), mulUint(rate, thor.Day))
	want.Quo(want, new(big.Int).SetUint64(span-thor.Day))
	closeTo(t, want, f.rate(t), 1000)
	end, err := f.dist.EpochEndTime()
	require.NoError(t, err)
	assert.Equal(t, 3*thor.Week+thor.Day+span, end)

	now += thor.Day
	closeTo(t, mulUint(f.rate(t), thor.Day), f.pending(t, now), 1000000)
}

func TestWindowSplit(t *testing.T) {
	f := newWindow(t)
	start := uint64(1000)
	require.NoError(t, f.dist.NotifyReward(user0, thor.Ether(5000), start))

	now := start + 3*thor.Day
	reward := mulUint(f.rate(t), 3*thor.Day)
	assert.Equal(t, reward.String(), f.pending(t, now).String())

	pool, err := f.dist.PendingPoolRewards(now)
	require.NoError(t, err)
	ve, err := f.dist.PendingVotingEscrowRewards(now)
	require.NoError(t, err)
	quarter := new(big.Int).Quo(reward, big.NewInt(4))
	closeTo(t, new(big.Int).Quo(reward, big.NewInt(2)), pool, 1)
	closeTo(t, new(big.Int).Quo(reward, big.NewInt(2)), ve, 1)

	f.m.poolOwned = milli(500)
	pool, err = f.dist.PendingPoolRewards(now)
	require.NoError(t, err)
	ve, err = f.dist.PendingVotingEscrowRewards(now)
	require.NoError(t, err)
	closeTo(t, quarter, pool, 1)
	closeTo(t, quarter, ve, 1)

	require.NoError(t, f.dist.UpdateRewards(now))
	assert.Equal(t, pool.String(), balanceOf(t, f.weth, poolTarget).String())
	assert.Equal(t, ve.String(), balanceOf(t, f.weth, veTarget).String())
	assert.Equal(t, "0", f.pending(t, now).String())

	sink, err := f.dist.Sink()
	require.NoError(t, err)
	closeTo(t, new(big.Int).Quo(reward, big.NewInt(2)), sink, 2)

	assert.True(t, reverts.IsKind(f.dist.RecoverSink(user1, user1), reverts.Unauthorized))
	require.NoError(t, f.dist.RecoverSink(owner, user1))
	assert.Equal(t, sink.String(), balanceOf(t, f.weth, user1).String())
	sink, err = f.dist.Sink()
	require.NoError(t, err)
	assert.Equal(t, "0", sink.String())
}

func TestWindowExtraReward(t *testing.T) {
	f := newWindow(t)
	extraReceiver := thor.BytesToAddress([]byte("extra"))

	require.NoError(t, f.dist.SetHolderRewardProportion(owner, milli(700)))
	require.NoError(t, f.dist.SetExtraRewardProportion(owner, milli(300)))
	assert.True(t, reverts.IsKind(f.dist.SetHolderRewardProportion(owner, milli(800)), reverts.InvalidArgument))

	// no receiver to pay the extra share to
	err := f.dist.NotifyReward(user0, thor.Ether(1000), thor.Week)
	assert.True(t, reverts.IsKind(err, reverts.InvalidArgument))
	assert.Equal(t, thor.Ether(50000).String(), balanceOf(t, f.weth, user0).String())

	require.NoError(t, f.dist.SetExtraReceiver(owner, extraReceiver))
	require.NoError(t, f.dist.NotifyReward(user0, thor.Ether(1000), thor.Week))
	assert.Equal(t, thor.Ether(300).String(), balanceOf(t, f.weth, extraReceiver).String())
	assert.Equal(t, thor.Ether(700).String(), balanceOf(t, f.weth, f.dist.Address()).String())

	rate := new(big.Int).Quo(thor.Ether(700), new(big.Int).SetUint64(thor.DefaultRewardWindow))
	assert.Equal(t, rate.String(), f.rate(t).String())
	undistributed, err := f.dist.PendingUndistributed()
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Sub(thor.Ether(700), mulUint(rate, thor.DefaultRewardWindow)).String(), undistributed.String())
}

func TestWindowAuthorization(t *testing.T) {
	f := newWindow(t)

	assert.True(t, reverts.IsKind(f.dist.Initialize(owner, milli(500)), reverts.InvalidArgument))
	assert.True(t, reverts.IsKind(f.dist.SetPoolRewardRate(user1, milli(100), 0), reverts.Unauthorized))
	assert.True(t, reverts.IsKind(f.dist.SetExtraReceiver(user1, user1), reverts.Unauthorized))

	require.NoError(t, f.dist.Authority().SetHandler(owner, user1, true))
	require.NoError(t, f.dist.SetPoolRewardRate(user1, milli(100), 0))
	assert.True(t, reverts.IsKind(f.dist.SetPoolRewardRate(user1, milli(1001), 0), reverts.InvalidArgument))
	rate, err := f.dist.PoolRewardRate()
	require.NoError(t, err)
	assert.Equal(t, milli(100).String(), rate.String())

	assert.True(t, reverts.IsKind(f.dist.NotifyReward(user0, big.NewInt(0), 0), reverts.InvalidArgument))
	assert.True(t, reverts.IsKind(f.dist.NotifyReward(user1, thor.Ether(1), 0), reverts.InsufficientBalance))
}

func TestWindowConservation(t *testing.T) {
	odd := func(n int64) *big.Int {
		return new(big.Int).Add(thor.Ether(n), big.NewInt(12345))
	}
	// a nil amount pushes pending rewards instead of funding
	type event struct {
		at     uint64
		amount *big.Int
	}
	tests := []struct {
		name      string
		poolOwned *big.Int
		events    []event
	}{
		{"single funding", new(big.Int), []event{
			{thor.Week, odd(7000)}, {thor.Week + thor.Day, nil}, {thor.Week + 3*thor.Day + 7, nil},
		}},
		{"top up while active", new(big.Int), []event{
			{thor.Week, odd(7000)}, {thor.Week + thor.Day, nil}, {thor.Week + 2*thor.Day + 11, odd(3000)},
			{thor.Week + 5*thor.Day, nil}, {thor.Week + 6*thor.Day, odd(1)},
		}},
		{"refund after the window", new(big.Int), []event{
			{thor.Week, odd(5000)}, {3 * thor.Week, odd(2000)}, {3*thor.Week + thor.Day, nil},
		}},
		{"pool owned share", milli(300), []event{
			{thor.Week, odd(7000)}, {thor.Week + thor.Day + 17, odd(1234)}, {thor.Week + 4*thor.Day, nil},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWindow(t)
			f.m.poolOwned = tt.poolOwned
			funded := new(big.Int)

			check := func() {
				t.Helper()
				paid := new(big.Int).Add(balanceOf(t, f.weth, poolTarget), balanceOf(t, f.weth, veTarget))
				held := balanceOf(t, f.weth, f.dist.Address())
				assert.Equal(t, funded.String(), new(big.Int).Add(paid, held).String())
				sink, err := f.dist.Sink()
				require.NoError(t, err)
				assert.True(t, paid.Add(paid, sink).Cmp(funded) <= 0)
			}
			for _, ev := range tt.events {
				if ev.amount == nil {
					require.NoError(t, f.dist.UpdateRewards(ev.at))
				} else {
					require.NoError(t, f.dist.NotifyReward(user0, ev.amount, ev.at))
					funded.Add(funded, ev.amount)
				}
				check()
			}

			end, err := f.dist.EpochEndTime()
			require.NoError(t, err)
			require.NoError(t, f.dist.UpdateRewards(end+1))
			check()

			// once the window ran out only the sink and the rounding remainder are left
			sink, err := f.dist.Sink()
			require.NoError(t, err)
			undistributed, err := f.dist.PendingUndistributed()
			require.NoError(t, err)
			assert.True(t, undistributed.Cmp(new(big.Int).SetUint64(f.dist.Duration())) < 0)
			held := balanceOf(t, f.weth, f.dist.Address())
			assert.Equal(t, new(big.Int).Add(sink, undistributed).String(), held.String())
		})
	}
}
