// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/logdb"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

const scenarioYAML = `
owner: owner
config:
  startTime: 604800
  poolRewardRate: "0.5"
steps:
  - time: 604800
    op: setParam
    args: {key: votingEscrowedRate, value: "0.5"}
  - time: 604800
    op: mint
    args: {token: MLP, to: alice, amount: "100"}
  - time: 604800
    op: approve
    args: {token: MLP, account: alice, spender: fee-pool, amount: "100"}
  - time: 604800
    op: stake
    args: {tracker: emission-pool, account: alice, amount: "100"}
    expectRevert: InvalidArgument
  - time: 604800
    op: stakeMlp
    args: {account: alice, amount: "100"}
  - time: 604800
    op: setRewardRate
    args: {rate: "0.1"}
  - time: 604800
    op: withdrawLock
    args: {account: alice}
    expectRevert: InvalidArgument
  - time: 691200
    op: claim
    args: {tracker: emission-pool, account: alice}
`

func TestParseFixed(t *testing.T) {
	v, err := parseFixed("0.5")
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", v.String())

	v, err = parseFixed("1e3")
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(1000).String(), v.String())

	_, err = parseFixed("0.0000000000000000001")
	assert.Error(t, err)
	_, err = parseFixed("-1")
	assert.Error(t, err)
	_, err = parseFixed("abc")
	assert.Error(t, err)
}

func TestResolveAccount(t *testing.T) {
	addr, isComponent, err := resolveAccount("WETH")
	require.NoError(t, err)
	assert.True(t, isComponent)
	assert.Equal(t, builtin.WETHAddress, addr)

	addr, isComponent, err = resolveAccount("alice")
	require.NoError(t, err)
	assert.False(t, isComponent)
	assert.Equal(t, thor.BytesToAddress([]byte("alice")), addr)

	addr, _, err = resolveAccount(addr.String())
	require.NoError(t, err)
	assert.Equal(t, thor.BytesToAddress([]byte("alice")), addr)

	_, _, err = resolveAccount("0xzz")
	assert.Error(t, err)
}

func TestParseScenarioErrors(t *testing.T) {
	_, err := parseScenario([]byte("steps:\n  - {time: 1, op: nope}\n"))
	assert.ErrorContains(t, err, "unknown op")

	_, err = parseScenario([]byte("steps:\n  - {time: 2, op: checkpoint}\n  - {time: 1, op: checkpoint}\n"))
	assert.ErrorContains(t, err, "backwards")
}

func TestReplay(t *testing.T) {
	sc, err := parseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	defer logDB.Close()

	r, err := newReplayer(db, logDB, nil, sc)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), r.next)

	for i := range sc.Steps {
		require.NoError(t, r.apply(i, &sc.Steps[i]))
	}

	alice := thor.BytesToAddress([]byte("alice"))
	s, err := builtin.NewSuite(state.New(db, nil), r.owner, r.cfg)
	require.NoError(t, err)
	bal, err := s.EsMUX.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(4320).String(), bal.String())

	newest, ok, err := logDB.NewestStep()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(len(sc.Steps)), newest)

	topic := thor.EventTopic("Claimed")
	claimed, err := logDB.FilterEvents(context.Background(), &logdb.EventFilter{
		CriteriaSet: []*logdb.EventCriteria{{Topics: [4]*thor.Bytes32{&topic}}},
	})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, uint64(691200), claimed[0].Time)

	views, err := r.views(691200)
	require.NoError(t, err)
	require.Contains(t, views, "alice")
	assert.Equal(t, "0", views["alice"].Claimable["emission-pool"].String())
	assert.Equal(t, 0, views["alice"].Balances["esMUX"].Cmp(bal))
	assert.Equal(t, thor.Ether(100).String(), views["alice"].Shares["emission-pool"].String())
	assert.Equal(t, "0", views["alice"].Shares["fee-pool"].String())

	// a second run on the same store continues the numbering and keeps the suite
	again, err := newReplayer(db, logDB, nil, sc)
	require.NoError(t, err)
	assert.Equal(t, r.next, again.next)
	assert.Equal(t, 0, again.cfg.PoolRewardRate.Cmp(new(big.Int).Div(thor.Precision, big.NewInt(2))))

	other := *sc
	other.Owner = "mallory"
	_, err = newReplayer(db, logDB, nil, &other)
	assert.ErrorContains(t, err, "belongs to owner")
}

func TestReplayUnexpectedOutcome(t *testing.T) {
	sc, err := parseScenario([]byte(`
owner: owner
config: {startTime: 604800}
steps:
  - time: 604800
    op: mint
    args: {token: MUX, to: alice, amount: "1"}
    expectRevert: Unauthorized
  - time: 604800
    op: mint
    args: {token: MUX, caller: alice, to: alice, amount: "1"}
`))
	require.NoError(t, err)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	defer logDB.Close()

	r, err := newReplayer(db, logDB, nil, sc)
	require.NoError(t, err)
	assert.ErrorContains(t, r.apply(0, &sc.Steps[0]), "expected Unauthorized revert")
	assert.ErrorContains(t, r.apply(1, &sc.Steps[1]), "Unauthorized")
}
