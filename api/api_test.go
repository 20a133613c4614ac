// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/api/distributors"
	"github.com/vechain/tokenomics/api/escrow"
	"github.com/vechain/tokenomics/api/events"
	"github.com/vechain/tokenomics/api/trackers"
	"github.com/vechain/tokenomics/api/vesters"
	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/logdb"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var (
	owner = thor.BytesToAddress([]byte("owner"))
	alice = thor.BytesToAddress([]byte("alice"))
	start = thor.Week
)

// newServer commits a funded fee window with one staker and one lock, then serves it.
func newServer(t *testing.T) *httptest.Server {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ldb, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	cfg := builtin.DefaultConfig()
	cfg.StartTime = start
	st := state.New(db, nil)
	s := builtin.MustNewSuite(st, owner, cfg)
	require.NoError(t, s.Initialize())

	require.NoError(t, s.MLP.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MLP.Approve(alice, builtin.FeePoolTrackerAddress, thor.Ether(100)))
	require.NoError(t, s.FeePoolTracker.Stake(alice, builtin.MLPAddress, thor.Ether(100), start))
	require.NoError(t, s.MUX.Mint(owner, alice, thor.Ether(100)))
	require.NoError(t, s.MUX.Approve(alice, builtin.VeMUXAddress, thor.Ether(100)))
	require.NoError(t, s.VotingEscrow.Deposit(alice, builtin.MUXAddress, thor.Ether(100), start+4*thor.Year, start))
	require.NoError(t, s.WETH.Mint(owner, owner, thor.Ether(1000)))
	require.NoError(t, s.WETH.Approve(owner, builtin.FeeDistributorAddress, thor.Ether(1000)))
	require.NoError(t, s.FeeDistributor.NotifyReward(owner, thor.Ether(1000), start))
	require.NoError(t, s.FeeVeTracker.UpdateRewards(start+2*thor.Week))

	stage := st.Stage()
	w := ldb.NewWriter()
	require.NoError(t, w.Write(1, start, stage.Logs()))
	require.NoError(t, w.Commit())
	require.NoError(t, stage.Commit())

	newSuite := func() *builtin.Suite {
		return builtin.MustNewSuite(state.New(db, nil), owner, cfg)
	}
	handler, _ := New(newSuite, ldb, Options{
		AllowedOrigins: "*",
		EnableMetrics:  true,
		EventsLimit:    100,
		Clock:          clockwork.NewFakeClockAt(time.Unix(int64(start+thor.Day), 0)),
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func httpGet(t *testing.T, url string, v any) int {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if res.StatusCode == http.StatusOK && v != nil {
		require.NoError(t, json.Unmarshal(body, v))
	}
	return res.StatusCode
}

func httpPost(t *testing.T, url string, obj any, v any) int {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if res.StatusCode == http.StatusOK && v != nil {
		require.NoError(t, json.Unmarshal(body, v))
	}
	return res.StatusCode
}

func TestEscrow(t *testing.T) {
	ts := newServer(t)

	var totals escrow.Totals
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/escrow", &totals))
	assert.Equal(t, start+thor.Day, totals.Now)
	assert.Equal(t, thor.Ether(100).String(), totals.TotalLocked.String())

	var acc escrow.Account
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/escrow/"+alice.String(), &acc))
	assert.Equal(t, thor.Ether(100).String(), acc.Primary.String())
	assert.Equal(t, "0", acc.Escrowed.String())
	assert.Equal(t, uint64(1), acc.PointEpoch)

	assert.Equal(t, http.StatusBadRequest, httpGet(t, ts.URL+"/escrow/0xabc", nil))
}

func TestTrackers(t *testing.T) {
	ts := newServer(t)

	var pool map[string]*trackers.PoolPosition
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/trackers/pool/"+alice.String()+"?at="+strconv.FormatUint(start+thor.Week, 10), &pool))
	assert.Equal(t, thor.Ether(100).String(), pool["fee"].Staked.String())
	assert.Equal(t, "0", pool["emission"].Staked.String())
	assert.Equal(t, thor.Ether(100).String(), pool["fee"].Shares.String())
	// the whole window reached the tracker, a quarter of the funding is staker's
	diff := new(big.Int).Sub(thor.Ether(250), (*big.Int)(pool["fee"].Claimable))
	assert.True(t, diff.CmpAbs(big.NewInt(1e8)) <= 0, pool["fee"].Claimable.String())

	var ve map[string]*trackers.EpochPosition
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/trackers/epoch/"+alice.String()+"?at="+strconv.FormatUint(start+2*thor.Week, 10), &ve))
	assert.Len(t, ve, 2)

	var ep trackers.Epoch
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/trackers/epoch/epochs/"+strconv.FormatUint(start+3*thor.Day, 10), &ep))
	assert.Equal(t, start, ep.Start)
	assert.True(t, ep.Trackers["fee"].Tokens.String() != "0")
}

func TestDistributorsAndVesters(t *testing.T) {
	ts := newServer(t)

	var d distributors.Distributors
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/distributors", &d))
	assert.Equal(t, start, d.Fee.EpochBeginTime)
	assert.Equal(t, start+thor.Week, d.Fee.EpochEndTime)
	assert.Equal(t, builtin.FeeDistributorAddress.String(), d.Fee.Address)
	assert.Equal(t, builtin.ArbDistributorAddress.String(), d.Arb.Address)
	assert.Equal(t, "0", d.Arb.TotalSupply.String())

	var p vesters.Position
	require.Equal(t, http.StatusOK, httpGet(t, ts.URL+"/vesters/ve/"+alice.String(), &p))
	assert.Equal(t, "0", p.Balance.String())
	assert.Equal(t, http.StatusNotFound, httpGet(t, ts.URL+"/vesters/nope/"+alice.String(), nil))
}

func TestEvents(t *testing.T) {
	ts := newServer(t)

	var staked []*events.FilteredEvent
	filter := &events.EventFilter{CriteriaSet: []*events.EventCriteria{{Event: "Staked"}}}
	require.Equal(t, http.StatusOK, httpPost(t, ts.URL+"/events", filter, &staked))
	require.Len(t, staked, 1)
	assert.Equal(t, builtin.FeePoolTrackerAddress, staked[0].Address)
	assert.Equal(t, uint32(1), staked[0].Meta.Step)

	over := &events.EventFilter{Options: &events.Options{Limit: 1000}}
	assert.Equal(t, http.StatusForbidden, httpPost(t, ts.URL+"/events", over, nil))

	res, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(`{"unknown":1}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
