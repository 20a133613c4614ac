// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trackers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/vechain/tokenomics/api/restutil"
	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/builtin/tracker/epochtracker"
	"github.com/vechain/tokenomics/builtin/tracker/pooltracker"
	"github.com/vechain/tokenomics/cache"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "trackers")

const epochCacheSize = 1024

type Trackers struct {
	suite  func() *builtin.Suite
	clock  clockwork.Clock
	epochs *cache.LRU
}

func New(suite func() *builtin.Suite, clock clockwork.Clock) *Trackers {
	epochs, err := cache.NewLRU(epochCacheSize)
	if err != nil {
		panic(err)
	}
	return &Trackers{suite, clock, epochs}
}

func poolTrackers(s *builtin.Suite) map[string]*pooltracker.PoolTracker {
	return map[string]*pooltracker.PoolTracker{
		"fee":      s.FeePoolTracker,
		"emission": s.EmissionPoolTracker,
	}
}

func epochTrackers(s *builtin.Suite) map[string]*epochtracker.EpochTracker {
	return map[string]*epochtracker.EpochTracker{
		"fee":      s.FeeVeTracker,
		"emission": s.EmissionVeTracker,
	}
}

func (t *Trackers) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	now, err := restutil.Now(req, t.clock)
	if err != nil {
		return err
	}
	result := make(map[string]*PoolPosition)
	for name, tr := range poolTrackers(t.suite()) {
		var r restutil.Reader
		result[name] = &PoolPosition{
			Staked:               r.Amount(tr.StakedAmounts(addr)),
			Shares:               r.Amount(tr.BalanceOf(addr)),
			Claimable:            r.Amount(tr.Claimable(addr, now)),
			CumulativeRewards:    r.Amount(tr.CumulativeRewards(addr)),
			AverageStakedAmounts: r.Amount(tr.AverageStakedAmounts(addr)),
		}
		if err := r.Err(); err != nil {
			return errors.WithMessage(err, name)
		}
	}
	return restutil.WriteJSON(w, result)
}

func (t *Trackers) handleGetEpoch(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	now, err := restutil.Now(req, t.clock)
	if err != nil {
		return err
	}
	result := make(map[string]*EpochPosition)
	for name, tr := range epochTrackers(t.suite()) {
		var r restutil.Reader
		result[name] = &EpochPosition{
			Claimable:            r.Amount(tr.Claimable(addr, now)),
			TimeCursor:           r.Uint64(tr.TimeCursorOf(addr)),
			CumulativeRewards:    r.Amount(tr.CumulativeRewards(addr)),
			AverageStakedAmounts: r.Amount(tr.AverageStakedAmounts(addr)),
		}
		if err := r.Err(); err != nil {
			return errors.WithMessage(err, name)
		}
	}
	return restutil.WriteJSON(w, result)
}

// epoch reads an epoch from every epoch tracker. It is closed once every tracker
// has recorded its supply and received tokens up to the epoch end.
func (t *Trackers) epoch(start uint64) (*Epoch, error) {
	ep := &Epoch{Start: start, Closed: true, Trackers: make(map[string]*EpochSnapshot)}
	for name, tr := range epochTrackers(t.suite()) {
		var r restutil.Reader
		ep.Trackers[name] = &EpochSnapshot{
			Tokens:   r.Amount(tr.TokensPerEpoch(start)),
			VeSupply: r.Amount(tr.VeSupply(start)),
		}
		supplyCursor := r.Uint64(tr.TimeCursor())
		tokenTime := r.Uint64(tr.LastTokenTime())
		if err := r.Err(); err != nil {
			return nil, errors.WithMessage(err, name)
		}
		end := start + tr.EpochLength()
		if supplyCursor <= start || tokenTime < end {
			ep.Closed = false
		}
	}
	return ep, nil
}

func (t *Trackers) handleGetEpochs(w http.ResponseWriter, req *http.Request) error {
	ts, err := restutil.Uint64Var(req, "ts")
	if err != nil {
		return err
	}
	start := thor.RoundDown(ts, thor.Week)

	ep, err := t.epochs.GetOrLoad(start, func(any) (any, bool, error) {
		ep, err := t.epoch(start)
		if err != nil {
			return nil, false, err
		}
		// closed epochs never change
		return ep, ep.Closed, nil
	})
	if err != nil {
		return err
	}
	if s, changed := t.epochs.Stats(); changed {
		logger.Debug("epoch cache", "hits", s.Hits, "misses", s.Misses, "rate", s.HitRate())
	}
	return restutil.WriteJSON(w, ep)
}

func (t *Trackers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/pool/{address}").
		Methods(http.MethodGet).
		Name("GET /trackers/pool/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(t.handleGetPool))
	sub.Path("/epoch/epochs/{ts:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /trackers/epoch/epochs/{ts}").
		HandlerFunc(restutil.WrapHandlerFunc(t.handleGetEpochs))
	sub.Path("/epoch/{address}").
		Methods(http.MethodGet).
		Name("GET /trackers/epoch/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(t.handleGetEpoch))
}
