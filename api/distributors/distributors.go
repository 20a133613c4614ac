// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributors

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/vechain/tokenomics/api/restutil"
	"github.com/vechain/tokenomics/builtin"
)

type API struct {
	suite func() *builtin.Suite
	clock clockwork.Clock
}

func New(suite func() *builtin.Suite, clock clockwork.Clock) *API {
	return &API{suite, clock}
}

func (a *API) handleGet(w http.ResponseWriter, req *http.Request) error {
	now, err := restutil.Now(req, a.clock)
	if err != nil {
		return err
	}
	s := a.suite()
	fee, emission, arb := s.FeeDistributor, s.EmissionDistributor, s.ArbDistributor

	var r restutil.Reader
	receiver, err := fee.ExtraReceiver()
	if err != nil {
		return err
	}
	res := &Distributors{
		Now: now,
		Rates: &Rates{
			PoolOwnedRate:      r.Amount(s.Params.PoolOwnedRate()),
			VotingEscrowedRate: r.Amount(s.Params.VotingEscrowedRate()),
		},
		Fee: &Window{
			Address:                fee.Address().String(),
			RewardRate:             r.Amount(fee.RewardRate()),
			LastUpdateTime:         r.Uint64(fee.LastUpdateTime()),
			EpochBeginTime:         r.Uint64(fee.EpochBeginTime()),
			EpochEndTime:           r.Uint64(fee.EpochEndTime()),
			PendingUndistributed:   r.Amount(fee.PendingUndistributed()),
			PoolRewardRate:         r.Amount(fee.PoolRewardRate()),
			HolderRewardProportion: r.Amount(fee.HolderRewardProportion()),
			ExtraRewardProportion:  r.Amount(fee.ExtraRewardProportion()),
			ExtraReceiver:          receiver,
			Sink:                   r.Amount(fee.Sink()),
			PendingPoolRewards:     r.Amount(fee.PendingPoolRewards(now)),
			PendingVeRewards:       r.Amount(fee.PendingVotingEscrowRewards(now)),
		},
		Emission: &FixedRate{
			Address:              emission.Address().String(),
			RewardRate:           r.Amount(emission.RewardRate()),
			LastDistributionTime: r.Uint64(emission.LastDistributionTime()),
			PendingPoolRewards:   r.Amount(emission.PendingPoolRewards(now)),
			PendingVeRewards:     r.Amount(emission.PendingVotingEscrowRewards(now)),
		},
		Arb: &Mirror{
			Address:        arb.Address().String(),
			RewardRate:     r.Amount(arb.RewardRate()),
			LastUpdateTime: r.Uint64(arb.LastUpdateTime()),
			TotalSupply:    r.Amount(arb.TotalSupply()),
			RewardPerToken: r.Amount(arb.RewardPerToken(now)),
		},
	}
	if err := r.Err(); err != nil {
		return err
	}
	return restutil.WriteJSON(w, res)
}

func (a *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /distributors").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGet))
}
