// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vesters

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/vechain/tokenomics/api/restutil"
	"github.com/vechain/tokenomics/builtin"
)

type Vesters struct {
	suite func() *builtin.Suite
	clock clockwork.Clock
}

func New(suite func() *builtin.Suite, clock clockwork.Clock) *Vesters {
	return &Vesters{suite, clock}
}

func (v *Vesters) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	name := mux.Vars(req)["name"]
	vester, ok := v.suite().Vesters()[name]
	if !ok {
		return restutil.NotFound(fmt.Errorf("vester %q not found", name))
	}
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	now, err := restutil.Now(req, v.clock)
	if err != nil {
		return err
	}

	p, err := vester.Position(addr)
	if err != nil {
		return err
	}
	var r restutil.Reader
	res := &Position{
		Now:                   now,
		Balance:               restutil.NewAmount(p.Balance),
		CumulativeClaim:       restutil.NewAmount(p.CumulativeClaim),
		Claimed:               restutil.NewAmount(p.Claimed),
		PairAmount:            restutil.NewAmount(p.PairAmount),
		LastVestingTime:       p.LastVestingTime,
		VestedVolume:          r.Amount(vester.VestedVolume(addr)),
		Claimable:             r.Amount(vester.Claimable(addr, now)),
		MaxVestableAmount:     r.Amount(vester.GetMaxVestableAmount(addr, now)),
		CombinedAverageStaked: r.Amount(vester.GetCombinedAverageStakedAmount(addr)),
	}
	if err := r.Err(); err != nil {
		return err
	}
	return restutil.WriteJSON(w, res)
}

func (v *Vesters) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{name}/{address}").
		Methods(http.MethodGet).
		Name("GET /vesters/{name}/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(v.handleGetPosition))
}
