// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package escrow

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"github.com/vechain/tokenomics/api/restutil"
	"github.com/vechain/tokenomics/builtin"
)

type Escrow struct {
	suite func() *builtin.Suite
	clock clockwork.Clock
}

func New(suite func() *builtin.Suite, clock clockwork.Clock) *Escrow {
	return &Escrow{suite, clock}
}

func (e *Escrow) handleGetTotals(w http.ResponseWriter, req *http.Request) error {
	now, err := restutil.Now(req, e.clock)
	if err != nil {
		return err
	}
	ve := e.suite().VotingEscrow

	var r restutil.Reader
	totals := &Totals{
		Now:               now,
		TotalSupply:       r.Amount(ve.TotalSupply(now)),
		TotalLocked:       r.Amount(ve.TotalLocked()),
		AverageUnlockTime: r.Uint64(ve.AverageUnlockTime()),
		Epoch:             r.Uint64(ve.Epoch()),
	}
	if err := r.Err(); err != nil {
		return err
	}
	return restutil.WriteJSON(w, totals)
}

func (e *Escrow) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.AddressVar(req, "address")
	if err != nil {
		return err
	}
	now, err := restutil.Now(req, e.clock)
	if err != nil {
		return err
	}
	ve := e.suite().VotingEscrow

	deposited, err := ve.DepositedBalances(addr)
	if err != nil {
		return err
	}
	var r restutil.Reader
	acc := &Account{
		Now:        now,
		Balance:    r.Amount(ve.BalanceOf(addr, now)),
		Locked:     r.Amount(ve.LockedAmount(addr)),
		Primary:    restutil.NewAmount(deposited.Primary),
		Escrowed:   restutil.NewAmount(deposited.Escrowed),
		End:        r.Uint64(ve.LockedEnd(addr)),
		PointEpoch: r.Uint64(ve.UserPointEpoch(addr)),
	}
	if err := r.Err(); err != nil {
		return err
	}
	return restutil.WriteJSON(w, acc)
}

func (e *Escrow) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /escrow").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleGetTotals))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /escrow/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleGetAccount))
}
