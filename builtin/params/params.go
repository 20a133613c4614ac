// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"

	"github.com/vechain/tokenomics/builtin/authority"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "params")

// Params keeps governance values, rates are fractions of 1e18.
type Params struct {
	ctx  *solidity.Context
	auth *authority.Authority
}

func New(ctx *solidity.Context, owner thor.Address) *Params {
	return &Params{ctx, authority.New(ctx, owner)}
}

func (p *Params) Authority() *authority.Authority {
	return p.auth
}

// Get native way to get param.
func (p *Params) Get(key thor.Bytes32) (*big.Int, error) {
	return solidity.NewUint256(p.ctx, key).Get()
}

// Set updates a rate. Only the owner or a handler may call it.
func (p *Params) Set(caller thor.Address, key thor.Bytes32, value *big.Int) error {
	return p.ctx.Atomic("params.set", func() error {
		if err := p.auth.CheckHandler(caller); err != nil {
			return err
		}
		if value.Sign() < 0 || value.Cmp(thor.Precision) > 0 {
			return reverts.Newf(reverts.InvalidArgument, "rate %v out of [0, 1e18]", value)
		}
		if err := solidity.NewUint256(p.ctx, key).Set(value); err != nil {
			return err
		}
		logger.Debug("param updated", "key", string(trimKey(key)), "value", value)
		return p.ctx.Emit("Set", []thor.Bytes32{key}, value)
	})
}

// PoolOwnedRate is the share of distributed rewards owned by the pool itself.
func (p *Params) PoolOwnedRate() (*big.Int, error) {
	return p.Get(thor.KeyPoolOwnedRate)
}

// VotingEscrowedRate is the share of the fixed-rate emission routed to vote-escrow holders.
func (p *Params) VotingEscrowedRate() (*big.Int, error) {
	return p.Get(thor.KeyVotingEscrowedRate)
}

func trimKey(key thor.Bytes32) []byte {
	b := key.Bytes()
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}
