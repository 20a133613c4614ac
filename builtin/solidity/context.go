// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/tokenomics/metrics"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var metricCalls = metrics.LazyLoadCounterVec("builtin_calls_count", []string{"method", "result"})

// Context binds a built-in component to its address in the state.
type Context struct {
	address thor.Address
	state   *state.State
}

func NewContext(address thor.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() thor.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Atomic runs fn inside a state checkpoint. Every change fn made, events included,
// is reverted if it returns an error.
func (c *Context) Atomic(method string, fn func() error) error {
	rev := c.state.NewCheckpoint()
	if err := fn(); err != nil {
		c.state.RevertTo(rev)
		metricCalls().AddWithLabel(1, map[string]string{"method": method, "result": "reverted"})
		return err
	}
	metricCalls().AddWithLabel(1, map[string]string{"method": method, "result": "ok"})
	return nil
}

// Simulate runs fn and always reverts its changes.
func (c *Context) Simulate(fn func() error) error {
	rev := c.state.NewCheckpoint()
	defer c.state.RevertTo(rev)
	return fn()
}

// Emit journals an event. The first topic is the hashed event name, fields are rlp encoded as data.
func (c *Context) Emit(event string, indexed []thor.Bytes32, fields ...any) error {
	if len(indexed) > 3 {
		return errors.Errorf("event %s: too many indexed topics", event)
	}
	data, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return errors.Wrapf(err, "encode event %s", event)
	}
	topics := make([]thor.Bytes32, 0, len(indexed)+1)
	topics = append(topics, thor.EventTopic(event))
	topics = append(topics, indexed...)
	c.state.AddLog(&state.Log{
		Address: c.address,
		Topics:  topics,
		Data:    data,
	})
	return nil
}

// AddressTopic left pads an address into an indexed topic.
func AddressTopic(addr thor.Address) thor.Bytes32 {
	return thor.BytesToBytes32(addr.Bytes())
}
