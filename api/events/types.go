// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vechain/tokenomics/logdb"
	"github.com/vechain/tokenomics/thor"
)

type EventCriteria struct {
	Address *thor.Address `json:"address"`
	// Event is the event name, a shortcut for topic0.
	Event  string        `json:"event"`
	Topic0 *thor.Bytes32 `json:"topic0"`
	Topic1 *thor.Bytes32 `json:"topic1"`
	Topic2 *thor.Bytes32 `json:"topic2"`
	Topic3 *thor.Bytes32 `json:"topic3"`
}

type Range struct {
	Unit logdb.RangeType `json:"unit"`
	From *uint64         `json:"from,omitempty"`
	To   *uint64         `json:"to,omitempty"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type EventFilter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet"`
	Range       *Range           `json:"range"`
	Options     *Options         `json:"options"`
	Order       logdb.Order      `json:"order"`
}

type LogMeta struct {
	Step  uint32 `json:"step"`
	Index uint32 `json:"index"`
	Time  uint64 `json:"time"`
}

type FilteredEvent struct {
	Address thor.Address    `json:"address"`
	Topics  []*thor.Bytes32 `json:"topics"`
	Data    hexutil.Bytes   `json:"data"`
	Meta    LogMeta         `json:"meta"`
}

func convertRange(r *Range) (*logdb.Range, error) {
	if r == nil {
		return nil, nil
	}
	unit := r.Unit
	if unit == "" {
		unit = logdb.Step
	}
	if unit != logdb.Step && unit != logdb.Time {
		return nil, fmt.Errorf("unsupported range unit %q", r.Unit)
	}
	out := &logdb.Range{Unit: unit, To: math.MaxInt64}
	if r.From != nil {
		out.From = *r.From
	}
	if r.To != nil {
		out.To = *r.To
	}
	return out, nil
}

// ConvertEventFilter turns an API filter into a log db filter.
func ConvertEventFilter(f *EventFilter) (*logdb.EventFilter, error) {
	rng, err := convertRange(f.Range)
	if err != nil {
		return nil, err
	}
	filter := &logdb.EventFilter{
		Range: rng,
		Order: f.Order,
	}
	if f.Options != nil {
		filter.Options = &logdb.Options{Offset: f.Options.Offset, Limit: f.Options.Limit}
	}
	for _, c := range f.CriteriaSet {
		topic0 := c.Topic0
		if c.Event != "" {
			if topic0 != nil {
				return nil, fmt.Errorf("both event and topic0 given")
			}
			t := thor.EventTopic(c.Event)
			topic0 = &t
		}
		filter.CriteriaSet = append(filter.CriteriaSet, &logdb.EventCriteria{
			Address: c.Address,
			Topics:  [4]*thor.Bytes32{topic0, c.Topic1, c.Topic2, c.Topic3},
		})
	}
	return filter, nil
}

// ConvertEvent renders a journaled event.
func ConvertEvent(e *logdb.Event) *FilteredEvent {
	fe := &FilteredEvent{
		Address: e.Address,
		Data:    e.Data,
		Meta:    LogMeta{Step: e.Step, Index: e.Index, Time: e.Time},
	}
	for _, t := range e.Topics {
		if t != nil {
			fe.Topics = append(fe.Topics, t)
		}
	}
	return fe
}
