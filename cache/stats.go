// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package cache

import "sync/atomic"

// Snapshot is a point-in-time reading of Stats.
type Snapshot struct {
	Hits   int64
	Misses int64
}

// HitRate returns hits over lookups, zero before the first lookup.
func (s Snapshot) HitRate() float64 {
	if lookups := s.Hits + s.Misses; lookups > 0 {
		return float64(s.Hits) / float64(lookups)
	}
	return 0
}

// Stats counts lookups of a cache. It is safe for concurrent use.
type Stats struct {
	hits, misses atomic.Int64
	// last reported hit rate, in permille
	reported atomic.Int32
}

func (cs *Stats) Hit() int64 { return cs.hits.Add(1) }

func (cs *Stats) Miss() int64 { return cs.misses.Add(1) }

func (cs *Stats) Snapshot() Snapshot {
	return Snapshot{Hits: cs.hits.Load(), Misses: cs.misses.Load()}
}

// Report returns the current snapshot and whether its hit rate moved by at least
// one permille since the previous Report.
func (cs *Stats) Report() (Snapshot, bool) {
	s := cs.Snapshot()
	permille := int32(s.HitRate() * 1000)
	return s, cs.reported.Swap(permille) != permille
}
