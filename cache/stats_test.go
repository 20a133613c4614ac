// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsReport(t *testing.T) {
	var cs Stats
	assert.Equal(t, 0.0, cs.Snapshot().HitRate())

	// no lookups and zero rate are the same reading
	_, changed := cs.Report()
	assert.False(t, changed)

	cs.Hit()
	cs.Miss()
	s, changed := cs.Report()
	assert.True(t, changed)
	assert.Equal(t, Snapshot{Hits: 1, Misses: 1}, s)
	assert.Equal(t, 0.5, s.HitRate())

	cs.Hit()
	cs.Miss()
	_, changed = cs.Report()
	assert.False(t, changed)

	assert.Equal(t, int64(3), cs.Hit())
	s, changed = cs.Report()
	assert.True(t, changed)
	assert.Equal(t, 0.6, s.HitRate())
}
