// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetOrLoad(t *testing.T) {
	_, err := NewLRU(0)
	assert.Error(t, err)

	c, err := NewLRU(2)
	require.NoError(t, err)

	loads := 0
	loader := func(key any) (any, bool, error) {
		loads++
		return key.(int) * 10, true, nil
	}

	v, err := c.GetOrLoad(1, loader)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	v, err = c.GetOrLoad(1, loader)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, loads)

	s, _ := c.Stats()
	assert.Equal(t, Snapshot{Hits: 1, Misses: 1}, s)

	// evicts the least recently used
	_, _ = c.GetOrLoad(2, loader)
	_, _ = c.GetOrLoad(3, loader)
	assert.False(t, c.Contains(1))
	assert.Equal(t, 3, loads)
}

func TestLRULoadError(t *testing.T) {
	c, err := NewLRU(1)
	require.NoError(t, err)

	_, err = c.GetOrLoad("k", func(any) (any, bool, error) { return nil, true, errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.False(t, c.Contains("k"))
}

func TestLRUSkipsUnkept(t *testing.T) {
	c, err := NewLRU(1)
	require.NoError(t, err)

	v, err := c.GetOrLoad("k", func(any) (any, bool, error) { return "open", false, nil })
	require.NoError(t, err)
	assert.Equal(t, "open", v)
	assert.False(t, c.Contains("k"))
}
