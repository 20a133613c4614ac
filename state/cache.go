// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"slices"

	"github.com/qianbin/directcache"
)

// Cache caches committed storage values across State instances. Empty values are
// cached too, with a one byte marker, so misses on unset slots don't reach the db.
type Cache struct {
	values *directcache.Cache
}

// NewCache creates a cache of roughly sizeBytes.
func NewCache(sizeBytes int) *Cache {
	return &Cache{values: directcache.New(sizeBytes)}
}

func (c *Cache) get(key []byte) (raw []byte, ok bool) {
	if c == nil {
		return nil, false
	}
	if c.values.AdvGet(key, func(val []byte) {
		// strip the marker
		raw = slices.Clone(val[1:])
	}, false) {
		metricStorageCounter().AddWithLabel(1, map[string]string{"type": "cache-hit"})
		if len(raw) == 0 {
			raw = nil
		}
		return raw, true
	}
	metricStorageCounter().AddWithLabel(1, map[string]string{"type": "cache-miss"})
	return nil, false
}

func (c *Cache) set(key, raw []byte) {
	if c == nil {
		return
	}
	_ = c.values.AdvSet(key, len(raw)+1, func(val []byte) {
		val[0] = 1
		copy(val[1:], raw)
	})
}
