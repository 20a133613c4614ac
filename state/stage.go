// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/tokenomics/kv"
)

// Stage abstracts changes on the main accounts trie.
type Stage struct {
	db      kv.Store
	cache   *Cache
	changes map[storageKey]rlp.RawValue
	logs    []*Log
}

// Len returns the count of changed storage slots.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Logs returns events emitted before staging.
func (s *Stage) Logs() []*Log {
	return s.logs
}

// Commit writes all changes to the store in one batch.
func (s *Stage) Commit() error {
	batch := StorageBucket.NewStore(s.db).NewBatch()
	for k, v := range s.changes {
		var err error
		if len(v) == 0 {
			err = batch.Delete(k.bytes())
		} else {
			err = batch.Put(k.bytes(), v)
		}
		if err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{errors.Wrap(err, "commit storage")}
	}
	for k, v := range s.changes {
		s.cache.set(k.bytes(), v)
	}
	return nil
}
