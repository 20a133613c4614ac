// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tokenomics/kv"
	"github.com/vechain/tokenomics/stackedmap"
	"github.com/vechain/tokenomics/thor"
)

// StorageBucket is the kv bucket holding contract storage.
const StorageBucket = kv.Bucket("s")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr thor.Address
	key  thor.Bytes32
}

func (k storageKey) bytes() []byte {
	b := make([]byte, 0, thor.AddressLength+32)
	b = append(b, k.addr[:]...)
	return append(b, k.key[:]...)
}

// logsKey keys the event journal in the stacked map, so reverts drop events too.
type logsKey struct{}

// State manages contract storage on top of a kv store. All changes are journaled
// and can be reverted to a checkpoint until staged.
type State struct {
	db    kv.Store
	get   kv.Getter
	cache *Cache
	sm    *stackedmap.StackedMap[any, any]
}

// New create state object. cache may be nil.
func New(db kv.Store, cache *Cache) *State {
	s := &State{
		db:    db,
		get:   StorageBucket.NewGetter(db),
		cache: cache,
	}
	s.sm = stackedmap.New(s.cacheGetter)
	return s
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case storageKey:
		raw, err := s.loadStorage(k)
		if err != nil {
			return nil, false, err
		}
		return raw, true, nil
	case logsKey:
		return []*Log(nil), true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

func (s *State) loadStorage(k storageKey) (rlp.RawValue, error) {
	kb := k.bytes()
	if raw, ok := s.cache.get(kb); ok {
		return raw, nil
	}
	metricStorageCounter().AddWithLabel(1, map[string]string{"type": "read"})

	raw, err := s.get.Get(kb)
	if err != nil {
		if !s.get.IsNotFound(err) {
			return nil, err
		}
		raw = nil
	}
	s.cache.set(kb, raw)
	return raw, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return thor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return thor.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return thor.Blake2b(raw), nil
	}
	return thor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr thor.Address, key, value thor.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by *Error type.
func (s *State) EncodeStorage(addr thor.Address, key thor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by *Error type.
func (s *State) DecodeStorage(addr thor.Address, key thor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// AddLog appends an event to the journal.
func (s *State) AddLog(log *Log) {
	logs := s.Logs()
	// copy on append, lower levels must keep their own slice
	next := make([]*Log, len(logs), len(logs)+1)
	copy(next, logs)
	s.sm.Put(logsKey{}, append(next, log))
}

// Logs returns events emitted since the state was created.
func (s *State) Logs() []*Log {
	v, _, _ := s.sm.Get(logsKey{})
	return v.([]*Log)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Stage makes a stage object to commit changes.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey]rlp.RawValue)
	var logs []*Log

	s.sm.Journal(func(k, v any) bool {
		switch key := k.(type) {
		case storageKey:
			changes[key] = v.(rlp.RawValue)
		case logsKey:
			logs = v.([]*Log)
		}
		return true
	})
	metricStorageCounter().AddWithLabel(int64(len(changes)), map[string]string{"type": "write"})

	return &Stage{
		db:      s.db,
		cache:   s.cache,
		changes: changes,
		logs:    logs,
	}
}
