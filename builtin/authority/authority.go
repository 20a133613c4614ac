// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authority

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/thor"
)

var (
	headKey  = thor.Blake2b([]byte("authority-head"))
	tailKey  = thor.Blake2b([]byte("authority-tail"))
	entryPos = thor.BytesToBytes32([]byte("authority-entry"))
)

// handlerEntry links a handler into the list.
type handlerEntry struct {
	Listed bool
	Prev   *thor.Address `rlp:"nil"`
	Next   *thor.Address `rlp:"nil"`
}

func (e *handlerEntry) isEmpty() bool {
	return !e.Listed && e.Prev == nil && e.Next == nil
}

// Authority gates privileged calls of a component: an immutable owner plus a
// mutable set of handlers, kept as a doubly linked list in the component's storage.
type Authority struct {
	ctx   *solidity.Context
	owner thor.Address
}

// New create a new instance.
func New(ctx *solidity.Context, owner thor.Address) *Authority {
	return &Authority{ctx, owner}
}

func (a *Authority) Owner() thor.Address {
	return a.owner
}

func (a *Authority) entryKey(handler thor.Address) thor.Bytes32 {
	return thor.Blake2b(handler.Bytes(), entryPos.Bytes())
}

func (a *Authority) getEntry(handler thor.Address) (*handlerEntry, error) {
	var entry handlerEntry
	if err := a.ctx.State().DecodeStorage(a.ctx.Address(), a.entryKey(handler), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &entry)
	}); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (a *Authority) setEntry(handler thor.Address, entry *handlerEntry) error {
	return a.ctx.State().EncodeStorage(a.ctx.Address(), a.entryKey(handler), func() ([]byte, error) {
		if entry.isEmpty() {
			return nil, nil
		}
		return rlp.EncodeToBytes(entry)
	})
}

func (a *Authority) getAddressPtr(key thor.Bytes32) (addr *thor.Address, err error) {
	err = a.ctx.State().DecodeStorage(a.ctx.Address(), key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &addr)
	})
	return
}

func (a *Authority) setAddressPtr(key thor.Bytes32, addr *thor.Address) error {
	return a.ctx.State().EncodeStorage(a.ctx.Address(), key, func() ([]byte, error) {
		if addr == nil {
			return nil, nil
		}
		return rlp.EncodeToBytes(addr)
	})
}

// IsHandler returns whether addr is a listed handler.
func (a *Authority) IsHandler(addr thor.Address) (bool, error) {
	entry, err := a.getEntry(addr)
	if err != nil {
		return false, err
	}
	return entry.Listed, nil
}

// CheckOwner rejects callers other than the owner.
func (a *Authority) CheckOwner(caller thor.Address) error {
	if caller != a.owner {
		return reverts.Newf(reverts.Unauthorized, "%v is not the owner", caller)
	}
	return nil
}

// CheckHandler rejects callers that are neither a handler nor the owner.
func (a *Authority) CheckHandler(caller thor.Address) error {
	if caller == a.owner {
		return nil
	}
	ok, err := a.IsHandler(caller)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.Newf(reverts.Unauthorized, "%v is not a handler", caller)
	}
	return nil
}

// SetHandler lists or unlists a handler. Only the owner may call it.
func (a *Authority) SetHandler(caller, handler thor.Address, isActive bool) error {
	return a.ctx.Atomic("authority.setHandler", func() error {
		if err := a.CheckOwner(caller); err != nil {
			return err
		}
		var (
			changed bool
			err     error
		)
		if isActive {
			changed, err = a.add(handler)
		} else {
			changed, err = a.remove(handler)
		}
		if err != nil || !changed {
			return err
		}
		return a.ctx.Emit("HandlerSet", []thor.Bytes32{solidity.AddressTopic(handler)}, isActive)
	})
}

func (a *Authority) add(handler thor.Address) (bool, error) {
	entry, err := a.getEntry(handler)
	if err != nil {
		return false, err
	}
	if entry.Listed {
		return false, nil
	}
	entry.Listed = true

	tailPtr, err := a.getAddressPtr(tailKey)
	if err != nil {
		return false, err
	}
	entry.Prev = tailPtr

	if err := a.setAddressPtr(tailKey, &handler); err != nil {
		return false, err
	}
	if tailPtr == nil {
		if err := a.setAddressPtr(headKey, &handler); err != nil {
			return false, err
		}
	} else {
		tailEntry, err := a.getEntry(*tailPtr)
		if err != nil {
			return false, err
		}
		tailEntry.Next = &handler
		if err := a.setEntry(*tailPtr, tailEntry); err != nil {
			return false, err
		}
	}

	if err := a.setEntry(handler, entry); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Authority) remove(handler thor.Address) (bool, error) {
	entry, err := a.getEntry(handler)
	if err != nil {
		return false, err
	}
	if !entry.Listed {
		return false, nil
	}

	if entry.Prev == nil {
		if err := a.setAddressPtr(headKey, entry.Next); err != nil {
			return false, err
		}
	} else {
		prevEntry, err := a.getEntry(*entry.Prev)
		if err != nil {
			return false, err
		}
		prevEntry.Next = entry.Next
		if err := a.setEntry(*entry.Prev, prevEntry); err != nil {
			return false, err
		}
	}

	if entry.Next == nil {
		if err := a.setAddressPtr(tailKey, entry.Prev); err != nil {
			return false, err
		}
	} else {
		nextEntry, err := a.getEntry(*entry.Next)
		if err != nil {
			return false, err
		}
		nextEntry.Prev = entry.Prev
		if err := a.setEntry(*entry.Next, nextEntry); err != nil {
			return false, err
		}
	}

	if err := a.setEntry(handler, &handlerEntry{}); err != nil {
		return false, err
	}
	return true, nil
}

// Handlers lists all handlers in insertion order.
func (a *Authority) Handlers() ([]thor.Address, error) {
	ptr, err := a.getAddressPtr(headKey)
	if err != nil {
		return nil, err
	}
	var handlers []thor.Address
	for ptr != nil {
		entry, err := a.getEntry(*ptr)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, *ptr)
		ptr = entry.Next
	}
	return handlers, nil
}
