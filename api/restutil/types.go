// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// Amount is a token amount rendered as a decimal string.
type Amount big.Int

func NewAmount(v *big.Int) *Amount {
	if v == nil {
		return (*Amount)(new(big.Int))
	}
	return (*Amount)(new(big.Int).Set(v))
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal((*big.Int)(a).String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if _, ok := (*big.Int)(a).SetString(s, 10); !ok {
		return errors.Errorf("invalid amount %q", s)
	}
	return nil
}

func (a *Amount) String() string {
	return (*big.Int)(a).String()
}

// Reader collects the first error of a sequence of reads, so a view can be
// filled field by field and checked once.
type Reader struct {
	err error
}

func (r *Reader) Amount(v *big.Int, err error) *Amount {
	if r.err == nil && err != nil {
		r.err = err
	}
	return NewAmount(v)
}

func (r *Reader) Uint64(v uint64, err error) uint64 {
	if r.err == nil && err != nil {
		r.err = err
	}
	return v
}

func (r *Reader) Err() error {
	return r.err
}
