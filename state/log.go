// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/tokenomics/thor"
)

// Log is an event emitted by a contract. Topics[0] identifies the event kind.
type Log struct {
	Address thor.Address
	Topics  []thor.Bytes32
	Data    []byte
}
