// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package escrow

import "github.com/vechain/tokenomics/api/restutil"

// Totals is the global vote-escrow view.
type Totals struct {
	Now               uint64           `json:"now"`
	TotalSupply       *restutil.Amount `json:"totalSupply"`
	TotalLocked       *restutil.Amount `json:"totalLocked"`
	AverageUnlockTime uint64           `json:"averageUnlockTime"`
	Epoch             uint64           `json:"epoch"`
}

// Account is the lock of one account.
type Account struct {
	Now        uint64           `json:"now"`
	Balance    *restutil.Amount `json:"balance"`
	Locked     *restutil.Amount `json:"locked"`
	Primary    *restutil.Amount `json:"primary"`
	Escrowed   *restutil.Amount `json:"escrowed"`
	End        uint64           `json:"end"`
	PointEpoch uint64           `json:"pointEpoch"`
}
