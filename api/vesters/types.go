// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vesters

import "github.com/vechain/tokenomics/api/restutil"

// Position is an account's vesting position with the values derived at now.
type Position struct {
	Now                   uint64           `json:"now"`
	Balance               *restutil.Amount `json:"balance"`
	CumulativeClaim       *restutil.Amount `json:"cumulativeClaim"`
	Claimed               *restutil.Amount `json:"claimed"`
	PairAmount            *restutil.Amount `json:"pairAmount"`
	LastVestingTime       uint64           `json:"lastVestingTime"`
	VestedVolume          *restutil.Amount `json:"vestedVolume"`
	Claimable             *restutil.Amount `json:"claimable"`
	MaxVestableAmount     *restutil.Amount `json:"maxVestableAmount"`
	CombinedAverageStaked *restutil.Amount `json:"combinedAverageStaked"`
}
