// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distributors

import (
	"github.com/vechain/tokenomics/api/restutil"
	"github.com/vechain/tokenomics/thor"
)

type Window struct {
	Address                string           `json:"address"`
	RewardRate             *restutil.Amount `json:"rewardRate"`
	LastUpdateTime         uint64           `json:"lastUpdateTime"`
	EpochBeginTime         uint64           `json:"epochBeginTime"`
	EpochEndTime           uint64           `json:"epochEndTime"`
	PendingUndistributed   *restutil.Amount `json:"pendingUndistributed"`
	PoolRewardRate         *restutil.Amount `json:"poolRewardRate"`
	HolderRewardProportion *restutil.Amount `json:"holderRewardProportion"`
	ExtraRewardProportion  *restutil.Amount `json:"extraRewardProportion"`
	ExtraReceiver          thor.Address     `json:"extraReceiver"`
	Sink                   *restutil.Amount `json:"sink"`
	PendingPoolRewards     *restutil.Amount `json:"pendingPoolRewards"`
	PendingVeRewards       *restutil.Amount `json:"pendingVeRewards"`
}

type FixedRate struct {
	Address              string           `json:"address"`
	RewardRate           *restutil.Amount `json:"rewardRate"`
	LastDistributionTime uint64           `json:"lastDistributionTime"`
	PendingPoolRewards   *restutil.Amount `json:"pendingPoolRewards"`
	PendingVeRewards     *restutil.Amount `json:"pendingVeRewards"`
}

// Mirror is the ARB stream over mirrored sMLP stakes.
type Mirror struct {
	Address        string           `json:"address"`
	RewardRate     *restutil.Amount `json:"rewardRate"`
	LastUpdateTime uint64           `json:"lastUpdateTime"`
	TotalSupply    *restutil.Amount `json:"totalSupply"`
	RewardPerToken *restutil.Amount `json:"rewardPerToken"`
}

type Rates struct {
	PoolOwnedRate      *restutil.Amount `json:"poolOwnedRate"`
	VotingEscrowedRate *restutil.Amount `json:"votingEscrowedRate"`
}

type Distributors struct {
	Now      uint64     `json:"now"`
	Rates    *Rates     `json:"rates"`
	Fee      *Window    `json:"fee"`
	Emission *FixedRate `json:"emission"`
	Arb      *Mirror    `json:"arb"`
}
