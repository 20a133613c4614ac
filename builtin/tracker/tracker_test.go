// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tracker_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/tokenomics/builtin/tracker"
	"github.com/vechain/tokenomics/thor"
)

func TestAccrueAverage(t *testing.T) {
	tests := []struct {
		name                     string
		avg, cum, staked, reward *big.Int
		wantAvg, wantCum         *big.Int
	}{
		{"first reward", big.NewInt(0), big.NewInt(0), thor.Ether(1000), thor.Ether(10), thor.Ether(1000), thor.Ether(10)},
		{"equal weights", thor.Ether(1000), thor.Ether(10), thor.Ether(2000), thor.Ether(10), thor.Ether(1500), thor.Ether(20)},
		{"weighted by reward", thor.Ether(1000), thor.Ether(30), thor.Ether(2000), thor.Ether(10), thor.Ether(1250), thor.Ether(40)},
		{"no reward", thor.Ether(1000), thor.Ether(10), thor.Ether(2000), big.NewInt(0), thor.Ether(1000), thor.Ether(10)},
		{"nothing staked", thor.Ether(1000), thor.Ether(10), big.NewInt(0), thor.Ether(10), thor.Ether(1000), thor.Ether(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, cum := tracker.AccrueAverage(tt.avg, tt.cum, tt.staked, tt.reward)
			assert.Equal(t, tt.wantAvg.String(), avg.String())
			assert.Equal(t, tt.wantCum.String(), cum.String())
		})
	}
}
