// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/tokenomics/thor"
)

func TestRounding(t *testing.T) {
	tests := []struct {
		t, period uint64
		down, up  uint64
	}{
		{0, thor.Week, 0, 0},
		{1, thor.Week, 0, thor.Week},
		{thor.Week, thor.Week, thor.Week, thor.Week},
		{thor.Week + 1, thor.Week, thor.Week, 2 * thor.Week},
		{123, 0, 123, 123},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.down, thor.RoundDown(tt.t, tt.period))
		assert.Equal(t, tt.up, thor.RoundUp(tt.t, tt.period))
	}
	assert.Equal(t, uint64(1460*86400), thor.MaxLockDuration)
}

func TestMulDiv(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 300)

	tests := []struct {
		name    string
		x, y, d *big.Int
		want    *big.Int
	}{
		{"floor", big.NewInt(10), big.NewInt(10), big.NewInt(3), big.NewInt(33)},
		{"zero", big.NewInt(0), big.NewInt(10), big.NewInt(3), big.NewInt(0)},
		{"512-bit intermediate", thor.Ether(1e9), thor.Ether(1e9), thor.Precision, thor.Ether(1e18)},
		{"big fallback", huge, big.NewInt(2), big.NewInt(4), new(big.Int).Rsh(huge, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0, tt.want.Cmp(thor.MulDiv(tt.x, tt.y, tt.d)))
		})
	}
}

func TestMulDivUp(t *testing.T) {
	assert.Equal(t, "34", thor.MulDivUp(big.NewInt(10), big.NewInt(10), big.NewInt(3)).String())
	assert.Equal(t, "30", thor.MulDivUp(big.NewInt(9), big.NewInt(10), big.NewInt(3)).String())
	assert.Equal(t, "0", thor.MulDivUp(big.NewInt(0), big.NewInt(10), big.NewInt(3)).String())
}

func TestFractions(t *testing.T) {
	half := big.NewInt(5e17)
	assert.Equal(t, "50", thor.MulFrac(big.NewInt(100), half).String())
	assert.Equal(t, half.String(), thor.OneMinus(half).String())
	assert.Equal(t, "0", thor.SubFloor(big.NewInt(1), big.NewInt(2)).String())
	assert.Equal(t, "1", thor.SubFloor(big.NewInt(3), big.NewInt(2)).String())
	assert.Equal(t, "1", thor.Min(big.NewInt(1), big.NewInt(2)).String())
	assert.Equal(t, "2", thor.Max(big.NewInt(1), big.NewInt(2)).String())
}
