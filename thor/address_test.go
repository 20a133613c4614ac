// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"with prefix", "0x000000000000000000000000000000000000dead", false},
		{"upper prefix", "0X000000000000000000000000000000000000dead", false},
		{"without prefix", "000000000000000000000000000000000000dead", false},
		{"bad prefix", "1x000000000000000000000000000000000000dead", true},
		{"short", "0xdead", true},
		{"not hex", "0x00000000000000000000000000000000000000zz", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, BytesToAddress([]byte{0xde, 0xad}), *addr)
		})
	}
}

func TestAddressText(t *testing.T) {
	addr := BytesToAddress([]byte("escrow"))
	assert.False(t, addr.IsZero())
	assert.True(t, Address{}.IsZero())

	data, err := json.Marshal(map[string]Address{"a": addr})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"`+addr.String()+`"}`, string(data))

	var decoded map[string]Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded["a"])

	assert.Panics(t, func() { MustParseAddress("0x1") })
}
