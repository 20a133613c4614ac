// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/tokenomics/thor"
)

type TestStruct struct {
	Field1 uint64
	Field2 *big.Int
	Addr1  thor.Address
	Bytes1 thor.Bytes32
}

func TestMapping_SetGet_StructPointer(t *testing.T) {
	mapping := NewMapping[thor.Address, *TestStruct](newContext(t), thor.Bytes32{1})
	key := thor.BytesToAddress([]byte("key"))
	value := &TestStruct{
		Field1: 100,
		Field2: big.NewInt(200),
		Addr1:  thor.BytesToAddress([]byte("addr")),
		Bytes1: thor.Blake2b([]byte("bytes")),
	}

	t.Run("get absent key allocates zero value", func(t *testing.T) {
		got, err := mapping.Get(key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(0), got.Field1)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, mapping.Set(key, value))
		got, err := mapping.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value.Field1, got.Field1)
		assert.Equal(t, "200", got.Field2.String())
		assert.Equal(t, value.Addr1, got.Addr1)
		assert.Equal(t, value.Bytes1, got.Bytes1)
	})

	t.Run("delete", func(t *testing.T) {
		mapping.Delete(key)
		got, err := mapping.Get(key)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), got.Field1)
	})
}

func TestMapping_BigIntValue(t *testing.T) {
	mapping := NewMapping[Uint64Key, *big.Int](newContext(t), thor.Bytes32{2})

	got, err := mapping.Get(Uint64Key(604800))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Sign())

	require.NoError(t, mapping.Set(Uint64Key(604800), thor.Ether(30240)))
	got, err = mapping.Get(Uint64Key(604800))
	require.NoError(t, err)
	assert.Equal(t, thor.Ether(30240).String(), got.String())

	got, err = mapping.Get(Uint64Key(604801))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Sign())
}

func TestMapping_AddressPairKey(t *testing.T) {
	mapping := NewMapping[AddressPair, uint64](newContext(t), thor.Bytes32{3})
	a := thor.BytesToAddress([]byte("a"))
	b := thor.BytesToAddress([]byte("b"))

	require.NoError(t, mapping.Set(AddressPair{a, b}, 42))

	got, err := mapping.Get(AddressPair{a, b})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	got, err = mapping.Get(AddressPair{b, a})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestRaw(t *testing.T) {
	raw := NewRaw[*TestStruct](newContext(t), thor.BytesToBytes32([]byte("raw")))

	require.NoError(t, raw.Set(&TestStruct{Field1: 9, Field2: big.NewInt(1)}))
	got, err := raw.Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.Field1)
}

func TestMappingGetSet_ErrorReturnsZeroAndErr(t *testing.T) {
	ctx := newContext(t)

	basePos := thor.BytesToBytes32([]byte("base"))
	m := NewMapping[thor.Address, thor.Address](ctx, basePos)

	key := thor.BytesToAddress([]byte("k"))
	slot := thor.Blake2b(key.Bytes(), basePos.Bytes())

	ctx.State().SetRawStorage(ctx.Address(), slot, rlp.RawValue{0xFF})

	val, err := m.Get(key)
	assert.Error(t, err)
	assert.Equal(t, thor.Address{}, val)

	m2 := NewMapping[thor.Address, chan int](ctx, basePos)
	assert.Error(t, m2.Set(key, make(chan int)))
}
