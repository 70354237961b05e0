package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSide(t *testing.T) {
	assert.True(t, SideBuy.Valid())
	assert.True(t, SideSell.Valid())
	assert.False(t, Side("HOLD").Valid())
	assert.False(t, Side("").Valid())

	assert.True(t, SideBuy.IsBid())
	assert.False(t, SideSell.IsBid())
}

func TestCheckedMul(t *testing.T) {
	v, ok := CheckedMul(1000, 50)
	assert.True(t, ok)
	assert.Equal(t, uint64(50000), v)

	_, ok = CheckedMul(math.MaxUint64, 2)
	assert.False(t, ok)

	// Anything times zero is fine
	v, ok = CheckedMul(math.MaxUint64, 0)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), v)
}

func TestCheckedAdd(t *testing.T) {
	v, ok := CheckedAdd(math.MaxUint64-1, 1)
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, ok = CheckedAdd(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestCheckedSub(t *testing.T) {
	v, ok := CheckedSub(10, 10)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), v)

	_, ok = CheckedSub(9, 10)
	assert.False(t, ok)
}

func TestOrderIDString(t *testing.T) {
	assert.Equal(t, "0", OrderID{}.String())
	assert.Equal(t, "42", OrderID{Lo: 42}.String())

	// 1<<64 == Hi:1 Lo:0
	assert.Equal(t, "18446744073709551616", OrderID{Hi: 1}.String())

	// Max 128-bit value
	max := OrderID{Hi: math.MaxUint64, Lo: math.MaxUint64}
	assert.Equal(t, "340282366920938463463374607431768211455", max.String())
}

func TestParseOrderID(t *testing.T) {
	id, err := ParseOrderID("42")
	require.NoError(t, err)
	assert.Equal(t, OrderID{Lo: 42}, id)

	id, err = ParseOrderID("18446744073709551616")
	require.NoError(t, err)
	assert.Equal(t, OrderID{Hi: 1, Lo: 0}, id)

	id, err = ParseOrderID("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, OrderID{Hi: math.MaxUint64, Lo: math.MaxUint64}, id)

	// One past 128 bits
	_, err = ParseOrderID("340282366920938463463374607431768211456")
	assert.Error(t, err)

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		_, err := ParseOrderID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestOrderIDRoundTrip(t *testing.T) {
	ids := []OrderID{
		{},
		{Lo: 1},
		{Lo: math.MaxUint64},
		{Hi: 1, Lo: 0},
		{Hi: 7, Lo: 99},
	}
	for _, id := range ids {
		parsed, err := ParseOrderID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}

	assert.True(t, OrderID{}.IsZero())
	assert.False(t, OrderID{Lo: 1}.IsZero())
}
