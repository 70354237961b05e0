package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeflow/tradeflow-api/internal/types"
)

func order(seq, price, size uint64, ts int64) *Order {
	return &Order{
		ID:        types.OrderID{Lo: seq},
		Owner:     "client-1",
		Price:     price,
		Size:      size,
		Timestamp: ts,
	}
}

func prices(b *Book) []uint64 {
	out := make([]uint64, b.Len())
	for i := 0; i < b.Len(); i++ {
		out[i] = b.At(i).Price
	}
	return out
}

func TestBidOrdering(t *testing.T) {
	b := New(true)
	b.Insert(order(1, 100, 10, 1))
	b.Insert(order(2, 105, 10, 2))
	b.Insert(order(3, 95, 10, 3))
	b.Insert(order(4, 102, 10, 4))

	// Highest bid first
	assert.Equal(t, []uint64{105, 102, 100, 95}, prices(b))
	assert.Equal(t, uint64(105), b.Best().Price)
	assert.True(t, b.IsBidSide())
}

func TestAskOrdering(t *testing.T) {
	b := New(false)
	b.Insert(order(1, 100, 10, 1))
	b.Insert(order(2, 105, 10, 2))
	b.Insert(order(3, 95, 10, 3))
	b.Insert(order(4, 102, 10, 4))

	// Lowest ask first
	assert.Equal(t, []uint64{95, 100, 102, 105}, prices(b))
	assert.Equal(t, uint64(95), b.Best().Price)
	assert.False(t, b.IsBidSide())
}

func TestTimePriorityAtEqualPrice(t *testing.T) {
	b := New(true)
	b.Insert(order(2, 100, 10, 20))
	b.Insert(order(1, 100, 10, 10))
	b.Insert(order(3, 100, 10, 30))

	// Earliest timestamp wins at the same price
	assert.Equal(t, types.OrderID{Lo: 1}, b.At(0).ID)
	assert.Equal(t, types.OrderID{Lo: 2}, b.At(1).ID)
	assert.Equal(t, types.OrderID{Lo: 3}, b.At(2).ID)
}

func TestEqualPriceAndTimestampKeepsArrivalOrder(t *testing.T) {
	b := New(false)
	b.Insert(order(1, 100, 10, 10))
	b.Insert(order(2, 100, 10, 10))

	assert.Equal(t, types.OrderID{Lo: 1}, b.At(0).ID)
	assert.Equal(t, types.OrderID{Lo: 2}, b.At(1).ID)
}

func TestBestEmpty(t *testing.T) {
	assert.Nil(t, New(true).Best())
	assert.Equal(t, 0, New(true).Len())
}

func TestRemoveAt(t *testing.T) {
	b := New(false)
	b.Insert(order(1, 95, 10, 1))
	b.Insert(order(2, 100, 10, 2))
	b.Insert(order(3, 105, 10, 3))

	removed := b.RemoveAt(1)
	assert.Equal(t, types.OrderID{Lo: 2}, removed.ID)
	assert.Equal(t, []uint64{95, 105}, prices(b))

	b.RemoveAt(0)
	b.RemoveAt(0)
	assert.Equal(t, 0, b.Len())
}

func TestFind(t *testing.T) {
	b := New(true)
	b.Insert(order(1, 100, 10, 1))
	b.Insert(order(2, 105, 10, 2))

	idx := b.Find(func(o *Order) bool { return o.ID == (types.OrderID{Lo: 1}) })
	require.Equal(t, 1, idx)
	assert.Equal(t, uint64(100), b.At(idx).Price)

	idx = b.Find(func(o *Order) bool { return o.ID == (types.OrderID{Lo: 99}) })
	assert.Equal(t, -1, idx)
}

func TestOrdersReturnsCopy(t *testing.T) {
	b := New(true)
	b.Insert(order(1, 100, 10, 1))

	orders := b.Orders()
	require.Len(t, orders, 1)
	orders[0].Size = 999
	assert.Equal(t, uint64(10), b.At(0).Size)
}

func TestLevels(t *testing.T) {
	b := New(true)
	b.Insert(order(1, 100, 10, 1))
	b.Insert(order(2, 100, 5, 2))
	b.Insert(order(3, 95, 7, 3))
	b.Insert(order(4, 105, 3, 4))

	levels := b.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, Level{Price: 105, Size: 3}, levels[0])
	assert.Equal(t, Level{Price: 100, Size: 15}, levels[1])
	assert.Equal(t, Level{Price: 95, Size: 7}, levels[2])

	assert.Empty(t, New(false).Levels())
}
