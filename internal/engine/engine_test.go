package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeflow/tradeflow-api/internal/book"
	"github.com/tradeflow/tradeflow-api/internal/types"
)

func asks(orders ...*book.Order) *book.Book {
	b := book.New(false)
	for _, o := range orders {
		b.Insert(o)
	}
	return b
}

func bids(orders ...*book.Order) *book.Book {
	b := book.New(true)
	for _, o := range orders {
		b.Insert(o)
	}
	return b
}

func resting(seq, price, size uint64, ts int64, owner string) *book.Order {
	return &book.Order{
		ID:        types.OrderID{Lo: seq},
		Owner:     owner,
		Price:     price,
		Size:      size,
		Timestamp: ts,
	}
}

func TestMatchEmptyBook(t *testing.T) {
	res, err := Match(true, 100, 10, book.New(false))
	require.NoError(t, err)
	assert.Empty(t, res.Fills)
	assert.Equal(t, uint64(10), res.Remaining)
	assert.Equal(t, 0, res.FullFills)
	assert.Equal(t, uint64(0), res.PartialFill)
}

func TestMatchNoCross(t *testing.T) {
	opposite := asks(resting(1, 101, 10, 1, "maker"))

	// Bid at 100 does not reach the 101 ask
	res, err := Match(true, 100, 10, opposite)
	require.NoError(t, err)
	assert.Empty(t, res.Fills)
	assert.Equal(t, uint64(10), res.Remaining)

	// Ask at 102 does not reach down to a 101 bid
	res, err = Match(false, 102, 10, bids(resting(2, 101, 10, 1, "maker")))
	require.NoError(t, err)
	assert.Empty(t, res.Fills)
}

func TestMatchFullFillAtMakerPrice(t *testing.T) {
	opposite := asks(resting(1, 98, 10, 1, "maker"))

	res, err := Match(true, 100, 10, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, uint64(0), res.Remaining)
	assert.Equal(t, 1, res.FullFills)
	assert.Equal(t, uint64(0), res.PartialFill)

	// Fill executes at the resting order's price, not the limit
	f := res.Fills[0]
	assert.Equal(t, uint64(98), f.Price)
	assert.Equal(t, uint64(10), f.Size)
	assert.Equal(t, uint64(980), f.Value)
	assert.Equal(t, "maker", f.Maker)
	assert.Equal(t, types.OrderID{Lo: 1}, f.MakerOrderID)
}

func TestMatchPartialFillOfIncoming(t *testing.T) {
	opposite := asks(resting(1, 100, 60, 1, "maker"))

	res, err := Match(true, 100, 100, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, uint64(40), res.Remaining)
	assert.Equal(t, 1, res.FullFills)
	assert.Equal(t, uint64(0), res.PartialFill)
	assert.Equal(t, uint64(60), res.Fills[0].Size)
}

func TestMatchPartialFillOfResting(t *testing.T) {
	opposite := asks(resting(1, 100, 60, 1, "maker"))

	res, err := Match(true, 100, 25, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, uint64(0), res.Remaining)
	assert.Equal(t, 0, res.FullFills)
	assert.Equal(t, uint64(25), res.PartialFill)

	// Match never mutates the book
	assert.Equal(t, uint64(60), opposite.Best().Size)
}

func TestMatchWalksLevels(t *testing.T) {
	opposite := asks(
		resting(1, 98, 10, 1, "maker-a"),
		resting(2, 99, 10, 2, "maker-b"),
		resting(3, 100, 10, 3, "maker-c"),
		resting(4, 101, 10, 4, "maker-d"),
	)

	res, err := Match(true, 100, 25, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 3)
	assert.Equal(t, uint64(0), res.Remaining)
	assert.Equal(t, 2, res.FullFills)
	assert.Equal(t, uint64(5), res.PartialFill)

	assert.Equal(t, uint64(98), res.Fills[0].Price)
	assert.Equal(t, uint64(99), res.Fills[1].Price)
	assert.Equal(t, uint64(100), res.Fills[2].Price)
	assert.Equal(t, uint64(5), res.Fills[2].Size)
}

func TestMatchStopsAtLimit(t *testing.T) {
	opposite := asks(
		resting(1, 98, 10, 1, "maker-a"),
		resting(2, 103, 10, 2, "maker-b"),
	)

	// Second level is past the limit, so the incoming order rests partially
	res, err := Match(true, 100, 25, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, uint64(15), res.Remaining)
	assert.Equal(t, 1, res.FullFills)
}

func TestMatchTimePriority(t *testing.T) {
	opposite := asks(
		resting(2, 100, 10, 20, "late"),
		resting(1, 100, 10, 10, "early"),
	)

	res, err := Match(true, 100, 10, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 1)
	assert.Equal(t, "early", res.Fills[0].Maker)
}

func TestMatchSellSide(t *testing.T) {
	opposite := bids(
		resting(1, 102, 10, 1, "maker-a"),
		resting(2, 100, 10, 2, "maker-b"),
	)

	// Incoming ask at 100 takes the best bid first
	res, err := Match(false, 100, 15, opposite)
	require.NoError(t, err)
	require.Len(t, res.Fills, 2)
	assert.Equal(t, uint64(102), res.Fills[0].Price)
	assert.Equal(t, uint64(100), res.Fills[1].Price)
	assert.Equal(t, uint64(5), res.Fills[1].Size)
	assert.Equal(t, uint64(0), res.Remaining)
}

func TestMatchValueOverflow(t *testing.T) {
	opposite := asks(resting(1, math.MaxUint64, 2, 1, "maker"))

	res, err := Match(true, math.MaxUint64, 2, opposite)
	assert.ErrorIs(t, err, types.ErrMathOverflow)
	assert.Empty(t, res.Fills)
}
