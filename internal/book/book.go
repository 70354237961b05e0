package book

import (
	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Order is a resting limit order. Everything except Size is immutable once
// the order is on the book; Size only ever decreases on partial fills.
type Order struct {
	ID        types.OrderID
	Owner     string
	Price     uint64
	Size      uint64
	Timestamp int64
}

// Level is the aggregate size resting at one price.
type Level struct {
	Price uint64 `json:"price"`
	Size  uint64 `json:"size"`
}

// Book holds one side of a market's order book as an ordered sequence.
// Bids are kept in descending price order, asks ascending, ties broken by
// ascending timestamp. The front of the sequence is always the best price,
// which is what makes the matching loop's front-first scan price-time fair.
type Book struct {
	bid    bool
	orders []*Order
}

// New returns an empty book for the given side.
func New(bid bool) *Book {
	return &Book{bid: bid}
}

// IsBidSide reports whether this is the bid side of the market.
func (b *Book) IsBidSide() bool {
	return b.bid
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// At returns the order at position i, best price first.
func (b *Book) At(i int) *Order {
	return b.orders[i]
}

// Best returns the order at the front of the book, or nil when empty.
func (b *Book) Best() *Order {
	if len(b.orders) == 0 {
		return nil
	}
	return b.orders[0]
}

// Insert places the order at the first position that keeps the side's sort
// invariant, appending when no resting order should sit behind it. Orders
// with an equal price and timestamp keep their arrival order.
func (b *Book) Insert(o *Order) {
	pos := len(b.orders)
	for i, r := range b.orders {
		if b.ranksBefore(o, r) {
			pos = i
			break
		}
	}
	b.orders = append(b.orders, nil)
	copy(b.orders[pos+1:], b.orders[pos:])
	b.orders[pos] = o
}

func (b *Book) ranksBefore(o, resting *Order) bool {
	if o.Price == resting.Price {
		return resting.Timestamp > o.Timestamp
	}
	if b.bid {
		return resting.Price < o.Price
	}
	return resting.Price > o.Price
}

// RemoveAt extracts and returns the order at position i, shifting the rest.
func (b *Book) RemoveAt(i int) *Order {
	o := b.orders[i]
	b.orders = append(b.orders[:i], b.orders[i+1:]...)
	return o
}

// Find scans from the front (best price first) and returns the position of
// the first order satisfying pred, or -1 when none does.
func (b *Book) Find(pred func(*Order) bool) int {
	for i, o := range b.orders {
		if pred(o) {
			return i
		}
	}
	return -1
}

// Orders returns a copy of the resting orders in book order.
func (b *Book) Orders() []Order {
	out := make([]Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = *o
	}
	return out
}

// Levels aggregates resting size per price in book order (best level first).
func (b *Book) Levels() []Level {
	levels := make([]Level, 0, len(b.orders))
	for _, o := range b.orders {
		if n := len(levels); n > 0 && levels[n-1].Price == o.Price {
			levels[n-1].Size += o.Size
			continue
		}
		levels = append(levels, Level{Price: o.Price, Size: o.Size})
	}
	return levels
}
