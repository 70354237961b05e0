// Package engine implements price-time priority matching for one market.
//
// Match is a pure computation: it scans the opposite book front-first and
// returns the fills an incoming order would generate, without touching the
// book or any balance. The caller applies the result only after every
// checked arithmetic step has succeeded, so a failing placement leaves no
// partial mutation behind.
package engine

import (
	"github.com/tradeflow/tradeflow-api/internal/book"
	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Fill is one match between the incoming order and a resting order. Price is
// the resting (maker) order's price; Value is Price*Size, overflow-checked.
type Fill struct {
	MakerOrderID types.OrderID
	Maker        string
	Price        uint64
	Size         uint64
	Value        uint64
}

// Result describes the complete outcome of matching one incoming order.
// FullFills resting orders are consumed from the front of the opposite book;
// PartialFill is the size taken from the next order after those, if any.
type Result struct {
	Fills       []Fill
	Remaining   uint64
	FullFills   int
	PartialFill uint64
}

// crosses reports whether the incoming limit price is marketable against a
// resting order: a bid must reach up to the ask, an ask down to the bid.
func crosses(isBid bool, price, restingPrice uint64) bool {
	if isBid {
		return price >= restingPrice
	}
	return price <= restingPrice
}

// Match runs the greedy single-pass matching loop for an incoming order of
// the given side against the opposite book. The book's sort invariant is the
// whole tie-break: earlier orders at the best price sit closer to the front,
// so consuming front-first is price-time priority by construction.
//
// The loop stops when the book is exhausted, the best resting price no
// longer crosses the limit, or the incoming size is fully matched. Overflow
// on a match value aborts the whole computation with ErrMathOverflow.
func Match(isBid bool, price, size uint64, opposite *book.Book) (Result, error) {
	res := Result{Remaining: size}

	for i := 0; i < opposite.Len() && res.Remaining > 0; i++ {
		resting := opposite.At(i)
		if !crosses(isBid, price, resting.Price) {
			break
		}

		matchSize := res.Remaining
		if resting.Size < matchSize {
			matchSize = resting.Size
		}
		matchValue, ok := types.CheckedMul(resting.Price, matchSize)
		if !ok {
			return Result{}, types.ErrMathOverflow
		}

		res.Fills = append(res.Fills, Fill{
			MakerOrderID: resting.ID,
			Maker:        resting.Owner,
			Price:        resting.Price,
			Size:         matchSize,
			Value:        matchValue,
		})

		if matchSize == resting.Size {
			res.FullFills++
		} else {
			// Partial fill: the resting order keeps its place at the
			// front with a reduced size, and the incoming order is done.
			res.PartialFill = matchSize
		}

		remaining, ok := types.CheckedSub(res.Remaining, matchSize)
		if !ok {
			return Result{}, types.ErrMathOverflow
		}
		res.Remaining = remaining
	}

	return res, nil
}
