package types

import (
	"errors"
	"math/big"
	"strconv"
)

// Side identifies which half of the book an order belongs to.
type Side string

const (
	SideBuy  Side = "BUY"  // bid
	SideSell Side = "SELL" // ask
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// IsBid reports whether the side is the buy side of the book.
func (s Side) IsBid() bool {
	return s == SideBuy
}

// OrderID is a 128-bit order identifier. Ids are drawn from a per-market
// monotonic sequence, so in practice only the low word is populated; the
// width is kept so ids survive any external 128-bit id space unchanged.
type OrderID struct {
	Hi uint64
	Lo uint64
}

var maxOrderID = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// IsZero reports whether the id is the zero value.
func (id OrderID) IsZero() bool {
	return id.Hi == 0 && id.Lo == 0
}

// String renders the id as an unsigned decimal.
func (id OrderID) String() string {
	if id.Hi == 0 {
		return strconv.FormatUint(id.Lo, 10)
	}
	n := new(big.Int).Lsh(new(big.Int).SetUint64(id.Hi), 64)
	n.Or(n, new(big.Int).SetUint64(id.Lo))
	return n.String()
}

// ParseOrderID parses an unsigned decimal into a 128-bit order id.
func ParseOrderID(s string) (OrderID, error) {
	if s == "" {
		return OrderID{}, errors.New("empty order id")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.Cmp(maxOrderID) > 0 {
		return OrderID{}, errors.New("invalid order id")
	}
	lo := new(big.Int).And(n, new(big.Int).SetUint64(^uint64(0)))
	hi := new(big.Int).Rsh(n, 64)
	return OrderID{Hi: hi.Uint64(), Lo: lo.Uint64()}, nil
}
