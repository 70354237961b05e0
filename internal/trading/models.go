package trading

import (
	"time"

	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/book"
	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Market is the static configuration of one base/quote pair. NextOrderSeq is
// the market's monotonic order id source; it only ever increases, so
// (order_id, owner) cancellation keys cannot collide within a market.
type Market struct {
	gorm.Model   `json:"-"`
	Symbol       string    `gorm:"uniqueIndex" json:"symbol"`
	BaseAsset    string    `json:"base_asset"`
	QuoteAsset   string    `json:"quote_asset"`
	NextOrderSeq uint64    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// VaultOwner is the custody identity holding this market's locked funds.
func (m *Market) VaultOwner() string {
	return "vault:" + m.Symbol
}

// Asset returns the base or quote asset identity.
func (m *Market) Asset(base bool) string {
	if base {
		return m.BaseAsset
	}
	return m.QuoteAsset
}

// RestingOrder is the persisted mirror of a book entry, used to rebuild the
// in-memory books on startup and queried for open-order listings.
type RestingOrder struct {
	gorm.Model `json:"-"`
	OrderID    string `gorm:"uniqueIndex:idx_resting_orders_symbol_order" json:"order_id"`
	Symbol     string `gorm:"uniqueIndex:idx_resting_orders_symbol_order" json:"symbol"`
	Owner      string `json:"owner"`
	Side       string `json:"side"`
	Price      uint64 `json:"price"`
	Size       uint64 `json:"size"`
	Timestamp  int64  `json:"timestamp"`
}

// Trade records one fill between a resting maker order and an incoming taker
// order, at the maker's price.
type Trade struct {
	gorm.Model   `json:"-"`
	TradeID      string    `gorm:"uniqueIndex" json:"trade_id"`
	Symbol       string    `gorm:"index" json:"symbol"`
	MakerOrderID string    `json:"maker_order_id"`
	TakerOrderID string    `json:"taker_order_id"`
	Maker        string    `json:"maker"`
	Taker        string    `json:"taker"`
	TakerSide    string    `json:"taker_side"`
	Price        uint64    `json:"price"`
	Size         uint64    `json:"size"`
	Value        uint64    `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}

// Order status values.
const (
	StatusOpen            = "OPEN"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCancelled       = "CANCELLED"
)

type CreateMarketRequest struct {
	Symbol     string `json:"symbol" binding:"required"`
	BaseAsset  string `json:"base_asset" binding:"required"`
	QuoteAsset string `json:"quote_asset" binding:"required"`
}

type PlaceOrderRequest struct {
	Symbol string     `json:"symbol" binding:"required"`
	Side   types.Side `json:"side" binding:"required"`
	Price  uint64     `json:"price"`
	Size   uint64     `json:"size"`
}

type PlaceOrderResponse struct {
	OrderID       string     `json:"order_id"`
	Symbol        string     `json:"symbol"`
	Side          types.Side `json:"side"`
	Price         uint64     `json:"price"`
	Size          uint64     `json:"size"`
	FilledSize    uint64     `json:"filled_size"`
	RemainingSize uint64     `json:"remaining_size"`
	Status        string     `json:"status"`
	Fills         []Trade    `json:"fills,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type CancelOrderResponse struct {
	OrderID      string     `json:"order_id"`
	Symbol       string     `json:"symbol"`
	Side         types.Side `json:"side"`
	RefundAsset  string     `json:"refund_asset"`
	RefundAmount uint64     `json:"refund_amount"`
	Status       string     `json:"status"`
	Timestamp    time.Time  `json:"timestamp"`
}

type OrderBookResponse struct {
	Symbol    string       `json:"symbol"`
	Bids      []book.Level `json:"bids"`
	Asks      []book.Level `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}
