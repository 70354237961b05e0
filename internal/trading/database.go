package trading

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// WithTx returns a view of the database bound to an open transaction.
func (d *Database) WithTx(tx *gorm.DB) *Database {
	return &Database{db: tx}
}

func (d *Database) CreateMarket(market *Market) error {
	return d.db.Create(market).Error
}

func (d *Database) GetMarket(symbol string) (*Market, error) {
	var market Market
	if err := d.db.Where("symbol = ?", symbol).First(&market).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrMarketNotFound
		}
		return nil, err
	}
	return &market, nil
}

func (d *Database) ListMarkets() ([]Market, error) {
	var markets []Market
	if err := d.db.Order("symbol").Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

// SetNextOrderSeq persists the market's monotonic order id position.
func (d *Database) SetNextOrderSeq(symbol string, seq uint64) error {
	return d.db.Model(&Market{}).
		Where("symbol = ?", symbol).
		Update("next_order_seq", seq).Error
}

// ListRestingOrders returns one side's resting orders in book order, so the
// in-memory book can be rebuilt by appending. The row id breaks price and
// timestamp ties: rows are created in arrival order, so rebuilds stay
// deterministic even when two orders share a nanosecond.
func (d *Database) ListRestingOrders(symbol string, side types.Side) ([]RestingOrder, error) {
	priceOrder := "price ASC"
	if side.IsBid() {
		priceOrder = "price DESC"
	}
	var orders []RestingOrder
	if err := d.db.Where("symbol = ? AND side = ?", symbol, string(side)).
		Order(priceOrder).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOpenOrders returns a client's resting orders across both sides.
func (d *Database) ListOpenOrders(symbol, owner string) ([]RestingOrder, error) {
	var orders []RestingOrder
	if err := d.db.Where("symbol = ? AND owner = ?", symbol, owner).
		Order("timestamp ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) CreateRestingOrder(order *RestingOrder) error {
	return d.db.Create(order).Error
}

func (d *Database) UpdateRestingOrderSize(symbol, orderID string, size uint64) error {
	return d.db.Model(&RestingOrder{}).
		Where("symbol = ? AND order_id = ?", symbol, orderID).
		Update("size", size).Error
}

func (d *Database) DeleteRestingOrder(symbol, orderID string) error {
	return d.db.Where("symbol = ? AND order_id = ?", symbol, orderID).
		Delete(&RestingOrder{}).Error
}

func (d *Database) CreateTrade(trade *Trade) error {
	return d.db.Create(trade).Error
}

func (d *Database) GetTrades(symbol string, limit int) ([]Trade, error) {
	var trades []Trade
	if err := d.db.Where("symbol = ?", symbol).
		Order("created_at DESC").
		Limit(limit).
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}
