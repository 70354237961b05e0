package trading

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/book"
	"github.com/tradeflow/tradeflow-api/internal/engine"
	"github.com/tradeflow/tradeflow-api/internal/ledger"
	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Service is the order lifecycle manager. It owns the in-memory books for
// every market, serializes operations per market, and ties the matching
// engine to the custody ledger.
//
// Every operation is all-or-nothing: fills and balance effects are computed
// first, persisted in a single transaction, and only then applied to the
// in-memory books. A failure at any step leaves both stores untouched.
type Service struct {
	gormDB *gorm.DB
	db     *Database
	ledger *ledger.Database

	mu      sync.RWMutex
	markets map[string]*marketState
}

// marketState is one market's live trading state. mu is the per-market
// operation lock of the concurrency model: place, cancel and settle against
// the same market never interleave; different markets run independently.
type marketState struct {
	mu     sync.Mutex
	market Market
	bids   *book.Book
	asks   *book.Book
}

// NewService loads every market and rebuilds its books from the persisted
// resting orders.
func NewService(gormDB *gorm.DB) (*Service, error) {
	s := &Service{
		gormDB:  gormDB,
		db:      NewDatabase(gormDB),
		ledger:  ledger.NewDatabase(gormDB),
		markets: make(map[string]*marketState),
	}

	markets, err := s.db.ListMarkets()
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	for _, m := range markets {
		ms, err := s.loadMarketState(m)
		if err != nil {
			return nil, err
		}
		s.markets[m.Symbol] = ms
	}

	log.Info().Int("markets", len(markets)).Str("service", "trading").Msg("order books loaded")
	return s, nil
}

func (s *Service) loadMarketState(m Market) (*marketState, error) {
	ms := &marketState{
		market: m,
		bids:   book.New(true),
		asks:   book.New(false),
	}
	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		rows, err := s.db.ListRestingOrders(m.Symbol, side)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s book for %s: %w", side, m.Symbol, err)
		}
		b := ms.asks
		if side.IsBid() {
			b = ms.bids
		}
		for i := range rows {
			id, err := types.ParseOrderID(rows[i].OrderID)
			if err != nil {
				return nil, fmt.Errorf("corrupt order id %q in %s book: %w", rows[i].OrderID, m.Symbol, err)
			}
			b.Insert(&book.Order{
				ID:        id,
				Owner:     rows[i].Owner,
				Price:     rows[i].Price,
				Size:      rows[i].Size,
				Timestamp: rows[i].Timestamp,
			})
		}
	}
	return ms, nil
}

// CreateMarket registers a new base/quote pair with empty books.
func (s *Service) CreateMarket(req CreateMarketRequest) (*Market, error) {
	market := &Market{
		Symbol:     req.Symbol,
		BaseAsset:  req.BaseAsset,
		QuoteAsset: req.QuoteAsset,
		CreatedAt:  time.Now(),
	}
	if err := s.db.CreateMarket(market); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.markets[market.Symbol] = &marketState{
		market: *market,
		bids:   book.New(true),
		asks:   book.New(false),
	}
	s.mu.Unlock()

	log.Info().
		Str("symbol", market.Symbol).
		Str("base_asset", market.BaseAsset).
		Str("quote_asset", market.QuoteAsset).
		Str("service", "trading").
		Msg("market created")
	return market, nil
}

func (s *Service) marketState(symbol string) (*marketState, error) {
	s.mu.RLock()
	ms, ok := s.markets[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, types.ErrMarketNotFound
	}
	return ms, nil
}

// WithMarket runs fn while holding the market's operation lock. Settlement
// uses this so balance drains serialize with matching on the same market.
func (s *Service) WithMarket(symbol string, fn func(market *Market) error) error {
	ms, err := s.marketState(symbol)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return fn(&ms.market)
}

// PlaceOrder locks the required funds in custody, matches the incoming order
// against the opposite book, credits taker and makers, and rests any
// unfilled remainder in the same-side book under a fresh order id.
func (s *Service) PlaceOrder(clientID string, req PlaceOrderRequest) (*PlaceOrderResponse, error) {
	logger := log.With().
		Str("client_id", clientID).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Str("service", "trading").
		Logger()

	if !req.Side.Valid() || req.Price == 0 || req.Size == 0 {
		return nil, types.ErrInvalidOrder
	}

	ms, err := s.marketState(req.Symbol)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	isBid := req.Side.IsBid()
	market := &ms.market

	// Bids lock price*size of quote, asks lock size of base.
	required := req.Size
	if isBid {
		var ok bool
		required, ok = types.CheckedMul(req.Price, req.Size)
		if !ok {
			return nil, types.ErrMathOverflow
		}
	}

	opposite, same := ms.asks, ms.bids
	if !isBid {
		opposite, same = ms.bids, ms.asks
	}

	res, err := engine.Match(isBid, req.Price, req.Size, opposite)
	if err != nil {
		return nil, err
	}

	seq := market.NextOrderSeq + 1
	orderID := types.OrderID{Lo: seq}
	now := time.Now()
	timestamp := now.UnixNano()

	logger.Debug().
		Str("order_id", orderID.String()).
		Uint64("price", req.Price).
		Uint64("size", req.Size).
		Uint64("required", required).
		Int("fills", len(res.Fills)).
		Msg("computed match result")

	var trades []Trade
	err = s.gormDB.Transaction(func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)
		db := s.db.WithTx(tx)

		// Move the spent asset from the caller's custody account into the
		// market vault, then reflect it in the locked balance.
		if err := led.Move(clientID, market.VaultOwner(), market.Asset(!isBid), required); err != nil {
			return err
		}

		records := make(map[string]*ledger.BalanceRecord)
		loadRecord := func(owner string) (*ledger.BalanceRecord, error) {
			if rec, ok := records[owner]; ok {
				return rec, nil
			}
			rec, err := led.LoadOrCreateBalanceRecord(owner, market.Symbol)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve balance record for %s: %w", owner, err)
			}
			records[owner] = rec
			return rec, nil
		}

		taker, err := loadRecord(clientID)
		if err != nil {
			return err
		}
		if err := taker.Lock(!isBid, required); err != nil {
			return err
		}

		for _, f := range res.Fills {
			maker, err := loadRecord(f.Maker)
			if err != nil {
				return err
			}
			if err := applyFill(taker, maker, isBid, req.Price, f); err != nil {
				return err
			}

			trade := Trade{
				TradeID:      "TRD_" + uuid.New().String(),
				Symbol:       market.Symbol,
				MakerOrderID: f.MakerOrderID.String(),
				TakerOrderID: orderID.String(),
				Maker:        f.Maker,
				Taker:        clientID,
				TakerSide:    string(req.Side),
				Price:        f.Price,
				Size:         f.Size,
				Value:        f.Value,
				CreatedAt:    now,
			}
			if err := db.CreateTrade(&trade); err != nil {
				return fmt.Errorf("failed to record trade: %w", err)
			}
			trades = append(trades, trade)
		}

		// Mirror the book mutations: fully filled makers are removed,
		// a partially filled maker keeps its place with a reduced size.
		for i := 0; i < res.FullFills; i++ {
			if err := db.DeleteRestingOrder(market.Symbol, opposite.At(i).ID.String()); err != nil {
				return fmt.Errorf("failed to remove filled order: %w", err)
			}
		}
		if res.PartialFill > 0 {
			partial := opposite.At(res.FullFills)
			newSize, ok := types.CheckedSub(partial.Size, res.PartialFill)
			if !ok {
				return types.ErrMathOverflow
			}
			if err := db.UpdateRestingOrderSize(market.Symbol, partial.ID.String(), newSize); err != nil {
				return fmt.Errorf("failed to update partial fill: %w", err)
			}
		}

		if res.Remaining > 0 {
			resting := RestingOrder{
				OrderID:   orderID.String(),
				Symbol:    market.Symbol,
				Owner:     clientID,
				Side:      string(req.Side),
				Price:     req.Price,
				Size:      res.Remaining,
				Timestamp: timestamp,
			}
			if err := db.CreateRestingOrder(&resting); err != nil {
				return fmt.Errorf("failed to rest order: %w", err)
			}
		}

		for _, rec := range records {
			if err := led.SaveBalanceRecord(rec); err != nil {
				return fmt.Errorf("failed to save balance record: %w", err)
			}
		}
		return db.SetNextOrderSeq(market.Symbol, seq)
	})
	if err != nil {
		logger.Error().Err(err).Msg("order placement failed")
		return nil, err
	}

	// Persisted successfully; commit the same mutations to the books.
	for i := 0; i < res.FullFills; i++ {
		opposite.RemoveAt(0)
	}
	if res.PartialFill > 0 {
		opposite.Best().Size -= res.PartialFill
	}
	if res.Remaining > 0 {
		same.Insert(&book.Order{
			ID:        orderID,
			Owner:     clientID,
			Price:     req.Price,
			Size:      res.Remaining,
			Timestamp: timestamp,
		})
	}
	market.NextOrderSeq = seq

	filled := req.Size - res.Remaining
	status := StatusOpen
	switch {
	case res.Remaining == 0:
		status = StatusFilled
	case filled > 0:
		status = StatusPartiallyFilled
	}

	logger.Info().
		Str("order_id", orderID.String()).
		Str("status", status).
		Uint64("filled_size", filled).
		Uint64("remaining_size", res.Remaining).
		Int("fills", len(trades)).
		Msg("order placed")

	return &PlaceOrderResponse{
		OrderID:       orderID.String(),
		Symbol:        market.Symbol,
		Side:          req.Side,
		Price:         req.Price,
		Size:          req.Size,
		FilledSize:    filled,
		RemainingSize: res.Remaining,
		Status:        status,
		Fills:         trades,
		CreatedAt:     now,
	}, nil
}

// applyFill applies one fill's balance effects. The taker spends from the
// locked balance funded at placement and receives the opposite asset free;
// the maker's record, locked at their own placement, is credited directly.
// A bid that matched below its limit price also releases the difference back
// to the taker's free quote, so no locked value is left without a resting
// order backing it.
func applyFill(taker, maker *ledger.BalanceRecord, isBid bool, limitPrice uint64, f engine.Fill) error {
	if isBid {
		priceDiff, ok := types.CheckedSub(limitPrice, f.Price)
		if !ok {
			return types.ErrMathOverflow
		}
		improvement, ok := types.CheckedMul(priceDiff, f.Size)
		if !ok {
			return types.ErrMathOverflow
		}
		spent, ok := types.CheckedAdd(f.Value, improvement)
		if !ok {
			return types.ErrMathOverflow
		}

		if err := taker.Unlock(false, spent); err != nil {
			return err
		}
		if err := taker.CreditFree(true, f.Size); err != nil {
			return err
		}
		if improvement > 0 {
			if err := taker.CreditFree(false, improvement); err != nil {
				return err
			}
		}
		if err := maker.Unlock(true, f.Size); err != nil {
			return err
		}
		return maker.CreditFree(false, f.Value)
	}

	if err := taker.Unlock(true, f.Size); err != nil {
		return err
	}
	if err := taker.CreditFree(false, f.Value); err != nil {
		return err
	}
	if err := maker.Unlock(false, f.Value); err != nil {
		return err
	}
	return maker.CreditFree(true, f.Size)
}

// CancelOrder removes the caller's resting order and refunds the locked
// amount through custody. An order id owned by someone else reports the same
// not-found error as a missing id, so callers cannot probe other users'
// orders.
func (s *Service) CancelOrder(clientID, symbol string, side types.Side, orderID types.OrderID) (*CancelOrderResponse, error) {
	logger := log.With().
		Str("client_id", clientID).
		Str("symbol", symbol).
		Str("order_id", orderID.String()).
		Str("service", "trading").
		Logger()

	if !side.Valid() {
		return nil, types.ErrInvalidOrder
	}
	ms, err := s.marketState(symbol)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	isBid := side.IsBid()
	market := &ms.market
	b := ms.asks
	if isBid {
		b = ms.bids
	}

	idx := b.Find(func(o *book.Order) bool {
		return o.ID == orderID && o.Owner == clientID
	})
	if idx < 0 {
		return nil, types.ErrOrderNotFound
	}
	order := b.At(idx)

	// Bid refunds price*size of quote, ask refunds size of base.
	refund := order.Size
	if isBid {
		var ok bool
		refund, ok = types.CheckedMul(order.Price, order.Size)
		if !ok {
			return nil, types.ErrMathOverflow
		}
	}

	err = s.gormDB.Transaction(func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)
		db := s.db.WithTx(tx)

		record, err := led.LoadOrCreateBalanceRecord(clientID, market.Symbol)
		if err != nil {
			return err
		}
		if err := record.Unlock(!isBid, refund); err != nil {
			return err
		}
		if err := led.Move(market.VaultOwner(), clientID, market.Asset(!isBid), refund); err != nil {
			return err
		}
		if err := led.SaveBalanceRecord(record); err != nil {
			return err
		}
		return db.DeleteRestingOrder(market.Symbol, orderID.String())
	})
	if err != nil {
		logger.Error().Err(err).Msg("order cancellation failed")
		return nil, err
	}

	b.RemoveAt(idx)

	logger.Info().
		Uint64("refund_amount", refund).
		Str("refund_asset", market.Asset(!isBid)).
		Msg("order cancelled")

	return &CancelOrderResponse{
		OrderID:      orderID.String(),
		Symbol:       market.Symbol,
		Side:         side,
		RefundAsset:  market.Asset(!isBid),
		RefundAmount: refund,
		Status:       StatusCancelled,
		Timestamp:    time.Now(),
	}, nil
}

// GetMarket returns one market's configuration.
func (s *Service) GetMarket(symbol string) (*Market, error) {
	return s.db.GetMarket(symbol)
}

// ListMarkets returns every registered market.
func (s *Service) ListMarkets() ([]Market, error) {
	return s.db.ListMarkets()
}

// GetOrderBook returns the aggregated depth for one market.
func (s *Service) GetOrderBook(symbol string) (*OrderBookResponse, error) {
	ms, err := s.marketState(symbol)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return &OrderBookResponse{
		Symbol:    symbol,
		Bids:      ms.bids.Levels(),
		Asks:      ms.asks.Levels(),
		Timestamp: time.Now(),
	}, nil
}

// GetOpenOrders returns the caller's resting orders in one market.
func (s *Service) GetOpenOrders(clientID, symbol string) ([]RestingOrder, error) {
	if _, err := s.marketState(symbol); err != nil {
		return nil, err
	}
	return s.db.ListOpenOrders(symbol, clientID)
}

// GetTrades returns a market's most recent trades.
func (s *Service) GetTrades(symbol string, limit int) ([]Trade, error) {
	if _, err := s.marketState(symbol); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.db.GetTrades(symbol, limit)
}
