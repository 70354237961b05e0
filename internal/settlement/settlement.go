package settlement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/ledger"
	"github.com/tradeflow/tradeflow-api/internal/trading"
	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Service drains free balances out of custody back to their owners. It runs
// under the market's operation lock so settlement never interleaves with
// matching on the same market.
type Service struct {
	gormDB  *gorm.DB
	db      *Database
	ledger  *ledger.Database
	trading *trading.Service
}

func NewService(gormDB *gorm.DB, tradingService *trading.Service) *Service {
	return &Service{
		gormDB:  gormDB,
		db:      NewDatabase(gormDB),
		ledger:  ledger.NewDatabase(gormDB),
		trading: tradingService,
	}
}

// SettleFunds transfers the caller's entire base and quote free balances out
// of the market vault. The two asset legs are independent: each leg is a
// transfer-then-zero unit, and one leg failing does not undo or block the
// other. Fails with NoFundsToSettle when both free balances are zero.
func (s *Service) SettleFunds(clientID, symbol string) (*SettleFundsResponse, error) {
	logger := log.With().
		Str("client_id", clientID).
		Str("symbol", symbol).
		Str("service", "settlement").
		Logger()

	logger.Info().Msg("starting settlement")

	result := &SettleFundsResponse{
		ClientID:  clientID,
		Symbol:    symbol,
		Timestamp: time.Now(),
	}

	var legErr error
	err := s.trading.WithMarket(symbol, func(market *trading.Market) error {
		record, err := s.ledger.GetBalanceRecord(clientID, symbol)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNoFundsToSettle
			}
			return err
		}
		if record.BaseFree == 0 && record.QuoteFree == 0 {
			return types.ErrNoFundsToSettle
		}

		for _, base := range []bool{true, false} {
			amount := record.Free(base)
			if amount == 0 {
				continue
			}
			leg, err := s.settleLeg(clientID, market, base, amount)
			if err != nil {
				logger.Error().Err(err).
					Str("asset", market.Asset(base)).
					Uint64("amount", amount).
					Msg("settlement leg failed")
				if legErr == nil {
					legErr = err
				}
				continue
			}
			result.Legs = append(result.Legs, *leg)
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("settlement failed")
		return nil, err
	}
	if legErr != nil {
		return nil, legErr
	}

	logger.Info().Int("legs", len(result.Legs)).Msg("settlement completed")
	return result, nil
}

// settleLeg transfers one asset's free balance to the owner and zeroes it as
// a single unit. The balance is only zeroed once the transfer is committed
// in the same transaction, so funds can never be both kept and paid out.
func (s *Service) settleLeg(clientID string, market *trading.Market, base bool, amount uint64) (*Leg, error) {
	settlement := &Settlement{
		SettlementID: "STL_" + uuid.New().String(),
		ClientID:     clientID,
		Symbol:       market.Symbol,
		Asset:        market.Asset(base),
		Amount:       amount,
		Type:         TypeSettle,
		Status:       StatusSettled,
		CreatedAt:    time.Now(),
	}

	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)
		record, err := led.GetBalanceRecord(clientID, market.Symbol)
		if err != nil {
			return err
		}
		if err := led.Move(market.VaultOwner(), clientID, market.Asset(base), amount); err != nil {
			return err
		}
		if err := record.DebitFree(base, amount); err != nil {
			return err
		}
		if err := led.SaveBalanceRecord(record); err != nil {
			return err
		}
		return NewDatabase(tx).CreateSettlement(settlement)
	})
	if err != nil {
		settlement.Status = StatusFailed
		if auditErr := s.db.CreateSettlement(settlement); auditErr != nil {
			log.Error().Err(auditErr).
				Str("settlement_id", settlement.SettlementID).
				Msg("failed to record failed settlement")
		}
		return nil, err
	}

	return &Leg{
		SettlementID: settlement.SettlementID,
		Asset:        settlement.Asset,
		Amount:       settlement.Amount,
	}, nil
}

// ClaimFunds settles a chosen amount of one free balance instead of draining
// both legs. A zero amount fails with InvalidClaimAmount; claiming more than
// the free balance fails with InsufficientBalanceClaim.
func (s *Service) ClaimFunds(clientID, symbol string, base bool, amount uint64) (*SettleFundsResponse, error) {
	logger := log.With().
		Str("client_id", clientID).
		Str("symbol", symbol).
		Str("service", "settlement").
		Logger()

	if amount == 0 {
		return nil, types.ErrInvalidClaimAmount
	}

	result := &SettleFundsResponse{
		ClientID:  clientID,
		Symbol:    symbol,
		Timestamp: time.Now(),
	}

	err := s.trading.WithMarket(symbol, func(market *trading.Market) error {
		settlement := &Settlement{
			SettlementID: "STL_" + uuid.New().String(),
			ClientID:     clientID,
			Symbol:       market.Symbol,
			Asset:        market.Asset(base),
			Amount:       amount,
			Type:         TypeClaim,
			Status:       StatusSettled,
			CreatedAt:    time.Now(),
		}

		err := s.gormDB.Transaction(func(tx *gorm.DB) error {
			led := s.ledger.WithTx(tx)
			record, err := led.GetBalanceRecord(clientID, symbol)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.ErrInsufficientBalanceClaim
				}
				return err
			}
			if err := record.DebitFree(base, amount); err != nil {
				return err
			}
			if err := led.Move(market.VaultOwner(), clientID, market.Asset(base), amount); err != nil {
				return err
			}
			if err := led.SaveBalanceRecord(record); err != nil {
				return err
			}
			return NewDatabase(tx).CreateSettlement(settlement)
		})
		if err != nil {
			return err
		}

		result.Legs = append(result.Legs, Leg{
			SettlementID: settlement.SettlementID,
			Asset:        settlement.Asset,
			Amount:       settlement.Amount,
		})
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("claim failed")
		return nil, err
	}

	logger.Info().Uint64("amount", amount).Msg("claim completed")
	return result, nil
}

// GetSettlement retrieves a settlement by ID
func (s *Service) GetSettlement(settlementID string) (*Settlement, error) {
	return s.db.GetSettlement(settlementID)
}

// GetClientSettlements retrieves all settlements for a client
func (s *Service) GetClientSettlements(clientID string) ([]Settlement, error) {
	return s.db.GetClientSettlements(clientID)
}
