package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/database/migrations"
	"github.com/tradeflow/tradeflow-api/internal/ledger"
	"github.com/tradeflow/tradeflow-api/internal/settlement"
	"github.com/tradeflow/tradeflow-api/internal/trading"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&trading.Market{},
		&trading.RestingOrder{},
		&trading.Trade{},
		&ledger.Account{},
		&ledger.BalanceRecord{},
		&settlement.Settlement{},
	)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddBookIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
