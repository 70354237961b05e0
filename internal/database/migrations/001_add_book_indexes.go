package migrations

import (
	"gorm.io/gorm"
)

// AddBookIndexes creates the composite indexes the order book rebuild and
// trade history queries depend on. AutoMigrate only covers the single-column
// and unique indexes declared on the models.
func AddBookIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_resting_orders_book
			ON resting_orders (symbol, side, price, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_resting_orders_owner
			ON resting_orders (owner, symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_created
			ON trades (symbol, created_at)`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
