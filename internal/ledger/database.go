package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Database is the custody collaborator: durable asset accounts with atomic
// value moves, and durable balance records. The matching core never touches
// gorm directly; it goes through these operations.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// WithTx returns a view of the ledger bound to an open transaction, so a
// caller can make custody moves and balance writes part of a larger unit.
func (d *Database) WithTx(tx *gorm.DB) *Database {
	return &Database{db: tx}
}

// Deposit credits an owner's custodial account, creating it on first use, and
// returns the account as updated inside the transaction.
func (d *Database) Deposit(owner, asset string, amount uint64) (*Account, error) {
	var account *Account
	err := d.db.Transaction(func(tx *gorm.DB) error {
		a, err := loadOrCreateAccount(tx, owner, asset)
		if err != nil {
			return err
		}
		balance, ok := types.CheckedAdd(a.Balance, amount)
		if !ok {
			return types.ErrMathOverflow
		}
		a.Balance = balance
		account = a
		return tx.Save(a).Error
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAccount retrieves one custodial account.
func (d *Database) GetAccount(owner, asset string) (*Account, error) {
	var account Account
	if err := d.db.Where("owner = ? AND asset = ?", owner, asset).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Move transfers amount of an asset between two custodial accounts. The move
// is atomic: it either debits and credits in full or fails with the source
// untouched. A missing or short source account fails with InsufficientFunds.
func (d *Database) Move(from, to, asset string, amount uint64) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var src Account
		if err := tx.Where("owner = ? AND asset = ?", from, asset).First(&src).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrInsufficientFunds
			}
			return fmt.Errorf("failed to load source account: %w", err)
		}

		debited, ok := types.CheckedSub(src.Balance, amount)
		if !ok {
			return types.ErrInsufficientFunds
		}

		dst, err := loadOrCreateAccount(tx, to, asset)
		if err != nil {
			return err
		}
		credited, ok := types.CheckedAdd(dst.Balance, amount)
		if !ok {
			return types.ErrMathOverflow
		}

		src.Balance = debited
		dst.Balance = credited
		if err := tx.Save(&src).Error; err != nil {
			return err
		}
		return tx.Save(dst).Error
	})
}

// LoadOrCreateBalanceRecord returns the balance record for (owner, symbol),
// creating a zeroed row on the owner's first interaction with the market.
func (d *Database) LoadOrCreateBalanceRecord(owner, symbol string) (*BalanceRecord, error) {
	var record BalanceRecord
	err := d.db.Where("owner = ? AND symbol = ?", owner, symbol).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = BalanceRecord{Owner: owner, Symbol: symbol}
		if err := d.db.Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetBalanceRecord retrieves the balance record for (owner, symbol).
func (d *Database) GetBalanceRecord(owner, symbol string) (*BalanceRecord, error) {
	var record BalanceRecord
	if err := d.db.Where("owner = ? AND symbol = ?", owner, symbol).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveBalanceRecord persists a mutated balance record.
func (d *Database) SaveBalanceRecord(record *BalanceRecord) error {
	return d.db.Save(record).Error
}

func loadOrCreateAccount(tx *gorm.DB, owner, asset string) (*Account, error) {
	var account Account
	err := tx.Where("owner = ? AND asset = ?", owner, asset).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = Account{Owner: owner, Asset: asset}
		if err := tx.Create(&account).Error; err != nil {
			return nil, err
		}
		return &account, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
