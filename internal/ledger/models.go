package ledger

import (
	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/types"
)

// Account is a custodial asset account: the amount of one asset held in
// custody for one owner. Market vaults are accounts like any other, owned by
// the market's vault identity.
type Account struct {
	gorm.Model `json:"-"`
	Owner      string `gorm:"uniqueIndex:idx_accounts_owner_asset" json:"owner"`
	Asset      string `gorm:"uniqueIndex:idx_accounts_owner_asset" json:"asset"`
	Balance    uint64 `json:"balance"`
}

// BalanceRecord is the per-(owner, market) accounting row. Locked balances
// back the owner's resting orders; free balances are fill proceeds claimable
// through settlement. All four fields are non-negative by construction:
// every decrement is checked and fails rather than wraps.
type BalanceRecord struct {
	gorm.Model  `json:"-"`
	Owner       string `gorm:"uniqueIndex:idx_balance_records_owner_symbol" json:"owner"`
	Symbol      string `gorm:"uniqueIndex:idx_balance_records_owner_symbol" json:"symbol"`
	BaseFree    uint64 `json:"base_free"`
	BaseLocked  uint64 `json:"base_locked"`
	QuoteFree   uint64 `json:"quote_free"`
	QuoteLocked uint64 `json:"quote_locked"`
}

// Lock reserves amount against a new resting order.
func (b *BalanceRecord) Lock(base bool, amount uint64) error {
	field := &b.QuoteLocked
	if base {
		field = &b.BaseLocked
	}
	sum, ok := types.CheckedAdd(*field, amount)
	if !ok {
		return types.ErrMathOverflow
	}
	*field = sum
	return nil
}

// Unlock releases amount of a locked balance, spent in a fill or refunded on
// cancel. Going below zero means the books and the ledger disagree, which is
// surfaced rather than clamped.
func (b *BalanceRecord) Unlock(base bool, amount uint64) error {
	field := &b.QuoteLocked
	if base {
		field = &b.BaseLocked
	}
	diff, ok := types.CheckedSub(*field, amount)
	if !ok {
		return types.ErrInsufficientFunds
	}
	*field = diff
	return nil
}

// CreditFree adds fill proceeds to a free balance.
func (b *BalanceRecord) CreditFree(base bool, amount uint64) error {
	field := &b.QuoteFree
	if base {
		field = &b.BaseFree
	}
	sum, ok := types.CheckedAdd(*field, amount)
	if !ok {
		return types.ErrMathOverflow
	}
	*field = sum
	return nil
}

// DebitFree removes amount from a free balance during settlement or a claim.
func (b *BalanceRecord) DebitFree(base bool, amount uint64) error {
	field := &b.QuoteFree
	if base {
		field = &b.BaseFree
	}
	diff, ok := types.CheckedSub(*field, amount)
	if !ok {
		return types.ErrInsufficientBalanceClaim
	}
	*field = diff
	return nil
}

// Free returns the free balance for one asset leg.
func (b *BalanceRecord) Free(base bool) uint64 {
	if base {
		return b.BaseFree
	}
	return b.QuoteFree
}
