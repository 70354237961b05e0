package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeflow/tradeflow-api/internal/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Account{}, &BalanceRecord{}))
	return NewDatabase(db)
}

func TestDeposit(t *testing.T) {
	d := newTestDatabase(t)

	account, err := d.Deposit("client-1", "USDC", 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), account.Balance)

	// The returned account reflects the balance as written, not a re-read
	account, err = d.Deposit("client-1", "USDC", 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), account.Balance)

	stored, err := d.GetAccount("client-1", "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), stored.Balance)
}

func TestDepositOverflow(t *testing.T) {
	d := newTestDatabase(t)

	_, err := d.Deposit("client-1", "USDC", math.MaxUint64)
	require.NoError(t, err)
	_, err = d.Deposit("client-1", "USDC", 1)
	assert.ErrorIs(t, err, types.ErrMathOverflow)

	account, err := d.GetAccount("client-1", "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), account.Balance)
}

func TestMove(t *testing.T) {
	d := newTestDatabase(t)
	_, err := d.Deposit("client-1", "USDC", 1000)
	require.NoError(t, err)

	require.NoError(t, d.Move("client-1", "vault:ATLAS-USDC", "USDC", 400))

	src, err := d.GetAccount("client-1", "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(600), src.Balance)

	dst, err := d.GetAccount("vault:ATLAS-USDC", "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(400), dst.Balance)
}

func TestMoveInsufficientFunds(t *testing.T) {
	d := newTestDatabase(t)
	_, err := d.Deposit("client-1", "USDC", 100)
	require.NoError(t, err)

	err = d.Move("client-1", "vault:ATLAS-USDC", "USDC", 101)
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)

	// Source untouched, destination never created
	src, err := d.GetAccount("client-1", "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), src.Balance)

	_, err = d.GetAccount("vault:ATLAS-USDC", "USDC")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMoveMissingSource(t *testing.T) {
	d := newTestDatabase(t)

	err := d.Move("nobody", "client-1", "USDC", 1)
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)
}

func TestLoadOrCreateBalanceRecord(t *testing.T) {
	d := newTestDatabase(t)

	record, err := d.LoadOrCreateBalanceRecord("client-1", "ATLAS-USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), record.BaseFree)
	assert.Equal(t, uint64(0), record.QuoteLocked)

	record.QuoteLocked = 500
	require.NoError(t, d.SaveBalanceRecord(record))

	// Second load returns the persisted row, not a fresh one
	again, err := d.LoadOrCreateBalanceRecord("client-1", "ATLAS-USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), again.QuoteLocked)
}

func TestBalanceRecordLockUnlock(t *testing.T) {
	record := &BalanceRecord{}

	require.NoError(t, record.Lock(false, 400))
	assert.Equal(t, uint64(400), record.QuoteLocked)

	require.NoError(t, record.Unlock(false, 150))
	assert.Equal(t, uint64(250), record.QuoteLocked)

	// Unlocking past zero means the books and ledger disagree
	err := record.Unlock(false, 251)
	assert.ErrorIs(t, err, types.ErrInsufficientFunds)
	assert.Equal(t, uint64(250), record.QuoteLocked)

	record.BaseLocked = math.MaxUint64
	err = record.Lock(true, 1)
	assert.ErrorIs(t, err, types.ErrMathOverflow)
}

func TestBalanceRecordFreeSide(t *testing.T) {
	record := &BalanceRecord{}

	require.NoError(t, record.CreditFree(true, 60))
	require.NoError(t, record.CreditFree(false, 600))
	assert.Equal(t, uint64(60), record.Free(true))
	assert.Equal(t, uint64(600), record.Free(false))

	require.NoError(t, record.DebitFree(true, 60))
	assert.Equal(t, uint64(0), record.Free(true))

	err := record.DebitFree(true, 1)
	assert.ErrorIs(t, err, types.ErrInsufficientBalanceClaim)

	record.QuoteFree = math.MaxUint64
	err = record.CreditFree(false, 1)
	assert.ErrorIs(t, err, types.ErrMathOverflow)
}
