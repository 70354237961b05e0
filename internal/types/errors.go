package types

import "errors"

// Core error taxonomy. Every operation either fully succeeds or fails with
// one of these; there is no partial-success state and no silent clamping,
// since clamping a balance destroys or fabricates value.
var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrUnauthorizedAccess       = errors.New("unauthorized access")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrMathOverflow             = errors.New("math overflow")
	ErrNoFundsToSettle          = errors.New("no funds to settle")
	ErrInvalidClaimAmount       = errors.New("invalid claim amount")
	ErrInsufficientBalanceClaim = errors.New("insufficient balance to claim")

	ErrMarketNotFound = errors.New("market not found")
	ErrInvalidOrder   = errors.New("order price and size must be positive")
)
