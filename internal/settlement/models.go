package settlement

import (
	"time"

	"gorm.io/gorm"
)

// Settlement is the audit record of one settlement leg: a transfer of free
// balance out of custody back to its owner.
type Settlement struct {
	gorm.Model   `json:"-"`
	SettlementID string    `gorm:"uniqueIndex" json:"settlement_id"`
	ClientID     string    `gorm:"index" json:"client_id"`
	Symbol       string    `json:"symbol"`
	Asset        string    `json:"asset"`
	Amount       uint64    `json:"amount"`
	Type         string    `json:"type"`   // SETTLE or CLAIM
	Status       string    `json:"status"` // SETTLED or FAILED
	CreatedAt    time.Time `json:"created_at"`
}

const (
	TypeSettle = "SETTLE"
	TypeClaim  = "CLAIM"

	StatusSettled = "SETTLED"
	StatusFailed  = "FAILED"
)

type SettleFundsRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

type ClaimFundsRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Asset  string `json:"asset" binding:"required"` // base or quote
	Amount uint64 `json:"amount"`
}

// Leg reports one settled asset leg.
type Leg struct {
	SettlementID string `json:"settlement_id"`
	Asset        string `json:"asset"`
	Amount       uint64 `json:"amount"`
}

type SettleFundsResponse struct {
	ClientID  string    `json:"client_id"`
	Symbol    string    `json:"symbol"`
	Legs      []Leg     `json:"legs"`
	Timestamp time.Time `json:"timestamp"`
}
