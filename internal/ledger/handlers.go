package ledger

import (
	"github.com/gin-gonic/gin"

	"github.com/tradeflow/tradeflow-api/pkg/response"
)

type DepositRequest struct {
	Owner  string `json:"owner" binding:"required"`
	Asset  string `json:"asset" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// GinHandlers contains HTTP handlers for custody endpoints
type GinHandlers struct {
	db *Database
}

func NewGinHandlers(db *Database) *GinHandlers {
	return &GinHandlers{db: db}
}

// DepositHandler handles POST requests to credit a custodial account.
// Requires internal authentication; stands in for the external custody
// on-ramp in deployments without one.
func (h *GinHandlers) DepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		account, err := h.db.Deposit(req.Owner, req.Asset, req.Amount)
		response.Handle(c, account, err)
	}
}

// GetAccountHandler handles GET requests for the caller's custodial account
// URL parameter: asset
func (h *GinHandlers) GetAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		account, err := h.db.GetAccount(clientID, c.Param("asset"))
		response.Handle(c, account, err)
	}
}

// GetBalanceRecordHandler handles GET requests for the caller's per-market
// balance record
// URL parameter: symbol
func (h *GinHandlers) GetBalanceRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		record, err := h.db.GetBalanceRecord(clientID, c.Param("symbol"))
		response.Handle(c, record, err)
	}
}
