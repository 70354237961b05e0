package settlement

import (
	"github.com/gin-gonic/gin"

	"github.com/tradeflow/tradeflow-api/pkg/response"
)

// GinHandlers contains HTTP handlers for settlement endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SettleFundsHandler handles POST requests to drain the caller's free
// balances for a market
func (h *GinHandlers) SettleFundsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		var req SettleFundsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.SettleFunds(clientID, req.Symbol)
		response.Handle(c, result, err)
	}
}

// ClaimFundsHandler handles POST requests to settle a chosen amount of one
// asset leg
func (h *GinHandlers) ClaimFundsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		var req ClaimFundsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.Asset != "base" && req.Asset != "quote" {
			response.BadRequest(c, "asset must be base or quote")
			return
		}

		result, err := h.service.ClaimFunds(clientID, req.Symbol, req.Asset == "base", req.Amount)
		response.Handle(c, result, err)
	}
}

// GetSettlementHandler handles GET requests for one settlement record
// URL parameter: settlement_id
func (h *GinHandlers) GetSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlement, err := h.service.GetSettlement(c.Param("settlement_id"))
		response.Handle(c, settlement, err)
	}
}

// GetClientSettlementsHandler handles GET requests for the caller's
// settlement history
func (h *GinHandlers) GetClientSettlementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		settlements, err := h.service.GetClientSettlements(clientID)
		response.Handle(c, settlements, err)
	}
}
