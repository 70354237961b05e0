package trading

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tradeflow/tradeflow-api/internal/types"
	"github.com/tradeflow/tradeflow-api/pkg/response"
)

// GinHandlers contains HTTP handlers for order and market endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for trading endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PlaceOrderHandler handles POST requests to place limit orders
// Requires a valid JWT token; the token's client ID is the order owner
func (h *GinHandlers) PlaceOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.PlaceOrder(clientID, req)
		response.Handle(c, result, err)
	}
}

// CancelOrderHandler handles DELETE requests to cancel resting orders
// URL parameter: order_id; query parameters: symbol, side
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		orderID, err := types.ParseOrderID(c.Param("order_id"))
		if err != nil {
			response.BadRequest(c, "Invalid order ID")
			return
		}
		symbol := c.Query("symbol")
		if symbol == "" {
			response.BadRequest(c, "symbol is required")
			return
		}
		side := types.Side(c.Query("side"))

		result, err := h.service.CancelOrder(clientID, symbol, side, orderID)
		response.Handle(c, result, err)
	}
}

// GetOrderBookHandler handles GET requests for a market's depth levels
// URL parameter: symbol
func (h *GinHandlers) GetOrderBookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		depth, err := h.service.GetOrderBook(c.Param("symbol"))
		response.Handle(c, depth, err)
	}
}

// GetOpenOrdersHandler handles GET requests for the caller's resting orders
// Query parameter: symbol
func (h *GinHandlers) GetOpenOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("clientID")
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		symbol := c.Query("symbol")
		if symbol == "" {
			response.BadRequest(c, "symbol is required")
			return
		}

		orders, err := h.service.GetOpenOrders(clientID, symbol)
		response.Handle(c, orders, err)
	}
}

// GetTradesHandler handles GET requests for a market's recent trades
// URL parameter: symbol; query parameter: limit
func (h *GinHandlers) GetTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		trades, err := h.service.GetTrades(c.Param("symbol"), limit)
		response.Handle(c, trades, err)
	}
}

// CreateMarketHandler handles POST requests to register new markets
// Requires internal authentication
func (h *GinHandlers) CreateMarketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMarketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		market, err := h.service.CreateMarket(req)
		response.Handle(c, market, err)
	}
}

// ListMarketsHandler handles GET requests for all registered markets
func (h *GinHandlers) ListMarketsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		markets, err := h.service.ListMarkets()
		response.Handle(c, markets, err)
	}
}
