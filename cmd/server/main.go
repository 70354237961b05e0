package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/tradeflow/tradeflow-api/internal/auth"
	"github.com/tradeflow/tradeflow-api/internal/database"
	"github.com/tradeflow/tradeflow-api/internal/ledger"
	"github.com/tradeflow/tradeflow-api/internal/settlement"
	"github.com/tradeflow/tradeflow-api/internal/trading"
	"github.com/tradeflow/tradeflow-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the exchange API server with graceful shutdown
// support. It sets up all required services, database connections, and API
// routes, and rebuilds the in-memory order books from persisted state.
func main() {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "tradeflow.db"
	}

	// Initialize database
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "tradeflow-secret-key"
	}
	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	tradingService, err := trading.NewService(db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize trading service")
	}
	tradingHandlers := trading.NewGinHandlers(tradingService)

	settlementService := settlement.NewService(db, tradingService)
	settlementHandlers := settlement.NewGinHandlers(settlementService)

	ledgerHandlers := ledger.NewGinHandlers(ledger.NewDatabase(db))

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, []byte(jwtSecret), authHandlers, tradingHandlers, settlementHandlers, ledgerHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Market routes: Public read-only market data
// - Order, settlement and balance routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret []byte,
	authHandlers *auth.GinHandlers,
	tradingHandlers *trading.GinHandlers,
	settlementHandlers *settlement.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Market data routes (public)
		markets := v1.Group("/markets")
		{
			markets.GET("", tradingHandlers.ListMarketsHandler())
			markets.GET("/:symbol/book", tradingHandlers.GetOrderBookHandler())
			markets.GET("/:symbol/trades", tradingHandlers.GetTradesHandler())
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.JWTAuth(jwtSecret))
		{
			orders.POST("", tradingHandlers.PlaceOrderHandler())
			orders.GET("", tradingHandlers.GetOpenOrdersHandler())
			orders.DELETE("/:order_id", tradingHandlers.CancelOrderHandler())
		}

		// Settlement routes
		settlements := v1.Group("/settlements")
		settlements.Use(middleware.JWTAuth(jwtSecret))
		{
			settlements.POST("", settlementHandlers.SettleFundsHandler())
			settlements.POST("/claim", settlementHandlers.ClaimFundsHandler())
			settlements.GET("", settlementHandlers.GetClientSettlementsHandler())
			settlements.GET("/:settlement_id", settlementHandlers.GetSettlementHandler())
		}

		// Balance routes
		balances := v1.Group("/balances")
		balances.Use(middleware.JWTAuth(jwtSecret))
		{
			balances.GET("/accounts/:asset", ledgerHandlers.GetAccountHandler())
			balances.GET("/markets/:symbol", ledgerHandlers.GetBalanceRecordHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/markets", tradingHandlers.CreateMarketHandler())
			internal.POST("/deposits", ledgerHandlers.DepositHandler())
		}
	}
}
