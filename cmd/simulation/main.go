package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tradeflow/tradeflow-api/internal/auth"
	"github.com/tradeflow/tradeflow-api/internal/database"
	"github.com/tradeflow/tradeflow-api/internal/ledger"
	"github.com/tradeflow/tradeflow-api/internal/settlement"
	"github.com/tradeflow/tradeflow-api/internal/trading"
	"github.com/tradeflow/tradeflow-api/internal/types"
	"github.com/tradeflow/tradeflow-api/pkg/middleware"
)

const (
	minOrders     = 15
	maxOrders     = 150
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
	jwtSecret     = "tradeflow-sim-secret"

	symbol     = "ATLAS-USDC"
	baseAsset  = "ATLAS"
	quoteAsset = "USDC"

	// Each worker starts with enough of both assets to quote either side
	seedBase  = 1_000_000
	seedQuote = 100_000_000
)

var sides = []string{"BUY", "SELL"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the exchange API on behalf
// of one client identity
type simulationClient struct {
	baseURL   string
	clientID  string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates a client for the given API key and authenticates
// it. The API key doubles as the client ID.
func newSimulationClient(apiKey, apiSecret string, stats map[string]*routeStats) (*simulationClient, error) {
	sc := &simulationClient{
		baseURL:  serverAddress,
		clientID: apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		stats: stats,
	}

	token, err := sc.authenticate(apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// doJSON sends an authenticated request and decodes the standard response
// envelope into out
func (sc *simulationClient) doJSON(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	envelope := struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return nil
}

// createMarket registers the simulation market via the internal API
func (sc *simulationClient) createMarket() error {
	return sc.doJSON("POST", "/api/v1/internal/markets", trading.CreateMarketRequest{
		Symbol:     symbol,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
	}, nil)
}

// deposit credits a client's custodial account via the internal API
func (sc *simulationClient) deposit(owner, asset string, amount uint64) error {
	start := time.Now()
	defer func() {
		sc.stats["deposit"].addDuration(time.Since(start))
	}()

	return sc.doJSON("POST", "/api/v1/internal/deposits", ledger.DepositRequest{
		Owner:  owner,
		Asset:  asset,
		Amount: amount,
	}, nil)
}

// placeOrder submits a new limit order and returns the result
func (sc *simulationClient) placeOrder(side string, price, size uint64) (*trading.PlaceOrderResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["place"].addDuration(time.Since(start))
	}()

	var result trading.PlaceOrderResponse
	err := sc.doJSON("POST", "/api/v1/orders", trading.PlaceOrderRequest{
		Symbol: symbol,
		Side:   types.Side(side),
		Price:  price,
		Size:   size,
	}, &result)
	if err != nil {
		sc.stats["place"].failures++
		return nil, err
	}

	return &result, nil
}

// cancelOrder cancels one of the client's resting orders
func (sc *simulationClient) cancelOrder(orderID, side string) (*trading.CancelOrderResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["cancel"].addDuration(time.Since(start))
	}()

	var result trading.CancelOrderResponse
	path := fmt.Sprintf("/api/v1/orders/%s?symbol=%s&side=%s", orderID, symbol, side)
	if err := sc.doJSON("DELETE", path, nil, &result); err != nil {
		sc.stats["cancel"].failures++
		return nil, err
	}

	return &result, nil
}

// getOrderBook fetches the market's aggregated depth
func (sc *simulationClient) getOrderBook() (*trading.OrderBookResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["book"].addDuration(time.Since(start))
	}()

	var result trading.OrderBookResponse
	if err := sc.doJSON("GET", "/api/v1/markets/"+symbol+"/book", nil, &result); err != nil {
		sc.stats["book"].failures++
		return nil, err
	}

	return &result, nil
}

// settleFunds drains the client's free balances back to custody
func (sc *simulationClient) settleFunds() (*settlement.SettleFundsResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["settle"].addDuration(time.Since(start))
	}()

	var result settlement.SettleFundsResponse
	err := sc.doJSON("POST", "/api/v1/settlements", settlement.SettleFundsRequest{
		Symbol: symbol,
	}, &result)
	if err != nil {
		sc.stats["settle"].failures++
		return nil, err
	}

	return &result, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func printPerformanceStats(stats map[string]*routeStats) {
	fmt.Println("\n API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, rs := range stats {
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			rs.name,
			rs.totalCalls,
			rs.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the exchange simulation
// It starts a local API server and simulates multiple concurrent trading clients
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	stats := map[string]*routeStats{
		"auth":    {name: "Authentication"},
		"deposit": {name: "Deposit"},
		"place":   {name: "Place Order"},
		"cancel":  {name: "Cancel Order"},
		"book":    {name: "Order Book"},
		"settle":  {name: "Settle Funds"},
	}

	// The operator client registers the market and funds the workers
	operator, err := newSimulationClient(auth.TestAPIKey, auth.TestAPISecret, stats)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize operator client")
	}
	if err := operator.createMarket(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create market")
	}

	// One authenticated client per worker, each funded on both sides
	clients := make([]*simulationClient, numWorkers)
	for i := 0; i < numWorkers; i++ {
		clientID := fmt.Sprintf("CLIENT_%d", i)
		sc, err := newSimulationClient(clientID, clientID+"-secret", stats)
		if err != nil {
			log.Fatal().Err(err).Str("client_id", clientID).Msg("Failed to initialize worker client")
		}
		if err := operator.deposit(clientID, baseAsset, seedBase); err != nil {
			log.Fatal().Err(err).Str("client_id", clientID).Msg("Failed to deposit base asset")
		}
		if err := operator.deposit(clientID, quoteAsset, seedQuote); err != nil {
			log.Fatal().Err(err).Str("client_id", clientID).Msg("Failed to deposit quote asset")
		}
		clients[i] = sc
	}

	// Generate random number of orders to process
	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	outcomes := make(chan orderOutcome, targetOrders+numWorkers)
	var wg sync.WaitGroup

	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(sc *simulationClient, numOrders int) {
			defer wg.Done()
			runWorker(sc, numOrders, outcomes)
		}(clients[i], targetOrders/numWorkers)
	}

	wg.Wait()
	close(outcomes)

	// Collect statistics
	simStats := struct {
		TotalOrders   int
		FilledOrders  int
		PartialOrders int
		OpenOrders    int
		Cancelled     int
		TotalFills    int
		Sides         map[string]int
		StartTime     time.Time
	}{
		Sides:     make(map[string]int),
		StartTime: time.Now(),
	}

	for outcome := range outcomes {
		simStats.TotalOrders++
		simStats.TotalFills += outcome.fills
		simStats.Sides[outcome.side]++
		switch outcome.status {
		case trading.StatusFilled:
			simStats.FilledOrders++
		case trading.StatusPartiallyFilled:
			simStats.PartialOrders++
		case trading.StatusOpen:
			simStats.OpenOrders++
		case trading.StatusCancelled:
			simStats.Cancelled++
		}
	}

	// Every client settles its free balances back to custody
	settled := 0
	for _, sc := range clients {
		result, err := sc.settleFunds()
		if err != nil {
			// Clients whose fills all went the other way have nothing to settle
			log.Info().Err(err).Str("client_id", sc.clientID).Msg("Nothing to settle")
			continue
		}
		settled++
		for _, leg := range result.Legs {
			log.Info().
				Str("client_id", sc.clientID).
				Str("settlement_id", leg.SettlementID).
				Str("asset", leg.Asset).
				Uint64("amount", leg.Amount).
				Msg("Funds settled")
		}
	}

	// Final depth snapshot
	book, err := operator.getOrderBook()
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch order book")
	}

	// Print summary
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println(" EXCHANGE SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
 Order Statistics
------------------
Total Orders:     %d
Fully Filled:     %d
Partially Filled: %d
Resting:          %d
Cancelled:        %d
Fills Generated:  %d
Clients Settled:  %d/%d
`, simStats.TotalOrders, simStats.FilledOrders, simStats.PartialOrders,
		simStats.OpenOrders, simStats.Cancelled, simStats.TotalFills, settled, numWorkers)

	fmt.Println("\n Side Distribution")
	fmt.Println("------------------")
	for side, count := range simStats.Sides {
		barLength := 0
		if simStats.TotalOrders > 0 {
			barLength = count * 20 / simStats.TotalOrders
		}
		fmt.Printf("%-4s: %s (%d)\n", side, strings.Repeat("#", barLength), count)
	}

	if book != nil {
		fmt.Println("\n Final Book Depth")
		fmt.Println("------------------")
		fmt.Printf("Bid levels: %d, Ask levels: %d\n", len(book.Bids), len(book.Asks))
		if len(book.Bids) > 0 && len(book.Asks) > 0 {
			fmt.Printf("Best bid: %d, Best ask: %d\n", book.Bids[0].Price, book.Asks[0].Price)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	log.Info().
		Int("total_orders", simStats.TotalOrders).
		Int("fills", simStats.TotalFills).
		Dur("duration", time.Since(simStats.StartTime)).
		Msg("Simulation completed")

	printPerformanceStats(stats)
}

// orderOutcome summarises what happened to one simulated order
type orderOutcome struct {
	status string
	fills  int
	side   string
}

// runWorker places random limit orders around a fixed mid price and
// occasionally cancels its own resting orders. Prices cluster tightly enough
// that opposing workers cross each other regularly.
func runWorker(sc *simulationClient, numOrders int, outcomes chan<- orderOutcome) {
	const midPrice = 1000

	for i := 0; i < numOrders; i++ {
		side := sides[rand.Intn(len(sides))]
		// Bids quote at or below mid plus jitter, asks at or above minus
		// jitter, so roughly a third of orders cross on arrival
		offset := uint64(rand.Intn(20))
		var price uint64
		if side == "BUY" {
			price = midPrice - 10 + offset
		} else {
			price = midPrice + 10 - offset
		}
		size := uint64(rand.Intn(100) + 1)

		result, err := sc.placeOrder(side, price, size)
		if err != nil {
			log.Error().Err(err).
				Str("client_id", sc.clientID).
				Str("side", side).
				Uint64("price", price).
				Msg("Failed to place order")
			continue
		}

		log.Info().
			Str("client_id", sc.clientID).
			Str("order_id", result.OrderID).
			Str("side", side).
			Uint64("price", price).
			Uint64("size", size).
			Str("status", result.Status).
			Int("fills", len(result.Fills)).
			Msg("Order placed")

		// Cancel a fraction of orders that rested on the book
		if result.Status == trading.StatusOpen && rand.Intn(5) == 0 {
			if _, err := sc.cancelOrder(result.OrderID, side); err != nil {
				log.Error().Err(err).
					Str("client_id", sc.clientID).
					Str("order_id", result.OrderID).
					Msg("Failed to cancel order")
			} else {
				outcomes <- orderOutcome{status: trading.StatusCancelled, side: side}
				time.Sleep(time.Duration(rand.Intn(100)) * time.Millisecond)
				continue
			}
		}

		outcomes <- orderOutcome{status: result.Status, fills: len(result.Fills), side: side}

		// Random sleep between orders
		time.Sleep(time.Duration(rand.Intn(100)) * time.Millisecond)
	}
}

// startServer initializes and starts the exchange API server
// Sets up all required services, handlers and routes
func startServer() error {
	// Initialize database
	db, err := database.NewDatabase("simulation.db")
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	authService := auth.NewService(jwtSecret)
	tradingService, err := trading.NewService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize trading service: %w", err)
	}
	settlementService := settlement.NewService(db, tradingService)
	ledgerDB := ledger.NewDatabase(db)

	// Register credentials for the operator and every worker client
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	for i := 0; i < numWorkers; i++ {
		clientID := fmt.Sprintf("CLIENT_%d", i)
		authService.RegisterAPICredentials(clientID, clientID+"-secret")
	}

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	tradingHandlers := trading.NewGinHandlers(tradingService)
	settlementHandlers := settlement.NewGinHandlers(settlementService)
	ledgerHandlers := ledger.NewGinHandlers(ledgerDB)

	// Setup routes
	setupRoutes(router, authHandlers, tradingHandlers, settlementHandlers, ledgerHandlers)

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	tradingHandlers *trading.GinHandlers,
	settlementHandlers *settlement.GinHandlers,
	ledgerHandlers *ledger.GinHandlers,
) {
	secret := []byte(jwtSecret)

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Market data routes
		markets := v1.Group("/markets")
		{
			markets.GET("", tradingHandlers.ListMarketsHandler())
			markets.GET("/:symbol/book", tradingHandlers.GetOrderBookHandler())
			markets.GET("/:symbol/trades", tradingHandlers.GetTradesHandler())
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.JWTAuth(secret))
		{
			orders.POST("", tradingHandlers.PlaceOrderHandler())
			orders.GET("", tradingHandlers.GetOpenOrdersHandler())
			orders.DELETE("/:order_id", tradingHandlers.CancelOrderHandler())
		}

		// Settlement routes
		settlements := v1.Group("/settlements")
		settlements.Use(middleware.JWTAuth(secret))
		{
			settlements.POST("", settlementHandlers.SettleFundsHandler())
			settlements.POST("/claim", settlementHandlers.ClaimFundsHandler())
			settlements.GET("", settlementHandlers.GetClientSettlementsHandler())
			settlements.GET("/:settlement_id", settlementHandlers.GetSettlementHandler())
		}

		// Internal routes
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(secret))
		{
			internal.POST("/markets", tradingHandlers.CreateMarketHandler())
			internal.POST("/deposits", ledgerHandlers.DepositHandler())
		}
	}
}
