package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lucidlabs/lucid-analytics/internal/config"
	"github.com/lucidlabs/lucid-analytics/internal/database"
	"github.com/lucidlabs/lucid-analytics/internal/dropi"
	"github.com/lucidlabs/lucid-analytics/internal/lucidbot"
	"github.com/lucidlabs/lucid-analytics/internal/metrics"
	"github.com/lucidlabs/lucid-analytics/pkg/secrets"
)

const (
	minOrders = 150
	maxOrders = 600

	dropiMockAddr    = "localhost:9091"
	lucidbotMockAddr = "localhost:9092"

	simEmail    = "seller@example.com"
	simPassword = "sim-password"
	simToken    = "sim-upstream-token"
	simUserID   = uint(1)
)

// Raw statuses the way the upstream actually spells them, including
// variants that only normalize through the lookup table's default.
var rawStatuses = []string{
	"ENTREGADO", "ENTREGADO", "ENTREGADO",
	"DEVOLUCION", "DEVOLUCIÓN",
	"CANCELADO",
	"PENDIENTE", "PENDIENTE CONFIRMACION",
	"GUIA_GENERADA", "EN REPARTO", "INTENTO DE ENTREGA",
}

var cities = []string{"Bogotá", "Medellín", "Cali", "Barranquilla", "Bucaramanga"}

var products = []string{"Smartwatch X2", "Corrector de Postura", "Mini Proyector", "Licuadora Portátil"}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// mockOrder is the upstream-shaped order the mock Dropi server serves.
type mockOrder struct {
	id        int64
	status    string
	total     float64
	shipping  float64
	profit    float64
	createdAt time.Time
}

// mockMovement is the upstream-shaped ledger entry.
type mockMovement struct {
	id          int64
	mType       string
	description string
	amount      float64
	balance     float64
	orderID     int64
	createdAt   time.Time
}

// generateUpstreamData builds a coherent order book plus the wallet
// ledger that settles part of it: profit credits for most delivered
// orders, freight debits for returns, and a few withdrawals/recharges.
func generateUpstreamData(numOrders int) ([]mockOrder, []mockMovement) {
	orders := make([]mockOrder, 0, numOrders)
	movements := make([]mockMovement, 0, numOrders)

	now := time.Now()
	balance := 500000.0
	movementID := int64(900000)

	for i := 0; i < numOrders; i++ {
		total := float64(rand.Intn(180000) + 40000)
		order := mockOrder{
			id:        int64(100000 + i),
			status:    rawStatuses[rand.Intn(len(rawStatuses))],
			total:     total,
			shipping:  float64(rand.Intn(12000) + 8000),
			profit:    total * 0.35,
			createdAt: now.AddDate(0, 0, -rand.Intn(60)),
		}
		orders = append(orders, order)

		switch {
		case strings.HasPrefix(order.status, "ENTREGADO") && rand.Float64() < 0.8:
			movementID++
			balance += order.profit
			movements = append(movements, mockMovement{
				id:          movementID,
				mType:       "ENTRADA",
				description: fmt.Sprintf("ENTRADA POR GANANCIA EN LA ORDEN COMO DROPSHIPPER %d", order.id),
				amount:      order.profit,
				balance:     balance,
				orderID:     order.id,
				createdAt:   order.createdAt.AddDate(0, 0, 5),
			})
		case strings.HasPrefix(order.status, "DEVOLUCI") && rand.Float64() < 0.7:
			movementID++
			balance -= order.shipping
			movements = append(movements, mockMovement{
				id:          movementID,
				mType:       "SALIDA",
				description: fmt.Sprintf("SALIDA POR COBRO DE FLETE INICIAL ORDEN %d", order.id),
				amount:      order.shipping,
				balance:     balance,
				orderID:     order.id,
				createdAt:   order.createdAt.AddDate(0, 0, 7),
			})
		}
	}

	// A few ledger entries with no order reference
	for i := 0; i < 5; i++ {
		movementID++
		amount := float64(rand.Intn(300000) + 50000)
		if i%2 == 0 {
			balance -= amount
			movements = append(movements, mockMovement{
				id: movementID, mType: "SALIDA",
				description: "RETIRO A CUENTA BANCARIA",
				amount:      amount, balance: balance,
				createdAt: now.AddDate(0, 0, -i*3),
			})
		} else {
			balance += amount
			movements = append(movements, mockMovement{
				id: movementID, mType: "ENTRADA",
				description: "RECARGA DE SALDO",
				amount:      amount, balance: balance,
				createdAt: now.AddDate(0, 0, -i*3),
			})
		}
	}

	return orders, movements
}

// startDropiMock serves a minimal Dropi-shaped API backed by the
// generated dataset: login, paginated orders, paginated wallet.
func startDropiMock(orders []mockOrder, movements []mockMovement) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.POST("/api/login", func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Email != simEmail || req.Password != simPassword {
			c.JSON(http.StatusOK, gin.H{"isSuccess": false, "message": "Credenciales invalidas"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"isSuccess": true,
			"token":     simToken,
			"objects":   gin.H{"id": 777, "name": "Sim", "surname": "Seller"},
		})
	})

	router.GET("/api/orders/myorders", func(c *gin.Context) {
		if !authorized(c) {
			return
		}
		start, count := pageParams(c)
		page := make([]gin.H, 0, count)
		for i := start; i < start+count && i < len(orders); i++ {
			o := orders[i]
			page = append(page, gin.H{
				"id":                        o.id,
				"status":                    o.status,
				"total_order":               o.total,
				"shipping_amount":           strconv.FormatFloat(o.shipping, 'f', 2, 64),
				"dropshipper_amount_to_win": o.profit,
				"name":                      "Cliente",
				"surname":                   strconv.FormatInt(o.id, 10),
				"phone":                     "3001234567",
				"city":                      cities[rand.Intn(len(cities))],
				"state":                     "Activo",
				"dir":                       "Calle 1 # 2-3",
				"rate_type":                 "CON RECAUDO",
				"created_at":                o.createdAt.Format("2006-01-02T15:04:05.000000Z"),
				"updated_at":                o.createdAt.Format("2006-01-02T15:04:05.000000Z"),
				"orderdetails": []gin.H{{
					"quantity": 1,
					"price":    o.total,
					"product":  gin.H{"name": products[rand.Intn(len(products))]},
				}},
			})
		}
		c.JSON(http.StatusOK, gin.H{"isSuccess": true, "objects": page, "total": len(orders)})
	})

	router.GET("/api/historywallet", func(c *gin.Context) {
		if !authorized(c) {
			return
		}
		start, count := pageParams(c)
		page := make([]gin.H, 0, count)
		for i := start; i < start+count && i < len(movements); i++ {
			m := movements[i]
			entry := gin.H{
				"id":              m.id,
				"type":            m.mType,
				"description":     m.description,
				"amount":          m.amount,
				"previous_amount": m.balance,
				"created_at":      m.createdAt.Format("2006-01-02T15:04:05.000000Z"),
			}
			if m.orderID != 0 {
				entry["order_id"] = m.orderID
			}
			page = append(page, entry)
		}
		c.JSON(http.StatusOK, gin.H{"isSuccess": true, "objects": page, "total": len(movements)})
	})

	go func() {
		if err := router.Run(dropiMockAddr); err != nil {
			log.Fatal().Err(err).Msg("dropi mock server failed")
		}
	}()
}

// startLucidbotMock serves the account and custom-field lookup
// endpoints with generated contacts per ad.
func startLucidbotMock() {
	router := gin.New()

	router.GET("/account", func(c *gin.Context) {
		if c.GetHeader("X-ACCESS-TOKEN") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"data":   gin.H{"id": 1, "name": "Sim Account"},
		})
	})

	router.POST("/users/find_by_custom_field", func(c *gin.Context) {
		if c.GetHeader("X-ACCESS-TOKEN") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error"})
			return
		}
		var req struct {
			FieldID string `json:"field_id"`
			Value   string `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
			return
		}

		numContacts := rand.Intn(40) + 10
		contacts := make([]gin.H, 0, numContacts)
		for i := 0; i < numContacts; i++ {
			fields := gin.H{"AD ID": req.Value}
			// Roughly a quarter of contacts convert; amounts arrive
			// with thousands separators the way the panel stores them.
			if i%4 == 0 {
				fields["Total a pagar"] = fmt.Sprintf("%d.%03d", rand.Intn(300)+50, rand.Intn(1000))
				fields["Producto_Ordenados"] = fmt.Sprintf("Producto %d", i%5)
			}
			contacts = append(contacts, gin.H{
				"id":            10000 + i,
				"full_name":     fmt.Sprintf("Contacto %d", i),
				"phone":         "3009876543",
				"created_at":    time.Now().AddDate(0, 0, -rand.Intn(14)).Format("2006-01-02T15:04:05"),
				"custom_fields": fields,
			})
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "data": contacts})
	})

	go func() {
		if err := router.Run(lucidbotMockAddr); err != nil {
			log.Fatal().Err(err).Msg("lucidbot mock server failed")
		}
	}()
}

func authorized(c *gin.Context) bool {
	if c.GetHeader("Authorization") != "Bearer "+simToken {
		c.JSON(http.StatusUnauthorized, gin.H{"isSuccess": false})
		return false
	}
	return true
}

func pageParams(c *gin.Context) (start, count int) {
	start, _ = strconv.Atoi(c.Query("start"))
	count, _ = strconv.Atoi(c.Query("result_number"))
	if count <= 0 {
		count = 100
	}
	return start, count
}

// main runs the sync pipeline end to end against in-process mock
// upstreams and prints what landed in the cache.
func main() {
	numOrders := rand.Intn(maxOrders-minOrders) + minOrders
	orders, movements := generateUpstreamData(numOrders)
	log.Info().
		Int("orders", len(orders)).
		Int("movements", len(movements)).
		Msg("Generated upstream dataset")

	startDropiMock(orders, movements)
	startLucidbotMock()
	time.Sleep(500 * time.Millisecond)

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Dropi.BaseURLs = map[string]string{"co": "http://" + dropiMockAddr}
	cfg.Lucidbot.BaseURL = "http://" + lucidbotMockAddr

	db, err := database.NewDatabase("file:simulation?mode=memory&cache=shared")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	box, err := secrets.NewBox("simulation-only-key")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize credential encryption")
	}

	m := metrics.Registry("sim")
	timeout := 10 * time.Second

	dropiClient := dropi.NewClient(cfg.Dropi, timeout)
	dropiService := dropi.NewService(db, dropiClient, box, cfg.Sync, cfg.Dropi, m)

	lucidbotClient := lucidbot.NewClient(cfg.Lucidbot, timeout)
	lucidbotService := lucidbot.NewService(db, lucidbotClient, box, cfg.Lucidbot, m)

	ctx := context.Background()
	start := time.Now()

	// Connect both platforms through the real services
	if _, err := dropiService.Connect(ctx, simUserID, dropi.ConnectRequest{
		Email:    simEmail,
		Password: simPassword,
		Country:  "co",
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect mock Dropi account")
	}

	if _, err := lucidbotService.Connect(ctx, simUserID, "sim-lucidbot-token"); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect mock LucidBot account")
	}

	// Full sync: orders, wallet, reconciliation
	result, err := dropiService.SyncUser(ctx, simUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	// A second trigger right after must be a clean no-op, not a dupe
	again, err := dropiService.SyncUser(ctx, simUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Incremental sync failed")
	}

	adIDs := []string{"23851234567890001", "23851234567890002", "23851234567890003"}
	contactsSynced, contactsSkipped, err := lucidbotService.SyncContacts(ctx, simUserID, adIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Contact sync failed")
	}

	report, err := dropiService.ProfitReport(simUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build profit report")
	}

	wallet, err := dropiService.WalletSummary(simUserID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build wallet summary")
	}

	duration := time.Since(start)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SYNC SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Full Sync
---------
Orders synced:      %d (errors %d)
Wallet synced:      %d (errors %d)
Reconciled paid:    %d
Reconciled charged: %d
Reconcile skipped:  %d

Incremental Sync
----------------
Orders synced:      %d
Wallet synced:      %d

Contacts
--------
Synced:             %d (skipped %d) across %d ads

Profit Report
-------------
Orders cached:      %d (delivered %d, returned %d)
Expected profit:    %s
Confirmed profit:   %s
Freight charged:    %s
Withdrawals:        %s
Recharges:          %s

Duration:           %v
`,
		result.OrdersSynced, result.OrdersErrors,
		result.WalletSynced, result.WalletErrors,
		result.ReconciledPaid, result.ReconciledCharged, result.ReconcileSkipped,
		again.OrdersSynced, again.WalletSynced,
		contactsSynced, contactsSkipped, len(adIDs),
		report.OrdersTotal, report.OrdersDelivered, report.OrdersReturned,
		report.ExpectedProfit.StringFixed(2),
		report.ConfirmedProfit.StringFixed(2),
		report.FreightCharged.StringFixed(2),
		report.WalletWithdrawals.StringFixed(2),
		report.WalletRecharges.StringFixed(2),
		duration.Round(time.Millisecond))

	fmt.Println("Wallet by category")
	fmt.Println(strings.Repeat("-", 40))
	for category, total := range wallet.Totals {
		fmt.Printf("%-24s %s\n", category, total.StringFixed(2))
	}
	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("orders_synced", result.OrdersSynced).
		Int("wallet_synced", result.WalletSynced).
		Int("reconciled_paid", result.ReconciledPaid).
		Dur("duration", duration).
		Msg("Simulation completed")
}
