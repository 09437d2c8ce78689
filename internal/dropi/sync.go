package dropi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucidlabs/lucid-analytics/internal/config"
	"github.com/lucidlabs/lucid-analytics/internal/metrics"
	"github.com/lucidlabs/lucid-analytics/internal/types"
	"github.com/lucidlabs/lucid-analytics/pkg/secrets"
	"gorm.io/gorm"
)

var (
	// ErrSyncInProgress means a run is already in flight for this user.
	// Triggers are rejected rather than silently stacked.
	ErrSyncInProgress = errors.New("sync already in progress for user")
	ErrNoConnection   = errors.New("no active dropi connection")
)

// Service owns the Dropi sync pipeline: credential exchange, paginated
// ingest, reconciliation and the connection state machine.
type Service struct {
	db         *Database
	client     *Client
	box        *secrets.Box
	cfg        config.SyncConfig
	ordersPage int
	walletPage int
	metrics    *metrics.Metrics

	mu       sync.Mutex
	inflight map[uint]struct{}
}

func NewService(gormDB *gorm.DB, client *Client, box *secrets.Box, syncCfg config.SyncConfig, dropiCfg config.DropiConfig, m *metrics.Metrics) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		client:     client,
		box:        box,
		cfg:        syncCfg,
		ordersPage: dropiCfg.OrdersPageSize,
		walletPage: dropiCfg.WalletPageSize,
		metrics:    m,
		inflight:   make(map[uint]struct{}),
	}
}

func (s *Service) acquire(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[userID]; busy {
		return false
	}
	s.inflight[userID] = struct{}{}
	return true
}

func (s *Service) release(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, userID)
}

// SyncUser runs the full pipeline for one user and blocks until done.
// Returns ErrSyncInProgress when a run for the same user is in flight.
func (s *Service) SyncUser(ctx context.Context, userID uint) (*types.SyncResult, error) {
	if !s.acquire(userID) {
		return nil, ErrSyncInProgress
	}
	defer s.release(userID)

	return s.run(ctx, userID)
}

// TriggerSync starts a background run for one user. The single-flight
// guard is taken synchronously so a concurrent trigger can be rejected
// before the handler returns 202.
func (s *Service) TriggerSync(userID uint) error {
	conn, err := s.db.GetActiveConnection(userID)
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrNoConnection
	}

	if !s.acquire(userID) {
		return ErrSyncInProgress
	}

	go func() {
		defer s.release(userID)
		if _, err := s.run(context.Background(), userID); err != nil {
			log.Error().Err(err).Uint("user_id", userID).Msg("background sync failed")
		}
	}()

	return nil
}

// SyncAll runs the pipeline for every active connection, sequentially.
// Users with a run already in flight are skipped.
func (s *Service) SyncAll(ctx context.Context) {
	logger := log.With().Str("component", "dropi_sync").Logger()

	conns, err := s.db.ListActiveConnections()
	if err != nil {
		logger.Error().Err(err).Msg("failed to list active connections")
		return
	}

	logger.Info().Int("connections", len(conns)).Msg("starting bulk sync")

	for _, conn := range conns {
		if ctx.Err() != nil {
			return
		}

		result, err := s.SyncUser(ctx, conn.UserID)
		if err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				logger.Info().Uint("user_id", conn.UserID).Msg("sync already running, skipping")
				continue
			}
			logger.Error().Err(err).Uint("user_id", conn.UserID).Msg("sync failed")
			continue
		}

		logger.Info().
			Uint("user_id", conn.UserID).
			Int("orders", result.OrdersSynced).
			Int("movements", result.WalletSynced).
			Int("paid", result.ReconciledPaid).
			Msg("sync completed")
	}
}

// run executes the orchestration steps in strict order. The caller must
// hold the single-flight guard for userID.
func (s *Service) run(ctx context.Context, userID uint) (*types.SyncResult, error) {
	logger := log.With().Str("component", "dropi_sync").Uint("user_id", userID).Logger()

	conn, err := s.db.GetActiveConnection(userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrNoConnection
	}

	if err := s.db.SetSyncStatus(userID, types.SyncSyncing); err != nil {
		return nil, err
	}

	fail := func(stage string, stageErr error) (*types.SyncResult, error) {
		// Committed batches from earlier pages are retained; only the
		// connection status records the failure.
		if err := s.db.SetSyncStatus(userID, types.SyncError); err != nil {
			logger.Error().Err(err).Msg("failed to record error status")
		}
		s.metrics.SyncRuns.WithLabelValues("dropi", "error").Inc()
		return nil, fmt.Errorf("%s: %w", stage, stageErr)
	}

	// Step 1: fresh login. The cached token is never trusted for a sync
	// run; the upstream token only lives ~24h.
	email, err := s.box.Decrypt(conn.EmailEncrypted)
	if err != nil {
		return fail("decrypt credentials", err)
	}
	password, err := s.box.Decrypt(conn.PasswordEncrypted)
	if err != nil {
		return fail("decrypt credentials", err)
	}

	logger.Info().Msg("authenticating against dropi")
	login, err := s.client.Login(ctx, email, password, conn.Country)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("dropi", "login").Inc()
		return fail("login", err)
	}

	if err := s.db.UpdateToken(userID, login.Token, time.Now().Add(24*time.Hour)); err != nil {
		return fail("cache token", err)
	}

	dropiUserID := login.DropiUserID
	if dropiUserID == "" || dropiUserID == "0" {
		dropiUserID = conn.DropiUserID
	}

	// First sync for the connection pulls full history; later syncs are
	// bounded incremental pulls.
	fullSync := conn.LastOrdersSync == nil
	result := &types.SyncResult{}

	// Step 2: orders.
	logger.Info().Bool("full_sync", fullSync).Msg("syncing orders")
	result.OrdersSynced, result.OrdersErrors, err = s.syncOrders(ctx, userID, login.Token, conn.Country, fullSync)
	if err != nil {
		return fail("sync orders", err)
	}

	// Step 3: wallet.
	logger.Info().Msg("syncing wallet history")
	result.WalletSynced, result.WalletErrors, err = s.syncWallet(ctx, userID, login.Token, conn.Country, dropiUserID, fullSync)
	if err != nil {
		return fail("sync wallet", err)
	}

	// Step 4: reconcile cached orders against the wallet ledger.
	result.ReconciledPaid, result.ReconciledCharged, result.ReconcileSkipped, err = s.Reconcile(userID)
	if err != nil {
		return fail("reconcile", err)
	}

	// Step 5: stamp completion.
	if err := s.db.StampSyncCompleted(userID, time.Now().UTC()); err != nil {
		return fail("stamp completion", err)
	}

	s.metrics.SyncRuns.WithLabelValues("dropi", "completed").Inc()
	logger.Info().
		Int("orders_synced", result.OrdersSynced).
		Int("orders_errors", result.OrdersErrors).
		Int("wallet_synced", result.WalletSynced).
		Int("wallet_errors", result.WalletErrors).
		Int("reconciled_paid", result.ReconciledPaid).
		Int("reconciled_charged", result.ReconciledCharged).
		Msg("sync run completed")

	return result, nil
}

// syncOrders pages through the order list endpoint until a short page,
// the item ceiling, or an error.
func (s *Service) syncOrders(ctx context.Context, userID uint, token, country string, fullSync bool) (synced, failed int, err error) {
	logger := log.With().Str("component", "dropi_sync").Uint("user_id", userID).Logger()

	limit := s.ordersPage
	maxItems := s.cfg.IncrementalMax
	if fullSync {
		maxItems = s.cfg.FullOrdersMax
	}

	for page := 0; synced < maxItems; page++ {
		payloads, fetchErr := s.client.FetchOrders(ctx, token, country, page, limit)
		if fetchErr != nil {
			s.metrics.UpstreamErrors.WithLabelValues("dropi", "orders").Inc()
			return synced, failed, fetchErr
		}
		s.metrics.FetchPages.WithLabelValues("dropi", "orders").Inc()

		if len(payloads) == 0 {
			break
		}

		logger.Debug().Int("page", page).Int("orders", len(payloads)).Msg("processing orders page")

		rows := make([]types.DropiOrder, 0, len(payloads))
		for i := range payloads {
			row, reason := s.mapOrder(userID, &payloads[i])
			if row == nil {
				s.metrics.ItemsSkipped.WithLabelValues("order", reason).Inc()
				failed++
				continue
			}
			rows = append(rows, *row)
		}

		pageSynced, pageFailed, upsertErr := s.db.UpsertOrders(rows, s.cfg.OrderCommitEvery)
		synced += pageSynced
		failed += pageFailed
		s.metrics.OrdersUpserted.Add(float64(pageSynced))
		if upsertErr != nil {
			return synced, failed, upsertErr
		}

		// A short page means the upstream has no more data; do not
		// issue a trailing empty call.
		if len(payloads) < limit {
			break
		}
	}

	return synced, failed, nil
}

// mapOrder converts an upstream payload into a cache row. A nil row
// means the item is skipped, with the reason for the error counters.
func (s *Service) mapOrder(userID uint, payload *OrderPayload) (*types.DropiOrder, string) {
	if payload.ID == 0 {
		return nil, "missing_id"
	}

	createdAt := ParseUpstreamTime(payload.CreatedAt)
	if createdAt == nil {
		return nil, "bad_created_at"
	}

	statusRaw := string(payload.Status)
	customerName := payload.Name
	if payload.Surname != "" {
		customerName += " " + payload.Surname
	}

	var productsJSON string
	if len(payload.OrderDetails) > 0 {
		products := make([]OrderProduct, 0, len(payload.OrderDetails))
		for _, detail := range payload.OrderDetails {
			name := detail.Product.Name
			if name == "" {
				name = "Producto"
			}
			qty := int64(detail.Quantity)
			if qty == 0 {
				qty = 1
			}
			products = append(products, OrderProduct{
				Name:     name,
				Quantity: qty,
				Price:    detail.Price.Decimal,
			})
		}
		if raw, err := json.Marshal(products); err == nil {
			productsJSON = string(raw)
		}
	}

	rawData, _ := json.Marshal(payload)

	return &types.DropiOrder{
		UserID:            userID,
		DropiOrderID:      int64(payload.ID),
		Status:            NormalizeStatus(statusRaw),
		StatusRaw:         statusRaw,
		TotalOrder:        payload.TotalOrder.Decimal,
		ShippingAmount:    payload.ShippingAmount.Decimal,
		DropshipperProfit: payload.DropshipperAmountToWin.Decimal,
		CustomerName:      customerName,
		CustomerPhone:     payload.Phone,
		CustomerCity:      payload.City,
		CustomerState:     payload.State,
		CustomerAddress:   payload.Dir,
		ShippingGuide:     payload.ShippingGuide,
		ShippingCompany:   payload.ShippingCompany,
		RateType:          payload.RateType,
		ProductsJSON:      productsJSON,
		OrderCreatedAt:    *createdAt,
		OrderUpdatedAt:    ParseUpstreamTime(payload.UpdatedAt),
		SyncedAt:          time.Now().UTC(),
		RawData:           string(rawData),
	}, ""
}

// syncWallet pages through the wallet ledger inside a recency window.
func (s *Service) syncWallet(ctx context.Context, userID uint, token, country, dropiUserID string, fullSync bool) (synced, failed int, err error) {
	logger := log.With().Str("component", "dropi_sync").Uint("user_id", userID).Logger()

	limit := s.walletPage
	maxItems := s.cfg.IncrementalWallet
	windowDays := s.cfg.IncrementalDays
	if fullSync {
		maxItems = s.cfg.FullWalletMax
		windowDays = s.cfg.FullWindowDays
	}
	from := time.Now().AddDate(0, 0, -windowDays)

	for page := 0; synced < maxItems; page++ {
		payloads, fetchErr := s.client.FetchWallet(ctx, token, country, dropiUserID, page, limit, from)
		if fetchErr != nil {
			s.metrics.UpstreamErrors.WithLabelValues("dropi", "wallet").Inc()
			return synced, failed, fetchErr
		}
		s.metrics.FetchPages.WithLabelValues("dropi", "wallet").Inc()

		if len(payloads) == 0 {
			break
		}

		logger.Debug().Int("page", page).Int("movements", len(payloads)).Msg("processing wallet page")

		rows := make([]types.DropiWalletMovement, 0, len(payloads))
		for i := range payloads {
			row, reason := s.mapMovement(userID, &payloads[i])
			if row == nil {
				s.metrics.ItemsSkipped.WithLabelValues("movement", reason).Inc()
				failed++
				continue
			}
			rows = append(rows, *row)
		}

		pageSynced, pageFailed, upsertErr := s.db.UpsertMovements(rows, s.cfg.WalletCommitEvery)
		synced += pageSynced
		failed += pageFailed
		s.metrics.WalletUpserted.Add(float64(pageSynced))
		if upsertErr != nil {
			return synced, failed, upsertErr
		}

		if len(payloads) < limit {
			break
		}
	}

	return synced, failed, nil
}

func (s *Service) mapMovement(userID uint, payload *MovementPayload) (*types.DropiWalletMovement, string) {
	if payload.ID == 0 {
		return nil, "missing_id"
	}

	createdAt := ParseUpstreamTime(payload.CreatedAt)
	if createdAt == nil {
		return nil, "bad_created_at"
	}

	var orderRef *int64
	if payload.OrderID != 0 {
		ref := int64(payload.OrderID)
		orderRef = &ref
	}

	rawData, _ := json.Marshal(payload)

	return &types.DropiWalletMovement{
		UserID:            userID,
		DropiMovementID:   int64(payload.ID),
		MovementType:      payload.Type,
		Description:       payload.Description,
		Amount:            payload.Amount.Decimal.Abs(),
		BalanceAfter:      payload.PreviousAmount.Decimal,
		OrderRef:          orderRef,
		Category:          CategorizeMovement(payload.Description, payload.Type),
		MovementCreatedAt: *createdAt,
		SyncedAt:          time.Now().UTC(),
		RawData:           string(rawData),
	}, ""
}
