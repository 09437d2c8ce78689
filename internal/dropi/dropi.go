package dropi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lucidlabs/lucid-analytics/internal/types"
	"github.com/lucidlabs/lucid-analytics/pkg/middleware"
	"github.com/lucidlabs/lucid-analytics/pkg/response"
)

var ErrCountryUnsupported = errors.New("country not supported")

// ConnectRequest is the body for linking a Dropi account.
type ConnectRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Country  string `json:"country"`
}

// ConnectionStatus is the public view of a connection.
type ConnectionStatus struct {
	Connected     bool      `json:"connected"`
	Country       string    `json:"country,omitempty"`
	DropiUserID   string    `json:"dropi_user_id,omitempty"`
	DropiUserName string    `json:"dropi_user_name,omitempty"`
	SyncStatus    string    `json:"sync_status,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Connect verifies the credentials with a live login, then stores them
// encrypted. One connection per user; reconnecting overwrites it.
func (s *Service) Connect(ctx context.Context, userID uint, req ConnectRequest) (*DropiConnection, error) {
	country := req.Country
	if country == "" {
		country = "co"
	}
	if _, ok := s.client.baseURLs[country]; !ok {
		return nil, ErrCountryUnsupported
	}

	login, err := s.client.Login(ctx, req.Email, req.Password, country)
	if err != nil {
		return nil, err
	}

	emailEnc, err := s.box.Encrypt(req.Email)
	if err != nil {
		return nil, err
	}
	passwordEnc, err := s.box.Encrypt(req.Password)
	if err != nil {
		return nil, err
	}

	conn, err := s.db.GetConnection(userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		conn = &DropiConnection{
			UserID:     userID,
			SyncStatus: types.SyncPending,
		}
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	conn.EmailEncrypted = emailEnc
	conn.PasswordEncrypted = passwordEnc
	conn.Country = country
	conn.DropiUserID = login.DropiUserID
	conn.DropiUserName = login.UserName
	conn.CurrentToken = login.Token
	conn.TokenExpiresAt = &expiresAt
	conn.IsActive = true

	if err := s.db.SaveConnection(conn); err != nil {
		return nil, err
	}

	log.Info().Uint("user_id", userID).Str("country", country).Msg("dropi account connected")
	return conn, nil
}

// Status reports whether the user has an active connection.
func (s *Service) Status(userID uint) (*ConnectionStatus, error) {
	conn, err := s.db.GetActiveConnection(userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return &ConnectionStatus{Connected: false}, nil
	}

	return &ConnectionStatus{
		Connected:     true,
		Country:       conn.Country,
		DropiUserID:   conn.DropiUserID,
		DropiUserName: conn.DropiUserName,
		SyncStatus:    conn.SyncStatus,
		CreatedAt:     conn.CreatedAt,
	}, nil
}

// Disconnect deactivates the connection and drops the cached token.
func (s *Service) Disconnect(userID uint) error {
	conn, err := s.db.GetConnection(userID)
	if err != nil || conn == nil {
		return err
	}

	conn.IsActive = false
	conn.CurrentToken = ""
	conn.TokenExpiresAt = nil
	return s.db.SaveConnection(conn)
}

// SyncStatus returns the queryable sync state plus cache counts.
func (s *Service) SyncStatus(userID uint) (*types.SyncStatusResponse, error) {
	conn, err := s.db.GetActiveConnection(userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return &types.SyncStatusResponse{Connected: false}, nil
	}

	orders, movements, paid, err := s.db.CacheCounts(userID)
	if err != nil {
		return nil, err
	}

	return &types.SyncStatusResponse{
		Connected:      true,
		SyncStatus:     conn.SyncStatus,
		Country:        conn.Country,
		OrdersCached:   orders,
		WalletCached:   movements,
		OrdersPaid:     paid,
		LastOrdersSync: conn.LastOrdersSync,
		LastWalletSync: conn.LastWalletSync,
	}, nil
}

// Clear deletes the user's cached rows and resets sync state.
func (s *Service) Clear(userID uint) (int64, error) {
	return s.db.ClearData(userID)
}

// Orders lists cached orders for read-side consumers.
func (s *Service) Orders(userID uint, status string, limit int) ([]types.DropiOrder, error) {
	return s.db.ListOrders(userID, status, limit)
}

// WalletSummary aggregates the cached ledger by category.
func (s *Service) WalletSummary(userID uint) (*WalletSummary, error) {
	return s.db.WalletSummary(userID)
}

// ProfitReport builds the cached Dropi-side P&L view.
func (s *Service) ProfitReport(userID uint) (*types.ProfitReport, error) {
	return s.db.ProfitReport(userID)
}

// GinHandlers contains HTTP handlers for Dropi endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ConnectHandler handles POST requests to link a Dropi account
func (h *GinHandlers) ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		conn, err := h.service.Connect(c.Request.Context(), middleware.UserID(c), req)
		if err != nil {
			switch {
			case errors.Is(err, ErrCountryUnsupported):
				response.BadRequest(c, err.Error())
			case errors.Is(err, ErrLoginFailed):
				response.BadRequest(c, "Dropi rejected the credentials")
			default:
				response.InternalError(c, "Failed to connect Dropi account")
			}
			return
		}

		response.Success(c, ConnectionStatus{
			Connected:     true,
			Country:       conn.Country,
			DropiUserID:   conn.DropiUserID,
			DropiUserName: conn.DropiUserName,
			SyncStatus:    conn.SyncStatus,
			CreatedAt:     conn.CreatedAt,
		})
	}
}

// StatusHandler handles GET requests for connection status
func (h *GinHandlers) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := h.service.Status(middleware.UserID(c))
		response.Handle(c, status, err)
	}
}

// DisconnectHandler handles DELETE requests to unlink the account
func (h *GinHandlers) DisconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.Disconnect(middleware.UserID(c)); err != nil {
			response.InternalError(c, "Failed to disconnect")
			return
		}
		response.Success(c, gin.H{"message": "Dropi disconnected"})
	}
}

// TriggerSyncHandler handles POST requests to start a background sync.
// Returns 202 immediately; 409 when a run is already in flight.
func (h *GinHandlers) TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.service.TriggerSync(middleware.UserID(c))
		if err != nil {
			switch {
			case errors.Is(err, ErrSyncInProgress):
				response.Conflict(c, "A sync is already running for this user")
			case errors.Is(err, ErrNoConnection):
				response.BadRequest(c, "No active Dropi connection")
			default:
				response.InternalError(c, "Failed to trigger sync")
			}
			return
		}

		response.Accepted(c, gin.H{"message": "Sync started"})
	}
}

// SyncStatusHandler handles GET requests for sync state and counts
func (h *GinHandlers) SyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := h.service.SyncStatus(middleware.UserID(c))
		response.Handle(c, status, err)
	}
}

// ClearDataHandler handles DELETE requests to wipe cached data
func (h *GinHandlers) ClearDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.service.Clear(middleware.UserID(c))
		if err != nil {
			response.InternalError(c, "Failed to clear cached data")
			return
		}
		response.Success(c, gin.H{"deleted": deleted})
	}
}

// OrdersHandler handles GET requests for cached orders
func (h *GinHandlers) OrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		orders, err := h.service.Orders(middleware.UserID(c), c.Query("status"), limit)
		response.Handle(c, orders, err)
	}
}

// WalletSummaryHandler handles GET requests for the cached ledger summary
func (h *GinHandlers) WalletSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := h.service.WalletSummary(middleware.UserID(c))
		response.Handle(c, summary, err)
	}
}

// SyncAllHandler handles POST requests to sync every active connection.
// Admin only; runs in the background.
func (h *GinHandlers) SyncAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		go h.service.SyncAll(context.Background())
		response.Accepted(c, gin.H{"message": "Bulk sync started"})
	}
}
