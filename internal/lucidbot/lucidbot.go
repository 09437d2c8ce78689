package lucidbot

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lucidlabs/lucid-analytics/internal/config"
	"github.com/lucidlabs/lucid-analytics/internal/metrics"
	"github.com/lucidlabs/lucid-analytics/internal/types"
	"github.com/lucidlabs/lucid-analytics/pkg/middleware"
	"github.com/lucidlabs/lucid-analytics/pkg/response"
	"github.com/lucidlabs/lucid-analytics/pkg/secrets"
)

var ErrNoConnection = errors.New("no active lucidbot connection")

// Custom fields the panel attaches to contacts. The ad-tracking field is
// matched by id (configurable); these are matched by name.
const (
	amountFieldName        = "Total a pagar"
	productFieldName       = "Producto_Ordenados"
	qualificationFieldName = "Calificacion_LucidSales"
)

// Service handles LucidBot connections and contact syncing.
type Service struct {
	db      *Database
	client  *Client
	box     *secrets.Box
	fieldID string
	metrics *metrics.Metrics
}

func NewService(gormDB *gorm.DB, client *Client, box *secrets.Box, cfg config.LucidbotConfig, m *metrics.Metrics) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		client:  client,
		box:     box,
		fieldID: cfg.AdFieldID,
		metrics: m,
	}
}

// ConnectRequest is the body for linking a LucidBot account.
type ConnectRequest struct {
	Token string `json:"token" binding:"required"`
}

// ConnectionStatus is the public view of a LucidBot connection.
type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	AccountName string     `json:"account_name,omitempty"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	Contacts    int64      `json:"contacts_cached"`
}

// Connect verifies the token against the live API and stores it
// encrypted. Reconnecting overwrites the previous token.
func (s *Service) Connect(ctx context.Context, userID uint, token string) (*LucidbotConnection, error) {
	account, err := s.client.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	tokenEnc, err := s.box.Encrypt(token)
	if err != nil {
		return nil, err
	}

	conn, err := s.db.GetConnection(userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		conn = &LucidbotConnection{UserID: userID}
	}
	conn.TokenEncrypted = tokenEnc
	conn.AccountName = account.Name
	conn.IsActive = true

	if err := s.db.SaveConnection(conn); err != nil {
		return nil, err
	}

	log.Info().Uint("user_id", userID).Str("account", account.Name).Msg("lucidbot account connected")
	return conn, nil
}

func (s *Service) Status(userID uint) (*ConnectionStatus, error) {
	conn, err := s.db.GetActiveConnection(userID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return &ConnectionStatus{Connected: false}, nil
	}

	count, err := s.db.ContactCount(userID)
	if err != nil {
		return nil, err
	}

	return &ConnectionStatus{
		Connected:   true,
		AccountName: conn.AccountName,
		LastSync:    conn.LastSync,
		Contacts:    count,
	}, nil
}

func (s *Service) Disconnect(userID uint) error {
	conn, err := s.db.GetConnection(userID)
	if err != nil || conn == nil {
		return err
	}
	conn.IsActive = false
	return s.db.SaveConnection(conn)
}

// SyncContacts pulls contacts for the given ad ids and upserts them into
// the cache. Contacts that cannot be mapped are counted, not fatal.
func (s *Service) SyncContacts(ctx context.Context, userID uint, adIDs []string) (synced, skipped int, err error) {
	conn, err := s.db.GetActiveConnection(userID)
	if err != nil {
		return 0, 0, err
	}
	if conn == nil {
		return 0, 0, ErrNoConnection
	}

	token, err := s.box.Decrypt(conn.TokenEncrypted)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for _, adID := range adIDs {
		payloads, err := s.client.FindContactsByAd(ctx, token, s.fieldID, adID)
		if err != nil {
			s.metrics.UpstreamErrors.WithLabelValues("lucidbot", "fetch").Inc()
			return synced, skipped, err
		}
		s.metrics.FetchPages.WithLabelValues("lucidbot", "contacts").Inc()

		rows := make([]types.LucidbotContact, 0, len(payloads))
		for _, p := range payloads {
			row, reason := s.mapContact(userID, adID, p, now)
			if reason != "" {
				skipped++
				s.metrics.ItemsSkipped.WithLabelValues("contact", reason).Inc()
				continue
			}
			rows = append(rows, *row)
		}

		n, err := s.db.UpsertContacts(rows)
		if err != nil {
			return synced, skipped, err
		}
		synced += n
		s.metrics.ContactsSynced.Add(float64(n))
	}

	if err := s.db.StampSync(userID, now); err != nil {
		return synced, skipped, err
	}

	log.Info().
		Uint("user_id", userID).
		Int("synced", synced).
		Int("skipped", skipped).
		Int("ads", len(adIDs)).
		Msg("lucidbot contacts synced")
	return synced, skipped, nil
}

func (s *Service) mapContact(userID uint, adID string, p ContactPayload, now time.Time) (*types.LucidbotContact, string) {
	if p.ID == 0 {
		return nil, "missing_id"
	}

	row := &types.LucidbotContact{
		UserID:        userID,
		LucidbotID:    formatID(p.ID),
		FullName:      p.FullName,
		Phone:         p.Phone,
		AdID:          adID,
		Product:       p.FieldValue(productFieldName),
		Qualification: p.FieldValue(qualificationFieldName),
		SyncedAt:      now,
	}

	if t := parseContactTime(p.CreatedAt); t != nil {
		row.ContactCreatedAt = *t
	} else {
		row.ContactCreatedAt = now
	}

	if cls := Classify(p.FieldValue(amountFieldName)); cls.Kind == KindSale {
		row.AmountDue = decimal.NewNullDecimal(cls.Amount)
	}
	return row, ""
}

// ContactsByAd lists cached contacts for one ad.
func (s *Service) ContactsByAd(userID uint, adID string) ([]types.LucidbotContact, error) {
	return s.db.ContactsByAd(userID, adID)
}

// SummariesByAd exposes per-ad aggregates for the analytics layer.
func (s *Service) SummariesByAd(userID uint, adIDs []string) (map[string]types.ContactSummary, error) {
	return s.db.SummariesByAd(userID, adIDs)
}

// Stats summarizes the user's contact cache.
func (s *Service) Stats(userID uint) (*ContactStats, error) {
	return s.db.Stats(userID)
}

// ClearContacts drops every cached contact for the user so the next
// sync rebuilds the cache from scratch.
func (s *Service) ClearContacts(userID uint) (int64, error) {
	deleted, err := s.db.ClearContacts(userID)
	if err != nil {
		return 0, err
	}
	log.Info().
		Uint("user_id", userID).
		Int64("deleted", deleted).
		Msg("lucidbot contact cache cleared")
	return deleted, nil
}

// GinHandlers contains HTTP handlers for LucidBot endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ConnectHandler handles POST requests to link a LucidBot account
func (h *GinHandlers) ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		conn, err := h.service.Connect(c.Request.Context(), middleware.UserID(c), req.Token)
		if err != nil {
			if errors.Is(err, ErrTokenInvalid) {
				response.BadRequest(c, "LucidBot rejected the token")
				return
			}
			response.InternalError(c, "Failed to connect LucidBot account")
			return
		}

		response.Success(c, ConnectionStatus{
			Connected:   true,
			AccountName: conn.AccountName,
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
		response.Success(c, gin.H{"message": "LucidBot disconnected"})
	}
}

// SyncContactsHandler handles POST requests to pull contacts for a set
// of ad ids.
func (h *GinHandlers) SyncContactsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AdIDs []string `json:"ad_ids" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		synced, skipped, err := h.service.SyncContacts(c.Request.Context(), middleware.UserID(c), req.AdIDs)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoConnection):
				response.BadRequest(c, "No active LucidBot connection")
			case errors.Is(err, ErrTokenInvalid):
				response.Unauthorized(c, "LucidBot token no longer valid")
			default:
				response.InternalError(c, "Contact sync failed")
			}
			return
		}

		response.Success(c, gin.H{"synced": synced, "skipped": skipped})
	}
}

// ContactsHandler handles GET requests for cached contacts of one ad
func (h *GinHandlers) ContactsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		adID := c.Param("adId")
		contacts, err := h.service.ContactsByAd(middleware.UserID(c), adID)
		response.Handle(c, contacts, err)
	}
}

// StatsHandler handles GET requests for contact cache statistics
func (h *GinHandlers) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.service.Stats(middleware.UserID(c))
		response.Handle(c, stats, err)
	}
}

// ClearContactsHandler handles DELETE requests to wipe the contact cache
func (h *GinHandlers) ClearContactsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.service.ClearContacts(middleware.UserID(c))
		response.Handle(c, gin.H{"deleted": deleted}, err)
	}
}
