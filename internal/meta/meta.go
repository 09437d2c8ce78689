package meta

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lucidlabs/lucid-analytics/pkg/middleware"
	"github.com/lucidlabs/lucid-analytics/pkg/response"
	"github.com/lucidlabs/lucid-analytics/pkg/secrets"
)

var ErrNoAccount = errors.New("no active meta ad account")

// Service handles Meta ad account management and Graph API reads.
type Service struct {
	db     *Database
	client *Client
	box    *secrets.Box
}

func NewService(gormDB *gorm.DB, client *Client, box *secrets.Box) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		client: client,
		box:    box,
	}
}

// ConnectRequest is the body for linking a Meta ad account.
type ConnectRequest struct {
	AccountID   string `json:"account_id" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
}

// AccountView is the public shape of a linked ad account.
type AccountView struct {
	AccountID   string     `json:"account_id"`
	AccountName string     `json:"account_name"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// Connect verifies the token can read the ad account, then stores it
// encrypted. Re-linking an account replaces its token.
func (s *Service) Connect(ctx context.Context, userID uint, req ConnectRequest) (*MetaAccount, error) {
	upstream, err := s.client.VerifyAccount(ctx, req.AccessToken, req.AccountID)
	if err != nil {
		return nil, err
	}

	tokenEnc, err := s.box.Encrypt(req.AccessToken)
	if err != nil {
		return nil, err
	}

	account, err := s.db.GetAccount(userID, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &MetaAccount{
			UserID:    userID,
			AccountID: req.AccountID,
		}
	}
	account.AccountName = upstream.Name
	account.TokenEncrypted = tokenEnc
	account.IsActive = true

	if err := s.db.SaveAccount(account); err != nil {
		return nil, err
	}

	log.Info().Uint("user_id", userID).Str("account_id", req.AccountID).Msg("meta ad account connected")
	return account, nil
}

// Accounts lists the user's linked ad accounts.
func (s *Service) Accounts(userID uint) ([]AccountView, error) {
	accounts, err := s.db.ListAccounts(userID)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, AccountView{
			AccountID:   a.AccountID,
			AccountName: a.AccountName,
			IsActive:    a.IsActive,
			LastUsedAt:  a.LastUsedAt,
		})
	}
	return views, nil
}

// Disconnect deactivates one linked ad account.
func (s *Service) Disconnect(userID uint, accountID string) error {
	account, err := s.db.GetAccount(userID, accountID)
	if err != nil || account == nil {
		return err
	}
	account.IsActive = false
	return s.db.SaveAccount(account)
}

// Ads fetches the account's ads live from the Graph API.
func (s *Service) Ads(ctx context.Context, userID uint, accountID string) ([]AdPayload, error) {
	token, account, err := s.token(userID, accountID)
	if err != nil {
		return nil, err
	}

	ads, err := s.client.FetchAds(ctx, token, accountID)
	if err != nil {
		return nil, err
	}

	_ = s.db.TouchAccount(account.ID, time.Now())
	return ads, nil
}

// Insights fetches ad-level insights for the date range.
func (s *Service) Insights(ctx context.Context, userID uint, accountID, since, until string) ([]InsightRow, error) {
	token, account, err := s.token(userID, accountID)
	if err != nil {
		return nil, err
	}

	rows, err := s.client.FetchInsights(ctx, token, accountID, since, until)
	if err != nil {
		return nil, err
	}

	_ = s.db.TouchAccount(account.ID, time.Now())
	return rows, nil
}

func (s *Service) token(userID uint, accountID string) (string, *MetaAccount, error) {
	account, err := s.db.GetActiveAccount(userID, accountID)
	if err != nil {
		return "", nil, err
	}
	if account == nil {
		return "", nil, ErrNoAccount
	}

	token, err := s.box.Decrypt(account.TokenEncrypted)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// GinHandlers contains HTTP handlers for Meta endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ConnectHandler handles POST requests to link an ad account
func (h *GinHandlers) ConnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConnectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		account, err := h.service.Connect(c.Request.Context(), middleware.UserID(c), req)
		if err != nil {
			if errors.Is(err, ErrTokenInvalid) {
				response.BadRequest(c, "Meta rejected the access token")
				return
			}
			response.InternalError(c, "Failed to connect ad account")
			return
		}

		response.Success(c, AccountView{
			AccountID:   account.AccountID,
			AccountName: account.AccountName,
			IsActive:    true,
		})
	}
}

// AccountsHandler handles GET requests for linked ad accounts
func (h *GinHandlers) AccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := h.service.Accounts(middleware.UserID(c))
		response.Handle(c, accounts, err)
	}
}

// DisconnectHandler handles DELETE requests to unlink an ad account
func (h *GinHandlers) DisconnectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.Disconnect(middleware.UserID(c), c.Param("accountId")); err != nil {
			response.InternalError(c, "Failed to disconnect")
			return
		}
		response.Success(c, gin.H{"message": "Ad account disconnected"})
	}
}

// AdsHandler handles GET requests for the account's ads
func (h *GinHandlers) AdsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ads, err := h.service.Ads(c.Request.Context(), middleware.UserID(c), c.Param("accountId"))
		if err != nil {
			switch {
			case errors.Is(err, ErrNoAccount):
				response.NotFound(c, "Ad account not linked")
			case errors.Is(err, ErrTokenInvalid):
				response.Unauthorized(c, "Meta token no longer valid")
			default:
				response.InternalError(c, "Failed to fetch ads")
			}
			return
		}
		response.Success(c, ads)
	}
}
