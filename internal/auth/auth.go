package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lucidlabs/lucid-analytics/pkg/middleware"
	"github.com/lucidlabs/lucid-analytics/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

const tokenTTL = 24 * time.Hour

// Credentials is the register/login request body.
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// TokenResponse is the issued JWT plus its expiry.
type TokenResponse struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
	UserID     uint      `json:"user_id"`
	Email      string    `json:"email"`
}

// Claims is the JWT claims structure carried by every protected request.
type Claims struct {
	jwt.RegisteredClaims
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Service handles account registration, login and token issuance.
type Service struct {
	db        *Database
	jwtSecret []byte
}

func NewService(gormDB *gorm.DB, jwtSecret string) *Service {
	return &Service{
		db:        NewDatabase(gormDB),
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates a user with a bcrypt password hash and returns a
// fresh token for it.
func (s *Service) Register(creds Credentials) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	existing, err := s.db.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         creds.Name,
		IsActive:     true,
	}
	if err := s.db.CreateUser(user); err != nil {
		return nil, err
	}

	return s.issueToken(user)
}

// Login verifies the password and returns a token.
func (s *Service) Login(creds Credentials) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	user, err := s.db.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

func (s *Service) issueToken(user *User) (*TokenResponse, error) {
	expiration := time.Now().Add(tokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      signed,
		Expiration: expiration,
		UserID:     user.ID,
		Email:      user.Email,
	}, nil
}

// GinHandlers contains HTTP handlers for auth endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// RegisterHandler handles POST requests to create a new account
func (h *GinHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		token, err := h.service.Register(creds)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				response.Conflict(c, err.Error())
				return
			}
			response.InternalError(c, "Failed to register user")
			return
		}

		response.Success(c, token)
	}
}

// Profile returns the stored account behind an authenticated request.
func (s *Service) Profile(userID uint) (*User, error) {
	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

// LoginHandler handles POST requests to exchange credentials for a JWT
func (h *GinHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		token, err := h.service.Login(creds)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				response.Unauthorized(c, err.Error())
				return
			}
			response.InternalError(c, "Failed to log in")
			return
		}

		response.Success(c, token)
	}
}

// MeHandler handles GET requests for the authenticated user's account
func (h *GinHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.service.Profile(middleware.UserID(c))
		response.Handle(c, user, err)
	}
}
