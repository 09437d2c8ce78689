package middleware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lucidlabs/lucid-analytics/pkg/response"
	"golang.org/x/time/rate"
)

// RequestID tags every request with a unique id, echoed back in the
// X-Request-ID header and available to handlers for log correlation.
// An id supplied by the caller is kept.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.RWMutex

	// Configure limits per endpoint type
	authLimit      = rate.Limit(10.0 / 60.0)  // 10 requests per minute
	syncLimit      = rate.Limit(6.0 / 60.0)   // sync triggers are expensive upstream
	analyticsLimit = rate.Limit(120.0 / 60.0) // 120 requests per minute
)

// Cleanup old visitors periodically
func init() {
	go cleanupVisitors()
}

func getLimiter(path, clientKey string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	key := clientKey + ":" + path
	v, exists := visitors[key]

	if !exists {
		var limit rate.Limit
		switch {
		case strings.HasPrefix(path, "/api/v1/auth"):
			limit = authLimit
		case strings.Contains(path, "/sync"):
			limit = syncLimit
		case strings.HasPrefix(path, "/api/v1/analytics"):
			limit = analyticsLimit
		default:
			limit = rate.Inf // No limit for other paths
		}

		v = &visitor{
			limiter:  rate.NewLimiter(limit, 1), // burst of 1
			lastSeen: time.Now(),
		}
		visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for ip, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, ip)
			}
		}
		mu.Unlock()
	}
}

func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.GetString("userEmail")
		if clientKey == "" {
			clientKey = c.ClientIP()
		}

		limiter := getLimiter(c.FullPath(), clientKey)
		if !limiter.Allow() {
			response.BadRequest(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuth validates the bearer token and stores the user identity in the
// request context under "userID" and "userEmail".
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearerToken := strings.Split(c.GetHeader("Authorization"), " ")
		if len(bearerToken) != 2 {
			response.Unauthorized(c, "Invalid authorization header")
			c.Abort()
			return
		}

		tokenString := bearerToken[1]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			response.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		// Ensure required claims exist
		requiredClaims := []string{"user_id", "exp"}
		for _, claim := range requiredClaims {
			if _, exists := claims[claim]; !exists {
				response.Unauthorized(c, fmt.Sprintf("Missing required claim: %s", claim))
				c.Abort()
				return
			}
		}

		c.Set("claims", claims)
		if userID, ok := claims["user_id"].(float64); ok {
			c.Set("userID", uint(userID))
		}
		if email, ok := claims["email"].(string); ok {
			c.Set("userEmail", email)
		}
		if isAdmin, ok := claims["is_admin"].(bool); ok {
			c.Set("isAdmin", isAdmin)
		}

		c.Next()
	}
}

// AdminOnly rejects requests whose token does not carry the admin flag.
// Must run after JWTAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isAdmin") {
			response.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID from the request context.
func UserID(c *gin.Context) uint {
	id, _ := c.Get("userID")
	if v, ok := id.(uint); ok {
		return v
	}
	return 0
}
