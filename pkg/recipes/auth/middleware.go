package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"github.com/mikepea/recipes/pkg/recipes/logging"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = logging.UserIDKey
	// ContextKeyIdentity is the key for the caller's Identity in gin context
	ContextKeyIdentity = "identity"
)

// Identity is the authenticated caller of a request
type Identity struct {
	UserID      uint
	Email       string
	Name        string
	IsStaff     bool
	IsSuperuser bool
}

// Middleware validates the login token and stores the caller's Identity in context.
// Both "Token <t>" and "Bearer <t>" authorization schemes are accepted.
func Middleware(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apierr.Write(c, apierr.Unauthorized("Authentication credentials were not provided"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			apierr.Write(c, apierr.Unauthorized("Invalid authorization header format"))
			return
		}
		switch strings.ToLower(parts[0]) {
		case "token", "bearer":
		default:
			apierr.Write(c, apierr.Unauthorized("Invalid authorization header format"))
			return
		}

		user, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRevokedToken) || errors.Is(err, ErrInactiveUser) {
				apierr.Write(c, apierr.Unauthorized("Invalid token"))
			} else {
				apierr.Write(c, apierr.Internal(err, "Failed to validate token"))
			}
			return
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyIdentity, Identity{
			UserID:      user.ID,
			Email:       user.Email,
			Name:        user.Name,
			IsStaff:     user.IsStaff,
			IsSuperuser: user.IsSuperuser,
		})

		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller from the gin context
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	value, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	return identity, ok
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return 0, false
	}
	return identity.UserID, true
}
