package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/helpers"
	"github.com/participa-vecinal/participa/pkg/response"
)

const (
	CtxUserIDKey = "userID"
	CtxClaimsKey = "claims"
)

// SessionVerifier validates a session token.
type SessionVerifier interface {
	VerifySession(token string) (*helpers.Claims, error)
}

// Auth requires a valid session cookie and sets userID and claims in the Gin context.
func Auth(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.SessionCookie)
		if err != nil || token == "" {
			response.FromError(c, apperror.ErrUnauthorized)
			return
		}
		claims, err := v.VerifySession(token)
		if err != nil {
			response.FromError(c, apperror.ErrUnauthorized)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the claims when a valid session cookie is present and
// otherwise lets the request through anonymously.
func OptionalAuth(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(helpers.SessionCookie); err == nil && token != "" {
			if claims, err := v.VerifySession(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *helpers.Claims) {
	c.Set(CtxUserIDKey, claims.UsuarioID)
	c.Set(CtxClaimsKey, claims)
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(CtxUserIDKey)
}

// Claims returns the session claims set by Auth or OptionalAuth.
func Claims(c *gin.Context) (*helpers.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*helpers.Claims)
	return claims, ok
}
