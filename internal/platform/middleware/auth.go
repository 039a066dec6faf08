package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

const sessionKey = "auth_session"

// AuthMiddleware validates the bearer token and stores the caller's Session in the context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Unauthorized(c, "expected 'Bearer <token>'")
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(sessionKey, auth.NewSession(claims, parts[1]))
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set. Must run after AuthMiddleware.
func RequireRole(allowed ...string) gin.HandlerFunc {
	roles := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		roles[r] = struct{}{}
	}

	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}
		if _, allowed := roles[session.Role]; !allowed {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetSession returns the authenticated caller.
func GetSession(c *gin.Context) (*auth.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*auth.Session)
	return s, ok && s != nil
}

// GetUserID returns the authenticated caller's user id.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	s, ok := GetSession(c)
	if !ok {
		return uuid.Nil, false
	}
	return s.UserID, true
}

// GetUserRole returns the authenticated caller's role.
func GetUserRole(c *gin.Context) (string, bool) {
	s, ok := GetSession(c)
	if !ok {
		return "", false
	}
	return s.Role, true
}
