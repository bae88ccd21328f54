package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/md-notes-api/internal/models"
	"github.com/noah-isme/md-notes-api/internal/service"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
	"github.com/noah-isme/md-notes-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the request Principal.
const ContextPrincipalKey = "currentPrincipal"

// Authenticate attaches a Principal when the request carries a valid bearer
// token. It never blocks: a missing, malformed, revoked or unresolvable token
// leaves the request unauthenticated and the route-level gate decides what to
// do with it. All failures are swallowed and logged; a bad token must never
// break request handling.
func Authenticate(authService *service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		principal, err := authService.ResolvePrincipal(c.Request.Context(), token)
		if err != nil {
			logger.Debug("request unauthenticated",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.Next()
			return
		}

		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// RequireAuth rejects requests that reached this point without a Principal.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextPrincipalKey); !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the request Principal, or nil when unauthenticated.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
