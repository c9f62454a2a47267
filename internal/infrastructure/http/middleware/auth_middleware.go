package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/errors"
	"github.com/johnquangdev/persona-panel/pkg/jwt"
)

const (
	// ScopeContextKey is the echo context key holding the caller's progress scope
	ScopeContextKey = "scope"
	// AnonymousScope is used when authentication is disabled
	AnonymousScope = "anonymous"
)

// extractToken reads the bearer token from the Authorization header or,
// for browser websocket clients, the access_token query parameter
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("access_token")
}

// reject writes the same code/message envelope the handlers use
func reject(c echo.Context, appErr errors.AppError) error {
	return c.JSON(appErr.HTTPCode, map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// EchoAuth returns an Echo middleware that validates the JWT and sets the
// token subject as the scope. A nil manager disables authentication and
// every request shares the anonymous scope.
func EchoAuth(manager *jwt.Manager, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil {
				c.Set(ScopeContextKey, AnonymousScope)
				return next(c)
			}

			token := extractToken(c.Request())
			if token == "" {
				return reject(c, errors.ErrUnauthenticated())
			}

			claims, err := manager.ValidateToken(token)
			if err != nil {
				if logger != nil {
					logger.Debug("🔒 Rejected token", zap.Error(err))
				}
				return reject(c, errors.ErrInvalidToken())
			}

			c.Set(ScopeContextKey, claims.Scope())
			return next(c)
		}
	}
}
