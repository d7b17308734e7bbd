package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	"github.com/yungbote/shiftsleep-backend/internal/http/response"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

const headerUserID = "X-User-Id"

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	// allowHeader accepts X-User-Id without a token. Local development only.
	allowHeader bool
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, allowHeader bool) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	if allowHeader {
		middlewareLogger.Warn("X-User-Id identity header accepted without a token")
	}
	return &AuthMiddleware{log: middlewareLogger, authService: authService, allowHeader: allowHeader}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if tokenString := extractToken(c); tokenString != "" && am.authService != nil {
			authed, err := am.authService.SetContextFromToken(ctx, tokenString)
			if err != nil {
				am.log.Debug("token rejected", "error", err)
				response.RespondError(c, http.StatusUnauthorized, "AUTHENTICATION_ERROR", err)
				return
			}
			ctx = authed
		} else if am.allowHeader {
			if id := strings.TrimSpace(c.GetHeader(headerUserID)); id != "" {
				ctx = ctxutil.WithUserID(ctx, id)
			}
		}

		userID := ctxutil.UserID(ctx)
		if userID == "" {
			response.RespondError(c, http.StatusUnauthorized, "AUTHENTICATION_ERROR", errMissingToken)
			return
		}
		if err := cache.ValidateUserID(userID); err != nil {
			response.RespondError(c, http.StatusForbidden, "AUTHORIZATION_ERROR", err)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", userID)
		c.Next()
	}
}

type authError string

func (e authError) Error() string { return string(e) }

const errMissingToken = authError("missing or invalid token")

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
