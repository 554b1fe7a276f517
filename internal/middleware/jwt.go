package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// RequireJWT validates a bearer token from the Authorization header.
func RequireJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, code := authenticate(authService, bearerToken(c))
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAdminJWT validates a bearer token and requires the admin role.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, code := authenticate(authService, bearerToken(c))
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}
		if claims.Role != model.RoleAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireWSAuth validates a token from the ?token= query parameter.
// Browsers cannot set headers on WebSocket upgrade requests.
func RequireWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = bearerToken(c)
		}
		claims, code := authenticate(authService, tokenStr)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func authenticate(authService *service.AuthService, tokenStr string) (*service.Claims, response.ErrCode) {
	if tokenStr == "" {
		return nil, response.ErrTokenRequired
	}
	claims, err := authService.ValidateToken(tokenStr)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return nil, response.ErrTokenExpired
		}
		return nil, response.ErrTokenInvalid
	}
	return claims, ""
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
