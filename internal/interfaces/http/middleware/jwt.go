package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/coopmarket/backend/internal/infrastructure/auth"
	"github.com/coopmarket/backend/internal/infrastructure/logger"
	"github.com/coopmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by Auth
const (
	ClaimsKey  = "auth_claims"
	BuyerIDKey = "auth_buyer_id"
)

const bearerPrefix = "Bearer "

// IdempotencyKeyHeader lets clients retry order creation safely
const IdempotencyKeyHeader = "Idempotency-Key"

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth requires a valid bearer token and stores the claims and buyer id
func Auth(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := verifier.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			logger.L(c.Request.Context(), log).Debug("token rejected", zap.Error(err))
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Invalid token")
			return
		}
		buyerID, _ := claims.BuyerID()

		ctx, reqLogger := logger.WithBuyerID(c.Request.Context(), logger.GetGinLogger(c), buyerID.String())
		c.Request = c.Request.WithContext(ctx)
		logger.SetGinLogger(c, reqLogger)
		c.Set(ClaimsKey, claims)
		c.Set(BuyerIDKey, buyerID)
		c.Next()
	}
}

// RequireRole rejects requests whose token lacks role. Must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Insufficient permissions", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// GetClaims returns the claims stored by Auth, or nil
func GetClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// GetBuyerID returns the authenticated buyer
func GetBuyerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(BuyerIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="coopmarket"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
