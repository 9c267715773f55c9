package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/erp/mason/internal/infrastructure/auth"
	"github.com/erp/mason/internal/infrastructure/logger"
	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates access tokens. *auth.JWTService satisfies it.
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTConfig configures JWTAuth
type JWTConfig struct {
	Validator TokenValidator
	// Blacklist is optional; lookups fail open when it errors.
	Blacklist auth.TokenBlacklist
	// Required rejects requests without a bearer token. When false, anonymous
	// requests pass through and viewset permissions decide.
	Required  bool
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuth validates the bearer token and installs its claims as the request
// state user. A present but invalid token is always rejected.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			if cfg.Required {
				authFailed(c, cfg.Logger, auth.ErrInvalidToken, "Missing authorization header")
				return
			}
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			authFailed(c, cfg.Logger, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		claims, err := cfg.Validator.ValidateAccessToken(token)
		if err != nil {
			authFailed(c, cfg.Logger, err, "Token validation failed")
			return
		}

		if cfg.Blacklist != nil && revoked(c, cfg, claims) {
			authFailed(c, cfg.Logger, auth.ErrTokenBlacklisted, "Token has been revoked")
			return
		}

		state.FromGin(c).SetUser(claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		if _, ok := c.Get(logger.GinLoggerKey); ok {
			c.Set(logger.GinLoggerKey, logger.GetGinLogger(c).With(zap.String("user_id", claims.UserID)))
		}
		c.Next()
	}
}

func revoked(c *gin.Context, cfg JWTConfig, claims *auth.Claims) bool {
	ctx := c.Request.Context()
	if claims.ID != "" {
		blacklisted, err := cfg.Blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			cfg.Logger.Error("Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
		} else if blacklisted {
			return true
		}
	}
	invalidated, err := cfg.Blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		cfg.Logger.Error("Failed to check user token invalidation", zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}
	return invalidated
}

func authFailed(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, message = dto.ErrCodeTokenInvalid, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrInvalidClaims):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	abort(c, code, message)
}

// ClaimsFrom returns the authenticated claims, or nil for anonymous requests.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	claims, _ := state.UserAs[*auth.Claims](state.FromGin(c))
	return claims
}
