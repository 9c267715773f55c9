package handler

import (
	"net/http"

	"github.com/erp/mason/internal/infrastructure/auth"
	"github.com/erp/mason/internal/interfaces/http/middleware"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/viewset"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthHandler issues and revokes tokens. There is no user store: the token
// endpoint is a development aid and is only mounted outside production.
type AuthHandler struct {
	BaseHandler
	jwt         *auth.JWTService
	blacklist   auth.TokenBlacklist
	logger      *zap.Logger
	issueTokens bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwt *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger, issueTokens bool) *AuthHandler {
	return &AuthHandler{jwt: jwt, blacklist: blacklist, logger: logger, issueTokens: issueTokens}
}

// userNamespace derives stable user ids from usernames for development tokens.
var userNamespace = uuid.MustParse("6f0c4c52-7c1e-4a8e-9d0b-1f6f9a3c2b10")

// IssueToken returns a token pair for the requested username and permissions.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	pair, err := h.jwt.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      uuid.NewSHA1(userNamespace, []byte(req.Username)),
		Username:    req.Username,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("Development token issued", zap.String("username", req.Username), zap.Strings("permissions", req.Permissions))
	h.Success(c, toTokenResponse(pair))
}

// Refresh rotates a refresh token: the presented token is revoked and a new pair issued.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		h.Unauthorized(c, "Invalid refresh token")
		return
	}
	ctx := c.Request.Context()
	if revoked, err := h.blacklist.IsBlacklisted(ctx, claims.ID); err != nil {
		h.HandleError(c, err)
		return
	} else if revoked {
		h.Unauthorized(c, "Refresh token has been revoked")
		return
	}
	if invalidated, err := h.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime()); err != nil {
		h.HandleError(c, err)
		return
	} else if invalidated {
		h.Unauthorized(c, "User session has been invalidated")
		return
	}

	pair, err := h.jwt.RefreshTokenPair(req.RefreshToken, req.Permissions)
	if err != nil {
		h.Unauthorized(c, "Invalid refresh token")
		return
	}
	if err := h.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTokenResponse(pair))
}

// Logout revokes the presented access token, or every token of the user when all_sessions is set.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	var err error
	if req.AllSessions {
		err = h.blacklist.AddUserTokensToBlacklist(ctx, claims.UserID, h.jwt.RefreshTokenExpiration())
	} else {
		err = h.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL())
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.logger.Info("User logged out", zap.String("user_id", claims.UserID), zap.Bool("all_sessions", req.AllSessions))
	h.Success(c, LogoutResponse{Message: "Logged out successfully"})
}

// Me returns the caller's identity as carried by the token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	resp := CurrentUserResponse{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Permissions: claims.Permissions,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts /auth/* and describes the routes for the API document.
func (h *AuthHandler) RegisterRoutes(rg gin.IRouter) []viewset.RouteInfo {
	base := ""
	if g, ok := rg.(*gin.RouterGroup); ok {
		base = g.BasePath()
	}
	authed := middleware.Require(h.logger, permission.IsAuthenticated{})

	g := rg.Group("/auth")
	var routes []viewset.RouteInfo
	add := func(method, rel, action, summary string, req, resp any, handlers ...gin.HandlerFunc) {
		g.Handle(method, rel, handlers...)
		routes = append(routes, viewset.RouteInfo{
			Method:         method,
			Path:           base + "/auth" + rel,
			Name:           "auth-" + action,
			ViewSet:        "auth",
			Action:         action,
			Tags:           []string{"auth"},
			Summary:        summary,
			Status:         http.StatusOK,
			RequestSchema:  req,
			ResponseSchema: resp,
			SingleWrapper:  wrapper.Envelope{},
		})
	}

	if h.issueTokens {
		add(http.MethodPost, "/token", "token", "Issue a development token pair", TokenRequest{}, TokenResponse{}, h.IssueToken)
	}
	add(http.MethodPost, "/refresh", "refresh", "Rotate a refresh token", RefreshTokenRequest{}, TokenResponse{}, h.Refresh)
	add(http.MethodPost, "/logout", "logout", "Revoke the current token", LogoutRequest{}, LogoutResponse{}, authed, h.Logout)
	add(http.MethodGet, "/me", "me", "Describe the current user", nil, CurrentUserResponse{}, authed, h.Me)
	return routes
}

func toTokenResponse(p *auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
		TokenType:             p.TokenType,
	}
}
