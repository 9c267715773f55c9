package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func issueTokens(t *testing.T, env *testEnv, req TokenRequest) TokenResponse {
	t.Helper()
	w := env.do(http.MethodPost, "/api/v1/auth/token", "", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool          `json:"success"`
		Data    TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestAuthHandler_IssueToken(t *testing.T) {
	env := newTestEnv(t)

	t.Run("issues a usable pair", func(t *testing.T) {
		tokens := issueTokens(t, env, TokenRequest{Username: "alice", Permissions: []string{"project:read"}})
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Equal(t, "Bearer", tokens.TokenType)
		assert.True(t, tokens.RefreshTokenExpiresAt.After(tokens.AccessTokenExpiresAt))

		w := env.do(http.MethodGet, "/api/v1/projects", tokens.AccessToken, nil)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("same username maps to the same user", func(t *testing.T) {
		a := issueTokens(t, env, TokenRequest{Username: "bob"})
		b := issueTokens(t, env, TokenRequest{Username: "bob"})

		ca, err := env.jwt.ValidateAccessToken(a.AccessToken)
		require.NoError(t, err)
		cb, err := env.jwt.ValidateAccessToken(b.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, ca.UserID, cb.UserID)
		assert.NotEqual(t, ca.ID, cb.ID)
	})

	t.Run("username too short", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/token", "", TokenRequest{Username: "al"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
	})

	t.Run("not mounted when disabled", func(t *testing.T) {
		h := NewAuthHandler(env.jwt, env.blacklist, zap.NewNop(), false)
		r := gin.New()
		routes := h.RegisterRoutes(r.Group("/api/v1"))
		for _, rt := range routes {
			assert.NotEqual(t, "token", rt.Action)
		}
	})
}

func TestAuthHandler_Me(t *testing.T) {
	env := newTestEnv(t)

	t.Run("anonymous", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w))
	})

	t.Run("authenticated", func(t *testing.T) {
		tokens := issueTokens(t, env, TokenRequest{Username: "alice", Permissions: []string{"project:*"}})
		w := env.do(http.MethodGet, "/api/v1/auth/me", tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data CurrentUserResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Data.Username)
		assert.Equal(t, []string{"project:*"}, resp.Data.Permissions)
		assert.NotEmpty(t, resp.Data.UserID)
		assert.False(t, resp.Data.ExpiresAt.IsZero())
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t)

	t.Run("revokes the current token", func(t *testing.T) {
		tokens := issueTokens(t, env, TokenRequest{Username: "alice"})

		w := env.do(http.MethodPost, "/api/v1/auth/logout", tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(http.MethodGet, "/api/v1/auth/me", tokens.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("all sessions", func(t *testing.T) {
		first := issueTokens(t, env, TokenRequest{Username: "carol"})
		second := issueTokens(t, env, TokenRequest{Username: "carol"})

		w := env.do(http.MethodPost, "/api/v1/auth/logout", first.AccessToken, LogoutRequest{AllSessions: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		claims, err := env.jwt.ValidateAccessToken(second.AccessToken)
		require.NoError(t, err)
		invalidated, err := env.blacklist.IsUserTokenInvalidated(context.Background(), claims.UserID, claims.GetIssuedAtTime())
		require.NoError(t, err)
		assert.True(t, invalidated)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/logout", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	env := newTestEnv(t)
	tokens := issueTokens(t, env, TokenRequest{Username: "alice", Permissions: []string{"project:read"}})

	var rotated TokenResponse
	t.Run("rotates", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/refresh", "", RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data TokenResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		rotated = resp.Data
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	})

	t.Run("old refresh token is revoked", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/refresh", "", RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/refresh", "", RefreshTokenRequest{RefreshToken: tokens.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
