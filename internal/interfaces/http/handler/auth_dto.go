package handler

import "time"

// TokenRequest asks for a development token pair
type TokenRequest struct {
	Username    string   `json:"username" binding:"required,min=3,max=100"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,min=1,max=100"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair
type RefreshTokenRequest struct {
	RefreshToken string   `json:"refresh_token" binding:"required"`
	Permissions  []string `json:"permissions" binding:"omitempty,dive,min=1,max=100"`
}

// LogoutRequest optionally revokes every session of the user
type LogoutRequest struct {
	AllSessions bool `json:"all_sessions"`
}

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// CurrentUserResponse describes the authenticated caller
type CurrentUserResponse struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LogoutResponse represents the response body for logout
type LogoutResponse struct {
	Message string `json:"message"`
}
