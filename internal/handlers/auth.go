package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quizly-backend/internal/middleware"
	"quizly-backend/internal/models"
)

type authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
}

type AuthHandler struct {
	authService  authenticator
	cookieSecure bool
	accessTTL    time.Duration
}

func NewAuthHandler(authService authenticator, cookieSecure bool, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure, accessTTL: accessTTL}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if _, err := h.authService.Register(r.Context(), req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"detail": "User created successfully!"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setCookie(w, middleware.AccessCookieName, tokens.AccessToken, tokens.AccessTTL)
	h.setCookie(w, middleware.RefreshCookieName, tokens.RefreshToken, tokens.RefreshTTL)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"detail": "Login successfully!",
		"user":   user.Public(),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if c, err := r.Cookie(middleware.RefreshCookieName); err == nil {
		refreshToken = c.Value
	}

	access, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setCookie(w, middleware.AccessCookieName, access, h.accessTTL)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Token refreshed",
		"access":  access,
	})
}

// Logout always clears the cookies; a failed revocation is only logged.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.RefreshCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), c.Value); err != nil {
			log.Printf("logout: failed to blacklist refresh token: %v", err)
		}
	}

	h.clearCookie(w, middleware.AccessCookieName)
	h.clearCookie(w, middleware.RefreshCookieName)

	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Log-Out successfully! All Tokens will be deleted. Refresh token is now invalid.",
	})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
