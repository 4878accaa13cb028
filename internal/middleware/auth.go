package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const UserIDKey contextKey = "user_id"

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTAuth struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewJWTAuth(secret string, accessTTL, refreshTTL time.Duration) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

// GenerateAccessToken creates a short lived JWT used by the auth middleware.
func (j *JWTAuth) GenerateAccessToken(userID uuid.UUID) (string, error) {
	return j.sign(userID, tokenTypeAccess, uuid.NewString(), time.Now().Add(j.AccessTTL))
}

// GenerateRefreshToken creates a refresh JWT; its jti is the blacklist key.
func (j *JWTAuth) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	return j.sign(userID, tokenTypeRefresh, uuid.NewString(), time.Now().Add(j.RefreshTTL))
}

func (j *JWTAuth) sign(userID uuid.UUID, tokenType, jti string, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"type":    tokenType,
		"jti":     jti,
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTAuth) ParseAccessToken(tokenStr string) (*TokenClaims, error) {
	return j.parse(tokenStr, tokenTypeAccess)
}

func (j *JWTAuth) ParseRefreshToken(tokenStr string) (*TokenClaims, error) {
	return j.parse(tokenStr, tokenTypeRefresh)
}

func (j *JWTAuth) parse(tokenStr, tokenType string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if t, _ := claims["type"].(string); t != tokenType {
		return nil, ErrInvalidToken
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	return &TokenClaims{UserID: userID, TokenID: jti, ExpiresAt: exp.Time}, nil
}

// Middleware validates the access token and attaches user_id to context.
// The token is read from the access_token cookie, then from a Bearer header.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := accessTokenFromRequest(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.", r)
			return
		}

		claims, err := j.ParseAccessToken(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
