package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"quizly-backend/internal/middleware"
	"quizly-backend/internal/models"
)

// UserStore is the persistence the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

// TokenBlacklist records revoked refresh tokens by jti until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisBlacklist struct {
	redis *redis.Client
}

func NewRedisBlacklist(redisClient *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{redis: redisClient}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return b.redis.Set(ctx, "refresh_blacklist:"+tokenID, "1", ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.redis.Exists(ctx, "refresh_blacklist:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type AuthService struct {
	users     UserStore
	blacklist TokenBlacklist
	jwt       *middleware.JWTAuth
}

func NewAuthService(users UserStore, blacklist TokenBlacklist, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{users: users, blacklist: blacklist, jwt: jwt}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Register creates an account. Duplicate usernames or emails are reported
// with the same generic message so accounts cannot be enumerated.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fieldErrors := make(map[string]string)

	if req.Username == "" {
		fieldErrors["username"] = "This field is required."
	}
	if req.Email == "" {
		fieldErrors["email"] = "This field is required."
	} else if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Enter a valid email address."
	}
	if req.Password == "" {
		fieldErrors["password"] = "This field is required."
	}
	if req.ConfirmedPassword == "" {
		fieldErrors["confirmed_password"] = "This field is required."
	} else if req.Password != "" && req.Password != req.ConfirmedPassword {
		fieldErrors["confirmed_password"] = "Passwords do not match"
	}

	if _, ok := fieldErrors["username"]; !ok {
		taken, err := s.exists(s.users.GetByUsername(ctx, req.Username))
		if err != nil {
			return nil, err
		}
		if taken {
			fieldErrors["username"] = "Invalid credentials."
		}
	}
	if _, ok := fieldErrors["email"]; !ok {
		taken, err := s.exists(s.users.GetByEmail(ctx, req.Email))
		if err != nil {
			return nil, err
		}
		if taken {
			fieldErrors["email"] = "Invalid credentials."
		}
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) exists(_ *models.User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// Login checks credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.AuthTokens, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, nil, &UnauthorizedError{Message: "Both fields must be filled out."}
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &UnauthorizedError{Message: "Invalid username or password."}
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid username or password."}
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("login: failed to update last login for user %s: %v", user.ID, err)
	}

	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh trades a valid, non-revoked refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	invalid := &UnauthorizedError{Message: "Refresh token invalid!"}
	if refreshToken == "" {
		return "", invalid
	}

	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", invalid
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return "", fmt.Errorf("failed to check refresh token: %w", err)
	}
	if revoked {
		return "", invalid
	}

	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", invalid
		}
		return "", err
	}

	access, err := s.jwt.GenerateAccessToken(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return access, nil
}

// Logout revokes the refresh token for the rest of its lifetime. Tokens that
// are already invalid need no revocation.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.blacklist.Revoke(ctx, claims.TokenID, ttl)
}

func (s *AuthService) issueTokens(userID uuid.UUID) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessTTL:    s.jwt.AccessTTL,
		RefreshTTL:   s.jwt.RefreshTTL,
	}, nil
}
