// Package auth issues and verifies the bearer tokens used by the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/config"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID int64
	Email  string
}

// Service handles user registration, login, and JWT token operations.
type Service struct {
	users      catalog.UserRepository
	jwtSecret  []byte
	bcryptCost int
	tokenTTL   time.Duration
}

// NewService creates a new auth service.
func NewService(users catalog.UserRepository, cfg config.AuthConfig) *Service {
	return &Service{
		users:      users,
		jwtSecret:  []byte(cfg.JWTSecret),
		bcryptCost: cfg.BcryptCost,
		tokenTTL:   time.Duration(cfg.TokenDays) * 24 * time.Hour,
	}
}

// Register creates a new user account after validating inputs.
func (s *Service) Register(ctx context.Context, email, password string) (*catalog.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", catalog.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", catalog.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", catalog.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &catalog.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns a signed JWT token string.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", catalog.ErrUnauthorized
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", catalog.ErrUnauthorized
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", fmt.Errorf("generate jwt: %w", err)
	}
	return token, nil
}

// VerifyToken validates a bearer token and returns the caller identity.
func (s *Service) VerifyToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, catalog.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, catalog.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, catalog.ErrUnauthorized
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, catalog.ErrUnauthorized
	}

	email, _ := claims["email"].(string)
	return &Identity{UserID: userID, Email: email}, nil
}

// generateJWT signs a token for a user.
func (s *Service) generateJWT(user *catalog.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(user.ID, 10),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
