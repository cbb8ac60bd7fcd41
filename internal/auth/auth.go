// Package auth registers users, verifies credentials and issues bearer
// tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"moneta/internal/core"
	"moneta/internal/storage"
)

const (
	bcryptCost        = 12
	MinPasswordLength = 6

	maxLoginFailures = 5
	lockoutWindow    = 15 * time.Minute
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the persistence needed by the service.
type UserStore interface {
	CreateUser(ctx context.Context, u storage.User) error
	UserByEmail(ctx context.Context, email string) (storage.User, error)
}

type Service struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	failures *cache.Cache
	now      func() time.Time
}

func NewService(users UserStore, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		failures: cache.New(lockoutWindow, 2*lockoutWindow),
		now:      time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Register creates a user with a bcrypt-hashed password and returns its id.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u := storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return "", err
	}
	return u.ID, nil
}

// Login verifies credentials and returns a signed token. After
// maxLoginFailures failures for one email within lockoutWindow further
// attempts are refused until the window passes.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if n, ok := s.failures.Get(email); ok && n.(int) >= maxLoginFailures {
		return "", ErrTooManyAttempts
	}

	u, err := s.users.UserByEmail(ctx, email)
	if err != nil && !core.IsNotFound(err) {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.recordFailure(email)
		return "", ErrInvalidCredentials
	}
	s.failures.Delete(email)
	return s.GenerateToken(u.ID)
}

func (s *Service) recordFailure(email string) {
	if err := s.failures.Increment(email, 1); err != nil {
		s.failures.Set(email, 1, cache.DefaultExpiration)
	}
}

func (s *Service) GenerateToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the user id carried by a valid token.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
