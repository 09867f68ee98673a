// Package auth registers users, checks passwords and issues the bearer tokens
// the HTTP API accepts.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

// MinPasswordLength is the shortest password Signup accepts.
const MinPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for a token that is malformed, forged or expired
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmailTaken is returned when signing up with a registered email
	ErrEmailTaken = errors.New("email is already registered")
	// ErrNoSecret is returned when no signing secret is configured
	ErrNoSecret = errors.New("jwt secret is not configured")
	// ErrInvalidEmail is returned by Signup for a malformed address
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword is returned by Signup for a password that is too short
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Claims identify the user a token was issued to.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	jwt.RegisteredClaims
}

// UserStore is the part of storage.Provider auth needs.
type UserStore interface {
	AddUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

type Service struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store UserStore, secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	return &Service{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source used for token timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewUser validates the signup fields and returns an unsaved user with a
// bcrypt password hash. The email is lowercased and the display name
// defaults to the email's local part.
func NewUser(email, password, displayName string, now time.Time) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, fmt.Errorf("%w %q", ErrInvalidEmail, email)
	}
	if len(password) < MinPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	return models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    now.UTC(),
	}, nil
}

// Signup creates a user and returns it with a fresh token.
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (models.User, string, error) {
	user, err := NewUser(email, password, displayName, s.now())
	if err != nil {
		return models.User{}, "", err
	}
	if err := s.store.AddUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.User{}, "", ErrEmailTaken
		}
		return models.User{}, "", err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// Login checks a password and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token for user.
func (s *Service) IssueToken(user models.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.AppName,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(constants.AppName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a token to its user.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return user, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSecret returns a random hex signing secret (32 bytes = 64 hex chars).
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
