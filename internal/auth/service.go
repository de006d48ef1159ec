package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sariverse/sariverse/internal/profiles"
	"github.com/sariverse/sariverse/internal/shared"
)

// Service handles signup, signin and token verification.
type Service struct {
	repo     profiles.RepositoryPort
	secret   []byte
	tokenTTL time.Duration
}

// NewService builds a Service instance.
func NewService(repo profiles.RepositoryPort, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Claims carried inside issued tokens.
type Claims struct {
	ProfileID int64  `json:"pid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Signup registers a new store owner and returns the profile with a token.
func (s *Service) Signup(ctx context.Context, email, password string, storeName *string) (*profiles.Profile, string, error) {
	if len(password) < 8 {
		return nil, "", errors.New("auth: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("auth: hash password: %w", err)
	}
	profile, err := s.repo.Create(ctx, email, string(hash), storeName)
	if err != nil {
		return nil, "", err
	}
	token, err := s.issueToken(profile)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// Signin authenticates an owner and returns the profile with a token.
func (s *Service) Signin(ctx context.Context, email, password string) (*profiles.Profile, string, error) {
	profile, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, "", shared.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.issueToken(profile)
	if err != nil {
		return nil, "", err
	}
	return profile, token, nil
}

// VerifyToken parses a bearer token and returns the request identity.
func (s *Service) VerifyToken(tokenString string) (*shared.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, shared.ErrInvalidCredentials
	}
	return &shared.Identity{
		ProfileID: claims.ProfileID,
		UserID:    claims.Subject,
		Email:     claims.Email,
	}, nil
}

func (s *Service) issueToken(profile *profiles.Profile) (string, error) {
	now := time.Now()
	claims := Claims{
		ProfileID: profile.ID,
		Email:     profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "sariverse",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}
