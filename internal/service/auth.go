package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/dexcache/internal/config"
	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/domain/user"
	"github.com/Strob0t/dexcache/internal/port/database"
)

const (
	tokenIssuer   = "dexcache"
	tokenAudience = "dexcache-api"
)

// tokenClaims is the JWT payload issued on login.
type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService handles account registration, password checks and session tokens.
type AuthService struct {
	store     database.UserStore
	cfg       *config.Auth
	secret    []byte
	dummyHash []byte
	now       func() time.Time
}

// NewAuthService creates a new authentication service. An empty JWT secret
// is replaced with a random one, which invalidates sessions on restart.
func NewAuthService(store database.UserStore, cfg *config.Auth) *AuthService {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
		slog.Warn("no jwt secret configured, generated an ephemeral one; sessions will not survive a restart")
	}
	// Compared against on unknown usernames so both login failures cost a bcrypt round.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dexcache-dummy-password"), cfg.BcryptCost)
	return &AuthService{
		store:     store,
		cfg:       cfg,
		secret:    secret,
		dummyHash: dummy,
		now:       time.Now,
	}
}

// TokenExpiry is the lifetime of issued tokens.
func (s *AuthService) TokenExpiry() time.Duration {
	return s.cfg.AccessTokenExpiry
}

// Register creates a new user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("user registered", "username", u.Username)
	return u, nil
}

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords fail identically with domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	token, err := s.signToken(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &user.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.cfg.AccessTokenExpiry.Seconds()),
		User:        *u,
	}, nil
}

// ValidateToken verifies a token and returns the identity it carries.
func (s *AuthService) ValidateToken(tokenStr string) (*user.Identity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: token has no username", domain.ErrUnauthorized)
	}
	return &user.Identity{UserID: claims.Subject, Username: claims.Username}, nil
}

// ListUsers returns all accounts.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// ResetPassword sets a new password for an existing user.
func (s *AuthService) ResetPassword(ctx context.Context, username, password string) error {
	if err := user.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, username, string(hash))
}

// ResetUsers deletes every account and returns how many were removed.
func (s *AuthService) ResetUsers(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllUsers(ctx)
	if err != nil {
		return 0, err
	}
	slog.Warn("all users deleted", "count", n)
	return n, nil
}

func (s *AuthService) signToken(u *user.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
