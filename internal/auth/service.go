package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetProfile(ctx context.Context, userID string) (*Principal, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID, email string) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(userID, email string) (token string, err error)
	ValidateToken(tokenString string, expected TokenType) (*Claims, error)
}

type AuthStateEvent string

const (
	AuthStateSignedIn  AuthStateEvent = "signed_in"
	AuthStateSignedOut AuthStateEvent = "signed_out"
)

// AuthStateChange is delivered to OnAuthStateChange listeners.
type AuthStateChange struct {
	Event     AuthStateEvent
	Principal *Principal
	UserID    string
	At        time.Time
}

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
	logger         *slog.Logger

	revoked *revocationList

	mu         sync.RWMutex
	listeners  map[int]func(AuthStateChange)
	listenerID int
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
		revoked:        newRevocationList(),
		listeners:      make(map[int]func(AuthStateChange)),
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * 7 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// SignIn validates credentials, loads the profile and returns tokens.
// A missing profile fails the sign-in; no default profile is ever synthesized.
func (s *Service) SignIn(ctx context.Context, dto LoginDTO) (*SignInResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.repo.GetCredentials(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			s.logger.Warn("sign in failed: user not found", "email", dto.Email)
			return nil, ErrUserNotFound
		}
		s.logger.Error("sign in failed: credential lookup error", "error", err, "email", dto.Email)
		return nil, ErrAuthUnknown.WithCause(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("sign in failed: wrong password", "user_id", creds.UserID)
		return nil, ErrWrongPassword
	}

	if isDisabledStatus(creds.Status) {
		s.logger.Warn("sign in failed: account disabled", "user_id", creds.UserID, "status", creds.Status)
		return nil, ErrUserDisabled
	}

	principal, err := s.GetProfile(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(principal.ID, principal.Email)
	if err != nil {
		s.logger.Error("failed to issue tokens", "error", err, "user_id", principal.ID)
		return nil, ErrAuthUnknown.WithCause(err)
	}

	s.logger.Info("user signed in", "user_id", principal.ID, "role", principal.Role)
	s.notify(AuthStateChange{Event: AuthStateSignedIn, Principal: principal, UserID: principal.ID, At: time.Now()})

	return &SignInResult{Principal: principal, AuthTokens: tokens}, nil
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		return AuthTokens{}, err
	}
	if s.revoked.contains(claims.ID) {
		return AuthTokens{}, ErrInvalidToken
	}

	// the profile must still exist and be enabled
	principal, err := s.GetProfile(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, err
	}
	if isDisabledStatus(principal.Status) {
		return AuthTokens{}, ErrUserDisabled
	}

	return s.issueTokens(principal.ID, principal.Email)
}

// SignOut revokes the access token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.ValidateAccessToken(accessToken)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	s.revoked.add(claims.ID, expiresAt)

	s.logger.Info("user signed out", "user_id", claims.UserID)
	s.notify(AuthStateChange{Event: AuthStateSignedOut, UserID: claims.UserID, At: time.Now()})
	return nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	if s.revoked.contains(claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetProfile loads the principal for uid. ErrProfileNotFound when no employee row exists.
func (s *Service) GetProfile(ctx context.Context, userID string) (*Principal, error) {
	if userID == "" {
		return nil, ErrProfileNotFound
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			s.logger.Warn("profile not found, denying access", "user_id", userID)
			return nil, ErrProfileNotFound
		}
		s.logger.Error("failed to load profile", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if p.Permissions == nil {
		p.Permissions = map[string]bool{}
	}
	return p, nil
}

// OnAuthStateChange registers a listener for sign-in and sign-out. Call the returned
// function to stop receiving updates.
func (s *Service) OnAuthStateChange(callback func(AuthStateChange)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.listenerID
	s.listenerID++
	s.listeners[id] = callback
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) notify(change AuthStateChange) {
	s.mu.RLock()
	listeners := make([]func(AuthStateChange), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(change)
	}
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueTokens(userID, email string) (AuthTokens, error) {
	accessToken, expiresAt, err := s.tokenGenerator.GenerateAccessToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, email)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// isDisabledStatus reports statuses that may not sign in. OnLeave keeps access.
func isDisabledStatus(status string) bool {
	return status == "Inactive" || status == "Terminated"
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	expiresAt := time.Now().Add(j.AccessTokenTTL)
	token, err := j.sign(userID, email, TokenTypeAccess, expiresAt, j.AccessTokenSecret)
	return token, expiresAt, err
}

// GenerateRefreshToken creates a new refresh token
func (j *JWTTokenGenerator) GenerateRefreshToken(userID, email string) (string, error) {
	return j.sign(userID, email, TokenTypeRefresh, time.Now().Add(j.RefreshTokenTTL), j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID, email string, typ TokenType, expiresAt time.Time, secret []byte) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates a JWT token of the expected type and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string, expected TokenType) (*Claims, error) {
	secret := j.AccessTokenSecret
	if expected == TokenTypeRefresh {
		secret = j.RefreshTokenSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != expected {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// revocationList remembers signed-out token ids until their natural expiry.
type revocationList struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newRevocationList() *revocationList {
	return &revocationList{ids: make(map[string]time.Time)}
}

func (r *revocationList) add(id string, until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for k, exp := range r.ids {
		if exp.Before(now) {
			delete(r.ids, k)
		}
	}
	r.ids[id] = until
}

func (r *revocationList) contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.ids[id]
	return ok && exp.After(time.Now())
}
