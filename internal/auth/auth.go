package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SignInResult is returned by a successful login.
type SignInResult struct {
	Principal *Principal `json:"user"`
	AuthTokens
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

// Credentials is the minimal row needed to verify a password.
type Credentials struct {
	UserID       string `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Status       string `db:"status"`
}

type AuthErrorKind string

const (
	KindUserNotFound    AuthErrorKind = "UserNotFound"
	KindWrongPassword   AuthErrorKind = "WrongPassword"
	KindInvalidEmail    AuthErrorKind = "InvalidEmail"
	KindTooManyRequests AuthErrorKind = "TooManyRequests"
	KindUserDisabled    AuthErrorKind = "UserDisabled"
	KindUnknown         AuthErrorKind = "Unknown"
)

var (
	ErrUserNotFound    = internal.NewAuthError("No account found with this email address.", internal.ErrCodeAuthUserNotFound, http.StatusUnauthorized)
	ErrWrongPassword   = internal.NewAuthError("Incorrect password. Please try again.", internal.ErrCodeAuthWrongPassword, http.StatusUnauthorized)
	ErrInvalidEmail    = internal.NewAuthError("Invalid email address.", internal.ErrCodeAuthInvalidEmail, http.StatusBadRequest)
	ErrTooManyRequests = internal.NewAuthError("Too many failed login attempts. Please try again later.", internal.ErrCodeAuthTooManyRequests, http.StatusTooManyRequests)
	ErrUserDisabled    = internal.NewAuthError("This account has been disabled.", internal.ErrCodeAuthUserDisabled, http.StatusForbidden)
	ErrAuthUnknown     = internal.NewAuthError("Failed to sign in. Please try again.", internal.ErrCodeAuthUnknown, http.StatusInternalServerError)

	ErrInvalidToken    = internal.ErrInvalidToken
	ErrTokenExpired    = internal.ErrTokenExpired
	ErrProfileNotFound = internal.NewUnauthorizedError("User profile not found", internal.ErrCodeProfileNotFound)

	ErrCredentialsNotFound = errors.New("credentials not found")
)

var kindByCode = map[internal.ErrorCode]AuthErrorKind{
	internal.ErrCodeAuthUserNotFound:    KindUserNotFound,
	internal.ErrCodeAuthWrongPassword:   KindWrongPassword,
	internal.ErrCodeAuthInvalidEmail:    KindInvalidEmail,
	internal.ErrCodeAuthTooManyRequests: KindTooManyRequests,
	internal.ErrCodeAuthUserDisabled:    KindUserDisabled,
}

// KindOf classifies a sign-in failure. Anything that is not a known auth error is Unknown.
func KindOf(err error) AuthErrorKind {
	appErr, ok := internal.IsAppError(err)
	if !ok || appErr.Type != internal.ErrorTypeAuth {
		return KindUnknown
	}
	if kind, ok := kindByCode[appErr.Code]; ok {
		return kind
	}
	return KindUnknown
}
