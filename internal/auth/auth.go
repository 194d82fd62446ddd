package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/golang-jwt/jwt/v5"
)

// Requester is the authenticated identity every guarded operation runs as.
type Requester struct {
	UserID    int64
	CompanyID int64
	UserType  tenant.UserType
}

func (r Requester) IsPrivileged() bool {
	return r.UserType.IsPrivileged()
}

func (r Requester) IsAdmin() bool {
	return r.UserType == tenant.UserTypeAdmin
}

// RequesterOf builds the identity of a stored user.
func RequesterOf(u *tenant.User) Requester {
	return Requester{UserID: u.ID, CompanyID: u.CompanyID, UserType: u.UserType}
}

type ctxKey string

const ContextRequesterKey ctxKey = "requester"

func ContextWithRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, ContextRequesterKey, r)
}

func RequesterFromContext(ctx context.Context) (Requester, bool) {
	r, ok := ctx.Value(ContextRequesterKey).(Requester)
	return r, ok
}

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT token claims
type Claims struct {
	UserID    int64     `json:"user_id"`
	CompanyID int64     `json:"company_id"`
	UserType  string    `json:"user_type"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenGenerator creates and verifies signed tokens.
type TokenGenerator interface {
	Generate(u *tenant.User) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// CredentialStore is the slice of user persistence authentication needs.
type CredentialStore interface {
	FindActiveByEmail(ctx context.Context, email string) ([]*tenant.User, error)
	GetActiveUser(ctx context.Context, id int64) (*tenant.User, error)
	SaveResetCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, userID int64, code, passwordHash string) error
}

// ResetCodeNotifier delivers a password reset code to its owner.
type ResetCodeNotifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}
