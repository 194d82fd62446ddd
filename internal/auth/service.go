package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	Authenticate(ctx context.Context, accessToken string) (Requester, error)
	IssueTokens(u *tenant.User) (AuthTokens, error)
	RequestPasswordReset(ctx context.Context, dto ForgotPasswordDTO) error
	VerifyResetCode(ctx context.Context, dto VerifyCodeDTO) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
}

// Service is the main auth service with dependencies
type Service struct {
	store        CredentialStore
	tokens       TokenGenerator
	hasher       PasswordHasher
	notifier     ResetCodeNotifier
	resetCodeTTL time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewService(store CredentialStore, tokens TokenGenerator, hasher PasswordHasher, notifier ResetCodeNotifier, resetCodeTTL time.Duration, logger *slog.Logger) *Service {
	if resetCodeTTL <= 0 {
		resetCodeTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:        store,
		tokens:       tokens,
		hasher:       hasher,
		notifier:     notifier,
		resetCodeTTL: resetCodeTTL,
		now:          time.Now,
		logger:       logger,
	}
}

// WithClock replaces the time source; used by tests exercising code expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login checks the password against every active account holding the email.
// One match issues tokens; several ask the caller to name the company.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	candidates, err := s.store.FindActiveByEmail(ctx, tenant.NormalizeEmail(dto.Email))
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to look up credentials", err)
	}

	var matched []*tenant.User
	for _, u := range candidates {
		if dto.CompanyID != nil && u.CompanyID != *dto.CompanyID {
			continue
		}
		if s.hasher.Compare(u.PasswordHash, dto.Password) {
			matched = append(matched, u)
		}
	}

	switch len(matched) {
	case 0:
		return AuthTokens{}, apperrors.ErrInvalidCredentials
	case 1:
		s.logger.InfoContext(ctx, "user logged in", "user_id", matched[0].ID, "company_id", matched[0].CompanyID)
		return s.IssueTokens(matched[0])
	}
	return AuthTokens{}, ambiguousAccount()
}

func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.IssueTokens(u)
}

// Authenticate verifies an access token and rebuilds the requester from the
// stored user, so deactivation and user type changes apply immediately.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Requester, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return Requester{}, err
	}

	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return Requester{}, err
	}
	return RequesterOf(u), nil
}

func (s *Service) IssueTokens(u *tenant.User) (AuthTokens, error) {
	tokens, err := s.tokens.Generate(u)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to issue tokens", err)
	}
	return tokens, nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, dto ForgotPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.resolveAccount(ctx, dto.Email, dto.CompanyID)
	if err != nil {
		return err
	}

	code, err := GenerateResetCode()
	if err != nil {
		return apperrors.NewInternalError("failed to generate reset code", err)
	}

	if err := s.store.SaveResetCode(ctx, u.ID, code, s.now().Add(s.resetCodeTTL)); err != nil {
		return apperrors.NewInternalError("failed to store reset code", err)
	}

	if err := s.notifier.SendResetCode(ctx, u.Email, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset code", "user_id", u.ID, "error", err)
		return apperrors.NewExternalError("failed to send reset code", apperrors.ErrCodeNotificationFailed, err)
	}

	s.logger.InfoContext(ctx, "password reset code issued", "user_id", u.ID)
	return nil
}

func (s *Service) VerifyResetCode(ctx context.Context, dto VerifyCodeDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.resolveAccount(ctx, dto.Email, dto.CompanyID)
	if err != nil {
		return err
	}
	return s.checkResetCode(u, dto.Code)
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.resolveAccount(ctx, dto.Email, dto.CompanyID)
	if err != nil {
		return err
	}
	if err := s.checkResetCode(u, dto.Code); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(dto.NewPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}

	if err := s.store.ResetPassword(ctx, u.ID, dto.Code, hash); err != nil {
		if errors.Is(err, tenant.ErrResetCodeMismatch) {
			return invalidResetCode()
		}
		return apperrors.NewInternalError("failed to reset password", err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", u.ID)
	return nil
}

func (s *Service) activeUser(ctx context.Context, userID int64) (*tenant.User, error) {
	u, err := s.store.GetActiveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, tenant.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	return u, nil
}

func (s *Service) resolveAccount(ctx context.Context, email string, companyID *int64) (*tenant.User, error) {
	candidates, err := s.store.FindActiveByEmail(ctx, tenant.NormalizeEmail(email))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up user", err)
	}

	var matched []*tenant.User
	for _, u := range candidates {
		if companyID == nil || u.CompanyID == *companyID {
			matched = append(matched, u)
		}
	}

	switch len(matched) {
	case 0:
		return nil, apperrors.NewNotFoundError("No account found for this email", apperrors.ErrCodeUserNotFound)
	case 1:
		return matched[0], nil
	}
	return nil, ambiguousAccount()
}

func (s *Service) checkResetCode(u *tenant.User, code string) error {
	invalid := invalidResetCode()
	if u.ResetCode == nil || u.ResetCodeExpiresAt == nil {
		return invalid
	}
	if s.now().After(*u.ResetCodeExpiresAt) {
		return invalid
	}
	if subtle.ConstantTimeCompare([]byte(*u.ResetCode), []byte(code)) != 1 {
		return invalid
	}
	return nil
}

func invalidResetCode() error {
	return apperrors.NewValidationError("Invalid or expired reset code", apperrors.ErrCodeInvalidResetCode)
}

func ambiguousAccount() error {
	return apperrors.NewValidationError("email belongs to several companies; company_id is required", apperrors.ErrCodeAmbiguousAccount)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
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

func (j *JWTTokenGenerator) Generate(u *tenant.User) (AuthTokens, error) {
	now := time.Now()
	accessExpiry := now.Add(j.AccessTokenTTL)

	access, err := j.sign(u, TokenTypeAccess, now, accessExpiry, j.AccessTokenSecret)
	if err != nil {
		return AuthTokens{}, err
	}
	refresh, err := j.sign(u, TokenTypeRefresh, now, now.Add(j.RefreshTokenTTL), j.RefreshTokenSecret)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    accessExpiry,
	}, nil
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(u *tenant.User, tokenType TokenType, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	claims := &Claims{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		UserType:  string(u.UserType),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return tokenString, nil
}

func (j *JWTTokenGenerator) validate(tokenString string, want TokenType, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != want || claims.UserID <= 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
