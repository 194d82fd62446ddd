package auth

import (
	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
)

func digitsOnly(value interface{}) *apperrors.AppError {
	s, _ := value.(string)
	for _, r := range s {
		if r < '0' || r > '9' {
			return apperrors.NewValidationFieldError("code", "code must contain digits only", apperrors.ErrCodeInvalidResetCode)
		}
	}
	return nil
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
// CompanyID disambiguates an email registered in more than one company.
type LoginDTO struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ForgotPasswordDTO struct {
	Email     string `json:"email"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

func (d ForgotPasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type VerifyCodeDTO struct {
	Email     string `json:"email"`
	Code      string `json:"code"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

func (d VerifyCodeDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("code", d.Code).Required().MinLength(6).MaxLength(6).Custom(digitsOnly)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ResetPasswordDTO struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
	CompanyID   *int64 `json:"company_id,omitempty"`
}

func (d ResetPasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("code", d.Code).Required().MinLength(6).MaxLength(6).Custom(digitsOnly)
	v.Field("new_password", d.NewPassword).Required().MinLength(MinPasswordLength)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type MessageResponse struct {
	Message string `json:"message"`
}
