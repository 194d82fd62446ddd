package account

import (
	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength      = 255
	maxEmailLength     = 255
	maxRoleTitleLength = 100
	maxPasswordLength  = 72
)

// RegisterCompanyDTO represents the request payload for creating a company with its first manager
type RegisterCompanyDTO struct {
	CompanyName      string `json:"company_name"`
	ManagerName      string `json:"manager_name"`
	ManagerEmail     string `json:"manager_email"`
	ManagerPassword  string `json:"manager_password"`
	ManagerRoleTitle string `json:"manager_role_title,omitempty"`
}

func (dto RegisterCompanyDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("company_name", dto.CompanyName).Required().MaxLength(maxNameLength)
	v.Field("manager_name", dto.ManagerName).Required().MaxLength(maxNameLength)
	v.Field("manager_email", dto.ManagerEmail).Required().Email().MaxLength(maxEmailLength)
	v.Field("manager_password", dto.ManagerPassword).Required().MinLength(auth.MinPasswordLength).MaxLength(maxPasswordLength)
	v.Field("manager_role_title", dto.ManagerRoleTitle).MaxLength(maxRoleTitleLength)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// RegisterUserDTO adds a user to the requester's company. The role is given by
// id or by title; an unknown title creates the role with ApprovalLimit.
type RegisterUserDTO struct {
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Password      string           `json:"password"`
	RoleID        *int64           `json:"role_id,omitempty"`
	Role          string           `json:"role,omitempty"`
	ApprovalLimit *decimal.Decimal `json:"approval_limit,omitempty"`
	UserType      string           `json:"user_type,omitempty"`
}

func (dto RegisterUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(maxNameLength)
	v.Field("email", dto.Email).Required().Email().MaxLength(maxEmailLength)
	v.Field("password", dto.Password).Required().MinLength(auth.MinPasswordLength).MaxLength(maxPasswordLength)
	if dto.RoleID == nil {
		v.Field("role", dto.Role).Required().MaxLength(maxRoleTitleLength)
	}
	v.Field("approval_limit", dto.ApprovalLimit).NonNegative(apperrors.ErrCodeInvalidAmount)
	if dto.UserType != "" {
		v.Field("user_type", dto.UserType).OneOf(apperrors.ErrCodeInvalidUserType, tenant.UserTypes()...)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO carries only the fields to change; nil means keep.
type UpdateUserDTO struct {
	Password      *string          `json:"password,omitempty"`
	RoleID        *int64           `json:"role_id,omitempty"`
	Role          *string          `json:"role,omitempty"`
	RoleTitleNew  *string          `json:"role_title_new,omitempty"`
	ApprovalLimit *decimal.Decimal `json:"approval_limit,omitempty"`
	UserType      *string          `json:"user_type,omitempty"`
}

// Fields lists the supplied fields, for the self-service check.
func (dto UpdateUserDTO) Fields() []string {
	var fields []string
	if dto.Password != nil {
		fields = append(fields, auth.FieldPassword)
	}
	if dto.RoleID != nil || dto.Role != nil {
		fields = append(fields, "role")
	}
	if dto.RoleTitleNew != nil {
		fields = append(fields, "role_title_new")
	}
	if dto.ApprovalLimit != nil {
		fields = append(fields, "approval_limit")
	}
	if dto.UserType != nil {
		fields = append(fields, "user_type")
	}
	return fields
}

func (dto UpdateUserDTO) changesRole() bool {
	return dto.RoleID != nil || dto.Role != nil || dto.RoleTitleNew != nil || dto.ApprovalLimit != nil
}

func (dto UpdateUserDTO) Validate() error {
	if len(dto.Fields()) == 0 {
		return apperrors.NewValidationError("no fields to update", apperrors.ErrCodeNoFieldsToUpdate)
	}

	v := validation.NewValidator()
	if dto.Password != nil {
		v.Field("password", dto.Password).Required().MinLength(auth.MinPasswordLength).MaxLength(maxPasswordLength)
	}
	if dto.Role != nil {
		v.Field("role", dto.Role).Required().MaxLength(maxRoleTitleLength)
	}
	if dto.RoleTitleNew != nil {
		v.Field("role_title_new", dto.RoleTitleNew).Required().MaxLength(maxRoleTitleLength)
	}
	v.Field("approval_limit", dto.ApprovalLimit).NonNegative(apperrors.ErrCodeInvalidAmount)
	if dto.UserType != nil {
		v.Field("user_type", *dto.UserType).OneOf(apperrors.ErrCodeInvalidUserType, tenant.UserTypes()...)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ConfirmDTO guards destructive operations.
type ConfirmDTO struct {
	Confirm string `json:"confirm"`
}

func (dto ConfirmDTO) Validate() error {
	if dto.Confirm != ConfirmToken {
		return apperrors.NewValidationError(
			`deletion requires confirmation, set {"confirm": "Confirm"} to proceed`,
			apperrors.ErrCodeConfirmationNeeded)
	}
	return nil
}

type UsersResponse struct {
	Users []*tenant.User `json:"users"`
}

type CompaniesResponse struct {
	Companies []*tenant.Company `json:"companies"`
}
