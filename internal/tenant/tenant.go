package tenant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tenantDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/tenant"
	"github.com/shopspring/decimal"
)

type UserType string

const (
	UserTypeEmployee UserType = "employee"
	UserTypeManager  UserType = "manager"
	UserTypeAdmin    UserType = "admin"
)

// UnlimitedApprovalLimit is the largest value the approval_limit column holds.
var UnlimitedApprovalLimit = decimal.RequireFromString("999999999999")

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicate       = errors.New("record already exists")
	// ErrResetCodeMismatch means the stored reset code changed or was consumed.
	ErrResetCodeMismatch = errors.New("reset code does not match")
)

func UserTypes() []string {
	return []string{string(UserTypeEmployee), string(UserTypeManager), string(UserTypeAdmin)}
}

func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.TrimSpace(s)) {
	case UserTypeEmployee:
		return UserTypeEmployee, nil
	case UserTypeManager:
		return UserTypeManager, nil
	case UserTypeAdmin:
		return UserTypeAdmin, nil
	}
	return "", fmt.Errorf("invalid user type %q", s)
}

func (t UserType) Valid() bool {
	_, err := ParseUserType(string(t))
	return err == nil
}

// IsPrivileged is true for the user types holding company-wide mutation rights.
func (t UserType) IsPrivileged() bool {
	switch t {
	case UserTypeManager, UserTypeAdmin:
		return true
	case UserTypeEmployee:
		return false
	}
	return false
}

type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"company_id"`
	Title         string          `json:"title"`
	ApprovalLimit decimal.Decimal `json:"approval_limit"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TitleKey is the value role uniqueness is decided on.
func (r *Role) TitleKey() string {
	return NormalizeRoleTitle(r.Title)
}

type User struct {
	ID                 int64      `json:"id"`
	CompanyID          int64      `json:"company_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	RoleID             *int64     `json:"role_id,omitempty"`
	UserType           UserType   `json:"user_type"`
	IsActive           bool       `json:"is_active"`
	ResetCode          *string    `json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (u *User) HasRole() bool {
	return u.RoleID != nil && *u.RoleID > 0
}

func NormalizeRoleTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func CompanyToDataModel(c *Company) *tenantDatamodel.Company {
	return &tenantDatamodel.Company{
		ID:        c.ID,
		Name:      c.Name,
		CreatedBy: c.CreatedBy,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func CompanyFromDataModel(c *tenantDatamodel.Company) *Company {
	return &Company{
		ID:        c.ID,
		Name:      c.Name,
		CreatedBy: c.CreatedBy,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func RoleToDataModel(r *Role) *tenantDatamodel.Role {
	return &tenantDatamodel.Role{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		Title:         strings.TrimSpace(r.Title),
		TitleKey:      r.TitleKey(),
		ApprovalLimit: r.ApprovalLimit,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func RoleFromDataModel(r *tenantDatamodel.Role) *Role {
	return &Role{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		Title:         r.Title,
		ApprovalLimit: r.ApprovalLimit,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func UserToDataModel(u *User) *tenantDatamodel.User {
	return &tenantDatamodel.User{
		ID:                 u.ID,
		CompanyID:          u.CompanyID,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		RoleID:             u.RoleID,
		UserType:           string(u.UserType),
		IsActive:           u.IsActive,
		ResetCode:          u.ResetCode,
		ResetCodeExpiresAt: u.ResetCodeExpiresAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func UserFromDataModel(u *tenantDatamodel.User) *User {
	return &User{
		ID:                 u.ID,
		CompanyID:          u.CompanyID,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		RoleID:             u.RoleID,
		UserType:           UserType(u.UserType),
		IsActive:           u.IsActive,
		ResetCode:          u.ResetCode,
		ResetCodeExpiresAt: u.ResetCodeExpiresAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
