package account

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/tenant"
)

// ConfirmToken is the literal a caller must send to delete a user or a company.
const ConfirmToken = "Confirm"

// DefaultManagerRoleTitle names the role created for a company's first manager.
const DefaultManagerRoleTitle = "Manager"

// TokenIssuer mints credentials for a freshly registered manager.
type TokenIssuer interface {
	IssueTokens(u *tenant.User) (auth.AuthTokens, error)
}

// CompanyRegistration is everything registerCompany produced.
type CompanyRegistration struct {
	Company *tenant.Company  `json:"company"`
	User    *tenant.User     `json:"user"`
	Tokens  *auth.AuthTokens `json:"tokens"`
}

type DeleteUserResult struct {
	UserID      int64 `json:"user_id"`
	RoleDeleted bool  `json:"role_deleted"`
}

type DeleteCompanyResult struct {
	CompanyID        int64 `json:"company_id"`
	UsersDeactivated int64 `json:"users_deactivated"`
}

func isDuplicate(err error) bool {
	return errors.Is(err, tenant.ErrDuplicate)
}

// txFunc is the body of a locked, transactional mutation.
type txFunc func(ctx context.Context) error
