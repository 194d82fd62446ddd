package tenant

import "context"

// Directory is the persistence contract for companies, roles and users. Lookups
// that miss return ErrCompanyNotFound, ErrRoleNotFound or ErrUserNotFound; unique
// index violations return ErrDuplicate.
type Directory interface {
	CreateCompany(ctx context.Context, company *Company) error
	GetCompany(ctx context.Context, id int64) (*Company, error)
	CompanyNameExists(ctx context.Context, name string) (bool, error)
	ListCompanies(ctx context.Context) ([]*Company, error)
	SetCompanyCreator(ctx context.Context, companyID, userID int64) error
	// DeactivateCompany flips an active company to inactive and reports whether it did.
	DeactivateCompany(ctx context.Context, companyID int64) (bool, error)

	CreateRole(ctx context.Context, role *Role) error
	GetRole(ctx context.Context, companyID, roleID int64) (*Role, error)
	FindRoleByTitle(ctx context.Context, companyID int64, title string) (*Role, error)
	FindRoleByKey(ctx context.Context, companyID int64, titleKey string) (*Role, error)
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, roleID int64) error
	CountUsersWithRole(ctx context.Context, roleID int64) (int64, error)

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, companyID int64) ([]*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	EmailExistsInCompany(ctx context.Context, companyID int64, email string) (bool, error)
	FindActiveUsersByEmail(ctx context.Context, email string) ([]*User, error)
	CountActiveManagers(ctx context.Context, companyID, excludeUserID int64) (int64, error)
	ListActiveManagers(ctx context.Context, companyID int64) ([]*User, error)
	DeactivateCompanyUsers(ctx context.Context, companyID int64) (int64, error)
}
