package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/expense-approval/internal/core/database"
	tenantDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/tenant"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"gorm.io/gorm"
)

// Directory implements tenant.Directory using GORM. Every call honours a
// transaction carried in ctx.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNotFound(err):
		return notFound
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", tenant.ErrDuplicate, err)
	}
	return err
}

// ----------------- COMPANIES -----------------

func (d *Directory) CreateCompany(ctx context.Context, company *tenant.Company) error {
	row := tenant.CompanyToDataModel(company)
	if err := database.Conn(ctx, d.db).Create(row).Error; err != nil {
		return translate(err, tenant.ErrCompanyNotFound)
	}
	*company = *tenant.CompanyFromDataModel(row)
	return nil
}

func (d *Directory) GetCompany(ctx context.Context, id int64) (*tenant.Company, error) {
	var row tenantDatamodel.Company
	if err := database.Conn(ctx, d.db).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, tenant.ErrCompanyNotFound)
	}
	return tenant.CompanyFromDataModel(&row), nil
}

func (d *Directory) CompanyNameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := database.Conn(ctx, d.db).Model(&tenantDatamodel.Company{}).
		Where("name = ?", name).
		Count(&count).Error
	return count > 0, err
}

func (d *Directory) ListCompanies(ctx context.Context) ([]*tenant.Company, error) {
	var rows []tenantDatamodel.Company
	if err := database.Conn(ctx, d.db).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	companies := make([]*tenant.Company, len(rows))
	for i := range rows {
		companies[i] = tenant.CompanyFromDataModel(&rows[i])
	}
	return companies, nil
}

func (d *Directory) SetCompanyCreator(ctx context.Context, companyID, userID int64) error {
	res := database.Conn(ctx, d.db).Model(&tenantDatamodel.Company{}).
		Where("id = ?", companyID).
		Update("created_by", userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tenant.ErrCompanyNotFound
	}
	return nil
}

func (d *Directory) DeactivateCompany(ctx context.Context, companyID int64) (bool, error) {
	res := database.Conn(ctx, d.db).Model(&tenantDatamodel.Company{}).
		Where("id = ? AND is_active = ?", companyID, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ----------------- ROLES -----------------

func (d *Directory) CreateRole(ctx context.Context, role *tenant.Role) error {
	row := tenant.RoleToDataModel(role)
	if err := database.Conn(ctx, d.db).Create(row).Error; err != nil {
		return translate(err, tenant.ErrRoleNotFound)
	}
	*role = *tenant.RoleFromDataModel(row)
	return nil
}

func (d *Directory) GetRole(ctx context.Context, companyID, roleID int64) (*tenant.Role, error) {
	var row tenantDatamodel.Role
	err := database.Conn(ctx, d.db).
		Where("id = ? AND company_id = ?", roleID, companyID).
		First(&row).Error
	if err != nil {
		return nil, translate(err, tenant.ErrRoleNotFound)
	}
	return tenant.RoleFromDataModel(&row), nil
}

func (d *Directory) FindRoleByTitle(ctx context.Context, companyID int64, title string) (*tenant.Role, error) {
	var row tenantDatamodel.Role
	err := database.Conn(ctx, d.db).
		Where("company_id = ? AND title = ?", companyID, title).
		First(&row).Error
	if err != nil {
		return nil, translate(err, tenant.ErrRoleNotFound)
	}
	return tenant.RoleFromDataModel(&row), nil
}

func (d *Directory) FindRoleByKey(ctx context.Context, companyID int64, titleKey string) (*tenant.Role, error) {
	var row tenantDatamodel.Role
	err := database.Conn(ctx, d.db).
		Where("company_id = ? AND title_key = ?", companyID, titleKey).
		First(&row).Error
	if err != nil {
		return nil, translate(err, tenant.ErrRoleNotFound)
	}
	return tenant.RoleFromDataModel(&row), nil
}

func (d *Directory) UpdateRole(ctx context.Context, role *tenant.Role) error {
	row := tenant.RoleToDataModel(role)
	res := database.Conn(ctx, d.db).Model(&tenantDatamodel.Role{}).
		Where("id = ? AND company_id = ?", role.ID, role.CompanyID).
		Updates(map[string]interface{}{
			"title":          row.Title,
			"title_key":      row.TitleKey,
			"approval_limit": row.ApprovalLimit,
		})
	if res.Error != nil {
		return translate(res.Error, tenant.ErrRoleNotFound)
	}
	if res.RowsAffected == 0 {
		return tenant.ErrRoleNotFound
	}
	return nil
}

func (d *Directory) DeleteRole(ctx context.Context, roleID int64) error {
	res := database.Conn(ctx, d.db).Where("id = ?", roleID).Delete(&tenantDatamodel.Role{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tenant.ErrRoleNotFound
	}
	return nil
}

func (d *Directory) CountUsersWithRole(ctx context.Context, roleID int64) (int64, error) {
	var count int64
	err := database.Conn(ctx, d.db).Model(&tenantDatamodel.User{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}

// ----------------- USERS -----------------

func (d *Directory) CreateUser(ctx context.Context, user *tenant.User) error {
	row := tenant.UserToDataModel(user)
	if err := database.Conn(ctx, d.db).Create(row).Error; err != nil {
		return translate(err, tenant.ErrUserNotFound)
	}
	*user = *tenant.UserFromDataModel(row)
	return nil
}

func (d *Directory) GetUser(ctx context.Context, id int64) (*tenant.User, error) {
	var row tenantDatamodel.User
	if err := database.Conn(ctx, d.db).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, tenant.ErrUserNotFound)
	}
	return tenant.UserFromDataModel(&row), nil
}

func (d *Directory) UpdateUser(ctx context.Context, user *tenant.User) error {
	row := tenant.UserToDataModel(user)
	res := database.Conn(ctx, d.db).Model(&tenantDatamodel.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":                  row.Name,
			"password_hash":         row.PasswordHash,
			"role_id":               row.RoleID,
			"user_type":             row.UserType,
			"is_active":             row.IsActive,
			"reset_code":            row.ResetCode,
			"reset_code_expires_at": row.ResetCodeExpiresAt,
		})
	if res.Error != nil {
		return translate(res.Error, tenant.ErrUserNotFound)
	}
	if res.RowsAffected == 0 {
		return tenant.ErrUserNotFound
	}
	return nil
}

func (d *Directory) DeleteUser(ctx context.Context, id int64) error {
	res := database.Conn(ctx, d.db).Where("id = ?", id).Delete(&tenantDatamodel.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tenant.ErrUserNotFound
	}
	return nil
}

func (d *Directory) ListUsers(ctx context.Context, companyID int64) ([]*tenant.User, error) {
	var rows []tenantDatamodel.User
	err := database.Conn(ctx, d.db).
		Where("company_id = ?", companyID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return usersFromRows(rows), nil
}

func (d *Directory) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := database.Conn(ctx, d.db).Model(&tenantDatamodel.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (d *Directory) EmailExistsInCompany(ctx context.Context, companyID int64, email string) (bool, error) {
	var count int64
	err := database.Conn(ctx, d.db).Model(&tenantDatamodel.User{}).
		Where("company_id = ? AND email = ?", companyID, email).
		Count(&count).Error
	return count > 0, err
}

func (d *Directory) FindActiveUsersByEmail(ctx context.Context, email string) ([]*tenant.User, error) {
	var rows []tenantDatamodel.User
	err := database.Conn(ctx, d.db).
		Where("email = ? AND is_active = ?", email, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return usersFromRows(rows), nil
}

func (d *Directory) CountActiveManagers(ctx context.Context, companyID, excludeUserID int64) (int64, error) {
	var count int64
	err := database.Conn(ctx, d.db).Model(&tenantDatamodel.User{}).
		Where("company_id = ? AND user_type = ? AND is_active = ? AND id <> ?",
			companyID, string(tenant.UserTypeManager), true, excludeUserID).
		Count(&count).Error
	return count, err
}

func (d *Directory) ListActiveManagers(ctx context.Context, companyID int64) ([]*tenant.User, error) {
	var rows []tenantDatamodel.User
	err := database.Conn(ctx, d.db).
		Where("company_id = ? AND user_type = ? AND is_active = ?", companyID, string(tenant.UserTypeManager), true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return usersFromRows(rows), nil
}

func (d *Directory) DeactivateCompanyUsers(ctx context.Context, companyID int64) (int64, error) {
	res := database.Conn(ctx, d.db).Model(&tenantDatamodel.User{}).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func usersFromRows(rows []tenantDatamodel.User) []*tenant.User {
	users := make([]*tenant.User, len(rows))
	for i := range rows {
		users[i] = tenant.UserFromDataModel(&rows[i])
	}
	return users
}

var _ tenant.Directory = (*Directory)(nil)
