package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/database"
	tenantDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/tenant"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"gorm.io/gorm"
)

// Repository is the credential store backing login, token checks and
// password reset.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) FindActiveByEmail(ctx context.Context, email string) ([]*tenant.User, error) {
	var rows []tenantDatamodel.User
	err := database.Conn(ctx, r.db).
		Where("email = ? AND is_active = ?", email, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	users := make([]*tenant.User, len(rows))
	for i := range rows {
		users[i] = tenant.UserFromDataModel(&rows[i])
	}
	return users, nil
}

func (r *Repository) GetActiveUser(ctx context.Context, id int64) (*tenant.User, error) {
	var row tenantDatamodel.User
	err := database.Conn(ctx, r.db).
		Where("id = ? AND is_active = ?", id, true).
		First(&row).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, tenant.ErrUserNotFound
		}
		return nil, err
	}
	return tenant.UserFromDataModel(&row), nil
}

func (r *Repository) SaveResetCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	res := database.Conn(ctx, r.db).Model(&tenantDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_code":            code,
			"reset_code_expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tenant.ErrUserNotFound
	}
	return nil
}

// ResetPassword stores the new hash and clears the reset code. The update only
// applies while the stored code still equals code, so a code is consumed once.
func (r *Repository) ResetPassword(ctx context.Context, userID int64, code, passwordHash string) error {
	res := database.Conn(ctx, r.db).Model(&tenantDatamodel.User{}).
		Where("id = ? AND reset_code = ?", userID, code).
		Updates(map[string]interface{}{
			"password_hash":         passwordHash,
			"reset_code":            nil,
			"reset_code_expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tenant.ErrResetCodeMismatch
	}
	return nil
}
