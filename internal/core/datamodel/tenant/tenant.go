package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_companies_name"`
	CreatedBy *int64    `gorm:"column:created_by"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Company) TableName() string {
	return "companies"
}

// Role.TitleKey is the trimmed, lower-cased title; uniqueness is enforced on it.
type Role struct {
	ID            int64           `gorm:"primaryKey"`
	CompanyID     int64           `gorm:"column:company_id;not null;uniqueIndex:idx_roles_company_title_key,priority:1"`
	Title         string          `gorm:"column:title;size:100;not null"`
	TitleKey      string          `gorm:"column:title_key;size:100;not null;uniqueIndex:idx_roles_company_title_key,priority:2"`
	ApprovalLimit decimal.Decimal `gorm:"column:approval_limit;type:decimal(18,4);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}

type User struct {
	ID                 int64      `gorm:"primaryKey"`
	CompanyID          int64      `gorm:"column:company_id;not null;uniqueIndex:idx_users_company_email,priority:1"`
	Name               string     `gorm:"column:name;size:255;not null"`
	Email              string     `gorm:"column:email;size:255;not null;uniqueIndex:idx_users_company_email,priority:2;index:idx_users_email"`
	PasswordHash       string     `gorm:"column:password_hash;not null"`
	RoleID             *int64     `gorm:"column:role_id;index:idx_users_role_id"`
	UserType           string     `gorm:"column:user_type;size:20;not null;default:employee"`
	IsActive           bool       `gorm:"column:is_active;not null;default:true"`
	ResetCode          *string    `gorm:"column:reset_code;size:6"`
	ResetCodeExpiresAt *time.Time `gorm:"column:reset_code_expires_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
