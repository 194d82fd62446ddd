package expense

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Item struct {
	Description string          `json:"description"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type Expense struct {
	ID          int64                       `gorm:"primaryKey"`
	CompanyID   int64                       `gorm:"column:company_id;not null;index:idx_expenses_company_status,priority:1"`
	CreatedBy   int64                       `gorm:"column:created_by;not null;index:idx_expenses_created_by"`
	Title       string                      `gorm:"column:title;size:255;not null"`
	Items       datatypes.JSONSlice[Item]   `gorm:"column:items;not null"`
	TotalAmount decimal.Decimal             `gorm:"column:total_amount;type:decimal(18,4);not null"`
	Department  string                      `gorm:"column:department;size:100"`
	Attachments datatypes.JSONSlice[string] `gorm:"column:attachments;not null"`
	Status      string                      `gorm:"column:status;size:20;not null;default:draft;index:idx_expenses_company_status,priority:2"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime;index:idx_expenses_created_at"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}
