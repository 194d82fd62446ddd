package approval

import "time"

type Approval struct {
	ID         int64     `gorm:"primaryKey"`
	ExpenseID  int64     `gorm:"column:expense_id;not null;index:idx_approvals_expense_id"`
	ApproverID int64     `gorm:"column:approver_id;not null"`
	Decision   string    `gorm:"column:decision;size:20;not null"`
	Comment    *string   `gorm:"column:comment"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Approval) TableName() string {
	return "approvals"
}
