package postgres

import (
	"context"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	approvalDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approval"
	"gorm.io/gorm"
)

type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) Create(ctx context.Context, a *approval.Approval) error {
	row := approval.ToDataModel(a)
	if err := database.Conn(ctx, r.db).Create(row).Error; err != nil {
		return err
	}
	a.ID = row.ID
	a.CreatedAt = row.CreatedAt
	return nil
}

func (r *ApprovalRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*approval.Approval, error) {
	var rows []approvalDatamodel.Approval
	err := database.Conn(ctx, r.db).
		Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	approvals := make([]*approval.Approval, len(rows))
	for i := range rows {
		approvals[i] = approval.FromDataModel(&rows[i])
	}
	return approvals, nil
}

var _ approval.RepositoryAPI = (*ApprovalRepository)(nil)
