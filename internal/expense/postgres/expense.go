package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/database"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create saves a new expense to the database
func (r *ExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	row := expense.ToDataModel(exp)
	if err := database.Conn(ctx, r.db).Create(row).Error; err != nil {
		return err
	}
	exp.ID = row.ID
	exp.CreatedAt = row.CreatedAt
	exp.UpdatedAt = row.UpdatedAt
	return nil
}

// GetByID retrieves an expense by its ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&row).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&row), nil
}

// List returns one company's expenses newest first. Drafts are only those
// created by the requester.
func (r *ExpenseRepository) List(ctx context.Context, filter expense.ListFilter) ([]*expense.Expense, error) {
	q := database.Conn(ctx, r.db).Where("company_id = ?", filter.CompanyID)

	switch filter.Status {
	case "":
		q = q.Where("(status <> ? OR created_by = ?)", string(expense.StatusDraft), filter.RequesterID)
	case expense.StatusDraft:
		q = q.Where("status = ? AND created_by = ?", string(expense.StatusDraft), filter.RequesterID)
	default:
		q = q.Where("status = ?", string(filter.Status))
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []expenseDatamodel.Expense
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

// Update writes the editable fields, provided the expense is still a draft.
func (r *ExpenseRepository) Update(ctx context.Context, exp *expense.Expense) error {
	row := expense.ToDataModel(exp)
	now := time.Now()
	result := database.Conn(ctx, r.db).Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND status = ?", exp.ID, string(expense.StatusDraft)).
		Updates(map[string]interface{}{
			"title":        row.Title,
			"items":        row.Items,
			"total_amount": row.TotalAmount,
			"department":   row.Department,
			"attachments":  row.Attachments,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missOrChanged(ctx, exp.ID)
	}
	exp.UpdatedAt = now
	return nil
}

// TransitionStatus moves an expense from one status to another. It fails
// with ErrStatusChanged when the expense is no longer in from.
func (r *ExpenseRepository) TransitionStatus(ctx context.Context, id int64, from, to expense.Status) error {
	result := database.Conn(ctx, r.db).Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missOrChanged(ctx, id)
	}
	return nil
}

// Delete removes an expense that is still a draft.
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result := database.Conn(ctx, r.db).
		Where("id = ? AND status = ?", id, string(expense.StatusDraft)).
		Delete(&expenseDatamodel.Expense{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missOrChanged(ctx, id)
	}
	return nil
}

func (r *ExpenseRepository) missOrChanged(ctx context.Context, id int64) error {
	var count int64
	if err := database.Conn(ctx, r.db).Model(&expenseDatamodel.Expense{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return expense.ErrExpenseNotFound
	}
	return expense.ErrStatusChanged
}

var _ expense.Repository = (*ExpenseRepository)(nil)
