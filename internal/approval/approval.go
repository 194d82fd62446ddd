package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	approvalDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approval"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func Decisions() []string {
	return []string{string(DecisionApproved), string(DecisionRejected)}
}

func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApproved:
		return DecisionApproved, nil
	case DecisionRejected:
		return DecisionRejected, nil
	}
	return "", fmt.Errorf("invalid decision %q", s)
}

// Approval is one immutable approve/reject decision on an expense.
type Approval struct {
	ID         int64     `json:"id"`
	ExpenseID  int64     `json:"expense_id"`
	ApproverID int64     `json:"approver_id"`
	Decision   Decision  `json:"decision"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RepositoryAPI is append-only; there is deliberately no update or delete.
type RepositoryAPI interface {
	Create(ctx context.Context, a *Approval) error
	ListByExpense(ctx context.Context, expenseID int64) ([]*Approval, error)
}

func ToDataModel(a *Approval) *approvalDatamodel.Approval {
	return &approvalDatamodel.Approval{
		ID:         a.ID,
		ExpenseID:  a.ExpenseID,
		ApproverID: a.ApproverID,
		Decision:   string(a.Decision),
		Comment:    a.Comment,
		CreatedAt:  a.CreatedAt,
	}
}

func FromDataModel(a *approvalDatamodel.Approval) *Approval {
	return &Approval{
		ID:         a.ID,
		ExpenseID:  a.ExpenseID,
		ApproverID: a.ApproverID,
		Decision:   Decision(a.Decision),
		Comment:    a.Comment,
		CreatedAt:  a.CreatedAt,
	}
}
