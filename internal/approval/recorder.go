package approval

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/expense-approval/internal"
)

// Recorder appends decisions to the audit trail. It does not check the
// expense state; the lifecycle engine guards that before calling Record.
type Recorder struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewRecorder(repo RepositoryAPI, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, expenseID, approverID int64, decision Decision, comment string) (*Approval, error) {
	parsed, err := ParseDecision(string(decision))
	if err != nil {
		return nil, apperrors.NewValidationFieldError("decision", "decision must be one of: "+strings.Join(Decisions(), ", "), apperrors.ErrCodeInvalidDecision)
	}

	a := &Approval{
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Decision:   parsed,
	}
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		a.Comment = &trimmed
	}

	if err := r.repo.Create(ctx, a); err != nil {
		r.logger.ErrorContext(ctx, "failed to record approval", "expense_id", expenseID, "approver_id", approverID, "error", err)
		return nil, apperrors.NewInternalError("failed to record approval", err)
	}

	r.logger.InfoContext(ctx, "approval recorded",
		"approval_id", a.ID,
		"expense_id", expenseID,
		"approver_id", approverID,
		"decision", decision)
	return a, nil
}

func (r *Recorder) History(ctx context.Context, expenseID int64) ([]*Approval, error) {
	approvals, err := r.repo.ListByExpense(ctx, expenseID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load approvals", err)
	}
	return approvals, nil
}
