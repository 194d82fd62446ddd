package expense

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/database"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/shopspring/decimal"
)

// Recorder appends approval decisions and reads them back.
type Recorder interface {
	Record(ctx context.Context, expenseID, approverID int64, decision approval.Decision, comment string) (*approval.Approval, error)
	History(ctx context.Context, expenseID int64) ([]*approval.Approval, error)
}

// ApproverDirectory resolves an approver's role for the approval-limit check.
type ApproverDirectory interface {
	GetUser(ctx context.Context, id int64) (*tenant.User, error)
	GetRole(ctx context.Context, companyID, roleID int64) (*tenant.Role, error)
}

type Options struct {
	EnforceApprovalLimit bool
}

// Service handles expense business logic
type Service struct {
	repo      Repository
	recorder  Recorder
	approvers ApproverDirectory
	tx        database.Transactor
	publisher events.Publisher
	metrics   *metrics.Metrics
	policy    *auth.Policy
	opts      Options
	logger    *slog.Logger
}

// NewService creates a new expense service
func NewService(repo Repository, recorder Recorder, approvers ApproverDirectory, tx database.Transactor, publisher events.Publisher, m *metrics.Metrics, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		recorder:  recorder,
		approvers: approvers,
		tx:        tx,
		publisher: publisher,
		metrics:   m,
		policy:    auth.NewPolicy(),
		opts:      opts,
		logger:    logger,
	}
}

// Create stores a new draft owned by the requester in the requester's company.
func (s *Service) Create(ctx context.Context, req auth.Requester, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(req, auth.OpExpenseCreate, auth.Resource{CompanyID: req.CompanyID}); err != nil {
		return nil, err
	}

	e := &Expense{
		CompanyID:   req.CompanyID,
		CreatedBy:   req.UserID,
		Title:       strings.TrimSpace(dto.Title),
		Items:       itemsFromDTO(dto.Items),
		TotalAmount: *dto.TotalAmount,
		Department:  strings.TrimSpace(dto.Department),
		Attachments: append([]string{}, dto.Attachments...),
		Status:      StatusDraft,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to create expense", "error", err, "user_id", req.UserID)
		return nil, apperrors.NewInternalError("failed to create expense", err)
	}

	s.logger.InfoContext(ctx, "expense created",
		"expense_id", e.ID,
		"company_id", e.CompanyID,
		"user_id", req.UserID,
		"total_amount", e.TotalAmount.String())
	return e, nil
}

// Get returns one expense; drafts are visible to their creator only.
func (s *Service) Get(ctx context.Context, req auth.Requester, id int64) (*Expense, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(req, auth.OpExpenseRead, resourceOf(e)); err != nil {
		s.logger.WarnContext(ctx, "expense read denied", "expense_id", id, "user_id", req.UserID)
		return nil, err
	}
	return e, nil
}

// List returns the requester's view of the company's expenses, newest first.
func (s *Service) List(ctx context.Context, req auth.Requester, statusFilter string, limit, offset int) ([]*Expense, error) {
	status, err := ParseStatusFilter(statusFilter)
	if err != nil {
		return nil, apperrors.NewValidationFieldError("status",
			"status must be one of: all, "+strings.Join(Statuses(), ", "),
			apperrors.ErrCodeInvalidStatusFilter)
	}
	if !req.UserType.Valid() {
		return nil, apperrors.AccessDenied()
	}

	expenses, err := s.repo.List(ctx, ListFilter{
		CompanyID:   req.CompanyID,
		RequesterID: req.UserID,
		Status:      status,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list expenses", "error", err, "company_id", req.CompanyID)
		return nil, apperrors.NewInternalError("failed to list expenses", err)
	}
	return expenses, nil
}

// Update changes the supplied fields of the requester's own draft.
func (s *Service) Update(ctx context.Context, req auth.Requester, id int64, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(req, auth.OpExpenseUpdate, resourceOf(e)); err != nil {
		return nil, err
	}
	if !e.Status.IsDraft() {
		return nil, notEditable()
	}

	dto.Apply(e)
	e.Title = strings.TrimSpace(e.Title)

	if err := s.repo.Update(ctx, e); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, notEditable()
		}
		s.logger.ErrorContext(ctx, "failed to update expense", "error", err, "expense_id", id)
		return nil, apperrors.NewInternalError("failed to update expense", err)
	}

	s.logger.InfoContext(ctx, "expense updated", "expense_id", id, "user_id", req.UserID)
	return e, nil
}

// Submit moves the requester's own draft to submitted.
func (s *Service) Submit(ctx context.Context, req auth.Requester, id int64) (*Expense, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(req, auth.OpExpenseSubmit, resourceOf(e)); err != nil {
		return nil, err
	}
	if !e.Status.CanSubmit() {
		return nil, invalidTransition(e.Status, StatusSubmitted)
	}

	if err := s.transition(ctx, e, StatusSubmitted); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewExpenseSubmittedEvent(e.ID, e.CompanyID, e.CreatedBy, e.Title, e.TotalAmount))
	s.logger.InfoContext(ctx, "expense submitted", "expense_id", id, "user_id", req.UserID)
	return e, nil
}

// Decide approves or rejects a submitted expense and records the decision in
// the same transaction.
func (s *Service) Decide(ctx context.Context, req auth.Requester, id int64, dto DecisionDTO) (*Expense, *approval.Approval, error) {
	if err := dto.Validate(); err != nil {
		return nil, nil, err
	}
	decision, err := approval.ParseDecision(dto.Decision)
	if err != nil {
		return nil, nil, apperrors.NewValidationFieldError("decision", err.Error(), apperrors.ErrCodeInvalidDecision)
	}

	e, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.policy.Authorize(req, auth.OpExpenseDecide, resourceOf(e)); err != nil {
		s.logger.WarnContext(ctx, "expense decision denied", "expense_id", id, "user_id", req.UserID)
		return nil, nil, err
	}
	if !e.Status.CanBeDecided() {
		if e.Status.IsTerminal() {
			s.logger.InfoContext(ctx, "expense already decided", "expense_id", id, "status", e.Status)
		}
		return nil, nil, invalidTransition(e.Status, Status(decision))
	}

	if s.opts.EnforceApprovalLimit {
		if err := s.checkApprovalLimit(ctx, req, e.TotalAmount); err != nil {
			return nil, nil, err
		}
	}

	var recorded *approval.Approval
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.transition(txCtx, e, Status(decision)); err != nil {
			return err
		}
		a, err := s.recorder.Record(txCtx, e.ID, req.UserID, decision, dto.Comment)
		if err != nil {
			return err
		}
		recorded = a
		return nil
	})
	if err != nil {
		// the in-memory status was advanced before the rollback
		e.Status = StatusSubmitted
		if _, ok := apperrors.IsAppError(err); !ok {
			s.logger.ErrorContext(ctx, "failed to decide expense", "error", err, "expense_id", id)
			return nil, nil, apperrors.NewInternalError("failed to decide expense", err)
		}
		return nil, nil, err
	}

	comment := ""
	if recorded.Comment != nil {
		comment = *recorded.Comment
	}
	s.publish(ctx, events.NewExpenseDecidedEvent(e.ID, e.CompanyID, e.CreatedBy, req.UserID, e.Title, string(decision), comment, e.TotalAmount))
	s.logger.InfoContext(ctx, "expense decided",
		"expense_id", id,
		"approver_id", req.UserID,
		"decision", decision)
	return e, recorded, nil
}

// Delete removes the requester's own draft.
func (s *Service) Delete(ctx context.Context, req auth.Requester, id int64) error {
	e, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(req, auth.OpExpenseDelete, resourceOf(e)); err != nil {
		return err
	}
	if !e.Status.IsDraft() {
		return notEditable()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return notEditable()
		}
		if errors.Is(err, ErrExpenseNotFound) {
			return notFound()
		}
		s.logger.ErrorContext(ctx, "failed to delete expense", "error", err, "expense_id", id)
		return apperrors.NewInternalError("failed to delete expense", err)
	}

	s.logger.InfoContext(ctx, "expense deleted", "expense_id", id, "user_id", req.UserID)
	return nil
}

// Approvals returns the decision trail of an expense the requester can read.
func (s *Service) Approvals(ctx context.Context, req auth.Requester, id int64) ([]*approval.Approval, error) {
	if _, err := s.Get(ctx, req, id); err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, id)
}

func (s *Service) checkApprovalLimit(ctx context.Context, req auth.Requester, total decimal.Decimal) error {
	approver, err := s.approvers.GetUser(ctx, req.UserID)
	if err != nil {
		return apperrors.NewInternalError("failed to load approver", err)
	}

	var limit *decimal.Decimal
	if approver.HasRole() {
		role, err := s.approvers.GetRole(ctx, approver.CompanyID, *approver.RoleID)
		switch {
		case err == nil:
			limit = &role.ApprovalLimit
		case errors.Is(err, tenant.ErrRoleNotFound):
		default:
			return apperrors.NewInternalError("failed to load approver role", err)
		}
	}

	if err := auth.CheckApprovalLimit(limit, total); err != nil {
		if errors.Is(err, apperrors.NewForbiddenError("", apperrors.ErrCodeApprovalLimit)) {
			s.metrics.ObserveApprovalLimitRejection()
			s.logger.WarnContext(ctx, "approval limit exceeded",
				"approver_id", req.UserID,
				"total_amount", total.String())
		}
		return err
	}
	return nil
}

// transition performs the guarded status write and advances e on success.
func (s *Service) transition(ctx context.Context, e *Expense, to Status) error {
	from := e.Status
	if err := s.repo.TransitionStatus(ctx, e.ID, from, to); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return invalidTransition(from, to)
		}
		if errors.Is(err, ErrExpenseNotFound) {
			return notFound()
		}
		s.logger.ErrorContext(ctx, "failed to change expense status", "error", err, "expense_id", e.ID, "from", from, "to", to)
		return apperrors.NewInternalError("failed to change expense status", err)
	}
	e.Status = to
	s.metrics.ObserveTransition(string(from), string(to))
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return nil, notFound()
		}
		s.logger.ErrorContext(ctx, "failed to get expense", "error", err, "expense_id", id)
		return nil, apperrors.NewInternalError("failed to get expense", err)
	}
	return e, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func resourceOf(e *Expense) auth.Resource {
	return auth.Resource{CompanyID: e.CompanyID, OwnerID: e.CreatedBy, Draft: e.Status.IsDraft()}
}

func notFound() error {
	return apperrors.NewNotFoundError("expense not found", apperrors.ErrCodeExpenseNotFound)
}

func notEditable() error {
	return apperrors.NewValidationError("expense is only editable in draft", apperrors.ErrCodeExpenseNotEditable)
}

func invalidTransition(from, to Status) error {
	return apperrors.NewConflictError("cannot move expense from "+string(from)+" to "+string(to), apperrors.ErrCodeInvalidTransition)
}
