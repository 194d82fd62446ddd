package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/tenant"
)

// RecipientDirectory is the slice of the tenant directory needed to address mail.
type RecipientDirectory interface {
	GetCompany(ctx context.Context, id int64) (*tenant.Company, error)
	GetUser(ctx context.Context, id int64) (*tenant.User, error)
	ListActiveManagers(ctx context.Context, companyID int64) ([]*tenant.User, error)
}

type Enqueuer interface {
	Enqueue(job Job) error
}

// ExpenseSubscriber turns domain events into queued mail.
type ExpenseSubscriber struct {
	dir    RecipientDirectory
	queue  Enqueuer
	logger *slog.Logger
}

func NewExpenseSubscriber(dir RecipientDirectory, queue Enqueuer, logger *slog.Logger) *ExpenseSubscriber {
	return &ExpenseSubscriber{dir: dir, queue: queue, logger: logger}
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

func (s *ExpenseSubscriber) Register(bus Subscriber) {
	bus.Subscribe(events.EventTypeExpenseSubmitted, s.HandleExpenseSubmitted)
	bus.Subscribe(events.EventTypeExpenseApproved, s.HandleExpenseDecided)
	bus.Subscribe(events.EventTypeExpenseRejected, s.HandleExpenseDecided)
	bus.Subscribe(events.EventTypeCompanyDeactivate, s.HandleCompanyDeactivated)
}

func (s *ExpenseSubscriber) HandleExpenseSubmitted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseSubmittedEvent)
	if !ok {
		return unexpected(event)
	}

	managers, err := s.dir.ListActiveManagers(ctx, e.CompanyID)
	if err != nil {
		return fmt.Errorf("list managers of company %d: %w", e.CompanyID, err)
	}

	to := make([]string, 0, len(managers))
	for _, m := range managers {
		if m.ID == e.CreatedBy {
			continue
		}
		to = append(to, m.Email)
	}
	if len(to) == 0 {
		s.logger.Info("no managers to notify about submitted expense",
			"expense_id", e.ExpenseID,
			"company_id", e.CompanyID)
		return nil
	}

	submitter := fmt.Sprintf("User #%d", e.CreatedBy)
	if u, err := s.dir.GetUser(ctx, e.CreatedBy); err == nil {
		submitter = u.Name
	}

	return s.queue.Enqueue(Job{Kind: KindExpenseSubmitted, Message: expenseSubmittedMessage(to, submitter, e)})
}

func (s *ExpenseSubscriber) HandleExpenseDecided(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseDecidedEvent)
	if !ok {
		return unexpected(event)
	}

	creator, err := s.dir.GetUser(ctx, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("load creator %d: %w", e.CreatedBy, err)
	}
	if !creator.IsActive {
		return nil
	}

	return s.queue.Enqueue(Job{Kind: KindExpenseDecided, Message: expenseDecidedMessage(creator.Email, e)})
}

func (s *ExpenseSubscriber) HandleCompanyDeactivated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.CompanyDeactivatedEvent)
	if !ok {
		return unexpected(event)
	}

	actor, err := s.dir.GetUser(ctx, e.DeactivatedBy)
	if err != nil {
		return fmt.Errorf("load user %d: %w", e.DeactivatedBy, err)
	}
	name := fmt.Sprintf("#%d", e.CompanyID)
	if c, err := s.dir.GetCompany(ctx, e.CompanyID); err == nil {
		name = c.Name
	}

	return s.queue.Enqueue(Job{Kind: KindCompanyDeactivated, Message: companyDeactivatedMessage(actor.Email, name, e)})
}

func unexpected(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for event %s", event, event.EventType())
}
