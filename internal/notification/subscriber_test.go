package notification_test

import (
	"context"
	"sync"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

type fakeDirectory struct {
	companies map[int64]*tenant.Company
	users     map[int64]*tenant.User
}

func (f *fakeDirectory) GetCompany(_ context.Context, id int64) (*tenant.Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, tenant.ErrCompanyNotFound
	}
	return c, nil
}

func (f *fakeDirectory) GetUser(_ context.Context, id int64) (*tenant.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, tenant.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) ListActiveManagers(_ context.Context, companyID int64) ([]*tenant.User, error) {
	var out []*tenant.User
	for id := int64(1); id <= int64(len(f.users)); id++ {
		u := f.users[id]
		if u != nil && u.CompanyID == companyID && u.UserType == tenant.UserTypeManager && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type queueRecorder struct {
	mu   sync.Mutex
	jobs []notification.Job
}

func (q *queueRecorder) Enqueue(job notification.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

var _ = Describe("ExpenseSubscriber", func() {
	var (
		ctx        context.Context
		dir        *fakeDirectory
		queue      *queueRecorder
		subscriber *notification.ExpenseSubscriber
		total      decimal.Decimal
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = &fakeDirectory{
			companies: map[int64]*tenant.Company{1: {ID: 1, Name: "Acme", IsActive: true}},
			users: map[int64]*tenant.User{
				1: {ID: 1, CompanyID: 1, Name: "Alice", Email: "alice@acme.com", UserType: tenant.UserTypeManager, IsActive: true},
				2: {ID: 2, CompanyID: 1, Name: "Bob", Email: "bob@acme.com", UserType: tenant.UserTypeEmployee, IsActive: true},
				3: {ID: 3, CompanyID: 1, Name: "Carol", Email: "carol@acme.com", UserType: tenant.UserTypeManager, IsActive: true},
				4: {ID: 4, CompanyID: 1, Name: "Dan", Email: "dan@acme.com", UserType: tenant.UserTypeManager, IsActive: false},
			},
		}
		queue = &queueRecorder{}
		subscriber = notification.NewExpenseSubscriber(dir, queue, logger.Discard())
		total = decimal.RequireFromString("750")
	})

	It("mails the active managers when an expense is submitted", func() {
		// Given
		event := events.NewExpenseSubmittedEvent(10, 1, 2, "Travel", total)

		// When
		err := subscriber.HandleExpenseSubmitted(ctx, event)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(queue.jobs).To(HaveLen(1))
		job := queue.jobs[0]
		Expect(job.Kind).To(Equal(notification.KindExpenseSubmitted))
		Expect(job.Message.To).To(ConsistOf("alice@acme.com", "carol@acme.com"))
		Expect(job.Message.Body).To(ContainSubstring("Bob"))
		Expect(job.Message.Body).To(ContainSubstring("750.00"))
	})

	It("does not mail a manager about their own submission", func() {
		event := events.NewExpenseSubmittedEvent(10, 1, 1, "Travel", total)

		Expect(subscriber.HandleExpenseSubmitted(ctx, event)).To(Succeed())
		Expect(queue.jobs[0].Message.To).To(ConsistOf("carol@acme.com"))
	})

	It("skips submissions when nobody can be notified", func() {
		dir.users[1].IsActive = false
		dir.users[3].IsActive = false
		event := events.NewExpenseSubmittedEvent(10, 1, 2, "Travel", total)

		Expect(subscriber.HandleExpenseSubmitted(ctx, event)).To(Succeed())
		Expect(queue.jobs).To(BeEmpty())
	})

	It("mails the creator about a decision with the comment", func() {
		event := events.NewExpenseDecidedEvent(10, 1, 2, 1, "Travel", "rejected", "missing receipt", total)

		Expect(subscriber.HandleExpenseDecided(ctx, event)).To(Succeed())
		Expect(queue.jobs).To(HaveLen(1))
		msg := queue.jobs[0].Message
		Expect(msg.To).To(ConsistOf("bob@acme.com"))
		Expect(msg.Subject).To(Equal("Expense #10 rejected"))
		Expect(msg.Body).To(ContainSubstring("missing receipt"))
	})

	It("mails the manager who deactivated the company", func() {
		event := events.NewCompanyDeactivatedEvent(1, 1, 3)

		Expect(subscriber.HandleCompanyDeactivated(ctx, event)).To(Succeed())
		msg := queue.jobs[0].Message
		Expect(msg.To).To(ConsistOf("alice@acme.com"))
		Expect(msg.Subject).To(Equal("Company Acme deactivated"))
	})

	It("rejects payloads of the wrong shape", func() {
		event := events.NewCompanyDeactivatedEvent(1, 1, 3)

		Expect(subscriber.HandleExpenseSubmitted(ctx, event)).To(HaveOccurred())
	})

	It("is driven by the event bus", func() {
		bus := events.NewEventBus(logger.Discard())
		subscriber.Register(bus)

		Expect(bus.Publish(ctx, events.NewExpenseDecidedEvent(10, 1, 2, 1, "Travel", "approved", "", total))).To(Succeed())
		bus.Wait()
		Expect(queue.jobs).To(HaveLen(1))
		Expect(queue.jobs[0].Message.Subject).To(Equal("Expense #10 approved"))
	})
})

var _ = Describe("PasswordResetNotifier", func() {
	It("mails the code and counts the delivery", func() {
		mailer := &fakeMailer{}
		m := metrics.New()
		n := notification.NewPasswordResetNotifier(mailer, m, logger.Discard())

		Expect(n.SendResetCode(context.Background(), "bob@acme.com", "123456")).To(Succeed())

		Expect(mailer.Sent()).To(HaveLen(1))
		Expect(mailer.Sent()[0].Body).To(ContainSubstring("123456"))
		Expect(testutil.ToFloat64(m.NotificationDeliveries().WithLabelValues(notification.KindPasswordReset, metrics.ResultSuccess))).To(Equal(1.0))
	})

	It("reports delivery failures to the caller", func() {
		mailer := &fakeMailer{err: errRelayDown}
		n := notification.NewPasswordResetNotifier(mailer, nil, logger.Discard())

		Expect(n.SendResetCode(context.Background(), "bob@acme.com", "123456")).To(MatchError(errRelayDown))
	})
})
