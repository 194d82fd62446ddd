package notification_test

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Dispatcher", func() {
	var (
		mailer *fakeMailer
		m      *metrics.Metrics
		job    notification.Job
	)

	BeforeEach(func() {
		mailer = &fakeMailer{}
		m = metrics.New()
		job = notification.Job{
			Kind:    notification.KindManual,
			Message: notification.Message{To: []string{"ops@acme.com"}, Subject: "ping"},
		}
	})

	deliveries := func(result string) float64 {
		return testutil.ToFloat64(m.NotificationDeliveries().WithLabelValues(notification.KindManual, result))
	}

	It("refuses jobs before it is started", func() {
		d := notification.NewDispatcher(mailer, m, notification.Config{}, logger.Discard())

		Expect(d.Enqueue(job)).To(MatchError(notification.ErrDispatcherStopped))
	})

	It("drains queued jobs on stop", func() {
		// Given
		d := notification.NewDispatcher(mailer, m, notification.Config{Workers: 2, QueueSize: 10}, logger.Discard())
		d.Start(context.Background())

		// When
		for i := 0; i < 5; i++ {
			Expect(d.Enqueue(job)).To(Succeed())
		}
		d.Stop()

		// Then
		Expect(mailer.Sent()).To(HaveLen(5))
		Expect(deliveries(metrics.ResultSuccess)).To(Equal(5.0))
		Expect(d.Enqueue(job)).To(MatchError(notification.ErrDispatcherStopped))
	})

	It("fails fast when the queue is full", func() {
		// Given
		mailer.release = make(chan struct{})
		d := notification.NewDispatcher(mailer, m, notification.Config{Workers: 1, QueueSize: 1}, logger.Discard())
		d.Start(context.Background())

		// When
		accepted := 0
		Eventually(func() error {
			err := d.Enqueue(job)
			if err == nil {
				accepted++
			}
			return err
		}).WithTimeout(2 * time.Second).Should(MatchError(notification.ErrQueueFull))

		// Then
		close(mailer.release)
		d.Stop()
		Expect(mailer.Sent()).To(HaveLen(accepted))
		Expect(deliveries(metrics.ResultFailure)).To(Equal(1.0))
	})

	It("records failed deliveries", func() {
		mailer.err = errRelayDown
		d := notification.NewDispatcher(mailer, m, notification.Config{Workers: 1, QueueSize: 4}, logger.Discard())
		d.Start(context.Background())

		Expect(d.Enqueue(job)).To(Succeed())
		d.Stop()

		Expect(deliveries(metrics.ResultFailure)).To(Equal(1.0))
		Expect(deliveries(metrics.ResultSuccess)).To(BeZero())
	})

	It("rejects invalid messages without queueing them", func() {
		d := notification.NewDispatcher(mailer, m, notification.Config{}, logger.Discard())
		d.Start(context.Background())
		defer d.Stop()

		err := d.Enqueue(notification.Job{Kind: notification.KindManual})
		Expect(err).To(MatchError(notification.ErrNoRecipients))
	})
})
