package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test notification",
	Long:  `Start the notification worker pool with the configured mailer, queue one message and drain the queue. Useful to check SMTP settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNotify(cmd.Context())
	},
}

var (
	notifyTo      []string
	notifySubject string
	notifyBody    string
	maxWorkers    int
	jobQueueSize  int
)

func runNotify(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)
	m := metrics.New()

	dispatcher := notification.NewDispatcher(notification.NewMailer(config.Mail, log), m, notification.Config{
		Workers:   getIntFlag(maxWorkers, config.Notification.Workers),
		QueueSize: getIntFlag(jobQueueSize, config.Notification.QueueSize),
	}, log)
	dispatcher.Start(ctx)

	err = dispatcher.Enqueue(notification.Job{
		Kind: notification.KindManual,
		Message: notification.Message{
			To:      notifyTo,
			Subject: notifySubject,
			Body:    notifyBody,
		},
	})
	dispatcher.Stop()
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	failed := m.NotificationDeliveries().WithLabelValues(notification.KindManual, metrics.ResultFailure)
	if counterValue(failed) > 0 {
		return fmt.Errorf("notification delivery failed, see logs")
	}
	log.Info("notification delivered", "recipients", len(notifyTo))
	return nil
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	notifyCmd.Flags().StringSliceVar(&notifyTo, "to", nil, "Recipient address (repeatable)")
	notifyCmd.Flags().StringVar(&notifySubject, "subject", "Expense Approval test message", "Message subject")
	notifyCmd.Flags().StringVar(&notifyBody, "body", "This is a test message from the expense approval service.\n", "Message body")
	notifyCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Number of workers (overrides config)")
	notifyCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Queue buffer size (overrides config)")
	_ = notifyCmd.MarkFlagRequired("to")
}
