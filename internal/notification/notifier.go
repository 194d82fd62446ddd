package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal/core/metrics"
)

// PasswordResetNotifier mails reset codes synchronously so the caller learns
// about delivery failures.
type PasswordResetNotifier struct {
	mailer  Mailer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPasswordResetNotifier(mailer Mailer, m *metrics.Metrics, logger *slog.Logger) *PasswordResetNotifier {
	return &PasswordResetNotifier{mailer: mailer, metrics: m, logger: logger}
}

func (n *PasswordResetNotifier) SendResetCode(ctx context.Context, email, code string) error {
	err := n.mailer.Send(ctx, passwordResetMessage(email, code))
	n.metrics.ObserveDelivery(KindPasswordReset, err)
	if err != nil {
		n.logger.Error("failed to send password reset code", "error", err)
		return err
	}
	return nil
}
