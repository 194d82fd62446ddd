package notification_test

import (
	"context"
	"net/smtp"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/notification"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mailer", func() {
	var (
		ctx context.Context
		cfg internal.MailConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = internal.MailConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     587,
			Username: "mailer",
			Password: "secret",
			From:     "noreply@example.com",
		}
	})

	Describe("Message.Validate", func() {
		It("requires a recipient", func() {
			err := notification.Message{Subject: "hi"}.Validate()
			Expect(err).To(MatchError(notification.ErrNoRecipients))
		})

		It("rejects header injection", func() {
			Expect(notification.Message{To: []string{"a@x.com\r\nBcc: b@x.com"}}.Validate()).To(HaveOccurred())
			Expect(notification.Message{To: []string{"a@x.com"}, Subject: "hi\nBcc: b@x.com"}.Validate()).To(HaveOccurred())
		})
	})

	Describe("SMTPMailer", func() {
		It("sends a plain text message through the relay", func() {
			// Given
			mailer := notification.NewSMTPMailer(cfg)
			var (
				gotAddr string
				gotAuth smtp.Auth
				gotFrom string
				gotTo   []string
				gotBody string
			)
			mailer.SetSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
				gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, a, from, to, string(msg)
				return nil
			})

			// When
			err := mailer.Send(ctx, notification.Message{
				To:      []string{"alice@acme.com"},
				Subject: "Hello",
				Body:    "line one\nline two",
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(gotAddr).To(Equal("smtp.example.com:587"))
			Expect(gotAuth).NotTo(BeNil())
			Expect(gotFrom).To(Equal("noreply@example.com"))
			Expect(gotTo).To(ConsistOf("alice@acme.com"))
			Expect(gotBody).To(ContainSubstring("Subject: Hello\r\n"))
			Expect(gotBody).To(ContainSubstring("Content-Type: text/plain"))
			Expect(gotBody).To(HaveSuffix("\r\n\r\nline one\r\nline two"))
		})

		It("skips authentication without a username", func() {
			cfg.Username = ""
			mailer := notification.NewSMTPMailer(cfg)
			var gotAuth smtp.Auth
			mailer.SetSendFunc(func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
				gotAuth = a
				return nil
			})

			Expect(mailer.Send(ctx, notification.Message{To: []string{"a@x.com"}})).To(Succeed())
			Expect(gotAuth).To(BeNil())
		})

		It("wraps relay failures", func() {
			mailer := notification.NewSMTPMailer(cfg)
			mailer.SetSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
				return errRelayDown
			})

			err := mailer.Send(ctx, notification.Message{To: []string{"a@x.com"}})
			Expect(err).To(MatchError(errRelayDown))
		})
	})

	Describe("NewMailer", func() {
		It("logs instead of sending when mail is disabled", func() {
			cfg.Enabled = false
			mailer := notification.NewMailer(cfg, logger.Discard())

			Expect(mailer).To(BeAssignableToTypeOf(&notification.LogMailer{}))
			Expect(mailer.Send(ctx, notification.Message{To: []string{"a@x.com"}})).To(Succeed())
		})

		It("uses SMTP when mail is enabled", func() {
			Expect(notification.NewMailer(cfg, logger.Discard())).To(BeAssignableToTypeOf(&notification.SMTPMailer{}))
		})
	})
})
