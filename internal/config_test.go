package internal_test

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validConfig() *internal.Config {
	cfg := internal.DefaultConfig()
	cfg.Database.Source = "postgres://localhost/expense_approval"
	cfg.Security.AccessTokenSecret = "access-secret-access-secret-access-secret"
	cfg.Security.RefreshTokenSecret = "refresh-secret-refresh-secret-refresh-secret"
	return cfg
}

var _ = Describe("Config", func() {
	It("accepts the defaults once secrets and a database are set", func() {
		Expect(validConfig().Validate()).To(Succeed())
	})

	It("requires distinct token secrets", func() {
		cfg := validConfig()
		cfg.Security.RefreshTokenSecret = cfg.Security.AccessTokenSecret

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("must differ")))
	})

	It("requires SMTP settings when mail is enabled", func() {
		cfg := validConfig()
		cfg.Mail.Enabled = true
		cfg.Mail.Host = ""

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("Host")))
	})

	It("rejects an empty notification pool", func() {
		cfg := validConfig()
		cfg.Notification.Workers = 0

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("Workers")))
	})

	It("reads overrides from the environment", func() {
		GinkgoT().Setenv("HTTP_PORT", "9090")
		GinkgoT().Setenv("REDIS_ADDR", "localhost:6379")
		GinkgoT().Setenv("EXPENSE_ENFORCE_APPROVAL_LIMIT", "false")
		GinkgoT().Setenv("NOTIFICATION_WORKERS", "8")
		GinkgoT().Setenv("RESET_CODE_TTL", "15m")

		cfg := internal.LoadConfigFromEnv()

		Expect(cfg.Server.Port).To(Equal(9090))
		Expect(cfg.Redis.Addr).To(Equal("localhost:6379"))
		Expect(cfg.Expense.EnforceApprovalLimit).To(BeFalse())
		Expect(cfg.Notification.Workers).To(Equal(8))
		Expect(cfg.Security.ResetCodeTTL).To(Equal(15 * time.Minute))
		Expect(cfg.Observability.Logging.Format).To(Equal("json"))
	})

	It("splits the allowed origins", func() {
		s := internal.ServerConfig{AllowedOrigins: " https://a.example , ,https://b.example"}

		Expect(s.AllowedOriginList()).To(Equal([]string{"https://a.example", "https://b.example"}))
	})
})
