package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-approval/internal/account"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const APIPrefix = "/api/v1"

type Handlers struct {
	Auth    *auth.Handler
	Account *account.Handler
	Expense *expense.Handler
}

type Options struct {
	AllowedOrigins []string
	// MetricsPath is left empty to disable the scrape endpoint.
	MetricsPath    string
	RequestTimeout time.Duration
	HealthChecks   map[string]CheckFunc
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, m *metrics.Metrics, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(opts.HealthChecks)
	rbac := auth.NewRBACAuthorization(logger)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.Recovery(logger))
	if opts.RequestTimeout > 0 {
		router.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}

	router.Get("/ping", healthHandler.pingHandler)
	router.Get("/health", healthHandler.healthCheckHandler)
	if opts.MetricsPath != "" {
		router.Method(http.MethodGet, opts.MetricsPath, m.Handler())
	}
	router.Method(http.MethodGet, swagger.DocPath, swagger.DocHandler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(APIPrefix, func(r chi.Router) {
		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/forgot-password", h.Auth.ForgotPassword)
			ar.Post("/verify-code", h.Auth.VerifyCode)
			ar.Post("/reset-password", h.Auth.ResetPassword)
		})

		r.Route("/companies", func(cr chi.Router) {
			cr.Post("/", h.Account.RegisterCompany)

			cr.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.With(rbac.RequireOperation(auth.OpCompanyList)).Get("/", h.Account.ListCompanies)
				pr.Get("/{id}", h.Account.GetCompany)
				pr.With(rbac.RequireOperation(auth.OpCompanyDelete)).Delete("/{id}", h.Account.DeleteCompany)
			})
		})

		r.Route("/user", func(ur chi.Router) {
			ur.Post("/login", h.Auth.Login)

			ur.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)
				pr.With(rbac.RequireOperation(auth.OpUserList)).Get("/", h.Account.ListUsers)
				pr.With(rbac.RequireOperation(auth.OpUserRegister)).Post("/register", h.Account.RegisterUser)
				pr.Get("/{id}", h.Account.GetUser)
				pr.Put("/{id}", h.Account.UpdateUser)
				pr.With(rbac.RequireOperation(auth.OpUserDelete)).Delete("/{id}", h.Account.DeleteUser)
			})
		})

		r.Route("/expenses", func(er chi.Router) {
			er.Use(h.Auth.AuthMiddleware)
			er.Post("/", h.Expense.CreateExpense)
			er.Get("/", h.Expense.ListExpenses)
			er.Get("/{id}", h.Expense.GetExpense)
			er.Put("/{id}", h.Expense.UpdateExpense)
			er.Delete("/{id}", h.Expense.DeleteExpense)
			er.Put("/{id}/submit", h.Expense.SubmitExpense)
			er.With(rbac.RequireOperation(auth.OpExpenseDecide)).Put("/{id}/approvals", h.Expense.DecideExpense)
			er.Get("/{id}/approvals", h.Expense.ListApprovals)
		})
	})
}
