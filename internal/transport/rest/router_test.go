package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/account"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newRouter(checks map[string]rest.CheckFunc) *chi.Mux {
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:    auth.NewHandler(nil),
		Account: account.NewHandler(nil),
		Expense: expense.NewHandler(nil, false),
	}, metrics.New(), rest.Options{
		MetricsPath:  "/metrics",
		HealthChecks: checks,
	}, logger.Discard())
	return router
}

var _ = Describe("Router", func() {
	It("documents every API route in the OpenAPI document", func() {
		doc, err := swagger.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())

		var undocumented []string
		walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, rest.APIPrefix) {
				return nil
			}
			path := strings.TrimSuffix(strings.TrimPrefix(route, rest.APIPrefix), "/")
			item := doc.Paths.Find(path)
			if item == nil || item.GetOperation(method) == nil {
				undocumented = append(undocumented, method+" "+path)
			}
			return nil
		}

		Expect(chi.Walk(newRouter(nil), walk)).To(Succeed())
		Expect(undocumented).To(BeEmpty())
	})

	It("serves the OpenAPI document", func() {
		rec := httptest.NewRecorder()
		newRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, swagger.DocPath, nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})

	It("rejects protected routes without a bearer token", func() {
		rec := httptest.NewRecorder()
		newRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("exposes metrics", func() {
		router := newRouter(nil)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`route="/ping"`))
	})
})

var _ = Describe("Health", func() {
	It("reports healthy when every check passes", func() {
		rec := httptest.NewRecorder()
		newRouter(map[string]rest.CheckFunc{
			"postgres": func(context.Context) error { return nil },
		}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"postgres":{"status":"healthy"`))
	})

	It("reports unavailable when a dependency is down", func() {
		rec := httptest.NewRecorder()
		newRouter(map[string]rest.CheckFunc{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(rec.Body.String()).To(ContainSubstring("connection refused"))
	})

	It("answers ping without touching dependencies", func() {
		rec := httptest.NewRecorder()
		newRouter(map[string]rest.CheckFunc{
			"postgres": func(context.Context) error { return errors.New("down") },
		}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
