package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("CORS", func() {
	It("echoes an allowed origin", func() {
		h := CORS([]string{"https://app.acme.com"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://APP.acme.com")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://APP.acme.com"))
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
	})

	It("ignores other origins", func() {
		h := CORS([]string{"https://app.acme.com"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("answers preflight requests without reaching the handler", func() {
		reached := false
		h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		}))
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/expenses", nil)
		req.Header.Set("Origin", "https://app.acme.com")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		Expect(reached).To(BeFalse())
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).NotTo(BeEmpty())
		Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(Equal(http.MethodPut))
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
	})

	It("exposes the trace header to allowed origins", func() {
		h := CORS([]string{"https://app.acme.com/"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.acme.com")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.acme.com"))
		Expect(rec.Header().Get("Access-Control-Expose-Headers")).To(Equal(http.CanonicalHeaderKey(TraceHeader)))
	})
})

var _ = Describe("RequestID", func() {
	It("propagates the caller's trace id", func() {
		var seen, traced string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = chiMiddleware.GetReqID(r.Context())
			traced = internal.TraceIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "trace-123")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		Expect(seen).To(Equal("trace-123"))
		Expect(traced).To(Equal("trace-123"))
		Expect(rec.Header().Get(TraceHeader)).To(Equal("trace-123"))
	})

	It("mints one when missing", func() {
		rec := httptest.NewRecorder()
		RequestID(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get(TraceHeader)).To(HaveLen(36))
	})
})

var _ = Describe("Recovery", func() {
	It("hides the panic value from the client", func() {
		h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("db password leaked")
		}))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
		var body map[string]map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]["code"]).To(Equal("INTERNAL_ERROR"))
	})
})

var _ = Describe("Metrics", func() {
	It("labels requests by route pattern", func() {
		m := metrics.New()
		r := chi.NewRouter()
		r.Use(Metrics(m))
		r.Get("/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/expenses/42", nil))

		Expect(testutil.CollectAndCount(m.Registry(), "expense_approval_http_requests_total")).To(Equal(1))

		families, err := m.Registry().Gather()
		Expect(err).NotTo(HaveOccurred())
		labels := map[string]string{}
		for _, f := range families {
			if f.GetName() != "expense_approval_http_requests_total" {
				continue
			}
			for _, l := range f.GetMetric()[0].GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
		}
		Expect(labels).To(HaveKeyWithValue("route", "/expenses/{id}"))
		Expect(labels).To(HaveKeyWithValue("status", "404"))
	})
})

var _ = Describe("body filtering", func() {
	It("masks credentials and reset codes in requests", func() {
		out := requestRedactor.body([]byte(`{"email":"a@x.com","new_password":"secret123","code":"123456"}`))

		Expect(out).To(ContainSubstring(`"email":"a@x.com"`))
		Expect(out).NotTo(ContainSubstring("secret123"))
		Expect(out).NotTo(ContainSubstring("123456"))
	})

	It("keeps error codes in responses", func() {
		out := responseRedactor.body([]byte(`{"error":{"code":"EXPENSE_NOT_FOUND"}}`))

		Expect(out).To(ContainSubstring("EXPENSE_NOT_FOUND"))
	})

	It("masks nested tokens", func() {
		out := responseRedactor.body([]byte(`{"tokens":[{"access_token":"abc"}]}`))

		Expect(out).NotTo(ContainSubstring("abc"))
	})

	It("marks bodies that are not JSON", func() {
		Expect(requestRedactor.body([]byte("password=hunter2"))).To(Equal("[UNPARSED 16B]"))
	})
})

var _ = Describe("Logging", func() {
	It("tags both records with the trace id and keeps the body readable", func() {
		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, nil))
		var seen []byte
		h := RequestID(Logging(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"INVALID_CREDENTIALS"}}`))
		})))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/user/login", strings.NewReader(`{"email":"a@x.com","password":"hunter22"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(TraceHeader, "trace-123")

		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(string(seen)).To(ContainSubstring("hunter22"))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(2))
		for _, line := range lines {
			Expect(line).To(ContainSubstring(`"trace_id":"trace-123"`))
			Expect(line).NotTo(ContainSubstring("hunter22"))
		}
		Expect(lines[1]).To(ContainSubstring(`"level":"WARN"`))
		Expect(lines[1]).To(ContainSubstring("INVALID_CREDENTIALS"))
	})
})
