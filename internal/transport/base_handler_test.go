package transport_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

var _ = Describe("BaseHandler", func() {
	var h *transport.BaseHandler

	BeforeEach(func() {
		h = transport.NewBaseHandler(logger.Discard())
	})

	decode := func(rec *httptest.ResponseRecorder) apperrors.AppError {
		var body struct {
			Error apperrors.AppError `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error
	}

	Describe("WriteError", func() {
		It("should write the given code with the type matching the status", func() {
			rec := httptest.NewRecorder()

			h.WriteError(rec, http.StatusUnauthorized, apperrors.ErrCodeInvalidToken, "Invalid token")

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
			body := decode(rec)
			Expect(body.Type).To(Equal(apperrors.ErrorTypeUnauthorized))
			Expect(body.Code).To(Equal(apperrors.ErrCodeInvalidToken))
			Expect(body.Message).To(Equal("Invalid token"))
		})

		It("should fall back to the error type when no code is given", func() {
			rec := httptest.NewRecorder()

			h.WriteError(rec, http.StatusNotFound, "", "no such thing")

			body := decode(rec)
			Expect(body.Type).To(Equal(apperrors.ErrorTypeNotFound))
			Expect(string(body.Code)).To(Equal(string(apperrors.ErrorTypeNotFound)))
		})
	})

	Describe("ExtractTokenFromHeader", func() {
		DescribeTable("should read bearer tokens only",
			func(header, want string) {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				if header != "" {
					req.Header.Set("Authorization", header)
				}
				Expect(h.ExtractTokenFromHeader(req)).To(Equal(want))
			},
			Entry("bearer", "Bearer abc.def", "abc.def"),
			Entry("lower-case scheme", "bearer abc", "abc"),
			Entry("basic scheme", "Basic dXNlcjpwYXNz", ""),
			Entry("missing header", "", ""),
		)
	})
})
