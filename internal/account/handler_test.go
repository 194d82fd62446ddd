package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/account"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/tenant"
)

type stubAccountService struct {
	account.ServiceAPI
	confirm    account.ConfirmDTO
	registered account.RegisterCompanyDTO
}

func (s *stubAccountService) RegisterCompany(_ context.Context, dto account.RegisterCompanyDTO) (*account.CompanyRegistration, error) {
	s.registered = dto
	return &account.CompanyRegistration{
		Company: &tenant.Company{ID: 1, Name: dto.CompanyName, IsActive: true},
		User: &tenant.User{
			ID: 2, CompanyID: 1, Email: dto.ManagerEmail, PasswordHash: "secret-hash",
			UserType: tenant.UserTypeManager, IsActive: true,
		},
		Tokens: &auth.AuthTokens{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"},
	}, nil
}

func (s *stubAccountService) DeleteUser(_ context.Context, _ auth.Requester, id int64, dto account.ConfirmDTO) (*account.DeleteUserResult, error) {
	s.confirm = dto
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return &account.DeleteUserResult{UserID: id, RoleDeleted: true}, nil
}

var _ = Describe("Account Handler", func() {
	var (
		svc    *stubAccountService
		router chi.Router
	)

	BeforeEach(func() {
		svc = &stubAccountService{}
		h := account.NewHandler(svc)
		router = chi.NewRouter()
		router.Post("/companies", h.RegisterCompany)
		router.Delete("/user/{id}", h.DeleteUser)
	})

	asManager := func(req *http.Request) *http.Request {
		return req.WithContext(auth.ContextWithRequester(req.Context(),
			auth.Requester{UserID: 2, CompanyID: 1, UserType: tenant.UserTypeManager}))
	}

	It("should register a company without exposing the password hash", func() {
		body := `{"company_name":"Acme","manager_name":"Alice","manager_email":"alice@acme.com","manager_password":"password123"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(body)))

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(svc.registered.CompanyName).To(Equal("Acme"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("secret-hash"))

		var reg account.CompanyRegistration
		Expect(json.Unmarshal(rec.Body.Bytes(), &reg)).To(Succeed())
		Expect(reg.Tokens.AccessToken).To(Equal("access"))
	})

	It("should pass the confirmation through on delete", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/user/7", strings.NewReader(`{"confirm":"Confirm"}`))
		router.ServeHTTP(rec, asManager(req))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var result account.DeleteUserResult
		Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
		Expect(result.UserID).To(Equal(int64(7)))
		Expect(result.RoleDeleted).To(BeTrue())
	})

	It("should treat a delete without a body as unconfirmed", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/user/7", http.NoBody)
		router.ServeHTTP(rec, asManager(req))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(string(apperrors.ErrCodeConfirmationNeeded)))
	})

	It("should require an authenticated requester", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/user/7", strings.NewReader(`{"confirm":"Confirm"}`)))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
