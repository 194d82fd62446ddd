package expense_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/tenant"
)

type stubService struct {
	created    *expense.CreateExpenseDTO
	listStatus string
	listLimit  int
	listOffset int
	listed     []*expense.Expense
	err        error
}

func (s *stubService) Create(_ context.Context, req auth.Requester, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
	s.created = &dto
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: 1, CreatedBy: req.UserID, Title: dto.Title, TotalAmount: *dto.TotalAmount, Status: expense.StatusDraft}, nil
}

func (s *stubService) Get(_ context.Context, _ auth.Requester, id int64) (*expense.Expense, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Status: expense.StatusSubmitted}, nil
}

func (s *stubService) List(_ context.Context, _ auth.Requester, status string, limit, offset int) ([]*expense.Expense, error) {
	s.listStatus, s.listLimit, s.listOffset = status, limit, offset
	page := []*expense.Expense{}
	if offset < len(s.listed) {
		page = s.listed[offset:]
	}
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return page, s.err
}

func (s *stubService) Update(_ context.Context, _ auth.Requester, id int64, _ expense.UpdateExpenseDTO) (*expense.Expense, error) {
	return &expense.Expense{ID: id}, s.err
}

func (s *stubService) Submit(_ context.Context, _ auth.Requester, id int64) (*expense.Expense, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Status: expense.StatusSubmitted}, nil
}

func (s *stubService) Decide(_ context.Context, req auth.Requester, id int64, dto expense.DecisionDTO) (*expense.Expense, *approval.Approval, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return &expense.Expense{ID: id, Status: expense.Status(dto.Decision)},
		&approval.Approval{ID: 7, ExpenseID: id, ApproverID: req.UserID, Decision: approval.Decision(dto.Decision)}, nil
}

func (s *stubService) Delete(context.Context, auth.Requester, int64) error {
	return s.err
}

func (s *stubService) Approvals(context.Context, auth.Requester, int64) ([]*approval.Approval, error) {
	return []*approval.Approval{}, s.err
}

var _ = Describe("Expense Handler", func() {
	var (
		svc     *stubService
		handler *expense.Handler
		router  chi.Router
		caller  auth.Requester
	)

	BeforeEach(func() {
		svc = &stubService{}
		handler = expense.NewHandler(svc, false)
		caller = auth.Requester{UserID: 5, CompanyID: 1, UserType: tenant.UserTypeManager}

		router = chi.NewRouter()
		router.Post("/expenses", handler.CreateExpense)
		router.Get("/expenses", handler.ListExpenses)
		router.Get("/expenses/{id}", handler.GetExpense)
		router.Post("/expenses/{id}/submit", handler.SubmitExpense)
		router.Post("/expenses/{id}/decision", handler.DecideExpense)
		router.Delete("/expenses/{id}", handler.DeleteExpense)
	})

	do := func(method, path, body string, withRequester bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if withRequester {
			req = req.WithContext(auth.ContextWithRequester(req.Context(), caller))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body.Error.Code
	}

	It("should create an expense with 201", func() {
		rec := do(http.MethodPost, "/expenses", `{"title":"Dinner","total_amount":"12.50"}`, true)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var created expense.Expense
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created.CreatedBy).To(Equal(int64(5)))
		Expect(created.TotalAmount.Equal(decimal.RequireFromString("12.50"))).To(BeTrue())
	})

	It("should recompute the total from items when configured", func() {
		handler.RecomputeTotals = true
		rec := do(http.MethodPost, "/expenses",
			`{"title":"Dinner","total_amount":1,"items":[{"description":"Taxi","qty":3,"unit_price":"2.50"}]}`, true)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(svc.created.TotalAmount.Equal(decimal.RequireFromString("7.5"))).To(BeTrue())
	})

	It("should reject a malformed body", func() {
		rec := do(http.MethodPost, "/expenses", `{"title":`, true)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should require an authenticated requester", func() {
		rec := do(http.MethodGet, "/expenses/1", "", false)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(errorCode(rec)).To(Equal(string(apperrors.ErrCodeInvalidToken)))
	})

	It("should reject a non-numeric id", func() {
		rec := do(http.MethodGet, "/expenses/abc", "", true)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should map service errors to their status", func() {
		svc.err = apperrors.NewConflictError("cannot move expense", apperrors.ErrCodeInvalidTransition)
		rec := do(http.MethodPost, "/expenses/3/submit", "", true)

		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(errorCode(rec)).To(Equal(string(apperrors.ErrCodeInvalidTransition)))
	})

	It("should hide internal errors", func() {
		svc.err = apperrors.NewInternalError("failed to get expense", context.DeadlineExceeded)
		rec := do(http.MethodGet, "/expenses/3", "", true)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("deadline"))
	})

	It("should return the decided expense together with its approval", func() {
		rec := do(http.MethodPost, "/expenses/3/decision", `{"decision":"approved"}`, true)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body expense.DecisionResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Expense.Status).To(Equal(expense.StatusApproved))
		Expect(body.Approval.ApproverID).To(Equal(int64(5)))
	})

	Describe("ListExpenses", func() {
		listPage := func(path string) expense.ListResponse {
			rec := do(http.MethodGet, path, "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var body expense.ListResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			return body
		}

		BeforeEach(func() {
			svc.listed = make([]*expense.Expense, 25)
			for i := range svc.listed {
				svc.listed[i] = &expense.Expense{ID: int64(25 - i), Status: expense.StatusSubmitted}
			}
		})

		It("should return every row when no limit is given", func() {
			body := listPage("/expenses?status=submitted")

			Expect(svc.listLimit).To(Equal(0))
			Expect(body.Expenses).To(HaveLen(25))
			Expect(body.HasMore).To(BeFalse())
			Expect(body.Status).To(Equal("submitted"))
		})

		It("should default the filter to all", func() {
			body := listPage("/expenses")

			Expect(svc.listStatus).To(Equal(""))
			Expect(body.Status).To(Equal(expense.StatusFilterAll))
			Expect(body.Expenses).To(HaveLen(25))
		})

		It("should flag a further page when the limit cuts the listing", func() {
			body := listPage("/expenses?limit=10")

			Expect(body.Expenses).To(HaveLen(10))
			Expect(body.Limit).To(Equal(10))
			Expect(body.HasMore).To(BeTrue())
			Expect(body.Expenses[0].ID).To(Equal(int64(25)))
		})

		It("should report the last page as complete", func() {
			body := listPage("/expenses?limit=10&offset=20")

			Expect(body.Expenses).To(HaveLen(5))
			Expect(body.HasMore).To(BeFalse())
		})

		It("should clamp an oversized limit and a negative offset", func() {
			body := listPage("/expenses?limit=1000&offset=-4")

			Expect(body.Limit).To(Equal(100))
			Expect(body.Offset).To(Equal(0))
			Expect(svc.listOffset).To(Equal(0))
			Expect(body.Expenses).To(HaveLen(25))
			Expect(body.HasMore).To(BeFalse())
		})
	})

	It("should answer 204 on delete", func() {
		rec := do(http.MethodDelete, "/expenses/3", "", true)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
	})
})
