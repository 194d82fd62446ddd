package auth

import (
	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var (
	employee = Requester{UserID: 1, CompanyID: 10, UserType: tenant.UserTypeEmployee}
	manager  = Requester{UserID: 2, CompanyID: 10, UserType: tenant.UserTypeManager}
	admin    = Requester{UserID: 3, CompanyID: 10, UserType: tenant.UserTypeAdmin}
	outsider = Requester{UserID: 4, CompanyID: 20, UserType: tenant.UserTypeManager}
)

var _ = ginkgo.Describe("Policy", func() {
	policy := NewPolicy()

	ginkgo.DescribeTable("Authorize",
		func(req Requester, op Operation, res Resource, allowed bool) {
			err := policy.Authorize(req, op, res)
			if allowed {
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				return
			}
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(apperrors.IsType(err, apperrors.ErrorTypeForbidden)).To(gomega.BeTrue())
			gomega.Expect(err.Error()).To(gomega.Equal("Access denied"))
		},
		// tenant isolation
		ginkgo.Entry("manager reading another company", outsider, OpCompanyRead, Resource{CompanyID: 10}, false),
		ginkgo.Entry("manager reading own company", manager, OpCompanyRead, Resource{CompanyID: 10}, true),
		ginkgo.Entry("manager deciding another company's expense", outsider, OpExpenseDecide, Resource{CompanyID: 10, OwnerID: 1}, false),
		ginkgo.Entry("admin listing companies across tenants", admin, OpCompanyList, Resource{}, true),

		// self-service
		ginkgo.Entry("employee changing own password", employee, OpUserUpdate, Resource{CompanyID: 10, OwnerID: 1, Fields: []string{FieldPassword}}, true),
		ginkgo.Entry("employee changing own role", employee, OpUserUpdate, Resource{CompanyID: 10, OwnerID: 1, Fields: []string{"role"}}, false),
		ginkgo.Entry("employee changing own password and user type", employee, OpUserUpdate, Resource{CompanyID: 10, OwnerID: 1, Fields: []string{FieldPassword, "user_type"}}, false),
		ginkgo.Entry("employee changing a colleague's password", employee, OpUserUpdate, Resource{CompanyID: 10, OwnerID: 2, Fields: []string{FieldPassword}}, false),
		ginkgo.Entry("manager changing a colleague's role", manager, OpUserUpdate, Resource{CompanyID: 10, OwnerID: 1, Fields: []string{"role", "approval_limit"}}, true),
		ginkgo.Entry("employee reading self", employee, OpUserRead, Resource{CompanyID: 10, OwnerID: 1}, true),
		ginkgo.Entry("employee reading a colleague", employee, OpUserRead, Resource{CompanyID: 10, OwnerID: 2}, false),
		ginkgo.Entry("manager reading a colleague", manager, OpUserRead, Resource{CompanyID: 10, OwnerID: 1}, true),

		// user-type gated operations
		ginkgo.Entry("manager deleting company", manager, OpCompanyDelete, Resource{CompanyID: 10}, true),
		ginkgo.Entry("admin deleting company", admin, OpCompanyDelete, Resource{CompanyID: 10}, false),
		ginkgo.Entry("employee deleting company", employee, OpCompanyDelete, Resource{CompanyID: 10}, false),
		ginkgo.Entry("manager deleting user", manager, OpUserDelete, Resource{CompanyID: 10, OwnerID: 1}, true),
		ginkgo.Entry("employee deleting self", employee, OpUserDelete, Resource{CompanyID: 10, OwnerID: 1}, false),
		ginkgo.Entry("manager listing companies", manager, OpCompanyList, Resource{}, false),
		ginkgo.Entry("employee registering user", employee, OpUserRegister, Resource{CompanyID: 10}, false),
		ginkgo.Entry("admin registering user", admin, OpUserRegister, Resource{CompanyID: 10}, true),
		ginkgo.Entry("employee listing users", employee, OpUserList, Resource{CompanyID: 10}, false),

		// draft visibility
		ginkgo.Entry("creator reading own draft", employee, OpExpenseRead, Resource{CompanyID: 10, OwnerID: 1, Draft: true}, true),
		ginkgo.Entry("manager reading someone's draft", manager, OpExpenseRead, Resource{CompanyID: 10, OwnerID: 1, Draft: true}, false),
		ginkgo.Entry("employee reading a colleague's submitted expense", employee, OpExpenseRead, Resource{CompanyID: 10, OwnerID: 2}, true),
		ginkgo.Entry("creator updating own expense", employee, OpExpenseUpdate, Resource{CompanyID: 10, OwnerID: 1, Draft: true}, true),
		ginkgo.Entry("manager updating someone's expense", manager, OpExpenseUpdate, Resource{CompanyID: 10, OwnerID: 1, Draft: true}, false),
		ginkgo.Entry("manager submitting someone's expense", manager, OpExpenseSubmit, Resource{CompanyID: 10, OwnerID: 1, Draft: true}, false),
		ginkgo.Entry("admin deleting someone's draft", admin, OpExpenseDelete, Resource{CompanyID: 10, OwnerID: 1, Draft: true}, false),

		// approval authority
		ginkgo.Entry("employee deciding", employee, OpExpenseDecide, Resource{CompanyID: 10, OwnerID: 2}, false),
		ginkgo.Entry("manager deciding", manager, OpExpenseDecide, Resource{CompanyID: 10, OwnerID: 1}, true),
		ginkgo.Entry("admin deciding", admin, OpExpenseDecide, Resource{CompanyID: 10, OwnerID: 1}, true),

		// malformed requester
		ginkgo.Entry("unknown user type", Requester{UserID: 5, CompanyID: 10, UserType: "owner"}, OpExpenseCreate, Resource{CompanyID: 10}, false),
	)

	ginkgo.It("should report the tenant mismatch before the user-type check", func() {
		err := policy.Authorize(Requester{UserID: 9, CompanyID: 20, UserType: tenant.UserTypeEmployee}, OpUserDelete, Resource{CompanyID: 10})

		gomega.Expect(err).To(gomega.MatchError(apperrors.ErrAccessDenied))
	})

	ginkgo.It("should flag insufficient user type with its own code", func() {
		err := policy.Authorize(employee, OpUserDelete, Resource{CompanyID: 10, OwnerID: 2})

		gomega.Expect(err).To(gomega.MatchError(apperrors.NewForbiddenError("", apperrors.ErrCodeInsufficientRole)))
	})
})

var _ = ginkgo.Describe("CheckApprovalLimit", func() {
	limit := decimal.NewFromInt(1000)

	ginkgo.It("should allow totals up to the limit", func() {
		gomega.Expect(CheckApprovalLimit(&limit, decimal.NewFromInt(1000))).To(gomega.Succeed())
		gomega.Expect(CheckApprovalLimit(&limit, decimal.RequireFromString("999.99"))).To(gomega.Succeed())
	})

	ginkgo.It("should reject totals above the limit with a distinct code", func() {
		err := CheckApprovalLimit(&limit, decimal.RequireFromString("1000.01"))

		gomega.Expect(err).To(gomega.MatchError(apperrors.NewForbiddenError("", apperrors.ErrCodeApprovalLimit)))
	})

	ginkgo.It("should reject an approver without a role", func() {
		err := CheckApprovalLimit(nil, decimal.NewFromInt(1))

		gomega.Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(gomega.BeTrue())
	})
})
