package account_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/account"
)

var _ = Describe("RegisterCompanyDTO", func() {
	valid := func() account.RegisterCompanyDTO {
		return account.RegisterCompanyDTO{
			CompanyName:     "Acme",
			ManagerName:     "Alice",
			ManagerEmail:    "alice@acme.com",
			ManagerPassword: "password123",
		}
	}

	It("should accept a well-formed request", func() {
		Expect(valid().Validate()).To(Succeed())
	})

	DescribeTable("should reject malformed manager emails",
		func(email string) {
			// Given
			dto := valid()
			dto.ManagerEmail = email

			// When
			err := dto.Validate()

			// Then
			Expect(err).To(MatchError(apperrors.NewValidationError("", apperrors.ErrCodeValidationFailed)))
			appErr, _ := apperrors.IsAppError(err)
			Expect(appErr.GetDetailedMessage()).To(Equal("manager_email must be a valid email address"))
		},
		Entry("trailing dot", "a@b."),
		Entry("leading dot in domain", "a@.com"),
		Entry("double at", "a@@b.com"),
		Entry("double dot in domain", "a@b..com"),
	)
})

var _ = Describe("RegisterUserDTO", func() {
	It("should reject a malformed email", func() {
		dto := account.RegisterUserDTO{Name: "Bob", Email: "bob@acme..com", Password: "password123", Role: "Staff"}

		err := dto.Validate()

		Expect(err).To(MatchError(apperrors.NewValidationError("", apperrors.ErrCodeValidationFailed)))
	})
})
