package validation_test

import (
	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("ValidationBuilder", func() {
	validateEmail := func(email string) *apperrors.AppError {
		v := validation.NewValidator()
		v.Field("email", email).Required().Email()
		return v.Validate()
	}

	DescribeTable("rejects malformed email addresses",
		func(email string) {
			err := validateEmail(email)

			Expect(err).NotTo(BeNil())
			Expect(err.GetDetailedMessage()).To(Equal("email must be a valid email address"))
		},
		Entry("trailing dot", "a@b."),
		Entry("leading dot in domain", "a@.com"),
		Entry("double at", "a@@b.com"),
		Entry("double dot in domain", "a@b..com"),
		Entry("missing domain", "alice@"),
		Entry("missing local part", "@acme.com"),
		Entry("embedded space", "alice smith@acme.com"),
		Entry("display name", "Alice <alice@acme.com>"),
	)

	DescribeTable("accepts well-formed email addresses",
		func(email string) {
			Expect(validateEmail(email)).To(BeNil())
		},
		Entry("plain", "alice@acme.com"),
		Entry("subdomain", "bob.smith@mail.acme.co.uk"),
		Entry("plus tag", "carol+expenses@acme.test"),
	)

	It("reports a missing email as required rather than malformed", func() {
		err := validateEmail("   ")

		Expect(err).NotTo(BeNil())
		Expect(err.GetDetailedMessage()).NotTo(ContainSubstring("valid email"))
	})

	It("aggregates one failure per field", func() {
		limit := decimal.NewFromInt(-1)
		v := validation.NewValidator()
		v.Field("email", "a@@b.com").Required().Email()
		v.Field("approval_limit", &limit).NonNegative(apperrors.ErrCodeInvalidAmount)

		err := v.Validate()

		Expect(err).To(MatchError(apperrors.NewValidationError("", apperrors.ErrCodeValidationFailed)))
		details, ok := err.Details.(apperrors.ValidationErrors)
		Expect(ok).To(BeTrue())
		Expect(details.Errors).To(HaveLen(2))
		Expect(details.Errors[1].Code).To(Equal(string(apperrors.ErrCodeInvalidAmount)))
	})
})
