package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("matches on type and code through wrapping", func() {
		err := fmt.Errorf("decide: %w", internal.NewConflictError("already decided", internal.ErrCodeInvalidTransition))

		Expect(errors.Is(err, internal.NewConflictError("", internal.ErrCodeInvalidTransition))).To(BeTrue())
		Expect(errors.Is(err, internal.NewConflictError("", internal.ErrCodeLastManager))).To(BeFalse())
		Expect(internal.IsType(err, internal.ErrorTypeConflict)).To(BeTrue())
	})

	It("carries the HTTP status of its type", func() {
		appErr, ok := internal.IsAppError(internal.AccessDenied())

		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("keeps the cause out of the response envelope", func() {
		err := internal.NewInternalError("failed to save", errors.New("pq: connection reset"))

		body, marshalErr := json.Marshal(internal.Response{Error: err})
		Expect(marshalErr).NotTo(HaveOccurred())
		Expect(string(body)).NotTo(ContainSubstring("pq:"))
		Expect(errors.Unwrap(err)).To(MatchError("pq: connection reset"))
	})
})
