package notification

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/core/events"
)

const (
	KindPasswordReset      = "password_reset"
	KindExpenseSubmitted   = "expense_submitted"
	KindExpenseDecided     = "expense_decided"
	KindCompanyDeactivated = "company_deactivated"
	KindManual             = "manual"
)

func passwordResetMessage(email, code string) Message {
	return Message{
		To:      []string{email},
		Subject: "Your password reset code",
		Body: fmt.Sprintf("Use the code %s to reset your password.\n\n"+
			"If you did not request a reset you can ignore this message.\n", code),
	}
}

func expenseSubmittedMessage(to []string, submitter string, e *events.ExpenseSubmittedEvent) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Expense #%d awaits your approval", e.ExpenseID),
		Body: fmt.Sprintf("%s submitted the expense %q for %s.\n\n"+
			"Review it in the approvals queue.\n", submitter, e.Title, e.TotalAmount.StringFixed(2)),
	}
}

func expenseDecidedMessage(to string, e *events.ExpenseDecidedEvent) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Your expense %q for %s was %s.\n", e.Title, e.TotalAmount.StringFixed(2), e.Decision)
	if e.Comment != "" {
		fmt.Fprintf(&b, "\nComment from the approver:\n%s\n", e.Comment)
	}
	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Expense #%d %s", e.ExpenseID, e.Decision),
		Body:    b.String(),
	}
}

func companyDeactivatedMessage(to, companyName string, e *events.CompanyDeactivatedEvent) Message {
	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Company %s deactivated", companyName),
		Body: fmt.Sprintf("The company %s was deactivated.\n%d user accounts were deactivated with it.\n",
			companyName, e.UsersDeactivated),
	}
}
