package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeExpenseSubmitted  = "expense.submitted"
	EventTypeExpenseApproved   = "expense.approved"
	EventTypeExpenseRejected   = "expense.rejected"
	EventTypeCompanyDeactivate = "company.deactivated"
)

type ExpenseSubmittedEvent struct {
	BaseEvent
	ExpenseID   int64           `json:"expense_id"`
	CompanyID   int64           `json:"company_id"`
	CreatedBy   int64           `json:"created_by"`
	Title       string          `json:"title"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewExpenseSubmittedEvent(expenseID, companyID, createdBy int64, title string, total decimal.Decimal) *ExpenseSubmittedEvent {
	return &ExpenseSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":   expenseID,
				"company_id":   companyID,
				"created_by":   createdBy,
				"total_amount": total.String(),
			},
		},
		ExpenseID:   expenseID,
		CompanyID:   companyID,
		CreatedBy:   createdBy,
		Title:       title,
		TotalAmount: total,
	}
}

// ExpenseDecidedEvent is published as expense.approved or expense.rejected.
type ExpenseDecidedEvent struct {
	BaseEvent
	ExpenseID   int64           `json:"expense_id"`
	CompanyID   int64           `json:"company_id"`
	CreatedBy   int64           `json:"created_by"`
	ApproverID  int64           `json:"approver_id"`
	Title       string          `json:"title"`
	Decision    string          `json:"decision"`
	Comment     string          `json:"comment,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewExpenseDecidedEvent(expenseID, companyID, createdBy, approverID int64, title, decision, comment string, total decimal.Decimal) *ExpenseDecidedEvent {
	eventType := EventTypeExpenseRejected
	if decision == "approved" {
		eventType = EventTypeExpenseApproved
	}
	return &ExpenseDecidedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id":   expenseID,
				"company_id":   companyID,
				"approver_id":  approverID,
				"decision":     decision,
				"total_amount": total.String(),
			},
		},
		ExpenseID:   expenseID,
		CompanyID:   companyID,
		CreatedBy:   createdBy,
		ApproverID:  approverID,
		Title:       title,
		Decision:    decision,
		Comment:     comment,
		TotalAmount: total,
	}
}

type CompanyDeactivatedEvent struct {
	BaseEvent
	CompanyID        int64 `json:"company_id"`
	DeactivatedBy    int64 `json:"deactivated_by"`
	UsersDeactivated int64 `json:"users_deactivated"`
}

func NewCompanyDeactivatedEvent(companyID, deactivatedBy, usersDeactivated int64) *CompanyDeactivatedEvent {
	return &CompanyDeactivatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCompanyDeactivate,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"company_id":        companyID,
				"deactivated_by":    deactivatedBy,
				"users_deactivated": usersDeactivated,
			},
		},
		CompanyID:        companyID,
		DeactivatedBy:    deactivatedBy,
		UsersDeactivated: usersDeactivated,
	}
}
