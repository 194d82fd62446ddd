package expense

import (
	"fmt"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLength      = 255
	maxDepartmentLength = 100
	maxDescriptionLen   = 255
)

type ItemDTO struct {
	Description string          `json:"description"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateExpenseDTO represents the request payload for creating an expense
type CreateExpenseDTO struct {
	Title       string           `json:"title"`
	Items       []ItemDTO        `json:"items"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Department  string           `json:"department"`
	Attachments []string         `json:"attachments"`
}

func (dto CreateExpenseDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(maxTitleLength)
	v.Field("total_amount", dto.TotalAmount).Required().NonNegative(apperrors.ErrCodeInvalidAmount)
	v.Field("department", dto.Department).MaxLength(maxDepartmentLength)
	validateItems(v, dto.Items)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// RecomputeTotal replaces the supplied total with the items total when items are present.
func (dto *CreateExpenseDTO) RecomputeTotal() {
	if len(dto.Items) == 0 {
		return
	}
	total := ItemsTotal(itemsFromDTO(dto.Items))
	dto.TotalAmount = &total
}

// UpdateExpenseDTO carries only the fields to change; nil means keep.
type UpdateExpenseDTO struct {
	Title       *string          `json:"title,omitempty"`
	Items       *[]ItemDTO       `json:"items,omitempty"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	Department  *string          `json:"department,omitempty"`
	Attachments *[]string        `json:"attachments,omitempty"`
}

func (dto UpdateExpenseDTO) IsEmpty() bool {
	return dto.Title == nil && dto.Items == nil && dto.TotalAmount == nil && dto.Department == nil && dto.Attachments == nil
}

func (dto UpdateExpenseDTO) Validate() error {
	if dto.IsEmpty() {
		return apperrors.NewValidationError("no fields to update", apperrors.ErrCodeNoFieldsToUpdate)
	}

	v := validation.NewValidator()
	if dto.Title != nil {
		v.Field("title", dto.Title).Required().MaxLength(maxTitleLength)
	}
	v.Field("total_amount", dto.TotalAmount).NonNegative(apperrors.ErrCodeInvalidAmount)
	v.Field("department", dto.Department).MaxLength(maxDepartmentLength)
	if dto.Items != nil {
		validateItems(v, *dto.Items)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto *UpdateExpenseDTO) RecomputeTotal() {
	if dto.Items == nil {
		return
	}
	total := ItemsTotal(itemsFromDTO(*dto.Items))
	dto.TotalAmount = &total
}

// Apply copies the supplied fields onto e.
func (dto UpdateExpenseDTO) Apply(e *Expense) {
	if dto.Title != nil {
		e.Title = *dto.Title
	}
	if dto.Items != nil {
		e.Items = itemsFromDTO(*dto.Items)
	}
	if dto.TotalAmount != nil {
		e.TotalAmount = *dto.TotalAmount
	}
	if dto.Department != nil {
		e.Department = *dto.Department
	}
	if dto.Attachments != nil {
		e.Attachments = append([]string{}, (*dto.Attachments)...)
	}
}

type DecisionDTO struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment,omitempty"`
}

func (dto DecisionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("decision", dto.Decision).Required().OneOf(apperrors.ErrCodeInvalidDecision, approval.Decisions()...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ListResponse pages a listing. Limit 0 means the listing was not paged.
type ListResponse struct {
	Expenses []*Expense `json:"expenses"`
	Status   string     `json:"status"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	HasMore  bool       `json:"has_more"`
}

type DecisionResponse struct {
	Expense  *Expense           `json:"expense"`
	Approval *approval.Approval `json:"approval"`
}

type ApprovalsResponse struct {
	Approvals []*approval.Approval `json:"approvals"`
}

func validateItems(v *validation.ValidationBuilder, items []ItemDTO) {
	for i, it := range items {
		v.Field(fmt.Sprintf("items[%d].description", i), it.Description).Required().MaxLength(maxDescriptionLen)
		v.Field(fmt.Sprintf("items[%d].qty", i), it.Qty).MinInt(1, apperrors.ErrCodeInvalidAmount)
		v.Field(fmt.Sprintf("items[%d].unit_price", i), it.UnitPrice).NonNegative(apperrors.ErrCodeInvalidAmount)
	}
}

func itemsFromDTO(items []ItemDTO) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{Description: it.Description, Qty: it.Qty, UnitPrice: it.UnitPrice}
	}
	return out
}
