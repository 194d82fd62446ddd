package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// StatusFilterAll lists the company's non-draft expenses plus the requester's drafts.
const StatusFilterAll = "all"

func (s Status) IsDraft() bool {
	return s == StatusDraft
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) CanSubmit() bool {
	return s == StatusDraft
}

func (s Status) CanBeDecided() bool {
	return s == StatusSubmitted
}

func Statuses() []string {
	return []string{string(StatusDraft), string(StatusSubmitted), string(StatusApproved), string(StatusRejected)}
}

// ParseStatusFilter maps a list filter to a status. The empty status means all.
func ParseStatusFilter(raw string) (Status, error) {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "", StatusFilterAll:
		return "", nil
	case string(StatusDraft), string(StatusSubmitted), string(StatusApproved), string(StatusRejected):
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status filter %q", raw)
}

type Item struct {
	Description string          `json:"description"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// ItemsTotal is Σ qty × unitPrice.
func ItemsTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total())
	}
	return total
}

type Expense struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	CreatedBy   int64           `json:"created_by"`
	Title       string          `json:"title"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Department  string          `json:"department"`
	Attachments []string        `json:"attachments"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (e *Expense) ItemsTotal() decimal.Decimal {
	return ItemsTotal(e.Items)
}

// ListFilter scopes a listing to one company. Drafts are only ever those of RequesterID.
type ListFilter struct {
	CompanyID   int64
	RequesterID int64
	Status      Status
	Limit       int
	Offset      int
}

var (
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrStatusChanged is returned by conditional writes that found the
	// expense in a different status than expected.
	ErrStatusChanged = errors.New("expense status changed")
)

// Repository interface defines the data access methods for expenses
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	List(ctx context.Context, filter ListFilter) ([]*Expense, error)
	// Update writes the editable fields of a draft.
	Update(ctx context.Context, e *Expense) error
	TransitionStatus(ctx context.Context, id int64, from, to Status) error
	// Delete removes a draft.
	Delete(ctx context.Context, id int64) error
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	items := make([]expenseDatamodel.Item, len(e.Items))
	for i, it := range e.Items {
		items[i] = expenseDatamodel.Item{Description: it.Description, Qty: it.Qty, UnitPrice: it.UnitPrice}
	}
	attachments := e.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return &expenseDatamodel.Expense{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		CreatedBy:   e.CreatedBy,
		Title:       e.Title,
		Items:       datatypes.NewJSONSlice(items),
		TotalAmount: e.TotalAmount,
		Department:  e.Department,
		Attachments: datatypes.NewJSONSlice(attachments),
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	items := make([]Item, len(e.Items))
	for i, it := range e.Items {
		items[i] = Item{Description: it.Description, Qty: it.Qty, UnitPrice: it.UnitPrice}
	}
	attachments := make([]string, len(e.Attachments))
	copy(attachments, e.Attachments)
	return &Expense{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		CreatedBy:   e.CreatedBy,
		Title:       e.Title,
		Items:       items,
		TotalAmount: e.TotalAmount,
		Department:  e.Department,
		Attachments: attachments,
		Status:      Status(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i := range expenses {
		result[i] = FromDataModel(&expenses[i])
	}
	return result
}
