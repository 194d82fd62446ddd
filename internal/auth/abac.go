package auth

import (
	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/shopspring/decimal"
)

type Operation string

const (
	OpCompanyRead   Operation = "company:read"
	OpCompanyDelete Operation = "company:delete"
	OpCompanyList   Operation = "company:list"

	OpUserRead     Operation = "user:read"
	OpUserList     Operation = "user:list"
	OpUserRegister Operation = "user:register"
	OpUserUpdate   Operation = "user:update"
	OpUserDelete   Operation = "user:delete"

	OpExpenseCreate Operation = "expense:create"
	OpExpenseRead   Operation = "expense:read"
	OpExpenseUpdate Operation = "expense:update"
	OpExpenseSubmit Operation = "expense:submit"
	OpExpenseDelete Operation = "expense:delete"
	OpExpenseDecide Operation = "expense:decide"
)

// FieldPassword is the only user field a non-privileged requester may change on
// their own record.
const FieldPassword = "password"

// Resource describes the target of an operation. OwnerID is the user id for
// user operations and the creator for expense operations.
type Resource struct {
	CompanyID int64
	OwnerID   int64
	Draft     bool
	Fields    []string
}

// Policy is the attribute-based decision function guarding every operation.
// It is pure: callers translate the returned error into their response.
type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// Authorize evaluates tenant isolation, self-service limits, required user
// types, draft visibility and approval authority, in that order.
func (p *Policy) Authorize(req Requester, op Operation, res Resource) error {
	if !req.UserType.Valid() || req.UserID <= 0 {
		return apperrors.AccessDenied()
	}

	// tenant isolation
	if op != OpCompanyList && req.CompanyID != res.CompanyID {
		return apperrors.AccessDenied()
	}

	// self-service
	if !req.IsPrivileged() {
		switch op {
		case OpUserUpdate:
			if res.OwnerID != req.UserID || !onlyFields(res.Fields, FieldPassword) {
				return apperrors.AccessDenied()
			}
		case OpUserRead:
			if res.OwnerID != req.UserID {
				return apperrors.AccessDenied()
			}
		}
	}

	// user-type gated operations
	if !HasRequiredUserType(op, req.UserType) {
		return apperrors.NewForbiddenError("Access denied", apperrors.ErrCodeInsufficientRole)
	}

	switch op {
	case OpExpenseRead:
		if res.Draft && res.OwnerID != req.UserID {
			return apperrors.AccessDenied()
		}
	case OpExpenseUpdate, OpExpenseSubmit, OpExpenseDelete:
		if res.OwnerID != req.UserID {
			return apperrors.AccessDenied()
		}
	}

	return nil
}

// CheckApprovalLimit compares an expense total with the approver's role limit.
// A nil limit means the approver holds no role.
func CheckApprovalLimit(limit *decimal.Decimal, total decimal.Decimal) error {
	if limit == nil {
		return apperrors.NewValidationError("approver has no role and therefore no approval limit", apperrors.ErrCodeRoleMissing)
	}
	if total.GreaterThan(*limit) {
		return apperrors.NewForbiddenError("expense total exceeds your approval limit", apperrors.ErrCodeApprovalLimit).
			WithDetails(map[string]string{
				"approval_limit": limit.String(),
				"total_amount":   total.String(),
			})
	}
	return nil
}

func onlyFields(fields []string, allowed ...string) bool {
	for _, f := range fields {
		ok := false
		for _, a := range allowed {
			if f == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
