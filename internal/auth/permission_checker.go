package auth

import "github.com/frahmantamala/expense-approval/internal/tenant"

var (
	managersOnly      = []tenant.UserType{tenant.UserTypeManager}
	adminsOnly        = []tenant.UserType{tenant.UserTypeAdmin}
	managersAndAdmins = []tenant.UserType{tenant.UserTypeManager, tenant.UserTypeAdmin}
)

// requiredUserTypes lists the operations restricted to specific user types.
// Operations absent from the map are open to every user type.
var requiredUserTypes = map[Operation][]tenant.UserType{
	OpCompanyDelete: managersOnly,
	OpUserDelete:    managersOnly,
	OpCompanyList:   adminsOnly,
	OpUserRegister:  managersAndAdmins,
	OpUserList:      managersAndAdmins,
	OpExpenseDecide: managersAndAdmins,
}

// RequiredUserTypes returns the user types allowed to perform op, or nil when
// op is not restricted.
func RequiredUserTypes(op Operation) []tenant.UserType {
	return requiredUserTypes[op]
}

func HasRequiredUserType(op Operation, t tenant.UserType) bool {
	allowed, restricted := requiredUserTypes[op]
	if !restricted {
		return true
	}
	return HasUserType(t, allowed...)
}

func HasUserType(t tenant.UserType, allowed ...tenant.UserType) bool {
	for _, a := range allowed {
		if t == a {
			return true
		}
	}
	return false
}
