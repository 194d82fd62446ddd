package auth

import (
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

// RBACAuthorization gates whole routes on the requester's user type, ahead of
// the per-resource Policy checks the services run.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

// RequireOperation admits requesters whose user type may perform op.
func (ra *RBACAuthorization) RequireOperation(op Operation) func(http.Handler) http.Handler {
	return ra.RequireUserTypes(RequiredUserTypes(op)...)
}

// RequireUserTypes admits requesters holding one of the given user types. With
// no types it only requires an authenticated requester.
func (ra *RBACAuthorization) RequireUserTypes(allowed ...tenant.UserType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, ok := RequesterFromContext(r.Context())
			if !ok {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: requester not found in context")
				ra.HandleServiceError(w, apperrors.ErrInvalidToken)
				return
			}

			if len(allowed) > 0 && !HasUserType(req.UserType, allowed...) {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient user type",
					"user_id", req.UserID,
					"user_type", req.UserType,
					"required", allowed)
				ra.HandleServiceError(w, apperrors.NewForbiddenError("Access denied", apperrors.ErrCodeInsufficientRole))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
