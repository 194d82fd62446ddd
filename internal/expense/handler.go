package expense

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

// maxListLimit caps an explicit page size. Without one the whole view is returned.
const maxListLimit = 100

type ServiceAPI interface {
	Create(ctx context.Context, req auth.Requester, dto CreateExpenseDTO) (*Expense, error)
	Get(ctx context.Context, req auth.Requester, id int64) (*Expense, error)
	List(ctx context.Context, req auth.Requester, status string, limit, offset int) ([]*Expense, error)
	Update(ctx context.Context, req auth.Requester, id int64, dto UpdateExpenseDTO) (*Expense, error)
	Submit(ctx context.Context, req auth.Requester, id int64) (*Expense, error)
	Decide(ctx context.Context, req auth.Requester, id int64, dto DecisionDTO) (*Expense, *approval.Approval, error)
	Delete(ctx context.Context, req auth.Requester, id int64) error
	Approvals(ctx context.Context, req auth.Requester, id int64) ([]*approval.Approval, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	// RecomputeTotals replaces a client supplied total with the items total.
	RecomputeTotals bool
}

func NewHandler(service ServiceAPI, recomputeTotals bool) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:     transport.NewBaseHandler(lg),
		Service:         service,
		RecomputeTotals: recomputeTotals,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if h.RecomputeTotals {
		dto.RecomputeTotal()
	}

	expense, err := h.Service.Create(r.Context(), req, dto)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "CreateExpense: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, expense)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	expense, err := h.Service.Get(r.Context(), req, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expense)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}

	limit := h.QueryInt(r, "limit", 0)
	switch {
	case limit < 0:
		limit = 0
	case limit > maxListLimit:
		limit = maxListLimit
	}
	offset := h.QueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	status := r.URL.Query().Get("status")

	// one extra row tells whether another page exists
	fetch := limit
	if limit > 0 {
		fetch = limit + 1
	}
	expenses, err := h.Service.List(r.Context(), req, status, fetch, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	hasMore := limit > 0 && len(expenses) > limit
	if hasMore {
		expenses = expenses[:limit]
	}
	if status == "" {
		status = StatusFilterAll
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{
		Expenses: expenses,
		Status:   status,
		Limit:    limit,
		Offset:   offset,
		HasMore:  hasMore,
	})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if h.RecomputeTotals {
		dto.RecomputeTotal()
	}

	expense, err := h.Service.Update(r.Context(), req, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expense)
}

func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	expense, err := h.Service.Submit(r.Context(), req, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, expense)
}

func (h *Handler) DecideExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto DecisionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	expense, recorded, err := h.Service.Decide(r.Context(), req, id, dto)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "DecideExpense: service error", "error", err, "expense_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, DecisionResponse{Expense: expense, Approval: recorded})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), req, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	approvals, err := h.Service.Approvals(r.Context(), req, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ApprovalsResponse{Approvals: approvals})
}

func (h *Handler) requester(w http.ResponseWriter, r *http.Request) (auth.Requester, bool) {
	req, ok := auth.RequesterFromContext(r.Context())
	if !ok {
		h.Logger.ErrorContext(r.Context(), "requester not found in context")
		h.WriteError(w, http.StatusUnauthorized, apperrors.ErrCodeInvalidToken, apperrors.ErrInvalidToken.Message)
		return auth.Requester{}, false
	}
	return req, true
}
