package account

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/tenant"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

type ServiceAPI interface {
	RegisterCompany(ctx context.Context, dto RegisterCompanyDTO) (*CompanyRegistration, error)
	RegisterUser(ctx context.Context, req auth.Requester, dto RegisterUserDTO) (*tenant.User, error)
	UpdateUser(ctx context.Context, req auth.Requester, targetID int64, dto UpdateUserDTO) (*tenant.User, error)
	DeleteUser(ctx context.Context, req auth.Requester, targetID int64, dto ConfirmDTO) (*DeleteUserResult, error)
	DeleteCompany(ctx context.Context, req auth.Requester, companyID int64, dto ConfirmDTO) (*DeleteCompanyResult, error)
	GetCompany(ctx context.Context, req auth.Requester, companyID int64) (*tenant.Company, error)
	ListCompanies(ctx context.Context, req auth.Requester) ([]*tenant.Company, error)
	GetUser(ctx context.Context, req auth.Requester, id int64) (*tenant.User, error)
	ListUsers(ctx context.Context, req auth.Requester) ([]*tenant.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// RegisterCompany handles the public sign-up of a company and its first manager.
func (h *Handler) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	var dto RegisterCompanyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	reg, err := h.Service.RegisterCompany(r.Context(), dto)
	if err != nil {
		h.Logger.WarnContext(r.Context(), "RegisterCompany: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}

	companies, err := h.Service.ListCompanies(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CompaniesResponse{Companies: companies})
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	company, err := h.Service.GetCompany(r.Context(), req, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, company)
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.DeleteCompany(r.Context(), req, id, h.decodeConfirm(r))
	if err != nil {
		h.Logger.WarnContext(r.Context(), "DeleteCompany: service error", "error", err, "company_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}

	var dto RegisterUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	user, err := h.Service.RegisterUser(r.Context(), req, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}

	users, err := h.Service.ListUsers(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	user, err := h.Service.GetUser(r.Context(), req, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	user, err := h.Service.UpdateUser(r.Context(), req, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	req, ok := h.requester(w, r)
	if !ok {
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.DeleteUser(r.Context(), req, id, h.decodeConfirm(r))
	if err != nil {
		h.Logger.WarnContext(r.Context(), "DeleteUser: service error", "error", err, "target_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// decodeConfirm treats a missing or unreadable body as an unconfirmed request.
func (h *Handler) decodeConfirm(r *http.Request) ConfirmDTO {
	var dto ConfirmDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		return ConfirmDTO{}
	}
	return dto
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
