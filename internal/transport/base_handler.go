package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error envelope for failures detected in the handler
// itself. An empty code falls back to the error type.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	h.Logger.Warn("http error", "status", status, "code", code, "message", message)
	errType := typeForStatus(status)
	if code == "" {
		code = apperrors.ErrorCode(errType)
	}
	h.WriteJSON(w, status, apperrors.Response{Error: &apperrors.AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}})
}

// HandleServiceError maps a service error to its response. Anything that is not
// an AppError is logged and reported as a generic server error.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.IsAppError(err)
	if !ok || appErr.Type == apperrors.ErrorTypeInternal {
		h.Logger.Error("unexpected service error", "error", err)
		h.WriteJSON(w, http.StatusInternalServerError, apperrors.Response{Error: &apperrors.AppError{
			Type:    apperrors.ErrorTypeInternal,
			Code:    "INTERNAL_ERROR",
			Message: "server error",
		}})
		return
	}

	if appErr.Type == apperrors.ErrorTypeValidation {
		h.Logger.Debug("request rejected", "code", appErr.Code, "detail", appErr.GetDetailedMessage())
	}

	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.WriteJSON(w, status, body)
}

// DecodeJSON reads a single JSON object from the request body into dst.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required", apperrors.ErrCodeValidationFailed)
		}
		return apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// IDParam parses a positive int64 URL parameter.
func (h *BaseHandler) IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationFieldError(name, "invalid "+name, apperrors.ErrCodeValidationFailed)
	}
	return id, nil
}

// QueryInt reads an integer query parameter, falling back to def when absent or malformed.
func (h *BaseHandler) QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func typeForStatus(status int) apperrors.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrorTypeValidation
	case http.StatusUnauthorized:
		return apperrors.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrorTypeForbidden
	case http.StatusNotFound:
		return apperrors.ErrorTypeNotFound
	case http.StatusConflict:
		return apperrors.ErrorTypeConflict
	}
	return apperrors.ErrorTypeInternal
}
