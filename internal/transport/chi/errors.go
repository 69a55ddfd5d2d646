package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain"
	budgetuc "github.com/magnus-flipper/magnus/internal/usecase/budget"
)

// ErrorCode is the machine-readable error identifier in API responses.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeOrgRequired        ErrorCode = "org_required"
	ErrorCodeUnknownKind        ErrorCode = "unknown_kind"
	ErrorCodeBudgetExceeded     ErrorCode = "budget_exceeded"
	ErrorCodeStoreUnavailable   ErrorCode = "store_unavailable"
	ErrorCodeNotificationFailed ErrorCode = "notification_failed"
	ErrorCodeLLMProviderError   ErrorCode = "llm_provider_error"
	ErrorCodeNotConfigured      ErrorCode = "not_configured"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// retryAfterSeconds is the hint sent with 429s: at most one window away.
const retryAfterSeconds = 60

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// budgetExceededResponse is the 429 body for rejected budgeted calls.
type budgetExceededResponse struct {
	Code              ErrorCode `json:"code"`
	Message           string    `json:"message"`
	Kind              string    `json:"kind"`
	Used              int64     `json:"used"`
	Limit             int64     `json:"limit"`
	Cap               int64     `json:"cap"`
	RetryAfterSeconds int       `json:"retry_after_seconds"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var errorHandlers = []errorHandler{
	budgetExceededHandler,
	sentinelHandler(domain.ErrMissingOrg, http.StatusBadRequest, ErrorCodeOrgRequired),
	sentinelHandler(domain.ErrUnknownKind, http.StatusBadRequest, ErrorCodeUnknownKind),
	sentinelHandler(domain.ErrInvalidAmount, http.StatusBadRequest, ErrorCodeValidationFailed),
	sentinelHandler(domain.ErrInvalidWin, http.StatusBadRequest, ErrorCodeValidationFailed),
	sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, ErrorCodeValidationFailed),
	sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrorCodeStoreUnavailable),
	sentinelHandler(domain.ErrNotificationFailed, http.StatusBadGateway, ErrorCodeNotificationFailed),
	sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMProviderError),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrBudgetExceeded,
		domain.ErrMissingOrg,
		domain.ErrUnknownKind,
		domain.ErrInvalidAmount,
		domain.ErrInvalidWin,
		domain.ErrInvalidItem,
		domain.ErrStoreUnavailable,
		domain.ErrNotificationFailed,
		domain.ErrLLMProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			// Validation errors carry the offending field, which is safe to echo.
			if s == domain.ErrInvalidWin || s == domain.ErrInvalidItem || s == domain.ErrInvalidAmount {
				return err.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// budgetExceededHandler renders a rejected take with its usage and a Retry-After hint.
func budgetExceededHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrBudgetExceeded) {
		return false
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))

	var ee *budgetuc.ExceededError
	if !errors.As(err, &ee) {
		writeError(w, http.StatusTooManyRequests, ErrorCodeBudgetExceeded, msg)
		return true
	}
	d := ee.Decision
	writeJSON(w, http.StatusTooManyRequests, budgetExceededResponse{
		Code:              ErrorCodeBudgetExceeded,
		Message:           d.Kind().String() + " budget exceeded",
		Kind:              d.Kind().String(),
		Used:              d.Used(),
		Limit:             d.Limit(),
		Cap:               d.Cap(),
		RetryAfterSeconds: retryAfterSeconds,
	})
	return true
}

func handleDomainError(logger *zap.Logger, w http.ResponseWriter, err error) {
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
