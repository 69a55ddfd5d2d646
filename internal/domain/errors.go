package domain

import "errors"

var (
	// ErrStoreUnavailable signals that the counter store round trip could not complete.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrBudgetExceeded signals a rejected request for an organization over its budget.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrUnknownKind signals a resource kind outside the supported set.
	ErrUnknownKind = errors.New("unknown budget kind")
	// ErrInvalidAmount signals a non-positive token amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrMissingOrg signals a request without an organization id.
	ErrMissingOrg = errors.New("org_id required")
	// ErrInvalidConfig signals a malformed limit value in configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidWin signals a malformed win notification.
	ErrInvalidWin = errors.New("invalid win")
	// ErrNotificationFailed signals that no notification sink accepted a message.
	ErrNotificationFailed = errors.New("notification delivery failed")
	// ErrInvalidItem signals a valuation request without enough item data.
	ErrInvalidItem = errors.New("invalid item")
	// ErrLLMProviderError signals a language model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrUnauthorized signals a rejected platform API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals a platform API key without access to the resource.
	ErrForbidden = errors.New("forbidden")
)
