package errorx

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryConflict       ErrorCategory = "conflict"
	CategoryUpstream       ErrorCategory = "upstream"
	CategoryInternal       ErrorCategory = "internal"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// APIError is a structured error returned to API clients.
// Sentinels are shared values; the With* helpers return copies.
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	MessageID  string         `json:"-"`
	Category   ErrorCategory  `json:"category"`
	Severity   Severity       `json:"-"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	TraceID    string         `json:"traceId,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// Is matches any APIError with the same code
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// JSON returns the error as a JSON string
func (e *APIError) JSON() string {
	out, _ := json.Marshal(e)
	return string(out)
}

func (e *APIError) clone() *APIError {
	cp := *e
	cp.Details = maps.Clone(e.Details)
	return &cp
}

// WithMessage replaces the message and drops the translation id
func (e *APIError) WithMessage(msg string) *APIError {
	cp := e.clone()
	cp.Message = msg
	cp.MessageID = ""
	return cp
}

// WithMessagef is WithMessage with formatting
func (e *APIError) WithMessagef(format string, args ...any) *APIError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to a copy of the error
func (e *APIError) WithDetail(key string, value any) *APIError {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]any)
	}
	cp.Details[key] = value
	return cp
}

// WithTraceID sets the trace id on a copy of the error
func (e *APIError) WithTraceID(traceID string) *APIError {
	cp := e.clone()
	cp.TraceID = traceID
	return cp
}

var (
	// Validation Errors (E1000-E1999)
	ErrInvalidInput = &APIError{
		Code:       "E1001",
		Message:    "Invalid input provided",
		MessageID:  "error_invalid_input",
		Category:   CategoryValidation,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrEmptyProductUpdates = &APIError{
		Code:       "E1002",
		Message:    "A work order needs at least one product update",
		MessageID:  "error_empty_product_updates",
		Category:   CategoryValidation,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvitationExpired = &APIError{
		Code:       "E1003",
		Message:    "This invitation has expired",
		MessageID:  "error_invitation_expired",
		Category:   CategoryValidation,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNotConnected = &APIError{
		Code:       "E1004",
		Message:    "BigCommerce is not connected",
		MessageID:  "error_not_connected",
		Category:   CategoryValidation,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusBadRequest,
	}

	// Authentication Errors (E2000-E2999)
	ErrUnauthorized = &APIError{
		Code:       "E2001",
		Message:    "Authentication required",
		MessageID:  "error_unauthorized",
		Category:   CategoryAuthentication,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrSessionExpired = &APIError{
		Code:       "E2002",
		Message:    "Your session has expired, please sign in again",
		MessageID:  "error_session_expired",
		Category:   CategoryAuthentication,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusUnauthorized,
	}

	// Authorization Errors (E3000-E3999)
	ErrForbidden = &APIError{
		Code:       "E3001",
		Message:    "You do not have permission to perform this action",
		MessageID:  "error_forbidden",
		Category:   CategoryAuthorization,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusForbidden,
	}

	ErrNoCompany = &APIError{
		Code:       "E3002",
		Message:    "Create or join a company first",
		MessageID:  "error_no_company",
		Category:   CategoryAuthorization,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusForbidden,
	}

	ErrUserInactive = &APIError{
		Code:       "E3003",
		Message:    "This account has been deactivated",
		MessageID:  "error_user_inactive",
		Category:   CategoryAuthorization,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusForbidden,
	}

	// Not Found Errors (E4000-E4089)
	ErrNotFound = &APIError{
		Code:       "E4001",
		Message:    "The requested resource was not found",
		MessageID:  "error_not_found",
		Category:   CategoryNotFound,
		Severity:   SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	}

	// Conflict Errors (E4090-E4099)
	ErrConflict = &APIError{
		Code:       "E4091",
		Message:    "The resource was modified concurrently or is in an incompatible state",
		MessageID:  "error_conflict",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
	}

	ErrInvitationAccepted = &APIError{
		Code:       "E4092",
		Message:    "This invitation has already been used",
		MessageID:  "error_invitation_accepted",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
	}

	ErrInvalidTransition = &APIError{
		Code:       "E4093",
		Message:    "The work order cannot move to the requested status",
		MessageID:  "error_invalid_transition",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
	}

	ErrWorkOrderNotPending = &APIError{
		Code:       "E4094",
		Message:    "Only pending work orders can be changed",
		MessageID:  "error_work_order_not_pending",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
	}

	ErrAlreadyInCompany = &APIError{
		Code:       "E4095",
		Message:    "You already belong to a company",
		MessageID:  "error_already_in_company",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
	}

	ErrOwnerCannotLeave = &APIError{
		Code:       "E4096",
		Message:    "Company owners cannot join another company",
		MessageID:  "error_owner_cannot_leave",
		Category:   CategoryConflict,
		Severity:   SeverityWarning,
		HTTPStatus: http.StatusConflict,
	}

	// Server Errors (E5000-E5999)
	ErrInternal = &APIError{
		Code:       "E5001",
		Message:    "Internal server error occurred",
		MessageID:  "error_internal",
		Category:   CategoryInternal,
		Severity:   SeverityCritical,
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrUpstream = &APIError{
		Code:       "E5021",
		Message:    "An external service request failed",
		MessageID:  "error_upstream",
		Category:   CategoryUpstream,
		Severity:   SeverityError,
		HTTPStatus: http.StatusBadGateway,
	}
)
