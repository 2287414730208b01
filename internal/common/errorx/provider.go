package errorx

import (
	"errors"
	"fmt"
	"strings"
)

// Provider names used in ProviderError and translation ids
const (
	ProviderFirebase    = "firebase"
	ProviderBigCommerce = "bigcommerce"
	ProviderStripe      = "stripe"
	ProviderSendGrid    = "sendgrid"
)

// ProviderError is a failure reported by an external integration.
// Kind selects the API error surfaced to clients and defaults to ErrUpstream.
type ProviderError struct {
	Provider   string
	Code       string
	HTTPStatus int
	Message    string
	Kind       *APIError
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error %s (status %d): %s", e.Provider, e.Code, e.HTTPStatus, e.Message)
}

// MessageID is the translation id for this provider code
func (e *ProviderError) MessageID() string {
	return e.Provider + "_" + strings.ToLower(e.Code)
}

// Is lets errors.Is match the surfaced kind
func (e *ProviderError) Is(target error) bool {
	return errors.Is(e.kind(), target)
}

func (e *ProviderError) kind() *APIError {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrUpstream
}

// AsProviderError unwraps a ProviderError from err
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
