package errorx

import (
	"errors"

	"github.com/catalogpilot/catalogpilot/internal/i18n"
)

// Describe returns a friendly localized message for err.
// Provider codes are looked up as "<provider>_<code>", then "<provider>_default".
func Describe(tr *i18n.I18n, err error, lang string) string {
	if err == nil {
		return ""
	}

	if pe, ok := AsProviderError(err); ok {
		if tr != nil {
			data := map[string]any{"Detail": pe.Message}
			if msg, found := tr.Translate(pe.MessageID(), lang, data); found {
				return msg
			}
			if msg, found := tr.Translate(pe.Provider+"_default", lang, data); found {
				return msg
			}
		}
		if pe.Message != "" {
			return pe.Message
		}
		return pe.kind().Message
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if tr != nil && apiErr.MessageID != "" {
			if msg, found := tr.Translate(apiErr.MessageID, lang, nil); found {
				return msg
			}
		}
		return apiErr.Message
	}
	return err.Error()
}

// Localize converts err to an APIError carrying a translated message
func Localize(tr *i18n.I18n, err error, lang string) *APIError {
	var out *APIError
	if pe, ok := AsProviderError(err); ok {
		out = pe.kind().clone()
		out.Details = map[string]any{"provider": pe.Provider, "providerCode": pe.Code}
	} else {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = ErrInternal
			err = ErrInternal
		}
		out = apiErr.clone()
	}
	out.Message = Describe(tr, err, lang)
	return out
}
