package translation

import (
	"errors"
	"fmt"
	"strings"
)

const maxErrorBodyExcerpt = 256

// ProviderTransportError reports a non-success response from a provider.
type ProviderTransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderTransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s transport: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s transport: status %d: %s", e.Provider, e.StatusCode, body)
}

func (e *ProviderTransportError) Unwrap() error {
	return e.Err
}

// ProviderShapeError reports a response body the provider client could not interpret.
type ProviderShapeError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response shape: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s response shape: %s", e.Provider, e.Reason)
}

func (e *ProviderShapeError) Unwrap() error {
	return e.Err
}

// UnitTranslationError scopes a provider failure to one text unit of a page pass.
type UnitTranslationError struct {
	Index int
	Text  string
	Err   error
}

func (e *UnitTranslationError) Error() string {
	return fmt.Sprintf("translate unit %d: %v", e.Index, e.Err)
}

func (e *UnitTranslationError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err came from a provider response.
func IsProviderError(err error) bool {
	var transportErr *ProviderTransportError
	var shapeErr *ProviderShapeError
	return errors.As(err, &transportErr) || errors.As(err, &shapeErr)
}

func bodyExcerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxErrorBodyExcerpt {
		return text
	}
	return text[:maxErrorBodyExcerpt] + "..."
}
