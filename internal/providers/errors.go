package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"unicode/utf8"
)

// ErrorKind classifies a gateway failure for retry decisions.
type ErrorKind int

const (
	// KindTransient covers rate limits, timeouts, server errors and broken
	// connections. Retried.
	KindTransient ErrorKind = iota
	// KindPermanent covers auth failures, bad requests and oversized payloads.
	// Never retried.
	KindPermanent
	// KindParse covers malformed or truncated model output. Retried, since a
	// second sample may be well formed.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindParse:
		return "parse"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// GatewayError is returned by every Extractor for failures it can classify.
type GatewayError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int // HTTP status, 0 if none
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Classify returns the kind of err. Context cancellation is permanent,
// unclassified errors are transient.
func Classify(err error) ErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}
	return KindTransient
}

// IsRetryable reports whether a failed gateway call is worth repeating.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err) != KindPermanent
}

// classifyStatus maps an HTTP status code to an error kind.
func classifyStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return KindTransient
	case 520, 521, 522, 523, 524: // Cloudflare errors
		return KindTransient
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusRequestEntityTooLarge,
		http.StatusUnprocessableEntity:
		return KindPermanent
	}
	if statusCode >= 500 {
		return KindTransient
	}
	if statusCode >= 400 {
		return KindPermanent
	}
	return KindTransient
}

// maxErrorBody caps the response body kept in an error message.
const maxErrorBody = 512

func statusError(provider string, statusCode int, body string) *GatewayError {
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "...[truncated]"
	}
	return &GatewayError{
		Kind:       classifyStatus(statusCode),
		Provider:   provider,
		StatusCode: statusCode,
		Message:    body,
	}
}

// transportError wraps a failure to reach the provider at all.
func transportError(provider string, err error) *GatewayError {
	kind := KindTransient
	if errors.Is(err, context.Canceled) {
		kind = KindPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GatewayError{Kind: KindTransient, Provider: provider, Message: "request timed out", Err: err}
	}
	return &GatewayError{Kind: kind, Provider: provider, Message: "request failed", Err: err}
}

func parseError(provider, message string, err error) *GatewayError {
	return &GatewayError{Kind: KindParse, Provider: provider, Message: message, Err: err}
}

func permanentError(provider, message string) *GatewayError {
	return &GatewayError{Kind: KindPermanent, Provider: provider, Message: message}
}
