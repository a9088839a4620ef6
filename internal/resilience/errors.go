// Package resilience provides the retry envelope, error taxonomy, and
// circuit breaker used around every external LLM call.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout, provider overload).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// InvalidInputError marks caller-supplied input the engine cannot process.
// It is never retried and surfaces before any run state is created.
type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string { return e.Msg }

// NewInvalidInputError builds an InvalidInputError from a message.
func NewInvalidInputError(msg string) *InvalidInputError {
	return &InvalidInputError{Msg: msg}
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// ProviderFaultError marks an LLM call that failed after the retry budget
// was exhausted. Recovery is component-specific: the classifier degrades to
// "other", the extractor yields a nil record, the validator fails the job's
// validation entry.
type ProviderFaultError struct {
	Stage string
	Err   error
}

func (e *ProviderFaultError) Error() string {
	return e.Stage + ": provider fault: " + e.Err.Error()
}

func (e *ProviderFaultError) Unwrap() error { return e.Err }

// NewProviderFaultError wraps the terminal error from a retried stage.
func NewProviderFaultError(stage string, err error) *ProviderFaultError {
	return &ProviderFaultError{Stage: stage, Err: err}
}

// SchemaFaultError marks a structured LLM response that parsed but violated
// its contract (wrong verdict count, missing required fields). It propagates
// like a provider fault but is logged distinctly so it can be attributed to
// prompt or model drift rather than transport.
type SchemaFaultError struct {
	Stage string
	Msg   string
}

func (e *SchemaFaultError) Error() string {
	return e.Stage + ": schema fault: " + e.Msg
}

// NewSchemaFaultError builds a SchemaFaultError.
func NewSchemaFaultError(stage, msg string) *SchemaFaultError {
	return &SchemaFaultError{Stage: stage, Msg: msg}
}

// IsSchemaFault reports whether err is a SchemaFaultError.
func IsSchemaFault(err error) bool {
	var se *SchemaFaultError
	return errors.As(err, &se)
}

// httpStatuser is implemented by provider errors that carry an HTTP status.
type httpStatuser interface {
	HTTPStatus() int
}

// IsRetriable reports whether an error is worth another attempt: an explicit
// TransientError, a retriable HTTP status, a network timeout, a connection
// failure, or a provider timeout. Invalid input and schema faults are never
// retriable.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if IsInvalidInput(err) || IsSchemaFault(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Per-attempt timeout: the next attempt gets a fresh deadline.
		return true
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var hs httpStatuser
	if errors.As(err, &hs) {
		return IsRetriableHTTPStatus(hs.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"overloaded",
		"rate limit",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRetriableHTTPStatus reports whether the status code indicates a
// transient server-side condition.
func IsRetriableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	default:
		return false
	}
}
