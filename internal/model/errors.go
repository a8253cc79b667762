package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks on transport failures
var (
	ErrTimeout    = errors.New("timeout contacting webservice")
	ErrNoResponse = errors.New("no response from webservice, check connectivity")
)

// AuthFailureMessage is the fixed text of every AuthError
const AuthFailureMessage = "webservice authentication failed: check login, password and municipal code"

// ValidationError lists every rule an invoice request violates
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid NFS-e data:\n" + strings.Join(e.Violations, "\n")
}

// NewValidationError creates a validation error from the collected violations
func NewValidationError(violations []string) *ValidationError {
	return &ValidationError{Violations: violations}
}

// TransportKind classifies how the HTTP exchange failed
type TransportKind string

const (
	TransportTimeout    TransportKind = "timeout"
	TransportHTTPStatus TransportKind = "http_status"
	TransportNoResponse TransportKind = "no_response"
	TransportNetwork    TransportKind = "network"
)

// TransportError represents failures talking to the webservice
type TransportError struct {
	Kind       TransportKind
	StatusCode int
	Status     string
	Cause      error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case TransportTimeout:
		return ErrTimeout.Error()
	case TransportNoResponse:
		return ErrNoResponse.Error()
	case TransportHTTPStatus:
		return fmt.Sprintf("webservice HTTP error %d %s", e.StatusCode, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("webservice communication error: %v", e.Cause)
	}
	return "webservice communication error"
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is matches the transport sentinels
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == TransportTimeout
	case ErrNoResponse:
		return e.Kind == TransportNoResponse
	}
	return false
}

// Retryable reports that the same request may succeed later
func (e *TransportError) Retryable() bool { return true }

// NewTransportError creates a new transport error
func NewTransportError(kind TransportKind, cause error) *TransportError {
	return &TransportError{Kind: kind, Cause: cause}
}

// ProtocolError represents a reply that is not XML or text at all
type ProtocolError struct {
	ContentType string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected webservice reply content type %q", e.ContentType)
}

// AuthError represents a rejected login, detected before parsing
type AuthError struct{}

func (e *AuthError) Error() string {
	return AuthFailureMessage
}

// BusinessError is a reply whose code is not [1]. Its message is the
// webservice text, unchanged.
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError creates a business error
func NewBusinessError(code, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}

// ParseError represents a reply that could not be decoded
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("could not parse webservice reply: %s (%v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("could not parse webservice reply: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(message string, cause error) *ParseError {
	return &ParseError{Message: message, Cause: cause}
}

// NotFoundError is returned when a query by number yields nothing
type NotFoundError struct {
	Number string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("invoice %s not found", e.Number)
}

// IsRetryable reports whether err is worth retrying unchanged
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable()
}
