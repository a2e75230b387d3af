package bulkemail

import "fmt"

type ErrorReason string

const (
	REASON_UNKNOWN           ErrorReason = "UNKNOWN_ERROR"
	REASON_RATE_LIMITED      ErrorReason = "RATE_LIMITED"
	REASON_INVALID_EMAIL     ErrorReason = "INVALID_EMAIL"
	REASON_UNVERIFIED_DOMAIN ErrorReason = "UNVERIFIED_DOMAIN"
	REASON_MESSAGE_REJECTED  ErrorReason = "MESSAGE_REJECTED"
	REASON_SERVICE_ERROR     ErrorReason = "SERVICE_ERROR"
	REASON_VALIDATION_ERROR  ErrorReason = "VALIDATION_ERROR"
)

// ValidationRule names the rule a validation error violated, so callers can
// fix the offending field without parsing the message text.
type ValidationRule string

const (
	RULE_EMPTY_VALUE       ValidationRule = "EMPTY_VALUE"
	RULE_MALFORMED_EMAIL   ValidationRule = "MALFORMED_EMAIL"
	RULE_EXCEEDS_MAX_COUNT ValidationRule = "EXCEEDS_MAX_COUNT"
	RULE_OUT_OF_RANGE      ValidationRule = "OUT_OF_RANGE"
	RULE_MISSING_VALUE     ValidationRule = "MISSING_VALUE"
)

var _ error = &Error{}

type Error struct {
	Message string
	Reason  ErrorReason
	// Field and Rule are set on validation errors raised while building a
	// mail object, and empty on errors categorized from a provider response.
	Field string
	Rule  ValidationRule
	Cause error
}

func (e *Error) Error() string {
	var s string
	if e.Field != "" {
		s = fmt.Sprintf("%s: field %q violates %s: %s.", e.Reason, e.Field, e.Rule, e.Message)
	} else {
		s = fmt.Sprintf("%s: %s.", e.Reason, e.Message)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" Cause: %s", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Message: message,
		Reason:  reason,
		Cause:   cause,
	}
}

func NewUnknownError(message string, cause error) *Error {
	return newError(REASON_UNKNOWN, message, cause)
}

func NewRateLimitedError(message string, cause error) *Error {
	return newError(REASON_RATE_LIMITED, message, cause)
}

func NewInvalidEmailError(message string, cause error) *Error {
	return newError(REASON_INVALID_EMAIL, message, cause)
}

func NewUnverifiedDomainError(message string, cause error) *Error {
	return newError(REASON_UNVERIFIED_DOMAIN, message, cause)
}

func NewMessageRejectedError(message string, cause error) *Error {
	return newError(REASON_MESSAGE_REJECTED, message, cause)
}

func NewServiceError(message string, cause error) *Error {
	return newError(REASON_SERVICE_ERROR, message, cause)
}

func NewValidationError(field string, rule ValidationRule, message string) *Error {
	return &Error{
		Message: message,
		Reason:  REASON_VALIDATION_ERROR,
		Field:   field,
		Rule:    rule,
	}
}
