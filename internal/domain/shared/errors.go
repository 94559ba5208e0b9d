package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError indicates a missing required mapping or attribute.
// It is fatal to the affected unit of work (one item, one order) but never
// to the whole run.
type ConfigurationError struct {
	Subject string // what is misconfigured, e.g. "default price type"
	Message string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Subject, e.Message)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(subject, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// RemoteError indicates a non-2xx response from one of the remote systems.
// The unit of work it interrupted is retried on the next scheduled run.
type RemoteError struct {
	System     string // "erp" or "storefront"
	StatusCode int
	Messages   []string // structured error messages from the response payload
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: request failed with status %d", e.System, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.System, e.StatusCode, strings.Join(e.Messages, "; "))
}

// NewRemoteError creates a new remote error
func NewRemoteError(system string, statusCode int, messages ...string) *RemoteError {
	return &RemoteError{System: system, StatusCode: statusCode, Messages: messages}
}

// DataIntegrityError indicates an ambiguous or duplicate match that requires
// operator attention. It is surfaced via log, report or task and never
// auto-resolved.
type DataIntegrityError struct {
	Message string
}

// Error implements the error interface
func (e *DataIntegrityError) Error() string {
	return e.Message
}

// NewDataIntegrityError creates a new data integrity error
func NewDataIntegrityError(format string, args ...any) *DataIntegrityError {
	return &DataIntegrityError{Message: fmt.Sprintf(format, args...)}
}

// ParseError indicates malformed input data, such as an unparsable phone
// number. Callers degrade gracefully by treating the field as absent.
type ParseError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// Unwrap returns the underlying parse failure
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new parse error
func NewParseError(field, value string, err error) *ParseError {
	return &ParseError{Field: field, Value: value, Err: err}
}

// IsConfiguration reports whether err is a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsRemote reports whether err is a RemoteError
func IsRemote(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

// IsDataIntegrity reports whether err is a DataIntegrityError
func IsDataIntegrity(err error) bool {
	var target *DataIntegrityError
	return errors.As(err, &target)
}

// IsParse reports whether err is a ParseError
func IsParse(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}
