package apperr

import "fmt"

type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// ConfigurationError means a source client cannot be constructed, usually
// a missing credential. It is fatal for that source only: the ingestion
// job records it and moves on.
type ConfigurationError struct {
	Source  string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source %s misconfigured: %s", e.Source, e.Message)
}

func NewConfiguration(source, msg string) *ConfigurationError {
	return &ConfigurationError{Source: source, Message: msg}
}

// UnsupportedSourceError is returned by the source factory for names
// outside the known set. Rejected at the boundary, not at first use.
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported news source: %s", e.Source)
}

func NewUnsupportedSource(source string) *UnsupportedSourceError {
	return &UnsupportedSourceError{Source: source}
}

// TransientFetchError marks network and rate-limit failures as retryable.
// The retry policy retries these; everything else fails fast.
type TransientFetchError struct {
	Err error
}

func (e *TransientFetchError) Error() string {
	return "transient fetch failure: " + e.Err.Error()
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

func NewTransient(err error) *TransientFetchError {
	return &TransientFetchError{Err: err}
}

// ParseError means a model response could not be decoded even after
// fallback extraction.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func NewParse(msg string, err error) *ParseError {
	return &ParseError{Message: msg, Err: err}
}

// NotFoundError covers lookups of jobs and articles by identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}
