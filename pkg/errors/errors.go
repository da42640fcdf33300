package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeExtraction represents extraction field-miss errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeParsing represents price or HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeStorage represents key-value store errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeAnalytics represents analytics transport errors
	ErrorTypeAnalytics ErrorType = "analytics"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// WorkerError represents a component-specific error
type WorkerError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *WorkerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *WorkerError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error should abort the page session.
// Nothing in this subsystem is fatal; every failure has a safe fallback.
func (e *WorkerError) IsFatal() bool {
	return false
}

// IsRetryable returns true if the error is retryable
func (e *WorkerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeStorage:
		return true
	default:
		return false
	}
}

// New creates a new WorkerError
func New(errType ErrorType, component, message string, err error) *WorkerError {
	return &WorkerError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *WorkerError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(component, message string) *WorkerError {
	return New(ErrorTypeExtraction, component, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *WorkerError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewStorage creates a new storage error
func NewStorage(component, message string, err error) *WorkerError {
	return New(ErrorTypeStorage, component, message, err)
}

// NewAnalytics creates a new analytics transport error
func NewAnalytics(message string, err error) *WorkerError {
	return New(ErrorTypeAnalytics, "analytics", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *WorkerError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewValidation creates a new validation error
func NewValidation(component, message string) *WorkerError {
	return New(ErrorTypeValidation, component, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *WorkerError {
	return New(ErrorTypeConfiguration, "", message, err)
}
