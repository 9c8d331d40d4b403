package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents request timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeBlocked represents a seller refusing requests outright
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeParsing represents content parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeStorage represents persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeNotifier represents notification delivery errors
	ErrorTypeNotifier ErrorType = "notifier"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// MonitorError represents a monitoring-specific error
type MonitorError struct {
	Type    ErrorType
	Seller  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *MonitorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Seller, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Seller, e.Message)
}

// Unwrap returns the underlying error
func (e *MonitorError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth retrying
func (e *MonitorError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// IsPermanentBlock returns true if the seller has refused the request outright
func (e *MonitorError) IsPermanentBlock() bool {
	return e.Type == ErrorTypeBlocked
}

// AsMonitorError extracts a MonitorError from an error chain
func AsMonitorError(err error) (*MonitorError, bool) {
	var me *MonitorError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// New creates a new MonitorError
func New(errType ErrorType, seller, message string, err error) *MonitorError {
	return &MonitorError{
		Type:    errType,
		Seller:  seller,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(seller, message string, err error) *MonitorError {
	return New(ErrorTypeNetwork, seller, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(seller, message string, err error) *MonitorError {
	return New(ErrorTypeTimeout, seller, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(seller string, wait time.Duration) *MonitorError {
	message := fmt.Sprintf("rate limited for %v", wait)
	return New(ErrorTypeRateLimit, seller, message, nil)
}

// NewBlocked creates a new blocked error
func NewBlocked(seller, message string) *MonitorError {
	return New(ErrorTypeBlocked, seller, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(seller, message string, err error) *MonitorError {
	return New(ErrorTypeParsing, seller, message, err)
}

// NewCache creates a new cache error
func NewCache(seller, message string, err error) *MonitorError {
	return New(ErrorTypeCache, seller, message, err)
}

// NewStorage creates a new storage error
func NewStorage(message string, err error) *MonitorError {
	return New(ErrorTypeStorage, "", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(seller, message string, err error) *MonitorError {
	return New(ErrorTypePublisher, seller, message, err)
}

// NewNotifier creates a new notifier error
func NewNotifier(message string, err error) *MonitorError {
	return New(ErrorTypeNotifier, "", message, err)
}

// NewValidation creates a new validation error
func NewValidation(seller, message string) *MonitorError {
	return New(ErrorTypeValidation, seller, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *MonitorError {
	return New(ErrorTypeConfiguration, "", message, err)
}
