package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeUnsupportedFile ErrorType = "unsupported_file_type"
	ErrorTypeExtraction      ErrorType = "extraction"
	ErrorTypeOCR             ErrorType = "ocr"
	ErrorTypeSynthesis       ErrorType = "synthesis"
	ErrorTypeExternalCall    ErrorType = "external_call"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeConversion      ErrorType = "conversion"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeIO              ErrorType = "io"
	ErrorTypeState           ErrorType = "state"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any error in err's chain is a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// TypeOf returns the outermost DomainError type in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// Common error constructors
func UnsupportedFileError(ext string) *DomainError {
	return NewError(ErrorTypeUnsupportedFile, fmt.Sprintf("unsupported file type %q", ext), nil)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func OCRError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCR, message, err)
}

func SynthesisError(message string, err error) *DomainError {
	return NewError(ErrorTypeSynthesis, message, err)
}

func ExternalCallError(message string, err error) *DomainError {
	return NewError(ErrorTypeExternalCall, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConversionError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversion, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func StateError(message string) *DomainError {
	return NewError(ErrorTypeState, message, nil)
}
