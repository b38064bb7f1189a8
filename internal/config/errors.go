package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError describes a problem with a configuration file or a
// configuration value.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`  // Full path to the file that caused the error
	FileName  string `json:"fileName"`  // Base name of the file
	ErrorType string `json:"errorType"` // Type of error (parse, validation, io)
	Field     string `json:"field"`     // Offending field, for validation errors
	Message   string `json:"message"`
	Details   string `json:"details"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	name := ce.FileName
	if name == "" {
		name = "configuration"
	}
	if ce.Field != "" {
		return fmt.Sprintf("[%s] %s: field '%s': %s", ce.ErrorType, name, ce.Field, ce.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ce.ErrorType, name, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	parts := []string{fmt.Sprintf("Configuration Error in %s", ce.FileName)}
	if ce.FilePath != "" {
		parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	}
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	if ce.Field != "" {
		parts = append(parts, fmt.Sprintf("  Field: %s", ce.Field))
	}
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))
	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}
	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}

	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}

	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Add adds a new error to the collection
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// NewConfigurationError creates a new configuration error with basic information
func NewConfigurationError(filePath, fileName, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		FileName:  fileName,
		ErrorType: errorType,
		Message:   message,
	}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError
// or a ConfigurationErrorCollection.
func IsConfigurationError(err error) bool {
	var single ConfigurationError
	var collection ConfigurationErrorCollection
	return errors.As(err, &single) || errors.As(err, &collection)
}
