package api

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a malformed builder or check configuration. It is
// returned before any workflow document is produced.
type ValidationError struct {
	// Field names the offending configuration value (e.g. "appName").
	Field string

	// Value is the rejected value, kept for error messages.
	Value string

	// Message describes why the value was rejected.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
//
// Example:
//
//	return api.NewValidationError("appName", name, "must be at most 20 characters")
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// IsValidation checks if an error is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// ReferenceError reports a DAG, task or dependency name that does not exist
// at the time it is referenced. Inside the builder this is always a
// step-ordering bug and is never retried.
type ReferenceError struct {
	// Kind is what was referenced: "dag", "task", "dependency" or "template".
	Kind string

	// Name is the name that could not be resolved (or was already taken).
	Name string

	// DAG is the DAG in which the lookup happened, if any.
	DAG string

	// Message overrides the default message.
	Message string
}

// Error implements the error interface for ReferenceError.
func (e *ReferenceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.DAG != "" {
		return fmt.Sprintf("%s %q not found in dag %q", e.Kind, e.Name, e.DAG)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// NewReferenceError creates a ReferenceError for a name missing from dag.
func NewReferenceError(kind, name, dag string) *ReferenceError {
	return &ReferenceError{Kind: kind, Name: name, DAG: dag}
}

// NewDuplicateError creates a ReferenceError for a name that is already taken.
func NewDuplicateError(kind, name, dag string) *ReferenceError {
	msg := fmt.Sprintf("%s %q already exists", kind, name)
	if dag != "" {
		msg = fmt.Sprintf("%s %q already exists in dag %q", kind, name, dag)
	}
	return &ReferenceError{Kind: kind, Name: name, DAG: dag, Message: msg}
}

// IsReference checks if an error is or wraps a ReferenceError.
func IsReference(err error) bool {
	var target *ReferenceError
	return errors.As(err, &target)
}

// TimeoutError is returned when a workload or endpoint does not become ready
// within its bound.
type TimeoutError struct {
	// Resource is the kind of thing that was waited on (e.g. "deployment").
	Resource string

	// Namespace of the resource, empty for endpoints.
	Namespace string

	// Name of the resource or URL of the endpoint.
	Name string

	// Timeout is the bound that was exceeded.
	Timeout time.Duration

	// LastState describes the last observed state, if known.
	LastState string
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	target := e.Name
	if e.Namespace != "" {
		target = e.Namespace + "/" + e.Name
	}
	msg := fmt.Sprintf("timed out after %s waiting for %s %s to become ready", e.Timeout, e.Resource, target)
	if e.LastState != "" {
		msg += " (last state: " + e.LastState + ")"
	}
	return msg
}

// IsTimeout checks if an error is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// UnexpectedClusterStateError reports a cluster that did not behave as the
// check expected, for example a delete against the wrong cluster succeeding.
type UnexpectedClusterStateError struct {
	Operation string
	Expected  string
	Observed  string
}

// Error implements the error interface for UnexpectedClusterStateError.
func (e *UnexpectedClusterStateError) Error() string {
	parts := []string{fmt.Sprintf("unexpected cluster state during %s", e.Operation)}
	if e.Expected != "" {
		parts = append(parts, "expected: "+e.Expected)
	}
	if e.Observed != "" {
		parts = append(parts, "observed: "+e.Observed)
	}
	return strings.Join(parts, "; ")
}

// IsUnexpectedClusterState checks if an error is or wraps an
// UnexpectedClusterStateError.
func IsUnexpectedClusterState(err error) bool {
	var target *UnexpectedClusterStateError
	return errors.As(err, &target)
}

// NotFoundError represents a resource not found error with contextual information.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g. "kfdef", "secret", "binding")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}
