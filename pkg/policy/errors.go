package policy

import "fmt"

// NotFoundError is returned when a policy id does not exist.
type NotFoundError struct {
	PolicyID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("policy %q not found", e.PolicyID)
}

// DisabledError is returned when a disabled policy is triggered without
// force.
type DisabledError struct {
	PolicyID string
}

// Error implements the error interface.
func (e *DisabledError) Error() string {
	return fmt.Sprintf("policy %q is disabled", e.PolicyID)
}

// ValidationError is returned when a policy definition is malformed.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy [field=%s]: %s", e.Field, e.Message)
}
