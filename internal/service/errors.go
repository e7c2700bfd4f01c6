package service

import "fmt"

// ValidationError reports a malformed or oversized resolution request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigurationError reports a deployment problem, such as a missing upstream
// credential, as opposed to a degraded upstream.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}
