// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the bootstrap pipeline
var (
	ErrConnection        = errors.New("device connection failed")
	ErrNotConnected      = errors.New("device not connected")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrRender            = errors.New("config rendering failed")
	ErrCommit            = errors.New("config commit failed")
	ErrUnsupportedDriver = errors.New("unsupported driver")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrValidationFailed  = errors.New("validation failed")
	ErrTimeout           = errors.New("operation timed out")
	ErrPartialRun        = errors.New("run completed with failed devices")
)

// DeviceError ties a failure to the device and phase it happened in
type DeviceError struct {
	Device string
	Phase  string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Phase, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a device error
func NewDeviceError(device, phase string, err error) *DeviceError {
	return &DeviceError{
		Device: device,
		Phase:  phase,
		Err:    err,
	}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
