// Package errors provides the structured error type shared by rxkit packages.
// Errors carry a machine-readable code, a retryable hint and an optional
// cause, and compare equal under errors.Is when their codes match.
package errors
