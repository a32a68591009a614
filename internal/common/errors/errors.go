// internal/common/errors/errors.go

// Package errors provides standardized error handling for the ticket pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeEmbeddingServiceFailed ErrorCode = "EMBEDDING_SERVICE_ERROR"
	ErrCodeReasoningServiceFailed ErrorCode = "REASONING_SERVICE_ERROR"
	ErrCodeVectorStoreFailed      ErrorCode = "VECTOR_STORE_ERROR"
	ErrCodeCandidateParseFailed   ErrorCode = "CANDIDATE_PARSE_FAILED"
	ErrCodeSelectionParseFailed   ErrorCode = "SELECTION_PARSE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// RejectionSignal is not an error condition in the taxonomy sense: it is the
// defined terminal outcome for a query with no actionable skills. It travels
// the error return path so the chain can short-circuit, but the orchestrator
// converts it to Rejected, never to Failed.
type RejectionSignal struct {
	Reason string
}

func (r *RejectionSignal) Error() string {
	return fmt.Sprintf("rejected: %s", r.Reason)
}

// AsRejection unwraps a RejectionSignal from an error chain.
func AsRejection(err error) (*RejectionSignal, bool) {
	var r *RejectionSignal
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// CodeOf returns the StandardError code carried by err, or "UNKNOWN".
func CodeOf(err error) ErrorCode {
	var s *StandardError
	if errors.As(err, &s) {
		return s.Code
	}
	return "UNKNOWN"
}

// NewValidationFailedError creates a non-retryable validation error. Used for
// malformed normalizer output, forbidden identity tokens, and any response the
// core refuses to parse.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Response validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingServiceError creates a fatal embedding service error.
func NewEmbeddingServiceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingServiceFailed,
		Message:   "Embedding service call failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReasoningServiceError creates a fatal reasoning service error.
func NewReasoningServiceError(call string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReasoningServiceFailed,
		Message:   "Reasoning service call failed",
		Details:   fmt.Sprintf("call: %s, error: %s", call, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVectorStoreError creates a fatal vector store error.
func NewVectorStoreError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVectorStoreFailed,
		Message:   "Vector store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCandidateParseFailedError creates a non-retryable error for a corrupted
// candidate chunk. A single bad chunk fails the whole retrieval stage; a
// malformed candidate must never propagate.
func NewCandidateParseFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateParseFailed,
		Message:   "Candidate chunk could not be parsed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSelectionParseFailedError creates a non-retryable error for malformed
// selection output. No fallback candidate is guessed.
func NewSelectionParseFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSelectionParseFailed,
		Message:   "Selection output could not be parsed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a notification delivery error. The
// pipeline logs these; it never retries and never re-enters the chain.
func NewNotificationSendFailedError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("kind: %s, error: %s", kind, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
