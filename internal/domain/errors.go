package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the pipeline, storage and transport layers.
var (
	ErrNoEntries          = errors.New("no entries for period")
	ErrModelUnavailable   = errors.New("summarization model unavailable")
	ErrInvalidModelOutput = errors.New("invalid model output")
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage failure")
)

// NoEntriesError is returned when a period has nothing to summarize.
type NoEntriesError struct {
	Period string
	Start  string
}

func (e *NoEntriesError) Error() string {
	return fmt.Sprintf("no entries for %s period starting %s", e.Period, e.Start)
}

func (e *NoEntriesError) Unwrap() error { return ErrNoEntries }

// ModelUnavailableError reports that the model call could not complete.
// StatusCode is set when the provider answered with a non-2xx response.
type ModelUnavailableError struct {
	StatusCode int
	Err        error
}

func (e *ModelUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("summarization model unavailable (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("summarization model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() []error { return []error{ErrModelUnavailable, e.Err} }

// InvalidModelOutputError records a model contract violation.
// Fatal violations (malformed output) abort generation; non-fatal ones
// (an unknown entry id) are stripped and only reported.
type InvalidModelOutputError struct {
	SentenceIndex int
	EntryID       string
	Reason        string
	Fatal         bool
}

func (e *InvalidModelOutputError) Error() string {
	if e.EntryID != "" {
		return fmt.Sprintf("invalid model output: sentence %d: %s: %q", e.SentenceIndex, e.Reason, e.EntryID)
	}
	if e.SentenceIndex >= 0 {
		return fmt.Sprintf("invalid model output: sentence %d: %s", e.SentenceIndex, e.Reason)
	}
	return "invalid model output: " + e.Reason
}

func (e *InvalidModelOutputError) Unwrap() error { return ErrInvalidModelOutput }

// NewMalformedOutputError creates a fatal InvalidModelOutputError.
// Use sentence -1 when the problem is not tied to one sentence.
func NewMalformedOutputError(sentence int, reason string) *InvalidModelOutputError {
	return &InvalidModelOutputError{SentenceIndex: sentence, Reason: reason, Fatal: true}
}

// StorageError wraps a failed storage operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// ValidationError describes malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
