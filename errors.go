package pagetl

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable indicates the host does not support detection or translation.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrUnsupportedLanguagePair indicates the translator cannot serve the detected pair.
	ErrUnsupportedLanguagePair = errors.New("unsupported language pair")
	// ErrNoTargetFound indicates there is no active content surface to translate.
	ErrNoTargetFound = errors.New("no active target found")
	// ErrDetectionUnsupported indicates the host lacks a language detector.
	ErrDetectionUnsupported = errors.New("language detection not supported")
	// ErrDetectionFailed indicates the detector returned no candidates.
	ErrDetectionFailed = errors.New("language detection returned no result")
	// ErrTranslatorCreateFailed indicates translator creation exhausted its retries.
	ErrTranslatorCreateFailed = errors.New("translator creation failed")
	// ErrUnitTranslationFailed indicates a unit could not be translated.
	ErrUnitTranslationFailed = errors.New("unit translation failed")
	// ErrEmptyTranslation indicates a capability returned nothing for non-empty text.
	ErrEmptyTranslation = errors.New("empty translation")
	// ErrEmptyText indicates a free-text translation request without text.
	ErrEmptyText = errors.New("no text to translate")
	// ErrRunInProgress indicates a run was started while another is still in flight.
	ErrRunInProgress = errors.New("translation run already in progress")
)

// TranslationError is the base error type for run failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a capability backend failure (API error, rate limit, etc.).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a document processing failure (parse error, etc.).
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// TranslatorCreateError reports a translator that could not be created.
type TranslatorCreateError struct {
	Pair     LanguagePair
	Attempts int
	Cause    error
}

func (e *TranslatorCreateError) Error() string {
	msg := fmt.Sprintf("translator creation for %s failed after %d attempt(s)", e.Pair, e.Attempts)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *TranslatorCreateError) Unwrap() []error {
	return []error{ErrTranslatorCreateFailed, e.Cause}
}

// UnitTranslationError reports the unit a run stopped at.
type UnitTranslationError struct {
	UnitID string
	Index  int // Zero-based position in extraction order
	Cause  error
}

func (e *UnitTranslationError) Error() string {
	return fmt.Sprintf("translating unit %s (#%d): %v", e.UnitID, e.Index+1, e.Cause)
}

func (e *UnitTranslationError) Unwrap() []error {
	return []error{ErrUnitTranslationFailed, e.Cause}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are never retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return false
}
