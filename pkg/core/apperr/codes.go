// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     apperr
// Description: Error codes for the translation pipeline
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package apperr

// Code represents a structured error code for categorizing errors
type Code string

const (
	CodeUnknown  Code = "UNKNOWN"
	CodeInternal Code = "INTERNAL"

	// Pipeline stages
	CodeEmptyInput        Code = "EMPTY_INPUT"
	CodeModelUnavailable  Code = "MODEL_UNAVAILABLE"
	CodeRecognitionFailed Code = "RECOGNITION_FAILED"
	CodeTranslationFailed Code = "TRANSLATION_FAILED"
	CodeSynthesisFailed   Code = "SYNTHESIS_FAILED"

	// Configuration
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// Collaborators
	CodeCaptureFailed Code = "CAPTURE_FAILED"
	CodeStorageFailed Code = "STORAGE_FAILED"
	CodeArchiveFailed Code = "ARCHIVE_FAILED"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// Fatal reports whether an error with this code aborts a processing cycle.
// Synthesis failures are best-effort and only logged.
func (c Code) Fatal() bool {
	return c != CodeSynthesisFailed
}
