// Package reconerror defines the error taxonomy shared by the ingestion
// pipeline, the matching engine and the review queue. Callers classify
// failures with errors.As plus the IsTerminal / IsTransient helpers rather
// than by string matching.
package reconerror

import (
	"errors"
	"fmt"
)

// ValidationError reports input that can never become a valid document or
// request: unknown document type, malformed identifiers, bad date ranges.
// Always terminal.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed for %s='%s': %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ExtractionFailure reports that an extractor could not produce structured
// fields from document content. The document survives with a degraded,
// zero-confidence result; the failure is recorded, not thrown away.
type ExtractionFailure struct {
	DocumentID string
	DocType    string
	Reason     string
	Err        error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extraction failed for document %s (%s): %s",
		e.DocumentID, e.DocType, e.Reason)
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// DuplicateDocumentError reports a fingerprint collision inside the dedupe
// window. The colliding document is failed; no transaction is created.
type DuplicateDocumentError struct {
	DocumentID  string
	DuplicateOf string
	Fingerprint string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document %s duplicates %s (fingerprint %s)",
		e.DocumentID, e.DuplicateOf, e.Fingerprint)
}

// AmbiguousMatchError reports a statement line whose top match candidates
// score within the tie margin of each other. The line goes to review with
// every tied candidate attached; nothing is consumed.
type AmbiguousMatchError struct {
	LineID       string
	Strategy     string
	CandidateIDs []string
	Score        float64
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous %s match for statement line %s: %d candidates at score %.4f",
		e.Strategy, e.LineID, len(e.CandidateIDs), e.Score)
}

// ReconciliationConflictError reports an attempt to link an entity that
// already carries an active reconciliation record. Carries the record so the
// caller can offer a void-and-relink.
type ReconciliationConflictError struct {
	LineID           string
	TransactionID    string
	ExistingRecordID string
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("reconciliation conflict for line %s / transaction %s: active record %s exists",
		e.LineID, e.TransactionID, e.ExistingRecordID)
}

// TransientStorageError wraps a storage fault that is expected to clear on
// retry (locked database, interrupted I/O). Becomes terminal only once the
// retry budget is exhausted.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage failure during %s: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	var tse *TransientStorageError
	return errors.As(err, &tse)
}

// IsTerminal reports whether err can never succeed on retry and must fail the
// document. Transient faults are not terminal here; the pipeline fails them
// itself after the retry budget runs out.
func IsTerminal(err error) bool {
	var ve *ValidationError
	var de *DuplicateDocumentError
	return errors.As(err, &ve) || errors.As(err, &de)
}
