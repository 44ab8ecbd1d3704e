package core

// errors.go defines the engine's error taxonomy.
//
// Each typed error matches exactly one sentinel through errors.Is, so callers
// can branch on the kind without caring about the concrete type:
//
//	if errors.Is(err, core.ErrMissingRequiredHeaders) { ... }
//
// Input errors are always raised before the store is touched. Store errors
// are only raised after submission.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedInput         = errors.New("malformed input")
	ErrMissingRequiredHeaders = errors.New("missing required headers")
	ErrRowRejected            = errors.New("row rejected")
	ErrNoValidRecords         = errors.New("no valid records")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrValidation             = errors.New("validation failed")
)

// MalformedInputError reports a source that could not be read as a table.
// It is fatal for the whole request.
type MalformedInputError struct {
	Source string
	Line   int // 0 when not tied to a line
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "malformed input in %q", e.Source)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

func (e *MalformedInputError) Unwrap() error { return e.Err }

// MissingHeadersError reports a source whose header row lacks required columns.
type MissingHeadersError struct {
	Source  string
	Missing []string
}

func (e *MissingHeadersError) Error() string {
	return fmt.Sprintf("source %q is missing required headers: %s", e.Source, strings.Join(e.Missing, ", "))
}

func (e *MissingHeadersError) Is(target error) bool { return target == ErrMissingRequiredHeaders }

func (r RejectedRow) Error() string {
	return fmt.Sprintf("%s line %d: %s", r.Source, r.Line, r.Reason)
}

func (r RejectedRow) Is(target error) bool { return target == ErrRowRejected }

// NoValidRecordsError is returned when every row of a well-formed request was
// rejected (or there were no data rows at all).
type NoValidRecordsError struct {
	Rejected int
}

func (e *NoValidRecordsError) Error() string {
	return fmt.Sprintf("no valid records found (%d rows rejected)", e.Rejected)
}

func (e *NoValidRecordsError) Is(target error) bool { return target == ErrNoValidRecords }

// InvalidRecordError is the single-record add path's validation failure.
type InvalidRecordError struct {
	Missing []string
	Reason  string // Set when the body itself could not be read
}

func (e *InvalidRecordError) Error() string {
	if e.Reason != "" {
		return "invalid record: " + e.Reason
	}
	return "invalid record: missing required fields: " + strings.Join(e.Missing, ", ")
}

func (e *InvalidRecordError) Is(target error) bool { return target == ErrValidation }

// StoreError wraps any failure reported by the backing store. Committed is
// the number of records known to be written before the failure; it is only
// meaningful for ingestion and may be non-zero when the request spanned more
// than one store batch.
type StoreError struct {
	Op        string
	Committed int
	Total     int
	Err       error
}

func (e *StoreError) Error() string {
	if e.Total > 0 {
		return fmt.Sprintf("store %s failed after %d of %d records: %v", e.Op, e.Committed, e.Total, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *StoreError) Unwrap() error { return e.Err }

// Partial reports whether some records were committed before the failure.
func (e *StoreError) Partial() bool { return e.Committed > 0 }
