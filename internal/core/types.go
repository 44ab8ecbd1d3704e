package core

import (
	"context"
	"io"
	"time"
)

// Canonical field names of a student record.
const (
	FieldStudentID    = "studentId"
	FieldRollNumber   = "rollNumber"
	FieldName         = "name"
	FieldBranch       = "branch"
	FieldSection      = "section"
	FieldAcademicYear = "academicYear"
	FieldDepartment   = "department"
)

// RecordFields lists the six persisted fields in output order.
var RecordFields = []string{
	FieldStudentID,
	FieldRollNumber,
	FieldName,
	FieldBranch,
	FieldSection,
	FieldAcademicYear,
}

// StudentRecord is a fully populated record, ready to be written or returned.
type StudentRecord struct {
	StudentID    string `json:"studentId"`
	RollNumber   string `json:"rollNumber"`
	Name         string `json:"name"`
	Branch       string `json:"branch"`
	Section      string `json:"section"`
	AcademicYear string `json:"academicYear"`
}

// Fields returns the record as a store payload keyed by canonical field name.
func (r StudentRecord) Fields() map[string]string {
	return map[string]string{
		FieldStudentID:    r.StudentID,
		FieldRollNumber:   r.RollNumber,
		FieldName:         r.Name,
		FieldBranch:       r.Branch,
		FieldSection:      r.Section,
		FieldAcademicYear: r.AcademicYear,
	}
}

// RawRecord is one not-yet-validated input record. Empty strings mean the
// field was absent or blank; nothing has been derived yet.
type RawRecord struct {
	StudentID    string
	RollNumber   string
	Name         string
	Branch       string
	Section      string
	AcademicYear string
	Department   string
}

// Document is one stored record as the store sees it: a native key plus
// whatever payload fields were written. Older documents may lack fields.
type Document struct {
	Key    string
	Fields map[string]string
}

// Store is the keyed document persistence capability the engine needs.
// Implementations own their concurrency control and timeouts.
type Store interface {
	// UpsertBatch writes every document atomically, fully replacing any
	// existing document with the same key.
	UpsertBatch(ctx context.Context, docs []Document) error

	// Delete removes the document at key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Scan calls fn for every stored document.
	Scan(ctx context.Context, fn func(Document) error) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Source is one tabular input submitted as part of an ingestion request.
type Source struct {
	Name   string    // File name; used in errors and to infer Format
	Format string    // Optional explicit format key: "csv", "tsv", "xlsx"
	Reader io.Reader // Raw bytes of the file
}

// RejectedRow describes a data row that was skipped.
type RejectedRow struct {
	Source  string   `json:"source"`
	Line    int      `json:"line"`
	Reason  string   `json:"reason"`
	Missing []string `json:"missing,omitempty"`
}

// SourceSummary reports per-source row counts for one ingestion.
type SourceSummary struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	Rows     int    `json:"rows"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

// IngestResult is the outcome of a successful ingestion.
type IngestResult struct {
	IngestID     string          `json:"ingestId"`
	Accepted     int             `json:"accepted"`
	Written      int             `json:"written"`
	Duplicates   int             `json:"duplicates"`
	Rejected     int             `json:"rejected"`
	RejectedRows []RejectedRow   `json:"rejectedRows,omitempty"`
	Sources      []SourceSummary `json:"sources"`
	Duration     time.Duration   `json:"-"`
}
