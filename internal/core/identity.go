package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNamePrefix is the placeholder name template used when a record has
// no name: "<prefix> <rollNumber>".
const DefaultNamePrefix = "Student"

// DeriveStudentID computes the identifier of a record that did not supply
// one: branch, section, academicYear and rollNumber joined by hyphens,
// lower-cased, with runs of internal whitespace replaced by an underscore.
// It is a pure function of its inputs, which makes re-ingestion idempotent.
//
//	DeriveStudentID("CS", "A", "2024", "7")          // "cs-a-2024-7"
//	DeriveStudentID("Mech Eng", "B", "2023", "12")   // "mech_eng-b-2023-12"
func DeriveStudentID(branch, section, academicYear, rollNumber string) string {
	parts := []string{branch, section, academicYear, rollNumber}
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), "_")
	}
	return cases.Lower(language.Und).String(strings.Join(parts, "-"))
}

// IdentifierResolver turns a validated raw record into a StudentRecord.
type IdentifierResolver struct {
	NamePrefix string
}

// Resolve fills studentId and name. A supplied studentId is authoritative and
// only whitespace-trimmed; it is never recomputed.
func (r IdentifierResolver) Resolve(raw RawRecord) StudentRecord {
	rec := StudentRecord{
		StudentID:    strings.TrimSpace(raw.StudentID),
		RollNumber:   strings.TrimSpace(raw.RollNumber),
		Name:         strings.TrimSpace(raw.Name),
		Branch:       strings.TrimSpace(raw.Branch),
		Section:      strings.TrimSpace(raw.Section),
		AcademicYear: strings.TrimSpace(raw.AcademicYear),
	}
	if rec.StudentID == "" {
		rec.StudentID = DeriveStudentID(rec.Branch, rec.Section, rec.AcademicYear, rec.RollNumber)
	}
	if rec.Name == "" {
		rec.Name = PlaceholderName(r.NamePrefix, rec.RollNumber)
	}
	return rec
}

// PlaceholderName builds the default name for a record without one.
func PlaceholderName(prefix, rollNumber string) string {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	return prefix + " " + rollNumber
}
