package core

// validation.go decides which rows are admitted into an ingestion.
//
// Validation happens at two levels:
//  1. Header validation: every required column must be present in a source's
//     header row. A failure here is fatal for the whole request.
//  2. Row validation: every required field must be non-empty. A failing row
//     is rejected and counted; the rest of the source is still processed.

import (
	"fmt"
	"strings"
)

// RequiredFields are the fields every admitted record must carry.
// studentId and name are derived when absent.
var RequiredFields = []string{
	FieldRollNumber,
	FieldBranch,
	FieldSection,
	FieldAcademicYear,
}

// RowValidator validates headers and rows against a required-field set.
type RowValidator struct {
	required []string
}

// NewRowValidator creates a validator. When requireDepartment is set the
// department column joins the required set (the stricter variant).
func NewRowValidator(requireDepartment bool) *RowValidator {
	required := append([]string(nil), RequiredFields...)
	if requireDepartment {
		required = append(required, FieldDepartment)
	}
	return &RowValidator{required: required}
}

// Required returns the required field names in canonical casing.
func (v *RowValidator) Required() []string {
	return append([]string(nil), v.required...)
}

// ValidateHeaders checks that every required column exists in the source's
// header index. Comparison is case-insensitive.
func (v *RowValidator) ValidateHeaders(source string, idx HeaderIndex) error {
	var missing []string
	for _, field := range v.required {
		if _, ok := idx[foldKey(field)]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingHeadersError{Source: source, Missing: missing}
	}
	return nil
}

// MissingFields returns the required fields that are empty in raw.
func (v *RowValidator) MissingFields(raw RawRecord) []string {
	var missing []string
	for _, field := range v.required {
		if strings.TrimSpace(raw.Value(field)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// ValidateRow returns a RejectedRow describing why raw cannot be admitted,
// or nil when it can.
func (v *RowValidator) ValidateRow(source string, line int, raw RawRecord) *RejectedRow {
	missing := v.MissingFields(raw)
	if len(missing) == 0 {
		return nil
	}
	return &RejectedRow{
		Source:  source,
		Line:    line,
		Reason:  fmt.Sprintf("empty required field: %s", strings.Join(missing, ", ")),
		Missing: missing,
	}
}
