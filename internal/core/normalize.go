package core

// normalize.go is the field normalizer: it canonicalizes header names and
// cell values so inputs with inconsistent capitalization, stray whitespace or
// byte-order marks are accepted uniformly.
//
// Header names are trimmed and Unicode case-folded. Cell values are trimmed
// and Excel text-formula wrappers (="007") are removed so leading zeros in
// roll numbers survive a round trip through a spreadsheet. The studentId
// value is the exception: it is trimmed and otherwise kept byte for byte.

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizedRow maps case-folded, trimmed field names to trimmed values.
type NormalizedRow map[string]string

// HeaderIndex maps case-folded header names to their column position.
type HeaderIndex map[string]int

// foldKey case-folds a field name. Casers are stateful, so one is built per call.
func foldKey(s string) string {
	return cases.Fold().String(s)
}

// NormalizeHeader canonicalizes one header cell.
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return foldKey(CleanCell(s))
}

// MakeHeaderIndex builds a HeaderIndex from a raw header row. Blank header
// cells are ignored; when a name repeats, the first column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell trims whitespace and unwraps Excel text formulas (="...").
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// studentIDKey is the folded header of the supplied identifier.
var studentIDKey = foldKey(FieldStudentID)

// cleanValue normalizes one value under its folded field name. A supplied
// studentId is authoritative, so it is only trimmed.
func cleanValue(key, v string) string {
	if key == studentIDKey {
		return strings.TrimSpace(v)
	}
	return CleanCell(v)
}

// NormalizeRow maps a physical row through the header index. Cells missing
// from the end of a short row read as empty; extra cells are ignored.
func NormalizeRow(idx HeaderIndex, cells []string) NormalizedRow {
	row := make(NormalizedRow, len(idx))
	for key, pos := range idx {
		if pos < len(cells) {
			row[key] = cleanValue(key, cells[pos])
		} else {
			row[key] = ""
		}
	}
	return row
}

// NormalizeObject normalizes a decoded JSON object. Scalar values are
// converted to strings; nested objects, arrays and null read as absent.
// When several keys fold to the same field, the first non-empty value in
// sorted key order wins.
func NormalizeObject(obj map[string]any) NormalizedRow {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := make(NormalizedRow, len(obj))
	for _, k := range keys {
		key := NormalizeHeader(k)
		if key == "" {
			continue
		}
		val := cleanValue(key, scalarString(obj[k]))
		if prev, dup := row[key]; dup && prev != "" {
			continue
		}
		row[key] = val
	}
	return row
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Get returns the value for a canonical field name.
func (r NormalizedRow) Get(field string) string {
	return r[foldKey(field)]
}

// Raw converts a normalized row into the typed pre-validation shape.
func (r NormalizedRow) Raw() RawRecord {
	return RawRecord{
		StudentID:    r.Get(FieldStudentID),
		RollNumber:   r.Get(FieldRollNumber),
		Name:         r.Get(FieldName),
		Branch:       r.Get(FieldBranch),
		Section:      r.Get(FieldSection),
		AcademicYear: r.Get(FieldAcademicYear),
		Department:   r.Get(FieldDepartment),
	}
}

// Value returns a field of the raw record by canonical name.
func (r RawRecord) Value(field string) string {
	switch field {
	case FieldStudentID:
		return r.StudentID
	case FieldRollNumber:
		return r.RollNumber
	case FieldName:
		return r.Name
	case FieldBranch:
		return r.Branch
	case FieldSection:
		return r.Section
	case FieldAcademicYear:
		return r.AcademicYear
	case FieldDepartment:
		return r.Department
	}
	return ""
}
