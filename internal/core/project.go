package core

import (
	"context"
	"sort"

	"github.com/JonMunkholm/roster/internal/logging"
)

// ListAll reads every stored record and projects it into the canonical
// shape, sorted by studentId. Individual documents never fail projection;
// the only error is a StoreError from the scan itself.
func (s *Service) ListAll(ctx context.Context) ([]StudentRecord, error) {
	records := make([]StudentRecord, 0)
	err := s.store.Scan(ctx, func(doc Document) error {
		records = append(records, ProjectDocument(doc))
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Error("list students failed", "error", err)
		return nil, &StoreError{Op: "scan", Err: err}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StudentID < records[j].StudentID
	})
	return records, nil
}

// ProjectDocument converts a stored document to a StudentRecord. Fields an
// older schema did not write read as empty strings, and a missing studentId
// falls back to the document's native key. Field names are matched
// case-insensitively.
func ProjectDocument(doc Document) StudentRecord {
	folded := make(map[string]string, len(doc.Fields))
	for k, v := range doc.Fields {
		key := foldKey(k)
		if prev, ok := folded[key]; ok && prev != "" {
			continue
		}
		folded[key] = v
	}
	get := func(field string) string {
		if v, ok := doc.Fields[field]; ok && v != "" {
			return v
		}
		return folded[foldKey(field)]
	}

	rec := StudentRecord{
		StudentID:    get(FieldStudentID),
		RollNumber:   get(FieldRollNumber),
		Name:         get(FieldName),
		Branch:       get(FieldBranch),
		Section:      get(FieldSection),
		AcademicYear: get(FieldAcademicYear),
	}
	if rec.StudentID == "" {
		rec.StudentID = doc.Key
	}
	return rec
}
