package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/JonMunkholm/roster/internal/logging"
)

// DecodeRecord reads a single JSON object and normalizes its keys and values
// the same way tabular headers and cells are normalized.
func DecodeRecord(r io.Reader) (NormalizedRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &InvalidRecordError{Reason: "empty body"}
		}
		return nil, &InvalidRecordError{Reason: "body must be a JSON object"}
	}
	if obj == nil {
		return nil, &InvalidRecordError{Reason: "body must be a JSON object"}
	}
	return NormalizeObject(obj), nil
}

// AddOne validates and resolves a single record exactly like one tabular
// row, then upserts it. It returns the record's studentId.
func (s *Service) AddOne(ctx context.Context, row NormalizedRow) (string, error) {
	raw := row.Raw()
	if missing := s.validator.MissingFields(raw); len(missing) > 0 {
		return "", &InvalidRecordError{Missing: missing}
	}

	rec := s.resolver.Resolve(raw)
	doc := Document{Key: rec.StudentID, Fields: rec.Fields()}
	if err := s.store.UpsertBatch(ctx, []Document{doc}); err != nil {
		logging.FromContext(ctx).Error("add student failed", "student_id", rec.StudentID, "error", err)
		return "", &StoreError{Op: "upsert", Err: err}
	}

	logging.FromContext(ctx).Info("student added", "student_id", rec.StudentID)
	return rec.StudentID, nil
}

// DeleteOne removes the record with the given studentId. Deleting a key
// that does not exist succeeds.
func (s *Service) DeleteOne(ctx context.Context, studentID string) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return &InvalidRecordError{Missing: []string{FieldStudentID}}
	}

	if err := s.store.Delete(ctx, studentID); err != nil {
		logging.FromContext(ctx).Error("delete student failed", "student_id", studentID, "error", err)
		return &StoreError{Op: "delete", Err: err}
	}

	logging.FromContext(ctx).Info("student deleted", "student_id", studentID)
	return nil
}
