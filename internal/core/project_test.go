package core

import (
	"context"
	"errors"
	"testing"
)

func TestProjectDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want StudentRecord
	}{
		{
			name: "complete document",
			doc: Document{Key: "cs-a-2024-7", Fields: map[string]string{
				"studentId": "cs-a-2024-7", "rollNumber": "7", "name": "Asha",
				"branch": "CS", "section": "A", "academicYear": "2024",
			}},
			want: StudentRecord{StudentID: "cs-a-2024-7", RollNumber: "7", Name: "Asha", Branch: "CS", Section: "A", AcademicYear: "2024"},
		},
		{
			name: "older schema without name and year",
			doc: Document{Key: "k1", Fields: map[string]string{
				"studentId": "k1", "rollNumber": "3", "branch": "EE", "section": "B",
			}},
			want: StudentRecord{StudentID: "k1", RollNumber: "3", Branch: "EE", Section: "B"},
		},
		{
			name: "missing studentId falls back to key",
			doc:  Document{Key: "legacy-42", Fields: map[string]string{"rollNumber": "42"}},
			want: StudentRecord{StudentID: "legacy-42", RollNumber: "42"},
		},
		{
			name: "field names matched case-insensitively",
			doc: Document{Key: "k2", Fields: map[string]string{
				"StudentID": "k2", "ROLLNUMBER": "9", "Branch": "ME",
			}},
			want: StudentRecord{StudentID: "k2", RollNumber: "9", Branch: "ME"},
		},
		{
			name: "unknown fields ignored",
			doc:  Document{Key: "k3", Fields: map[string]string{"studentId": "k3", "department": "Eng", "gpa": "9.1"}},
			want: StudentRecord{StudentID: "k3"},
		},
		{
			name: "nil fields",
			doc:  Document{Key: "k4"},
			want: StudentRecord{StudentID: "k4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectDocument(tt.doc); got != tt.want {
				t.Errorf("ProjectDocument() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListAll_SortedByStudentID(t *testing.T) {
	st := newTestStore()
	st.docs["b"] = map[string]string{"studentId": "b", "rollNumber": "2"}
	st.docs["a"] = map[string]string{"studentId": "a", "rollNumber": "1"}
	st.docs["c"] = map[string]string{"rollNumber": "3"}
	svc := newTestService(st, Options{})

	records, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}

	var ids []string
	for _, r := range records {
		ids = append(ids, r.StudentID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ids = %v, want [a b c]", ids)
	}
}

func TestListAll_EmptyStore(t *testing.T) {
	svc := newTestService(newTestStore(), Options{})

	records, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %#v, want empty non-nil slice", records)
	}
}

func TestListAll_ScanFailure(t *testing.T) {
	st := newTestStore()
	st.scanErr = errStoreDown
	svc := newTestService(st, Options{})

	_, err := svc.ListAll(context.Background())

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StoreError", err)
	}
	if se.Op != "scan" {
		t.Errorf("Op = %q, want scan", se.Op)
	}
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, errStoreDown) {
		t.Errorf("error chain = %v", err)
	}
}
