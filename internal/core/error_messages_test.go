package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		contains string
	}{
		{
			name:     "missing headers",
			err:      &MissingHeadersError{Source: "a.csv", Missing: []string{"branch", "section"}},
			wantCode: "VAL004",
			contains: "branch, section",
		},
		{
			name:     "wrapped missing headers",
			err:      fmt.Errorf("ingest: %w", &MissingHeadersError{Source: "a.csv", Missing: []string{"branch"}}),
			wantCode: "VAL004",
		},
		{
			name:     "malformed generic",
			err:      &MalformedInputError{Source: "a.csv", Line: 4, Reason: "invalid csv"},
			wantCode: "FILE002",
			contains: "line 4",
		},
		{
			name:     "malformed encoding",
			err:      &MalformedInputError{Source: "a.csv", Line: 3, Reason: errInvalidUTF8.Error()},
			wantCode: "FILE003",
		},
		{
			name:     "no file",
			err:      &MalformedInputError{Source: "request", Reason: "no file provided"},
			wantCode: "FILE004",
		},
		{
			name:     "no header",
			err:      &MalformedInputError{Source: "a.csv", Reason: "no header row"},
			wantCode: "FILE005",
		},
		{
			name:     "empty file",
			err:      &MalformedInputError{Source: "a.csv", Reason: "empty file"},
			wantCode: "FILE005",
		},
		{
			name:     "unsupported",
			err:      &MalformedInputError{Source: "a.pdf", Reason: `unsupported file type ".pdf"`},
			wantCode: "FILE006",
		},
		{
			name:     "no valid records",
			err:      &NoValidRecordsError{Rejected: 3},
			wantCode: "VAL007",
		},
		{
			name:     "invalid record",
			err:      &InvalidRecordError{Missing: []string{"section"}},
			wantCode: "VAL003",
			contains: "section",
		},
		{
			name:     "invalid body",
			err:      &InvalidRecordError{Reason: "empty body"},
			wantCode: "VAL003",
			contains: "empty body",
		},
		{
			name:     "store down",
			err:      &StoreError{Op: "scan", Err: errStoreDown},
			wantCode: "DB004",
		},
		{
			name:     "partial write",
			err:      &StoreError{Op: "upsert", Committed: 500, Total: 800, Err: errStoreDown},
			wantCode: "DB008",
			contains: "500 of 800",
		},
		{
			name:     "file too large",
			err:      errors.New("http: request body too large: file too large"),
			wantCode: "FILE001",
		},
		{
			name:     "too many files",
			err:      errors.New("too many files"),
			wantCode: "FILE007",
		},
		{
			name:     "server busy",
			err:      errors.New("too many concurrent uploads, please try again later"),
			wantCode: "UPL003",
		},
		{
			name:     "cancelled",
			err:      context.Canceled,
			wantCode: "UPL004",
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("ingest: %w", context.DeadlineExceeded),
			wantCode: "UPL005",
		},
		{
			name:     "unknown",
			err:      errors.New("something odd"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := MapError(tt.err)
			if msg.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", msg.Code, tt.wantCode)
			}
			if msg.Action == "" {
				t.Error("Action is empty")
			}
			if tt.contains != "" && !strings.Contains(msg.Message, tt.contains) {
				t.Errorf("Message = %q, want it to contain %q", msg.Message, tt.contains)
			}
		})
	}
}

func TestMapError_HidesDriverDetail(t *testing.T) {
	err := &StoreError{Op: "upsert", Err: errors.New("SQLSTATE 08006 connection failure at 10.0.0.5")}
	msg := MapError(err)
	if strings.Contains(msg.Message, "10.0.0.5") || strings.Contains(msg.Message, "SQLSTATE") {
		t.Errorf("Message leaks driver detail: %q", msg.Message)
	}
}

func TestMapError_Nil(t *testing.T) {
	if msg := MapError(nil); msg != (UserMessage{}) {
		t.Errorf("MapError(nil) = %+v, want zero", msg)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(&NoValidRecordsError{Rejected: 1})
	want := "No valid student records were found (Code: VAL007). Fill in rollNumber, branch, section and academicYear on at least one row"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{&NoValidRecordsError{}, true},
		{context.Canceled, true},
	}

	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{&MalformedInputError{}, ErrMalformedInput},
		{&MissingHeadersError{}, ErrMissingRequiredHeaders},
		{&NoValidRecordsError{}, ErrNoValidRecords},
		{&InvalidRecordError{}, ErrValidation},
		{&StoreError{}, ErrStoreUnavailable},
		{RejectedRow{}, ErrRowRejected},
		{&RejectedRow{}, ErrRowRejected},
	}

	for _, tt := range tests {
		if !errors.Is(tt.err, tt.sentinel) {
			t.Errorf("%T does not match %v", tt.err, tt.sentinel)
		}
		for _, other := range []error{ErrMalformedInput, ErrMissingRequiredHeaders, ErrRowRejected, ErrNoValidRecords, ErrValidation, ErrStoreUnavailable} {
			if other != tt.sentinel && errors.Is(tt.err, other) {
				t.Errorf("%T unexpectedly matches %v", tt.err, other)
			}
		}
	}
}
