package core

// error_messages.go maps engine errors to user-facing messages with a stable code.
// Technical detail (driver messages, SQL states, network errors) is logged
// server-side and never placed in a UserMessage.
//
// # Input Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the request body exceeded the upload limit
//	          Action: Split the roster into smaller files
//
//	FILE002 - Malformed input: the file could not be read as a table
//	          Action: Check that the file is a CSV, TSV or XLSX with a header row
//
//	FILE003 - Encoding error: the file contains bytes that are not UTF-8
//	          Action: Save the file with UTF-8 encoding
//
//	FILE004 - No file: the request carried no tabular file
//	          Action: Attach at least one file
//
//	FILE005 - Empty file: the file has no header row
//	          Action: Add a header row naming the columns
//
//	FILE006 - Unsupported type: the file extension is not a known format
//	          Action: Upload .csv, .tsv or .xlsx files
//
//	FILE007 - Too many files: the request carried more files than allowed
//	          Action: Upload fewer files at a time
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL003 - Invalid record: a single record is missing required fields
//	         Action: Provide rollNumber, branch, section and academicYear
//
//	VAL004 - Missing columns: a file's header lacks required columns
//	         Action: Add the named columns to the named file
//
//	VAL007 - No valid records: every data row was rejected
//	         Action: Fill in the required fields on at least one row
//
// # Store Errors (DB001-DB099)
//
//	DB004 - Store unavailable: the roster store could not be reached
//	        Action: Please try again in a few moments
//
//	DB008 - Partial write: the store failed after some records were saved
//	        Action: Re-upload the same files; ingestion is idempotent
//
// # Request Errors (UPL001-UPL099)
//
//	UPL003 - Server busy: every upload slot is taken
//	         Action: Retry after a short delay
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application logs
// for the original technical error when users report ERR000.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern maps a substring of an untyped error to a user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that arrive without an engine type, such as
// context errors or transport failures. First match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach at least one CSV, TSV or XLSX file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the roster into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files in one request",
			Action:  "Upload fewer files at a time",
			Code:    "FILE007",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "The server is busy processing other uploads",
			Action:  "Please retry in a few seconds",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},
}

// defaultMessage is returned when no mapping applies (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Engine error types
// are mapped first; anything else is matched against known patterns
// (case-insensitive) and finally falls back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		malformed *MalformedInputError
		headers   *MissingHeadersError
		noValid   *NoValidRecordsError
		invalid   *InvalidRecordError
		storeErr  *StoreError
	)

	switch {
	case errors.As(err, &headers):
		return UserMessage{
			Message: fmt.Sprintf("File %q is missing required columns: %s", headers.Source, strings.Join(headers.Missing, ", ")),
			Action:  "Add the missing columns to the header row and upload again",
			Code:    "VAL004",
		}

	case errors.As(err, &malformed):
		return malformedMessage(malformed)

	case errors.As(err, &noValid):
		return UserMessage{
			Message: "No valid student records were found",
			Action:  "Fill in rollNumber, branch, section and academicYear on at least one row",
			Code:    "VAL007",
		}

	case errors.As(err, &invalid):
		msg := "Student record is invalid"
		if len(invalid.Missing) > 0 {
			msg = "Student record is missing required fields: " + strings.Join(invalid.Missing, ", ")
		} else if invalid.Reason != "" {
			msg = "Student record is invalid: " + invalid.Reason
		}
		return UserMessage{
			Message: msg,
			Action:  "Provide rollNumber, branch, section and academicYear",
			Code:    "VAL003",
		}

	case errors.As(err, &storeErr):
		if storeErr.Partial() {
			return UserMessage{
				Message: fmt.Sprintf("The roster store failed after saving %d of %d students", storeErr.Committed, storeErr.Total),
				Action:  "Upload the same files again; re-uploading is safe",
				Code:    "DB008",
			}
		}
		return UserMessage{
			Message: "The roster store is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func malformedMessage(e *MalformedInputError) UserMessage {
	where := fmt.Sprintf("File %q", e.Source)
	if e.Line > 0 {
		where = fmt.Sprintf("File %q (line %d)", e.Source, e.Line)
	}

	reason := strings.ToLower(e.Reason)
	switch {
	case strings.Contains(reason, "no file provided"):
		return UserMessage{
			Message: "No file was provided",
			Action:  "Attach at least one CSV, TSV or XLSX file",
			Code:    "FILE004",
		}
	case strings.Contains(reason, "encoding error"):
		return UserMessage{
			Message: where + " contains characters that are not valid UTF-8",
			Action:  "Save the file with UTF-8 encoding",
			Code:    "FILE003",
		}
	case strings.Contains(reason, "no header row"), strings.Contains(reason, "empty file"):
		return UserMessage{
			Message: where + " has no header row",
			Action:  "Add a header row naming the columns",
			Code:    "FILE005",
		}
	case strings.Contains(reason, "unsupported file type"):
		return UserMessage{
			Message: where + " is not a supported file type",
			Action:  "Upload .csv, .tsv or .xlsx files",
			Code:    "FILE006",
		}
	}
	return UserMessage{
		Message: where + " could not be read as a table",
		Action:  "Check that the file is a CSV, TSV or XLSX with a header row",
		Code:    "FILE002",
	}
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
