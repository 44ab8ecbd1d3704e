// Package core provides the roster ingestion and reconciliation engine.
//
// This package contains all domain logic independent of any transport or
// storage technology. It is used by the HTTP server, the rosterctl CLI and
// tests without modification.
//
// # Pipeline
//
// Raw input flows through four stages before it reaches the store:
//
//  1. Field Normalizer: header names are trimmed and case-folded, cells are
//     trimmed, and each data row becomes a [NormalizedRow].
//  2. Row Validator: a row is admitted only when rollNumber, branch, section
//     and academicYear are non-empty. Rejected rows are counted and listed
//     but never abort the batch.
//  3. Identifier Resolver: a supplied studentId is used verbatim; otherwise
//     one is derived from branch, section, academicYear and rollNumber with
//     [DeriveStudentID].
//  4. Batch Ingestor: admitted records from every source of one request are
//     written with an idempotent upsert, in chunks no larger than the store's
//     batch limit.
//
// The Read Projector ([Service.ListAll]) goes the other way: every stored
// document is projected back into a [StudentRecord], defaulting any field an
// older schema did not write.
//
// # Sources
//
// Tabular sources are parsed by format. CSV, TSV and XLSX are registered at
// init time; see [RegisterFormat].
//
// # Error Handling
//
// Every failure is one of a small set of kinds, each matched by a sentinel
// with errors.Is:
//
//   - [ErrMalformedInput]: no header row, undecodable bytes, unsupported type
//   - [ErrMissingRequiredHeaders]: a source lacks a required column
//   - [ErrNoValidRecords]: a well-formed request admitted zero rows
//   - [ErrValidation]: the single-record add path is missing a field
//   - [ErrStoreUnavailable]: the backing store failed; may be partial
//
// [MapError] converts any of them to a [UserMessage] with a stable code.
//
// # Atomicity
//
// A chunk of at most Options.BatchSize records is committed atomically by
// the store. Requests larger than one chunk are not atomic as a whole: if
// chunk k fails, chunks before it stay committed and the returned
// [StoreError] reports how many records were written.
package core
