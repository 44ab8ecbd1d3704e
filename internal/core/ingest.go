package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/google/uuid"
)

// tally accumulates the outcome of folding rows from one or more sources.
type tally struct {
	accepted []StudentRecord
	rejected []RejectedRow
}

// Ingest processes every source of one request and writes the admitted
// records with a single idempotent upsert.
//
// All sources are parsed and their headers validated before the store is
// touched: a malformed source or a missing required header fails the whole
// request with nothing written. Rows with empty required fields are skipped
// and reported in the result. If no row survives, a NoValidRecordsError is
// returned.
func (s *Service) Ingest(ctx context.Context, sources []Source) (*IngestResult, error) {
	start := time.Now()
	ingestID := uuid.New().String()
	logger := logging.WithFields(ctx, "ingest_id", ingestID)

	if len(sources) == 0 {
		return nil, &MalformedInputError{Source: "request", Reason: "no file provided"}
	}

	result := &IngestResult{IngestID: ingestID}
	var acc tally

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, format, err := readTable(src)
		if err != nil {
			logger.Warn("source rejected", "source", src.Name, "error", err)
			return nil, err
		}

		idx := MakeHeaderIndex(table.Header)
		if len(idx) == 0 {
			err := &MalformedInputError{Source: src.Name, Line: table.HeaderLine, Reason: "no header row"}
			logger.Warn("source rejected", "source", src.Name, "error", err)
			return nil, err
		}
		if err := s.validator.ValidateHeaders(src.Name, idx); err != nil {
			logger.Warn("source rejected", "source", src.Name, "error", err)
			return nil, err
		}

		before := acc
		acc = s.foldRows(acc, src.Name, idx, table.Rows)

		summary := SourceSummary{
			Name:     src.Name,
			Format:   format,
			Accepted: len(acc.accepted) - len(before.accepted),
			Rejected: len(acc.rejected) - len(before.rejected),
		}
		summary.Rows = summary.Accepted + summary.Rejected
		result.Sources = append(result.Sources, summary)

		logger.Debug("source parsed",
			"source", src.Name,
			"format", format,
			"accepted", summary.Accepted,
			"rejected", summary.Rejected,
		)
	}

	for _, rr := range acc.rejected {
		logger.Debug("row rejected", "source", rr.Source, "line", rr.Line, "reason", rr.Reason)
	}

	result.Accepted = len(acc.accepted)
	result.Rejected = len(acc.rejected)
	result.RejectedRows = acc.rejected

	if result.Accepted == 0 {
		err := &NoValidRecordsError{Rejected: result.Rejected}
		logger.Warn("ingest produced no records", "rejected", result.Rejected)
		return nil, err
	}

	records, duplicates := collapseDuplicates(acc.accepted)
	result.Duplicates = duplicates

	written, err := s.upsert(ctx, records)
	result.Written = written
	if err != nil {
		logger.Error("ingest write failed",
			"committed", written,
			"total", len(records),
			"error", err,
		)
		return nil, err
	}

	result.Duration = time.Since(start)
	logger.Info("ingest completed",
		"sources", len(sources),
		"accepted", result.Accepted,
		"written", result.Written,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// foldRows admits or rejects each row of one source. It never fails: a bad
// row only adds to the rejected list.
func (s *Service) foldRows(acc tally, source string, idx HeaderIndex, rows []TableRow) tally {
	for _, row := range rows {
		if isBlankRow(row.Cells) {
			continue
		}

		raw := NormalizeRow(idx, row.Cells).Raw()
		if rej := s.validator.ValidateRow(source, row.Line, raw); rej != nil {
			acc.rejected = append(acc.rejected, *rej)
			continue
		}
		acc.accepted = append(acc.accepted, s.resolver.Resolve(raw))
	}
	return acc
}

// collapseDuplicates keeps the last record for each studentId, at the
// position of its first occurrence. It returns the number of records dropped.
func collapseDuplicates(records []StudentRecord) ([]StudentRecord, int) {
	pos := make(map[string]int, len(records))
	out := make([]StudentRecord, 0, len(records))
	for _, rec := range records {
		if i, ok := pos[rec.StudentID]; ok {
			out[i] = rec
			continue
		}
		pos[rec.StudentID] = len(out)
		out = append(out, rec)
	}
	return out, len(records) - len(out)
}

// upsert writes records in chunks of at most batchSize. Each chunk is one
// atomic store batch; a failure stops the write and reports what was
// already committed.
func (s *Service) upsert(ctx context.Context, records []StudentRecord) (int, error) {
	docs := make([]Document, len(records))
	for i, rec := range records {
		docs[i] = Document{Key: rec.StudentID, Fields: rec.Fields()}
	}

	committed := 0
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		if err := s.store.UpsertBatch(ctx, docs[start:end]); err != nil {
			return committed, &StoreError{Op: "upsert", Committed: committed, Total: len(docs), Err: err}
		}
		committed = end
	}
	return committed, nil
}
