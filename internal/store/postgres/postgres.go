// Package postgres stores roster documents in a single PostgreSQL table
// keyed by (collection, doc_key).
//
// Every field column is nullable. Rows written by older schemas, or by
// hand, may leave any of them NULL, and they read back as absent fields.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS roster_students (
    collection    TEXT        NOT NULL,
    doc_key       TEXT        NOT NULL,
    student_id    TEXT,
    roll_number   TEXT,
    name          TEXT,
    branch        TEXT,
    section       TEXT,
    academic_year TEXT,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, doc_key)
)`

// Full replace: columns absent from the document are written as NULL.
const upsertSQL = `
INSERT INTO roster_students
    (collection, doc_key, student_id, roll_number, name, branch, section, academic_year, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (collection, doc_key) DO UPDATE SET
    student_id    = EXCLUDED.student_id,
    roll_number   = EXCLUDED.roll_number,
    name          = EXCLUDED.name,
    branch        = EXCLUDED.branch,
    section       = EXCLUDED.section,
    academic_year = EXCLUDED.academic_year,
    updated_at    = now()`

const deleteSQL = `DELETE FROM roster_students WHERE collection = $1 AND doc_key = $2`

const scanSQL = `
SELECT doc_key, student_id, roll_number, name, branch, section, academic_year
FROM roster_students
WHERE collection = $1
ORDER BY doc_key`

// Store is a core.Store backed by a pgx connection pool.
type Store struct {
	pool       *pgxpool.Pool
	collection string
}

// New returns a Store scoped to collection. The pool is owned by the caller.
func New(pool *pgxpool.Pool, collection string) *Store {
	return &Store{pool: pool, collection: collection}
}

// EnsureSchema creates the roster table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return wrapPgError(ctx, "ensure schema", err)
	}
	return nil
}

// UpsertBatch writes docs in one transaction. Either every document is
// stored or none is.
func (s *Store) UpsertBatch(ctx context.Context, docs []core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapPgError(ctx, "begin transaction", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(upsertSQL,
			s.collection,
			doc.Key,
			textField(doc.Fields, core.FieldStudentID),
			textField(doc.Fields, core.FieldRollNumber),
			textField(doc.Fields, core.FieldName),
			textField(doc.Fields, core.FieldBranch),
			textField(doc.Fields, core.FieldSection),
			textField(doc.Fields, core.FieldAcademicYear),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range docs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			logging.FromContext(ctx).Error("upsert statement failed",
				"doc_key", docs[i].Key,
				"sqlstate", sqlState(err),
			)
			return wrapPgError(ctx, "upsert", err)
		}
	}
	if err := results.Close(); err != nil {
		return wrapPgError(ctx, "upsert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapPgError(ctx, "commit", err)
	}
	return nil
}

// Delete removes the document stored under key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, deleteSQL, s.collection, key); err != nil {
		return wrapPgError(ctx, "delete", err)
	}
	return nil
}

// Scan calls fn for every document in the collection.
func (s *Store) Scan(ctx context.Context, fn func(core.Document) error) error {
	rows, err := s.pool.Query(ctx, scanSQL, s.collection)
	if err != nil {
		return wrapPgError(ctx, "scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var studentID, roll, name, branch, section, year pgtype.Text
		if err := rows.Scan(&key, &studentID, &roll, &name, &branch, &section, &year); err != nil {
			return wrapPgError(ctx, "scan row", err)
		}

		fields := make(map[string]string, len(core.RecordFields))
		setField(fields, core.FieldStudentID, studentID)
		setField(fields, core.FieldRollNumber, roll)
		setField(fields, core.FieldName, name)
		setField(fields, core.FieldBranch, branch)
		setField(fields, core.FieldSection, section)
		setField(fields, core.FieldAcademicYear, year)

		if err := fn(core.Document{Key: key, Fields: fields}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return wrapPgError(ctx, "scan", err)
	}
	return nil
}

// Ping verifies the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// textField maps a document field to a nullable column value.
func textField(fields map[string]string, name string) pgtype.Text {
	v, ok := fields[name]
	if !ok {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: v, Valid: true}
}

func setField(fields map[string]string, name string, v pgtype.Text) {
	if v.Valid {
		fields[name] = v.String
	}
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrapPgError adds the operation and, for server errors, the SQLSTATE and
// constraint so the logs identify the failing statement. The debug line goes
// to the request-scoped logger carried by ctx.
func wrapPgError(ctx context.Context, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		logging.FromContext(ctx).Debug("postgres error",
			"op", op,
			"sqlstate", pgErr.Code,
			"constraint", pgErr.ConstraintName,
			"detail", pgErr.Detail,
		)
		return fmt.Errorf("%s: %s (SQLSTATE %s): %w", op, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
