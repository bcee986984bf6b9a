package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"screener/internal/evaluation"
	"screener/pkg/platform/sentinel"
)

// SQLiteStore persists records in a SQLite file through database/sql. Open the
// handle with database.OpenSQLite and apply Migrations first.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite wraps an open SQLite handle.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Insert(ctx context.Context, rec evaluation.Record) (evaluation.RecordID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := toRow(rec)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO submissions (
			name, email, submission_type, description, file_name, file_hash,
			text_hash, trust_score, status, rejection_reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Name, row.Email, row.SubmissionType, row.Description, row.FileName, row.FileHash,
		row.TextHash, row.TrustScore, row.Status, row.RejectionReason, row.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read submission id: %w", err)
	}

	for _, k := range claimKeys(rec) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fingerprint_claims (kind, hash, submission_id) VALUES (?, ?, ?)`,
			k.kind, k.hash, id,
		); err != nil {
			if isSQLiteUniqueViolation(err) {
				return 0, fmt.Errorf("claim %s fingerprint: %w", k.kind, sentinel.ErrConflict)
			}
			return 0, fmt.Errorf("claim %s fingerprint: %w", k.kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return evaluation.RecordID(id), nil
}

func (s *SQLiteStore) FindByHash(ctx context.Context, textHash, fileHash string) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM submissions WHERE text_hash = ?1)
		    OR (?2 <> '' AND EXISTS (SELECT 1 FROM submissions WHERE file_hash = ?2))`,
		textHash, fileHash,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("find submission by hash: %w", err)
	}
	return found, nil
}

// FindByID loads a stored record.
func (s *SQLiteStore) FindByID(ctx context.Context, id evaluation.RecordID) (evaluation.Record, error) {
	var row recordRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, submission_type, description, file_name, file_hash,
		       text_hash, trust_score, status, rejection_reason, created_at
		FROM submissions WHERE id = ?`, int64(id),
	).Scan(
		&row.ID, &row.Name, &row.Email, &row.SubmissionType, &row.Description, &row.FileName, &row.FileHash,
		&row.TextHash, &row.TrustScore, &row.Status, &row.RejectionReason, &row.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return evaluation.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return evaluation.Record{}, fmt.Errorf("find submission by id: %w", err)
	}
	return row.toRecord()
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
