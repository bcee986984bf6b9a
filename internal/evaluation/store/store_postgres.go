package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"screener/internal/evaluation"
	"screener/pkg/platform/sentinel"
)

var tracer = otel.Tracer("screener/internal/evaluation/store")

// PostgresStore persists records in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connected pool. Apply Migrations before use.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, rec evaluation.Record) (evaluation.RecordID, error) {
	ctx, span := tracer.Start(ctx, "store.Postgres.Insert")
	defer span.End()
	span.SetAttributes(attribute.Bool("claims_fingerprints", rec.ClaimsFingerprints))

	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := toRow(rec)
		if err := tx.QueryRow(ctx, `
			INSERT INTO submissions (
				name, email, submission_type, description, file_name, file_hash,
				text_hash, trust_score, status, rejection_reason, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			row.Name, row.Email, row.SubmissionType, row.Description, row.FileName, row.FileHash,
			row.TextHash, row.TrustScore, row.Status, row.RejectionReason, row.CreatedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}

		for _, k := range claimKeys(rec) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO fingerprint_claims (kind, hash, submission_id) VALUES ($1, $2, $3)`,
				k.kind, k.hash, id,
			); err != nil {
				if isPgUniqueViolation(err) {
					return fmt.Errorf("claim %s fingerprint: %w", k.kind, sentinel.ErrConflict)
				}
				return fmt.Errorf("claim %s fingerprint: %w", k.kind, err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return evaluation.RecordID(id), nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, textHash, fileHash string) (bool, error) {
	ctx, span := tracer.Start(ctx, "store.Postgres.FindByHash")
	defer span.End()

	var found bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM submissions WHERE text_hash = $1)
		    OR ($2::text <> '' AND EXISTS (SELECT 1 FROM submissions WHERE file_hash = $2::text))`,
		textHash, fileHash,
	).Scan(&found)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("find submission by hash: %w", err)
	}
	return found, nil
}

// FindByID loads a stored record.
func (s *PostgresStore) FindByID(ctx context.Context, id evaluation.RecordID) (evaluation.Record, error) {
	var row recordRow
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, submission_type, description, file_name, file_hash,
		       text_hash, trust_score, status, rejection_reason, created_at
		FROM submissions WHERE id = $1`, int64(id),
	).Scan(
		&row.ID, &row.Name, &row.Email, &row.SubmissionType, &row.Description, &row.FileName, &row.FileHash,
		&row.TextHash, &row.TrustScore, &row.Status, &row.RejectionReason, &row.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return evaluation.Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return evaluation.Record{}, fmt.Errorf("find submission by id: %w", err)
	}
	return row.toRecord()
}

// Ping checks pool connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
