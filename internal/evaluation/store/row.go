package store

import (
	"database/sql"
	"fmt"
	"time"

	"screener/internal/evaluation"
	"screener/pkg/fingerprint"
)

// createdAtLayout is the ISO-8601 form stored in created_at.
const createdAtLayout = time.RFC3339Nano

type recordRow struct {
	ID              int64
	Name            string
	Email           string
	SubmissionType  string
	Description     string
	FileName        string
	FileHash        sql.NullString
	TextHash        string
	TrustScore      int
	Status          string
	RejectionReason string
	CreatedAt       string
}

func toRow(rec evaluation.Record) recordRow {
	return recordRow{
		Name:            rec.Name,
		Email:           rec.Email,
		SubmissionType:  rec.SubmissionType,
		Description:     rec.Description,
		FileName:        rec.FileName,
		FileHash:        sql.NullString{String: rec.Fingerprints.FileHash, Valid: rec.Fingerprints.HasFile()},
		TextHash:        rec.Fingerprints.TextHash,
		TrustScore:      rec.Result.TrustScore,
		Status:          string(rec.Result.Status),
		RejectionReason: string(rec.Result.Reason),
		CreatedAt:       rec.CreatedAt.UTC().Format(createdAtLayout),
	}
}

func (r recordRow) toRecord() (evaluation.Record, error) {
	createdAt, err := time.Parse(createdAtLayout, r.CreatedAt)
	if err != nil {
		return evaluation.Record{}, fmt.Errorf("parse created_at %q: %w", r.CreatedAt, err)
	}
	return evaluation.Record{
		ID:             evaluation.RecordID(r.ID),
		Name:           r.Name,
		Email:          r.Email,
		SubmissionType: r.SubmissionType,
		Description:    r.Description,
		FileName:       r.FileName,
		Fingerprints: fingerprint.Pair{
			TextHash: r.TextHash,
			FileHash: r.FileHash.String,
		},
		Result: evaluation.Result{
			Status:     evaluation.Status(r.Status),
			Reason:     evaluation.Reason(r.RejectionReason),
			TrustScore: r.TrustScore,
		},
		CreatedAt: createdAt,
	}, nil
}
