package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"screener/internal/evaluation"
	"screener/pkg/fingerprint"
	"screener/pkg/platform/sentinel"
)

// recordStore is what every backend offers beyond evaluation.RecordStore.
type recordStore interface {
	evaluation.RecordStore
	FindByID(ctx context.Context, id evaluation.RecordID) (evaluation.Record, error)
	Ping(ctx context.Context) error
}

// RecordStoreSuite is run against every backend. Each embedding suite sets
// newStore so every test starts from an empty store.
type RecordStoreSuite struct {
	suite.Suite
	newStore func() recordStore
	store    recordStore
	ctx      context.Context
}

func (s *RecordStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

var createdAt = time.Date(2026, 5, 4, 10, 30, 0, 123000000, time.UTC)

func record(text, file string, claims bool) evaluation.Record {
	rec := evaluation.Record{
		Name:           "Alice",
		Email:          "alice@example.com",
		SubmissionType: "report",
		Description:    text,
		Fingerprints:   fingerprint.Pair{TextHash: fingerprint.Text(text)},
		Result: evaluation.Result{
			Status:     evaluation.StatusFlagged,
			Reason:     evaluation.ReasonManualReview,
			TrustScore: 65,
		},
		CreatedAt:          createdAt,
		ClaimsFingerprints: claims,
	}
	if file != "" {
		rec.FileName = "report.pdf"
		rec.Fingerprints.FileHash = fingerprint.Text(file)
	}
	return rec
}

// =============================================================================
// Insert
// =============================================================================

func (s *RecordStoreSuite) TestInsertRoundTrip() {
	rec := record("quarterly report body", "pdf bytes", true)

	id, err := s.store.Insert(s.ctx, rec)
	s.Require().NoError(err)
	s.Positive(int64(id))

	got, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	s.Equal(rec.Name, got.Name)
	s.Equal(rec.Email, got.Email)
	s.Equal(rec.SubmissionType, got.SubmissionType)
	s.Equal(rec.Description, got.Description)
	s.Equal(rec.FileName, got.FileName)
	s.Equal(rec.Fingerprints, got.Fingerprints)
	s.Equal(rec.Result, got.Result)
	s.True(rec.CreatedAt.Equal(got.CreatedAt))
}

func (s *RecordStoreSuite) TestInsertWithoutFileKeepsFileHashEmpty() {
	id, err := s.store.Insert(s.ctx, record("text only", "", true))
	s.Require().NoError(err)

	got, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(got.Fingerprints.FileHash)
	s.Empty(got.FileName)
}

func (s *RecordStoreSuite) TestInsertAssignsDistinctIDs() {
	first, err := s.store.Insert(s.ctx, record("one", "", false))
	s.Require().NoError(err)
	second, err := s.store.Insert(s.ctx, record("two", "", false))
	s.Require().NoError(err)
	s.NotEqual(first, second)
}

func (s *RecordStoreSuite) TestFindByIDMissing() {
	_, err := s.store.FindByID(s.ctx, 9999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// =============================================================================
// Fingerprint claims
// =============================================================================

func (s *RecordStoreSuite) TestClaims() {
	s.Run("second claim on the same text conflicts", func() {
		_, err := s.store.Insert(s.ctx, record("claimed text", "", true))
		s.Require().NoError(err)

		_, err = s.store.Insert(s.ctx, record("claimed text", "", true))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("second claim on the same file conflicts", func() {
		_, err := s.store.Insert(s.ctx, record("first text", "shared file", true))
		s.Require().NoError(err)

		_, err = s.store.Insert(s.ctx, record("other text", "shared file", true))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("conflicting insert leaves no partial record", func() {
		found, err := s.store.FindByHash(s.ctx, fingerprint.Text("other text"), "")
		s.Require().NoError(err)
		s.False(found)
	})

	s.Run("non-claiming records may repeat fingerprints", func() {
		_, err := s.store.Insert(s.ctx, record("claimed text", "", false))
		s.Require().NoError(err)
		_, err = s.store.Insert(s.ctx, record("claimed text", "", false))
		s.Require().NoError(err)
	})

	s.Run("text and file hashes are separate namespaces", func() {
		_, err := s.store.Insert(s.ctx, record("same bytes", "", true))
		s.Require().NoError(err)

		// File content identical to an earlier description.
		_, err = s.store.Insert(s.ctx, record("different text", "same bytes", true))
		s.Require().NoError(err)
	})
}

func (s *RecordStoreSuite) TestConcurrentClaimsHaveOneWinner() {
	const goroutines = 16
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Insert(s.ctx, record("raced text", "raced file", true))
			switch {
			case err == nil:
				wins.Add(1)
			case isConflict(err):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

// =============================================================================
// FindByHash
// =============================================================================

func (s *RecordStoreSuite) TestFindByHash() {
	_, err := s.store.Insert(s.ctx, record("stored text", "stored file", false))
	s.Require().NoError(err)

	cases := []struct {
		name     string
		textHash string
		fileHash string
		want     bool
	}{
		{"text match", fingerprint.Text("stored text"), "", true},
		{"file match", fingerprint.Text("new text"), fingerprint.Text("stored file"), true},
		{"no match", fingerprint.Text("new text"), fingerprint.Text("new file"), false},
		{"empty file hash never matches files", fingerprint.Text("new text"), "", false},
		{"file hash is not looked up as text", fingerprint.Text("stored file"), "", false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			found, err := s.store.FindByHash(s.ctx, tc.textHash, tc.fileHash)
			s.Require().NoError(err)
			s.Equal(tc.want, found)
		})
	}
}

func (s *RecordStoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
