// Package store holds the RecordStore implementations: an in-memory store for
// tests and development, SQLite for single-node deployments and PostgreSQL.
package store

import (
	"context"
	"fmt"
	"sync"

	"screener/internal/evaluation"
	"screener/pkg/platform/sentinel"
)

// Claim kinds. Text and file fingerprints live in separate namespaces.
const (
	KindText = "text"
	KindFile = "file"
)

type claimKey struct {
	kind string
	hash string
}

// InMemoryStore keeps records in process memory. Insert and FindByHash are
// serialised by a single mutex, so a claim check and the insert it guards are
// atomic.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    []evaluation.Record
	textHashes map[string]struct{}
	fileHashes map[string]struct{}
	claims     map[claimKey]evaluation.RecordID
}

// NewInMemory returns an empty store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		textHashes: make(map[string]struct{}),
		fileHashes: make(map[string]struct{}),
		claims:     make(map[claimKey]evaluation.RecordID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, rec evaluation.Record) (evaluation.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := claimKeys(rec)
	for _, k := range keys {
		if owner, taken := s.claims[k]; taken {
			return 0, fmt.Errorf("%s fingerprint already claimed by record %d: %w", k.kind, owner, sentinel.ErrConflict)
		}
	}

	rec.ID = evaluation.RecordID(len(s.records) + 1)
	s.records = append(s.records, rec)
	s.textHashes[rec.Fingerprints.TextHash] = struct{}{}
	if rec.Fingerprints.HasFile() {
		s.fileHashes[rec.Fingerprints.FileHash] = struct{}{}
	}
	for _, k := range keys {
		s.claims[k] = rec.ID
	}
	return rec.ID, nil
}

func (s *InMemoryStore) FindByHash(_ context.Context, textHash, fileHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.textHashes[textHash]; ok {
		return true, nil
	}
	if fileHash == "" {
		return false, nil
	}
	_, ok := s.fileHashes[fileHash]
	return ok, nil
}

// FindByID returns a copy of the stored record.
func (s *InMemoryStore) FindByID(_ context.Context, id evaluation.RecordID) (evaluation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 1 || int(id) > len(s.records) {
		return evaluation.Record{}, sentinel.ErrNotFound
	}
	return s.records[id-1], nil
}

// Count returns the number of stored records.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

func claimKeys(rec evaluation.Record) []claimKey {
	if !rec.ClaimsFingerprints {
		return nil
	}
	keys := []claimKey{{KindText, rec.Fingerprints.TextHash}}
	if rec.Fingerprints.HasFile() {
		keys = append(keys, claimKey{KindFile, rec.Fingerprints.FileHash})
	}
	return keys
}
