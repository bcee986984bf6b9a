package evaluation

import (
	"context"

	"screener/pkg/platform/audit"
)

// RecordStore persists evaluated submissions and answers fingerprint lookups.
// Implementations must return an error wrapping sentinel.ErrConflict when a
// record with ClaimsFingerprints set collides with an existing claim.
type RecordStore interface {
	Insert(ctx context.Context, rec Record) (RecordID, error)
	// FindByHash reports whether any stored record has textHash, or fileHash
	// when fileHash is non-empty.
	FindByHash(ctx context.Context, textHash, fileHash string) (bool, error)
}

// FingerprintCache remembers fingerprints already known to be stored. Records
// are never deleted, so a remembered fingerprint never goes stale; the cache
// only has to forget to bound its size.
type FingerprintCache interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, keys ...string) error
}

// AuditPublisher records evaluation events for compliance.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// SecurityPublisher records abuse signals. Emit must not block.
type SecurityPublisher interface {
	Emit(ctx context.Context, event audit.SecurityEvent)
}
