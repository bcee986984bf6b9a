package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance and long
	// retention, such as every disposition handed to a submitter.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to abuse monitoring, such as two
	// clients racing to claim the same fingerprint.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is the store-level form of an audit record. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject identifies the affected record (the submission ID when one was stored).
	Subject    string
	Action     string
	Decision   string
	Reason     string
	Stage      string
	TrustScore int
	// SubjectIDHash is a SHA-256 hash of the submitter email. Used for
	// traceability without storing raw PII in the audit trail.
	SubjectIDHash string
	RequestID     string
	ClientIP      string
	UserAgent     string
}

type AuditEvent string

const (
	// Submission events
	EventSubmissionEvaluated     AuditEvent = "submission_evaluated"
	EventSubmissionPersistFailed AuditEvent = "submission_persist_failed"

	// Abuse signals
	EventFingerprintClaimConflict AuditEvent = "fingerprint_claim_conflict"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventSubmissionEvaluated:      CategoryCompliance,
	EventSubmissionPersistFailed:  CategoryOperations,
	EventFingerprintClaimConflict: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// ComplianceEvent captures a disposition handed back to a submitter.
// Use with the compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp     time.Time // When the event occurred (set automatically if zero)
	Subject       string    // Submission ID, or "unsaved" when the insert failed
	Action        string    // The action taken (e.g., "submission_evaluated")
	Decision      string    // Disposition status (Accepted, Flagged, Rejected)
	Reason        string    // Disposition reason
	Stage         string    // Gate that produced the disposition
	TrustScore    int       // Reported trust score
	SubjectIDHash string    // SHA-256 of the submitter email
	RequestID     string    // Correlation ID for request tracing
	ClientIP      string    // Client address as seen by the boundary
	UserAgent     string    // Parsed User-Agent family
}

// Category returns the category registered for the event action.
func (e ComplianceEvent) Category() EventCategory {
	return AuditEvent(e.Action).Category()
}

// ToEvent converts to the store-level Event.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:      e.Category(),
		Timestamp:     e.Timestamp,
		Subject:       e.Subject,
		Action:        e.Action,
		Decision:      e.Decision,
		Reason:        e.Reason,
		Stage:         e.Stage,
		TrustScore:    e.TrustScore,
		SubjectIDHash: e.SubjectIDHash,
		RequestID:     e.RequestID,
		ClientIP:      e.ClientIP,
		UserAgent:     e.UserAgent,
	}
}

// SecurityEvent captures an abuse signal. Security events are best-effort:
// emission never blocks and the oldest events are dropped under pressure.
type SecurityEvent struct {
	Timestamp time.Time
	Subject   string // Fingerprint that was contested
	Action    string
	Reason    string
	RequestID string
	ClientIP  string
	UserAgent string
}

// ToEvent converts to the store-level Event.
func (e SecurityEvent) ToEvent() Event {
	return Event{
		Category:  AuditEvent(e.Action).Category(),
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    e.Action,
		Reason:    e.Reason,
		RequestID: e.RequestID,
		ClientIP:  e.ClientIP,
		UserAgent: e.UserAgent,
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
