package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "screener/pkg/platform/audit"
	"screener/pkg/platform/audit/outbox"
	txcontext "screener/pkg/platform/tx"
)

// Migrations holds the outbox schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the relay.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Timestamp     string `json:"timestamp"`
	Subject       string `json:"subject"`
	Action        string `json:"action"`
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Stage         string `json:"stage,omitempty"`
	TrustScore    int    `json:"trust_score"`
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// The action decides the category; the registry in audit is authoritative.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:       event.Subject,
		Action:        event.Action,
		Decision:      event.Decision,
		Reason:        event.Reason,
		Stage:         event.Stage,
		TrustScore:    event.TrustScore,
		SubjectIDHash: event.SubjectIDHash,
		RequestID:     event.RequestID,
		ClientIP:      event.ClientIP,
		UserAgent:     event.UserAgent,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateID := event.Subject
	if aggregateID == "" {
		aggregateID = eventID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		eventID,
		"submission",
		aggregateID,
		event.Action,
		payloadBytes,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ProcessPending locks up to limit unpublished entries, hands them to publish
// and marks them published in the same transaction. Concurrent relays skip
// rows another relay holds.
func (s *Store) ProcessPending(ctx context.Context, limit int, publish func(context.Context, []outbox.Entry) error) (int, error) {
	var published int
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		entries, err := s.lockPending(ctx, limit)
		if err != nil || len(entries) == 0 {
			return err
		}
		if err := publish(ctx, entries); err != nil {
			return err
		}

		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
			s.now(), pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark outbox entries published: %w", err)
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func (s *Store) lockPending(ctx context.Context, limit int) ([]outbox.Entry, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		if err := rows.Scan(&e.ID, &e.Key, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// CountPending returns how many entries still await publishing.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending outbox entries: %w", err)
	}
	return n, nil
}
