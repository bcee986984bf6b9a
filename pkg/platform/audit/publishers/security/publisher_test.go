package security

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "screener/pkg/platform/audit"
	"screener/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

func conflictEvent(subject string) audit.SecurityEvent {
	return audit.SecurityEvent{
		Subject:   subject,
		Action:    string(audit.EventFingerprintClaimConflict),
		Reason:    "Duplicate submission",
		RequestID: "req-" + subject,
	}
}

func TestPublisher_FlushWritesBufferedEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub := New(store, WithClock(func() time.Time { return fixed }))

	pub.Emit(context.Background(), conflictEvent("a"))
	pub.Emit(context.Background(), conflictEvent("b"))
	assert.Equal(t, 2, pub.Pending())

	assert.Equal(t, 2, pub.Flush(context.Background()))
	assert.Zero(t, pub.Pending())

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Subject)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublisher_FullBufferDropsOldest(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetricsWithRegisterer(prometheus.NewRegistry())
	pub := New(store, WithBufferSize(3), WithMetrics(m))

	for i := range 5 {
		pub.Emit(context.Background(), conflictEvent(fmt.Sprint(i)))
	}
	assert.Equal(t, 3, pub.Pending())
	assert.Equal(t, int64(2), pub.Dropped())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsDropped))

	pub.Flush(context.Background())
	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "2", events[0].Subject)
	assert.Equal(t, "4", events[2].Subject)
}

func TestPublisher_FlushFailuresAreCounted(t *testing.T) {
	m := NewMetricsWithRegisterer(prometheus.NewRegistry())
	pub := New(failingStore{}, WithMetrics(m))

	pub.Emit(context.Background(), conflictEvent("a"))
	assert.Zero(t, pub.Flush(context.Background()))
	assert.Zero(t, pub.Pending())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PersistFailures))
}

func TestPublisher_FlushHonoursBatchSize(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithBatchSize(2))

	for i := range 5 {
		pub.Emit(context.Background(), conflictEvent(fmt.Sprint(i)))
	}
	assert.Equal(t, 5, pub.Flush(context.Background()))
}

func TestPublisher_RunDrainsOnShutdown(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithFlushInterval(time.Hour))
	pub.Emit(context.Background(), conflictEvent("late"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "late", events[0].Subject)
}

func TestPublisher_RunFlushesWhenBatchFills(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithFlushInterval(time.Hour), WithBatchSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = pub.Run(ctx) }()

	pub.Emit(context.Background(), conflictEvent("a"))
	pub.Emit(context.Background(), conflictEvent("b"))

	assert.Eventually(t, func() bool {
		events, _ := store.ListAll(context.Background())
		return len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
