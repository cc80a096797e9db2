package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"corectx/internal/relstore"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls []relstore.AgentActivity
}

func (f *fakeRecorder) RecordActivity(_ context.Context, a relstore.AgentActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, a)
	return nil
}

func (f *fakeRecorder) snapshot() []relstore.AgentActivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]relstore.AgentActivity, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestSink_CoalescesMultipleEventsIntoOneFlush(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	s := New(rec, WithFlushInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	for i := 0; i < 5; i++ {
		s.Record(Event{SessionID: "sess-1", AgentID: "agent-a"})
	}

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 1
	}, time.Second, time.Millisecond)

	cancel()
	<-s.Done()

	calls := rec.snapshot()
	require.NotEmpty(t, calls)
	var total int64
	for _, c := range calls {
		require.Equal(t, "sess-1", c.SessionID)
		total += c.EventDelta
	}
	require.Equal(t, int64(5), total)
}

func TestSink_FlushesRemainingEventsOnShutdown(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	s := New(rec, WithFlushInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	s.Record(Event{SessionID: "sess-2", AgentID: "agent-b"})
	time.Sleep(10 * time.Millisecond)

	cancel()
	<-s.Done()

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "sess-2", calls[0].SessionID)
	require.Equal(t, int64(1), calls[0].EventDelta)
}

func TestSink_RecordDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	s := New(rec, WithQueueSize(1), WithFlushInterval(time.Hour))

	s.Record(Event{SessionID: "a"})
	s.Record(Event{SessionID: "b"})
	s.Record(Event{SessionID: "c"})
}

func TestSink_TracksContainerIDAndLatestMeta(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	s := New(rec, WithFlushInterval(time.Hour))

	cid := uuid.New()
	s.Record(Event{SessionID: "sess-3", ContainerID: &cid, Meta: map[string]any{"stage": "first"}})
	s.Record(Event{SessionID: "sess-3", ContainerID: &cid, Meta: map[string]any{"stage": "second"}})

	ctx := context.Background()
	s.flush(ctx)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, &cid, calls[0].ContainerID)
	require.Equal(t, "second", calls[0].Meta["stage"])
	require.Equal(t, int64(2), calls[0].EventDelta)
}
