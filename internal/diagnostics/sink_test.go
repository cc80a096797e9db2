package diagnostics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"corectx/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	records []model.DiagnosticsRecord
}

func (f *fakeStore) PutDiagnostics(_ context.Context, d model.DiagnosticsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, d)
	return nil
}

func (f *fakeStore) snapshot() []model.DiagnosticsRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DiagnosticsRecord, len(f.records))
	copy(out, f.records)
	return out
}

type fakeMirror struct {
	mu      sync.Mutex
	records []model.DiagnosticsRecord
}

func (f *fakeMirror) Write(_ context.Context, d model.DiagnosticsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, d)
	return nil
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func TestSink_WritesRecordToStore(t *testing.T) {
	t.Parallel()

	rel := &fakeStore{}
	s := New(rel)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	s.Record(model.DiagnosticsRecord{RequestID: "req-1"})

	require.Eventually(t, func() bool { return len(rel.snapshot()) == 1 }, time.Second, time.Millisecond)

	cancel()
	<-s.Done()
}

func TestSink_AlsoWritesToMirrorWhenConfigured(t *testing.T) {
	t.Parallel()

	rel := &fakeStore{}
	mir := &fakeMirror{}
	s := New(rel, WithMirror(mir))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	s.Record(model.DiagnosticsRecord{RequestID: "req-2"})

	require.Eventually(t, func() bool { return mir.count() == 1 }, time.Second, time.Millisecond)

	cancel()
	<-s.Done()
}

func TestSink_DrainsRemainingOnShutdown(t *testing.T) {
	t.Parallel()

	rel := &fakeStore{}
	s := New(rel)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	for i := 0; i < 3; i++ {
		s.Record(model.DiagnosticsRecord{RequestID: "req-x"})
	}

	cancel()
	<-s.Done()

	require.Len(t, rel.snapshot(), 3)
}

func TestSink_RecordDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	rel := &fakeStore{}
	s := New(rel, WithQueueSize(1))

	s.Record(model.DiagnosticsRecord{RequestID: "a"})
	s.Record(model.DiagnosticsRecord{RequestID: "b"})
	s.Record(model.DiagnosticsRecord{RequestID: "c"})
}
