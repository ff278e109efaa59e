package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/watchtower/internal/model"
)

type slowSink struct {
	mu        sync.Mutex
	published []uint64
	started   chan uint64
	gate      chan struct{}
	err       error
	closed    bool
}

func (s *slowSink) Publish(_ context.Context, snap model.Snapshot) error {
	if s.started != nil {
		s.started <- snap.Sequence
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, snap.Sequence)
	return s.err
}

func (s *slowSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *slowSink) seqs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.published...)
}

func TestCloseDeliversLatest(t *testing.T) {
	inner := &slowSink{}
	a := New(inner)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, a.Publish(context.Background(), model.Snapshot{Sequence: i}))
	}
	require.NoError(t, a.Close())

	got := inner.seqs()
	require.NotEmpty(t, got)
	assert.Equal(t, uint64(5), got[len(got)-1])
	assert.IsIncreasing(t, got)
	assert.True(t, inner.closed)
}

func TestSlowSinkOnlySeesNewestPending(t *testing.T) {
	inner := &slowSink{started: make(chan uint64, 16), gate: make(chan struct{})}
	a := New(inner)

	require.NoError(t, a.Publish(context.Background(), model.Snapshot{Sequence: 1}))
	select {
	case seq := <-inner.started:
		require.Equal(t, uint64(1), seq)
	case <-time.After(2 * time.Second):
		t.Fatal("first snapshot never reached the sink")
	}

	done := make(chan struct{})
	go func() {
		for i := uint64(2); i <= 10; i++ {
			a.Publish(context.Background(), model.Snapshot{Sequence: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked behind a slow sink")
	}

	close(inner.gate)
	require.NoError(t, a.Close())
	assert.Equal(t, []uint64{1, 10}, inner.seqs())
	assert.Equal(t, uint64(8), a.Superseded())
}

func TestInnerErrorsGoToCallback(t *testing.T) {
	inner := &slowSink{err: errors.New("webhook down")}
	var mu sync.Mutex
	var got []error
	a := New(inner, WithOnError(func(err error) {
		mu.Lock()
		got = append(got, err)
		mu.Unlock()
	}))
	require.NoError(t, a.Publish(context.Background(), model.Snapshot{Sequence: 1}))
	require.NoError(t, a.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.EqualError(t, got[0], "webhook down")
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	a := New(&slowSink{})
	require.NoError(t, a.Close())
	assert.NoError(t, a.Publish(context.Background(), model.Snapshot{Sequence: 1}))
	assert.NoError(t, a.Close())
}
