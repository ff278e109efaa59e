package notify

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiDeliversToAll(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := NewMulti(a, nil, b)

	m.Notify(New(LevelWarn, "session", "", "Session expired"))

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestAsyncDeliversAndDrainsOnClose(t *testing.T) {
	rec := &Recorder{}
	a := NewAsync(rec, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		a.Notify(New(LevelInfo, "info", "", "hello"))
	}
	require.NoError(t, a.Close())
	assert.Equal(t, 10, rec.Len())

	// Notify after Close is a silent drop.
	a.Notify(New(LevelInfo, "info", "", "late"))
	assert.Equal(t, 10, rec.Len())
}

func TestAsyncNeverBlocksWhenFull(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	slow := Func(func(Notification) {
		<-release
		delivered.Add(1)
	})
	a := NewAsync(slow, WithBufferSize(1))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			a.Notify(New(LevelError, "network", "", "down"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full buffer")
	}
	close(release)
	require.NoError(t, a.Close())
	assert.LessOrEqual(t, delivered.Load(), int32(2))
}

func TestTerminalRendersKindAndMessage(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.Notify(New(LevelError, "server_error", "incidents.list", "Internal server error"))

	out := buf.String()
	assert.Contains(t, out, "Server Error")
	assert.Contains(t, out, "incidents.list:")
	assert.Contains(t, out, "Internal server error")
}

func TestRecorderConcurrent(t *testing.T) {
	rec := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Notify(New(LevelInfo, "info", "", "x"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, rec.Len())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
}
