package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDedup(window time.Duration) (*Dedup, *Recorder, *fakeClock) {
	rec := &Recorder{}
	clk := &fakeClock{now: t0}
	d := NewDedup(rec, window)
	d.now = clk.Now
	return d, rec, clk
}

func TestDedupSuppressesRepeatsInWindow(t *testing.T) {
	d, rec, clk := newTestDedup(time.Minute)

	for i := 0; i < 4; i++ {
		d.Notify(New(LevelError, "timeout", "alerts.recent", "Request timed out"))
		clk.advance(10 * time.Second)
	}

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, "Request timed out", rec.All()[0].Message)
}

func TestDedupReportsSuppressedCountAfterWindow(t *testing.T) {
	d, rec, clk := newTestDedup(time.Minute)

	d.Notify(New(LevelError, "timeout", "alerts.recent", "Request timed out"))
	clk.advance(20 * time.Second)
	d.Notify(New(LevelError, "timeout", "alerts.recent", "Request timed out"))
	clk.advance(20 * time.Second)
	d.Notify(New(LevelError, "timeout", "alerts.recent", "Request timed out"))
	clk.advance(30 * time.Second)
	d.Notify(New(LevelError, "timeout", "alerts.recent", "Request timed out"))

	all := rec.All()
	require.Len(t, all, 2)
	assert.True(t, strings.HasSuffix(all[1].Message, "(repeated x2 in 40s)"), "got %q", all[1].Message)
}

func TestDedupPrunesClosedWindowsAndReportsPending(t *testing.T) {
	d, rec, clk := newTestDedup(time.Minute)

	for i := 0; i < 3; i++ {
		d.Notify(New(LevelError, "server_error", "incidents.list", "Internal error"))
		clk.advance(10 * time.Second)
	}
	d.Notify(New(LevelError, "timeout", "health", "Request timed out"))
	require.Equal(t, 2, rec.Len())

	clk.advance(2 * time.Minute)
	d.Notify(New(LevelError, "network", "alerts.recent", "Network error"))

	all := rec.All()
	require.Len(t, all, 4)
	assert.Equal(t, "Internal error (repeated x2 in 20s)", all[2].Message)
	assert.Equal(t, "incidents.list", all[2].Operation)
	assert.Equal(t, "Network error", all[3].Message)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Len(t, d.groups, 1, "only the open window is kept")
}

func TestDedupDistinctMessagesPassThrough(t *testing.T) {
	d, rec, _ := newTestDedup(time.Minute)

	d.Notify(New(LevelError, "timeout", "alerts.recent", "Request timed out"))
	d.Notify(New(LevelError, "server_error", "incidents.list", "Internal error"))
	d.Notify(New(LevelError, "timeout", "incidents.list", "Request timed out"))

	// Same kind+message from a different operation still collapses.
	assert.Equal(t, 2, rec.Len())
}

func TestDedupDisabled(t *testing.T) {
	d, rec, _ := newTestDedup(0)
	for i := 0; i < 3; i++ {
		d.Notify(New(LevelError, "network", "health", "Network error"))
	}
	assert.Equal(t, 3, rec.Len())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{40 * time.Second, "40s"},
		{2 * time.Minute, "2m"},
		{150 * time.Second, "2m30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), "formatDuration(%v)", tt.d)
	}
}
