package notify

import (
	"fmt"
	"sync"
	"time"
)

// Dedup collapses identical notifications (same Kind and Message) that arrive
// within Window of the first occurrence. Repeats inside the window are
// suppressed. Once the window has closed, the suppressed count is reported
// either on the next identical notification or, if none comes, as a summary
// emitted when the group is pruned.
//
// A poll loop that fails the same way every cycle produces one notification
// per window instead of one per cycle.
type Dedup struct {
	inner  Notifier
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	groups map[string]*group
}

type group struct {
	last       Notification
	first      time.Time
	latest     time.Time
	suppressed int
}

func (g *group) summary(msg string) string {
	return fmt.Sprintf("%s (repeated x%d in %s)", msg, g.suppressed, formatDuration(g.latest.Sub(g.first)))
}

// NewDedup wraps inner. A window <= 0 disables deduplication.
func NewDedup(inner Notifier, window time.Duration) *Dedup {
	return &Dedup{
		inner:  inner,
		window: window,
		now:    time.Now,
		groups: make(map[string]*group),
	}
}

// Notify forwards n unless an identical notification was forwarded within the window.
func (d *Dedup) Notify(n Notification) {
	if d.window <= 0 {
		d.inner.Notify(n)
		return
	}

	now := d.now()
	key := n.Kind + "\x00" + n.Message

	d.mu.Lock()
	g, ok := d.groups[key]
	if ok && now.Sub(g.first) <= d.window {
		g.suppressed++
		g.latest = now
		g.last = n
		d.mu.Unlock()
		return
	}
	d.groups[key] = &group{last: n, first: now, latest: now}
	if ok && g.suppressed > 0 {
		n.Message = g.summary(n.Message)
	}
	pending := d.prune(now)
	d.mu.Unlock()

	for _, p := range pending {
		d.inner.Notify(p)
	}
	d.inner.Notify(n)
}

// prune drops every group whose window has closed and returns a summary for
// each one that suppressed repeats. Caller holds d.mu.
func (d *Dedup) prune(now time.Time) []Notification {
	var pending []Notification
	for k, g := range d.groups {
		if now.Sub(g.first) <= d.window {
			continue
		}
		delete(d.groups, k)
		if g.suppressed > 0 {
			p := g.last
			p.Message = g.summary(p.Message)
			pending = append(pending, p)
		}
	}
	return pending
}

// formatDuration produces a short human-readable duration.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
