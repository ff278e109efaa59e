package notify

// Multi fans out notifications to several notifiers in order.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a Multi over the given notifiers. Nil entries are skipped.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify delivers n to every wrapped notifier in order.
func (m *Multi) Notify(n Notification) {
	for _, inner := range m.notifiers {
		inner.Notify(n)
	}
}
