package alerts

import "sync"

const notifyAppName = "mixwatch"

// notificationTitle builds the desktop notification title for a toast.
func notificationTitle(t Toast) string {
	return notifyAppName + ": " + t.Tier.Label() + " ratio"
}

// notificationSubtitle returns the machine line shown under the title.
func notificationSubtitle(t Toast) string {
	if t.MachineID == "" {
		return ""
	}
	return "Machine " + truncateID(t.MachineID)
}

// truncateID shortens an identifier for display in notifications.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}

// NopNotifier discards every toast.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(Toast) {}

// MultiNotifier fans a toast out to several notifiers.
type MultiNotifier struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewMultiNotifier creates a fan-out notifier. Nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range notifiers {
		m.Add(n)
	}
	return m
}

// Add registers another notifier.
func (m *MultiNotifier) Add(n Notifier) {
	if n == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of registered notifiers.
func (m *MultiNotifier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers)
}

// Notify forwards the toast to every registered notifier.
func (m *MultiNotifier) Notify(t Toast) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notifiers {
		n.Notify(t)
	}
}
