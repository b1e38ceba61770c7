package alerts

import (
	"time"

	"github.com/nixlim/mixwatch/internal/readings"
)

// AnomalyEvent is a reading whose ratio classified as Warning or Critical.
// Events are recomputed from scratch on every poll.
type AnomalyEvent struct {
	Reading      readings.Reading
	MachineID    string
	MachineName  string // empty when the backend sent no name
	ReadingID    string
	Timestamp    time.Time
	HasTimestamp bool
	TimestampRaw string
	Adhesive     float64
	Resin        float64
	Tier         readings.Tier
	Ratio        float64 // full precision
	RatioDisplay string  // three decimals
	Fingerprint  string
}

// DisplayName returns the machine name for list views, falling back to the
// node id.
func (e AnomalyEvent) DisplayName() string {
	if e.MachineName != "" {
		return e.MachineName
	}
	return "Node " + e.MachineID
}

// Toast is a transient notification surfaced for a newly observed anomaly.
type Toast struct {
	ID          string
	Message     string
	Tier        readings.Tier
	Fingerprint string
	MachineID   string
	ReadingID   string
	Ratio       float64
	CreatedAt   time.Time
}

// Severity returns the notification severity for the toast tier.
func (t Toast) Severity() string {
	if t.Tier == readings.TierCritical {
		return SeverityCritical
	}
	return SeverityWarning
}

// Toast severity constants.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SeenSet reports whether the user has already viewed an anomaly.
type SeenSet interface {
	Contains(fingerprint string) bool
}

// Notifier delivers toasts outside the terminal.
type Notifier interface {
	// Notify sends a toast notification. Implementations must be non-blocking.
	Notify(toast Toast)
}
