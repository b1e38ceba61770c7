package alerts

import (
	"sort"
	"strings"

	"github.com/nixlim/mixwatch/internal/readings"
)

// Detect resolves and classifies every reading and returns the non-Normal
// ones as anomaly events, in input order.
func Detect(rows []readings.Reading) []AnomalyEvent {
	var events []AnomalyEvent
	for _, r := range rows {
		ratio := readings.ResolveRatio(r)
		tier := readings.Classify(ratio)
		if tier == readings.TierNormal {
			continue
		}
		ts, ok := r.Timestamp()
		events = append(events, AnomalyEvent{
			Reading:      r,
			MachineID:    r.MachineID(),
			MachineName:  r.MachineName(),
			ReadingID:    r.ReadingID(),
			Timestamp:    ts,
			HasTimestamp: ok,
			TimestampRaw: r.TimestampText(),
			Adhesive:     readings.Adhesive(r),
			Resin:        readings.Resin(r),
			Tier:         tier,
			Ratio:        ratio,
			RatioDisplay: readings.FormatRatio(ratio),
			Fingerprint:  readings.Fingerprint(r),
		})
	}
	return events
}

// Latest returns the first n events. The backend returns history newest
// first, so no sorting is applied.
func Latest(events []AnomalyEvent, n int) []AnomalyEvent {
	if n < 0 {
		n = 0
	}
	if len(events) <= n {
		return events
	}
	return events[:n]
}

// SortByRecency returns a copy of events ordered newest first. Events with
// an unparsable timestamp keep their relative order at the end.
func SortByRecency(events []AnomalyEvent) []AnomalyEvent {
	sorted := make([]AnomalyEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasTimestamp != b.HasTimestamp {
			return a.HasTimestamp
		}
		return a.Timestamp.After(b.Timestamp)
	})
	return sorted
}

// Filter selects anomalies by tier on the alerts page.
type Filter string

// Supported filters.
const (
	FilterAll      Filter = "ALL"
	FilterCritical Filter = "CRITICAL"
	FilterWarning  Filter = "WARNING"
)

// Filters lists the filters in cycling order.
var Filters = []Filter{FilterAll, FilterCritical, FilterWarning}

// ParseFilter maps a filter name (any case) to a Filter.
func ParseFilter(s string) (Filter, bool) {
	f := Filter(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Filters {
		if f == known {
			return f, true
		}
	}
	return FilterAll, false
}

// Next returns the filter after f in cycling order.
func (f Filter) Next() Filter {
	for i, known := range Filters {
		if known == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Match reports whether an event passes the filter.
func (f Filter) Match(e AnomalyEvent) bool {
	switch f {
	case FilterCritical:
		return e.Tier == readings.TierCritical
	case FilterWarning:
		return e.Tier == readings.TierWarning
	default:
		return true
	}
}

// Apply returns the events that pass the filter, preserving order.
func (f Filter) Apply(events []AnomalyEvent) []AnomalyEvent {
	if f == FilterAll || f == "" {
		return events
	}
	var out []AnomalyEvent
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
