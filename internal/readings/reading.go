// Package readings holds the raw machine reading record returned by the
// backend and the pure functions derived from it: ratio resolution, status
// classification and fingerprinting.
package readings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Reading is one raw machine reading as returned by the backend. Field names
// differ between backend versions, so values are kept undecoded and read only
// through the accessors and alias lists in this package.
type Reading struct {
	raw map[string]json.RawMessage
}

// UnmarshalJSON keeps every field of the JSON object as a raw value.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding reading: %w", err)
	}
	r.raw = raw
	return nil
}

// MarshalJSON writes the reading back out with its original field names.
func (r Reading) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.raw)
}

// FromMap builds a Reading from already-decoded values. Values that cannot be
// encoded are dropped.
func FromMap(m map[string]any) Reading {
	raw := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		raw[k] = data
	}
	return Reading{raw: raw}
}

// lookup returns the raw value for key. Absent keys and JSON null both report
// false.
func (r Reading) lookup(key string) (json.RawMessage, bool) {
	v, ok := r.raw[key]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

// first returns the value of the first alias that is present and non-null.
func (r Reading) first(aliases []string) (json.RawMessage, bool) {
	for _, key := range aliases {
		if v, ok := r.lookup(key); ok {
			return v, true
		}
	}
	return nil, false
}

// Text returns the textual form of a field, or "" when absent.
func (r Reading) Text(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		return ""
	}
	return rawText(v)
}

// MachineID returns the machine identifier as text.
func (r Reading) MachineID() string {
	return r.Text("machine_id")
}

// ReadingID returns the reading identifier as text.
func (r Reading) ReadingID() string {
	return r.Text("reading_id")
}

// TimestampText returns the timestamp exactly as the backend sent it.
func (r Reading) TimestampText() string {
	return r.Text("timestamp")
}

// Timestamp parses the reading timestamp. The second return is false when the
// field is missing or in an unknown layout.
func (r Reading) Timestamp() (time.Time, bool) {
	return ParseTimestamp(r.TimestampText())
}

// MachineName returns the machine display name carried on the reading, either
// as a nested Machine object or a flat machine_name field.
func (r Reading) MachineName() string {
	if v, ok := r.lookup("Machine"); ok {
		var nested struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(v, &nested); err == nil && nested.Name != "" {
			return nested.Name
		}
	}
	return r.Text("machine_name")
}

// DisplayName returns the machine name, falling back to "Node <id>".
func (r Reading) DisplayName() string {
	if name := r.MachineName(); name != "" {
		return name
	}
	return "Node " + r.MachineID()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp layouts the backend is known to emit.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// rawText renders a raw JSON value as text: strings unquoted, numbers in
// shortest round-trip form, anything else verbatim.
func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return string(v)
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return string(v)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return string(v)
	}
}

// rawNumber coerces a raw JSON value to a finite float64. Numeric strings are
// parsed; anything unparsable or non-finite becomes 0.
func rawNumber(v json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// With returns a copy of r with key set to value. A value that cannot be
// encoded leaves the copy unchanged.
func (r Reading) With(key string, value any) Reading {
	out := Reading{raw: make(map[string]json.RawMessage, len(r.raw)+1)}
	for k, v := range r.raw {
		out.raw[k] = v
	}
	data, err := json.Marshal(value)
	if err != nil {
		return out
	}
	out.raw[key] = data
	return out
}

// Merge overlays readings left to right; later fields win.
func Merge(rs ...Reading) Reading {
	out := Reading{raw: make(map[string]json.RawMessage)}
	for _, r := range rs {
		for k, v := range r.raw {
			out.raw[k] = v
		}
	}
	return out
}

// Empty reports whether the reading carries no fields.
func (r Reading) Empty() bool {
	return len(r.raw) == 0
}
