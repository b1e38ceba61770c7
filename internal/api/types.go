package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nixlim/mixwatch/internal/readings"
)

// ID is an identifier the backend sends as either a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Rights is the numeric permission level of a user. The backend sends it as
// a number or a numeric string.
type Rights int

func (r *Rights) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*r = Rights(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*r = Rights(n)
	return nil
}

// User is the profile returned by login and the user detail endpoint.
// RequestedMachines is kept raw because its shape varies: a list of machine
// objects, a list of ids, or a single id.
type User struct {
	ID                ID              `json:"id"`
	Name              string          `json:"name,omitempty"`
	Login             string          `json:"login,omitempty"`
	Email             string          `json:"email,omitempty"`
	Designation       string          `json:"designation,omitempty"`
	CNIC              string          `json:"cnic,omitempty"`
	Rights            Rights          `json:"rights"`
	MachineID         ID              `json:"machine_id,omitempty"`
	RequestedMachines json.RawMessage `json:"requested_machines,omitempty"`
}

// HasScope reports whether the profile carries machine assignment data.
func (u User) HasScope() bool {
	req := bytes.TrimSpace(u.RequestedMachines)
	return len(req) > 0 && !bytes.Equal(req, []byte("null"))
}

// MergeDetail overlays the non-empty fields of detail onto u.
func (u User) MergeDetail(detail User) User {
	if detail.ID != "" {
		u.ID = detail.ID
	}
	if detail.Name != "" {
		u.Name = detail.Name
	}
	if detail.Login != "" {
		u.Login = detail.Login
	}
	if detail.Email != "" {
		u.Email = detail.Email
	}
	if detail.Rights != 0 {
		u.Rights = detail.Rights
	}
	if detail.MachineID != "" {
		u.MachineID = detail.MachineID
	}
	if detail.HasScope() {
		u.RequestedMachines = detail.RequestedMachines
	}
	return u
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Machine is one mixing machine known to the backend.
type Machine struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// HistoryQuery filters the reading history endpoint. Zero values are omitted.
type HistoryQuery struct {
	Page      int
	Limit     int
	MachineID string
	StartDate string
	EndDate   string
	Status    string
}

// HistoryPage is one page of reading history.
type HistoryPage struct {
	Readings   []readings.Reading
	TotalPages int
}

// Thresholds are the per-machine ratio limits.
type Thresholds struct {
	MachineID   string  `json:"machine_id"`
	MinRatio    float64 `json:"min_ratio"`
	MaxRatio    float64 `json:"max_ratio"`
	TargetRatio float64 `json:"target_ratio"`
}

// UnmarshalJSON accepts ratios as JSON numbers or numeric strings, which is
// how NUMERIC columns often arrive.
func (t *Thresholds) UnmarshalJSON(b []byte) error {
	var raw struct {
		MachineID   ID              `json:"machine_id"`
		MinRatio    json.RawMessage `json:"min_ratio"`
		MaxRatio    json.RawMessage `json:"max_ratio"`
		TargetRatio json.RawMessage `json:"target_ratio"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.MachineID = raw.MachineID.String()
	t.MinRatio = flexFloat(raw.MinRatio)
	t.MaxRatio = flexFloat(raw.MaxRatio)
	t.TargetRatio = flexFloat(raw.TargetRatio)
	return nil
}

func flexFloat(v json.RawMessage) float64 {
	if len(v) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
