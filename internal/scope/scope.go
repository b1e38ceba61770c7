// Package scope resolves a user's role and the machines they may see.
package scope

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/nixlim/mixwatch/internal/api"
)

// Permission levels sent by the backend in the rights field.
const (
	RightsOperator   api.Rights = 0
	RightsAdmin      api.Rights = 1
	RightsSpecialist api.Rights = 2
)

// Role is the display label of a permission level.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSpecialist Role = "Specialist"
	RoleOperator   Role = "Operator"
	RoleUser       Role = "User"
)

// RoleFor maps a permission level to its role.
func RoleFor(r api.Rights) Role {
	switch r {
	case RightsAdmin:
		return RoleAdmin
	case RightsSpecialist:
		return RoleSpecialist
	case RightsOperator:
		return RoleOperator
	default:
		return RoleUser
	}
}

// IsAdmin reports whether the user sees every machine.
func IsAdmin(u api.User) bool {
	return u.Rights == RightsAdmin
}

// CanAcknowledge reports whether the user may acknowledge alerts.
func CanAcknowledge(u api.User) bool {
	return u.Rights == RightsAdmin || u.Rights == RightsSpecialist
}

// CanConfigure reports whether the user may change machine thresholds.
func CanConfigure(u api.User) bool {
	return u.Rights == RightsAdmin || u.Rights == RightsSpecialist
}

// AssignedMachine returns the id of the machine a user is assigned to, or ""
// when the profile carries none. The first requested_machines entry wins
// (its id, else its machine_id, else the scalar itself); machine_id is used
// only when requested_machines is absent.
func AssignedMachine(u api.User) string {
	req := bytes.TrimSpace(u.RequestedMachines)
	if len(req) == 0 || bytes.Equal(req, []byte("null")) || bytes.Equal(req, []byte("false")) {
		return u.MachineID.String()
	}

	switch req[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(req, &list); err != nil || len(list) == 0 {
			return ""
		}
		return machineRef(list[0])
	default:
		if id := machineRef(req); id != "" {
			return id
		}
		return u.MachineID.String()
	}
}

// machineRef reads a machine reference that is either an object with an id
// or machine_id field, or a bare id.
func machineRef(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '{' {
		var ref struct {
			ID        api.ID `json:"id"`
			MachineID api.ID `json:"machine_id"`
		}
		if err := json.Unmarshal(v, &ref); err != nil {
			return ""
		}
		if ref.ID != "" && ref.ID != "0" {
			return ref.ID.String()
		}
		return ref.MachineID.String()
	}
	var id api.ID
	if err := json.Unmarshal(v, &id); err != nil {
		return ""
	}
	if s := id.String(); s != "0" {
		return s
	}
	return ""
}

// Scope is the machine filter applied to backend queries.
type Scope struct {
	User      api.User
	MachineID string // empty means every machine
}

// All reports whether the scope covers every machine.
func (s Scope) All() bool {
	return s.MachineID == ""
}

// Includes reports whether a machine id is inside the scope.
func (s Scope) Includes(machineID string) bool {
	return s.All() || s.MachineID == machineID
}

func (s Scope) String() string {
	if s.All() {
		return "all machines"
	}
	return "machine " + strconv.Quote(s.MachineID)
}

// DetailFetcher loads the full profile of a user.
type DetailFetcher interface {
	GetUserDetail(ctx context.Context, id string) (api.User, error)
}

// Resolver computes the scope of a user, fetching the full profile when the
// cached one lacks assignment data.
type Resolver struct {
	fetcher DetailFetcher
}

// NewResolver creates a Resolver. fetcher may be nil, in which case the
// cached profile is used as-is.
func NewResolver(fetcher DetailFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve returns the scope for u. Admins and users without an assignment
// see every machine. A failed profile fetch is logged and the cached profile
// is used.
func (r *Resolver) Resolve(ctx context.Context, u api.User) Scope {
	current := u
	if r.fetcher != nil && u.ID != "" && !IsAdmin(u) && !u.HasScope() {
		detail, err := r.fetcher.GetUserDetail(ctx, u.ID.String())
		if err != nil {
			log.Printf("WARNING: fetching profile for user %s: %v", u.ID, err)
		} else {
			current = u.MergeDetail(detail)
		}
	}

	if IsAdmin(current) {
		return Scope{User: current}
	}
	return Scope{User: current, MachineID: AssignedMachine(current)}
}
