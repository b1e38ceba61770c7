// Package feed holds the page controllers behind each terminal view: the
// alert bell, the alerts page, the dashboard, a single machine, the records
// table, the user directory and the threshold editor. Controllers own their
// polling and are safe for concurrent use; views read immutable snapshots.
package feed

import (
	"context"
	"errors"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
	"github.com/nixlim/mixwatch/internal/session"
)

// ErrForbidden is returned when the signed-in user lacks the rights for an
// action.
var ErrForbidden = errors.New("insufficient rights")

// ErrNoSession is returned by user actions attempted while signed out.
var ErrNoSession = errors.New("not signed in")

// HistorySource loads reading history.
type HistorySource interface {
	GetHistory(ctx context.Context, q api.HistoryQuery) (api.HistoryPage, error)
}

// SummarySource loads the per-machine dashboard summary.
type SummarySource interface {
	GetSummary(ctx context.Context) ([]readings.Reading, error)
}

// MachineSource lists the machines known to the backend.
type MachineSource interface {
	GetMachines(ctx context.Context) ([]api.Machine, error)
}

// UserSource lists user accounts.
type UserSource interface {
	GetUsers(ctx context.Context) ([]api.User, error)
}

// Acknowledger records an operator acknowledgement of a reading.
type Acknowledger interface {
	Acknowledge(ctx context.Context, readingID, note string) error
}

// ThresholdBackend reads and writes per-machine ratio limits.
type ThresholdBackend interface {
	GetThresholds(ctx context.Context, machineID string) (api.Thresholds, error)
	UpdateThresholds(ctx context.Context, t api.Thresholds) error
}

// SessionSource returns the signed-in session, or nil.
type SessionSource interface {
	Current() *session.Session
}

// ScopeResolver computes the machine scope of a user.
type ScopeResolver interface {
	Resolve(ctx context.Context, u api.User) scope.Scope
}

// currentScope resolves the scope of the signed-in user. ok is false when
// nobody is signed in.
func currentScope(ctx context.Context, sessions SessionSource, scopes ScopeResolver) (scope.Scope, bool) {
	s := sessions.Current()
	if s == nil {
		return scope.Scope{}, false
	}
	return scopes.Resolve(ctx, s.User), true
}
