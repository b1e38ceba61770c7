package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/readings"
	"github.com/nixlim/mixwatch/internal/scope"
	"github.com/nixlim/mixwatch/internal/session"
)

var errBackend = fmt.Errorf("backend down: %w", api.ErrNetwork)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Polling.AlertsIntervalSeconds = 3600
	cfg.Polling.DashboardIntervalSeconds = 3600
	return cfg
}

func reading(t *testing.T, raw string) readings.Reading {
	t.Helper()
	var r readings.Reading
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return r
}

// anomaly builds a Critical reading with a distinct fingerprint.
func anomaly(t *testing.T, id string, ts string) readings.Reading {
	t.Helper()
	return reading(t, fmt.Sprintf(`{"reading_id":%q,"machine_id":1,"machine_name":"Mixer","timestamp":%q,"adhesive_weight":50,"resin_weight":100}`, id, ts))
}

func normal(t *testing.T, id string) readings.Reading {
	t.Helper()
	return reading(t, fmt.Sprintf(`{"reading_id":%q,"machine_id":1,"timestamp":"2024-05-01T10:00:00Z","adhesive_weight":100,"resin_weight":100}`, id))
}

type fakeHistory struct {
	mu      sync.Mutex
	rows    []readings.Reading
	total   int
	err     error
	queries []api.HistoryQuery
	block   chan struct{} // when set, GetHistory waits for it or ctx
}

func (f *fakeHistory) GetHistory(ctx context.Context, q api.HistoryQuery) (api.HistoryPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return api.HistoryPage{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return api.HistoryPage{}, f.err
	}
	return api.HistoryPage{Readings: append([]readings.Reading(nil), f.rows...), TotalPages: f.total}, nil
}

func (f *fakeHistory) set(rows ...readings.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
	f.err = nil
}

func (f *fakeHistory) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeHistory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeHistory) lastQuery() api.HistoryQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return api.HistoryQuery{}
	}
	return f.queries[len(f.queries)-1]
}

type fakeSessions struct {
	mu sync.Mutex
	s  *session.Session
}

func signedIn(id string, rights api.Rights) *fakeSessions {
	return &fakeSessions{s: &session.Session{User: api.User{ID: api.ID(id), Name: "user " + id, Rights: rights}, Token: "tok"}}
}

func (f *fakeSessions) Current() *session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSessions) switchTo(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = &session.Session{User: api.User{ID: api.ID(id), Rights: scope.RightsAdmin}}
}

type fakeScopes struct {
	machineID string
}

func (f fakeScopes) Resolve(_ context.Context, u api.User) scope.Scope {
	return scope.Scope{User: u, MachineID: f.machineID}
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []alerts.Toast
}

func (r *recordingNotifier) Notify(t alerts.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

type fakeAcks struct {
	mu    sync.Mutex
	acked map[string]string
	err   error
}

func (f *fakeAcks) Acknowledge(_ context.Context, readingID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.acked == nil {
		f.acked = make(map[string]string)
	}
	f.acked[readingID] = note
	return nil
}

type fakeMachines struct {
	machines []api.Machine
	err      error
}

func (f fakeMachines) GetMachines(context.Context) ([]api.Machine, error) {
	return f.machines, f.err
}

type fakeSummary struct {
	rows []readings.Reading
	err  error
}

func (f fakeSummary) GetSummary(context.Context) ([]readings.Reading, error) {
	return f.rows, f.err
}

type fakeThresholdBackend struct {
	got     api.Thresholds
	getErr  error
	saved   []api.Thresholds
	saveErr error
}

func (f *fakeThresholdBackend) GetThresholds(_ context.Context, machineID string) (api.Thresholds, error) {
	if f.getErr != nil {
		return api.Thresholds{}, f.getErr
	}
	got := f.got
	got.MachineID = machineID
	return got, nil
}

func (f *fakeThresholdBackend) UpdateThresholds(_ context.Context, t api.Thresholds) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, t)
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
