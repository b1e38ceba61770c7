package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/session"
)

type ViewState int

const (
	ViewLogin ViewState = iota
	ViewDashboard
	ViewAlerts
	ViewRecords
	ViewMachine
	ViewUsers
)

func (v ViewState) String() string {
	switch v {
	case ViewDashboard:
		return "Dashboard"
	case ViewAlerts:
		return "Alerts"
	case ViewRecords:
		return "Records"
	case ViewMachine:
		return "Machine"
	case ViewUsers:
		return "Users"
	default:
		return "Login"
	}
}

// appViews is the Tab cycling order once signed in. Admins also cycle
// through ViewUsers.
var appViews = []ViewState{ViewDashboard, ViewAlerts, ViewRecords}

type tickMsg time.Time

type startMsg struct{}

type SessionProvider interface {
	Current() *session.Session
	Login(ctx context.Context, login, password string) (*session.Session, error)
	Logout()
}

type BellProvider interface {
	Open(ctx context.Context)
	Close()
	View() feed.BellView
	OpenFeed() []alerts.AnomalyEvent
	DismissToast(id string) bool
}

type AlertsProvider interface {
	Open(ctx context.Context, highlight string)
	Close()
	View() feed.AlertsView
	CycleFilter() alerts.Filter
	Acknowledge(ctx context.Context, readingID, note string) error
}

type DashboardProvider interface {
	Open(ctx context.Context)
	Close()
	View() feed.DashboardView
	Refresh()
}

type RecordsProvider interface {
	SetFilter(f feed.RecordFilter) error
	NextPage() bool
	PrevPage() bool
	LoadMachines(ctx context.Context) error
	Load(ctx context.Context) error
	View() feed.RecordsView
}

type MachineDetailProvider interface {
	Open(ctx context.Context, machineID string) error
	Close()
	View() feed.MachineDetailView
	Refresh()
}

type UsersProvider interface {
	Allowed() bool
	Load(ctx context.Context) error
	View() feed.UsersView
	SetSearch(text string)
	CycleRole()
	ToggleSort()
	NextPage() bool
	PrevPage() bool
}

type ThresholdsProvider interface {
	Load(ctx context.Context, machineID string) api.Thresholds
	Save(ctx context.Context, th api.Thresholds) error
	CanEdit() bool
}

type Model struct {
	view     ViewState
	width    int
	height   int
	keys     KeyMap
	quitting bool

	cfg config.Config
	ctx context.Context

	sessions   SessionProvider
	bell       BellProvider
	alertsPage AlertsProvider
	dashboard  DashboardProvider
	records    RecordsProvider
	machine    MachineDetailProvider
	users      UsersProvider
	thresholds ThresholdsProvider

	login loginForm

	bellOpen   bool
	bellItems  []alerts.AnomalyEvent
	bellCursor int

	dashCursor       int
	alertCursor      int
	recordCursor     int
	machineCursor    int
	userCursor       int
	pendingHighlight string

	ack       ackDialog
	threshold thresholdDialog
	dates     dateDialog
	search    searchDialog
	detail    detailOverlay

	statusMessage string

	isPersistent bool
	refreshRate  time.Duration
	onShutdown   func()
}

func NewModel(cfg config.Config, opts ...ModelOption) Model {
	m := Model{
		view:        ViewLogin,
		keys:        DefaultKeyMap(),
		cfg:         cfg,
		ctx:         context.Background(),
		login:       newLoginForm(),
		refreshRate: cfg.Display.RefreshRate(),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

type ModelOption func(*Model)

func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) { m.ctx = ctx }
}

func WithSessionProvider(s SessionProvider) ModelOption {
	return func(m *Model) { m.sessions = s }
}

func WithBellProvider(b BellProvider) ModelOption {
	return func(m *Model) { m.bell = b }
}

func WithAlertsProvider(a AlertsProvider) ModelOption {
	return func(m *Model) { m.alertsPage = a }
}

func WithDashboardProvider(d DashboardProvider) ModelOption {
	return func(m *Model) { m.dashboard = d }
}

func WithRecordsProvider(r RecordsProvider) ModelOption {
	return func(m *Model) { m.records = r }
}

func WithMachineDetailProvider(d MachineDetailProvider) ModelOption {
	return func(m *Model) { m.machine = d }
}

func WithUsersProvider(u UsersProvider) ModelOption {
	return func(m *Model) { m.users = u }
}

func WithThresholdsProvider(t ThresholdsProvider) ModelOption {
	return func(m *Model) { m.thresholds = t }
}

func WithOnShutdown(fn func()) ModelOption {
	return func(m *Model) { m.onShutdown = fn }
}

func WithPersistenceFlag(isPersistent bool) ModelOption {
	return func(m *Model) { m.isPersistent = isPersistent }
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return startMsg{} },
		m.tickCmd(),
	)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case startMsg:
		if m.currentSession() != nil {
			return m.enterApp(), nil
		}
		return m, m.login.focusCmd()

	case tickMsg:
		m.followHighlight()
		return m, m.tickCmd()

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case ackResultMsg:
		return m.handleAckResult(msg)

	case thresholdsLoadedMsg:
		return m.handleThresholdsLoaded(msg)

	case thresholdsSavedMsg:
		return m.handleThresholdsSaved(msg)

	case recordsLoadedMsg:
		m.clampRecordCursor()
		return m, nil

	case usersLoadedMsg:
		return m.handleUsersLoaded(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	switch {
	case m.view == ViewLogin:
		return m.handleLoginKey(msg)
	case m.ack.active:
		return m.handleAckKey(msg)
	case m.threshold.active:
		return m.handleThresholdKey(msg)
	case m.dates.active:
		return m.handleDatesKey(msg)
	case m.search.active:
		return m.handleSearchKey(msg)
	case m.detail.active:
		return m.handleDetailKey(msg)
	case m.bellOpen:
		return m.handleBellKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Bell):
		return m.openBell(), nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.adjacentView(1), "")

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.adjacentView(-1), "")

	case key.Matches(msg, m.keys.Logout):
		return m.logout()

	case key.Matches(msg, m.keys.Users):
		return m.openUsers()

	case key.Matches(msg, m.keys.Dismiss):
		m.dismissNewestToast()
		return m, nil
	}

	switch m.view {
	case ViewDashboard:
		return m.handleDashboardKey(msg)
	case ViewAlerts:
		return m.handleAlertsKey(msg)
	case ViewRecords:
		return m.handleRecordsKey(msg)
	case ViewMachine:
		return m.handleMachineKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	}

	return m, nil
}

func (m Model) currentSession() *session.Session {
	if m.sessions == nil {
		return nil
	}
	return m.sessions.Current()
}

// enterApp starts the signed-in experience on the dashboard.
func (m Model) enterApp() Model {
	m.view = ViewDashboard
	m.dashCursor = 0
	m.statusMessage = ""
	if m.bell != nil {
		m.bell.Open(m.ctx)
	}
	if m.dashboard != nil {
		m.dashboard.Open(m.ctx)
	}
	return m
}

func (m Model) tabViews() []ViewState {
	if m.users != nil && m.users.Allowed() {
		return append(append([]ViewState(nil), appViews...), ViewUsers)
	}
	return appViews
}

// adjacentView steps through the Tab order. Views outside it, such as the
// machine page, step back to the dashboard.
func (m Model) adjacentView(step int) ViewState {
	views := m.tabViews()
	for i, v := range views {
		if v == m.view {
			return views[(i+step+len(views))%len(views)]
		}
	}
	return ViewDashboard
}

// switchView closes the current page's poll loop and opens the target.
// highlight is passed to the alerts page.
func (m Model) switchView(v ViewState, highlight string) (Model, tea.Cmd) {
	m.closePage()
	m.view = v
	m.statusMessage = ""
	m.bellOpen = false

	switch v {
	case ViewDashboard:
		m.dashCursor = 0
		if m.dashboard != nil {
			m.dashboard.Open(m.ctx)
		}
	case ViewAlerts:
		m.alertCursor = 0
		m.pendingHighlight = highlight
		if m.alertsPage != nil {
			m.alertsPage.Open(m.ctx, highlight)
		}
	case ViewRecords:
		m.recordCursor = 0
		return m, m.loadRecordsCmd(true)
	case ViewUsers:
		m.userCursor = 0
		return m, m.loadUsersCmd()
	}
	return m, nil
}

func (m Model) closePage() {
	switch m.view {
	case ViewDashboard:
		if m.dashboard != nil {
			m.dashboard.Close()
		}
	case ViewAlerts:
		if m.alertsPage != nil {
			m.alertsPage.Close()
		}
	case ViewMachine:
		if m.machine != nil {
			m.machine.Close()
		}
	}
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	m.closePage()
	if m.bell != nil {
		m.bell.Close()
	}
	if m.sessions != nil {
		m.sessions.Logout()
	}
	m.view = ViewLogin
	m.bellOpen = false
	m.login = newLoginForm()
	m.statusMessage = ""
	return m, m.login.focusCmd()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.view != ViewLogin {
		m.closePage()
		if m.bell != nil {
			m.bell.Close()
		}
	}
	m.quitting = true
	if m.onShutdown != nil {
		m.onShutdown()
	}
	return m, tea.Quit
}

// followHighlight moves the alerts cursor onto the highlighted anomaly once
// it has been loaded.
func (m *Model) followHighlight() {
	if m.view != ViewAlerts || m.pendingHighlight == "" || m.alertsPage == nil {
		return
	}
	for i, e := range m.alertsPage.View().Events {
		if e.Fingerprint == m.pendingHighlight {
			m.alertCursor = i
			m.pendingHighlight = ""
			return
		}
	}
}

func (m *Model) dismissNewestToast() {
	if m.bell == nil {
		return
	}
	toasts := m.bell.View().Toasts
	if len(toasts) == 0 {
		return
	}
	m.bell.DismissToast(toasts[len(toasts)-1].ID)
}

func (m Model) headerIndicators() string {
	var parts []string
	if !m.isPersistent {
		parts = append(parts, "[No persistence]")
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + dimStyle.Render(strings.Join(parts, " "))
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var output string
	switch m.view {
	case ViewLogin:
		output = m.renderLogin()
	default:
		output = m.renderApp()
	}

	if m.height > 0 {
		lines := strings.Split(output, "\n")
		if len(lines) > m.height {
			lines = lines[:m.height]
			output = strings.Join(lines, "\n")
		}
	}

	return output
}
