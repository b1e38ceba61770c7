package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/feed"
	"github.com/nixlim/mixwatch/internal/scope"
)

type usersLoadedMsg struct {
	err error
}

type searchDialog struct {
	active bool
	input  textinput.Model
}

func newSearchDialog(current string) searchDialog {
	in := textinput.New()
	in.Prompt = "Search: "
	in.Placeholder = "name, email or login"
	in.CharLimit = 64
	in.SetValue(current)
	in.Focus()
	return searchDialog{active: true, input: in}
}

func (m Model) usersView() feed.UsersView {
	if m.users == nil {
		return feed.UsersView{Page: 1, TotalPages: 1}
	}
	return m.users.View()
}

func (m Model) loadUsersCmd() tea.Cmd {
	if m.users == nil {
		return nil
	}
	users, ctx := m.users, m.ctx
	return func() tea.Msg {
		return usersLoadedMsg{err: users.Load(ctx)}
	}
}

// openUsers switches to the user directory, which only admins may see.
func (m Model) openUsers() (tea.Model, tea.Cmd) {
	if m.users == nil || m.view == ViewUsers {
		return m, nil
	}
	if !m.users.Allowed() {
		m.statusMessage = "The user directory requires admin rights."
		return m, nil
	}
	return m.switchView(ViewUsers, "")
}

func (m Model) handleUsersLoaded(msg usersLoadedMsg) (tea.Model, tea.Cmd) {
	m.clampUserCursor()
	if msg.err != nil && m.view == ViewUsers {
		m.statusMessage = "Failed to load users."
	}
	return m, nil
}

func (m *Model) clampUserCursor() {
	n := len(m.usersView().Users)
	if m.userCursor >= n {
		m.userCursor = n - 1
	}
	if m.userCursor < 0 {
		m.userCursor = 0
	}
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.users == nil {
		return m, nil
	}
	v := m.usersView()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.userCursor > 0 {
			m.userCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.userCursor < len(v.Users)-1 {
			m.userCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.users.NextPage() {
			m.userCursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.users.PrevPage() {
			m.userCursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadUsersCmd()

	case key.Matches(msg, m.keys.Filter):
		m.users.CycleRole()
		m.userCursor = 0
		return m, nil

	case key.Matches(msg, m.keys.Sort):
		m.users.ToggleSort()
		m.userCursor = 0
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.search = newSearchDialog(v.Query.Search)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Enter):
		if m.userCursor < 0 || m.userCursor >= len(v.Users) {
			return m, nil
		}
		u := v.Users[m.userCursor]
		m.detail = detailOverlay{
			active:  true,
			title:   "User " + u.ID.String(),
			content: formatUserDetail(u),
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search = searchDialog{}
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.search.input.Value())
		m.search = searchDialog{}
		if m.users != nil {
			m.users.SetSearch(text)
		}
		m.userCursor = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

func (m Model) renderSearchDialog() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Search users"))
	b.WriteString("\n\n")
	b.WriteString(m.search.input.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Enter: Apply  Esc: Cancel"))
	return dialogStyle.Render(b.String())
}

// roleTitle is the directory label of a permission level.
func roleTitle(r api.Rights) string {
	switch r {
	case scope.RightsAdmin:
		return "Administrator"
	case scope.RightsSpecialist:
		return "Technical Specialist"
	default:
		return "Field Operator"
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatUserDetail(u api.User) string {
	lines := []string{
		"Name:        " + u.Name,
		"Login:       " + orNA(u.Login),
		"Email:       " + orNA(u.Email),
		"Designation: " + orNA(u.Designation),
		"ID card:     " + orNA(u.CNIC),
		"Role:        " + roleTitle(u.Rights),
	}
	if id := scope.AssignedMachine(u); id != "" {
		lines = append(lines, "Machine:     "+id)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderUsers(w, h int) string {
	v := m.usersView()
	inner := w - 4

	role := "All roles"
	if v.Query.Role != nil {
		role = roleTitle(*v.Query.Role)
	}
	search := "no search"
	if v.Query.Search != "" {
		search = fmt.Sprintf("%q", v.Query.Search)
	}

	lines := []string{
		panelTitleStyle.Render(fmt.Sprintf("Users  page %d/%d", v.Page, v.TotalPages)),
		dimStyle.Render(truncate(fmt.Sprintf("%s | %s | %s first | %d matching", role, search, v.Query.Sort, v.Matched), inner)),
	}
	switch {
	case !v.Loaded:
		lines = append(lines, dimStyle.Render("Loading..."))
	case v.Err != nil && v.Matched == 0:
		lines = append(lines, alertCriticalStyle.Render("Failed to load users from the backend."))
	case len(v.Users) == 0:
		lines = append(lines, dimStyle.Render("No users match the criteria."))
	default:
		lines = append(lines, dimStyle.Render(userRow("NAME", "LOGIN", "ID CARD", "ROLE", inner)))
		start, end := visibleWindow(len(v.Users), m.userCursor, h-6)
		for i := start; i < end; i++ {
			u := v.Users[i]
			row := userRow(u.Name, u.Login, orNA(u.CNIC), roleTitle(u.Rights), inner)
			if i == m.userCursor {
				row = selectedStyle.Render(row)
			}
			lines = append(lines, row)
		}
	}

	return renderBorderedPanel(strings.Join(lines, "\n"), w, h)
}

func userRow(name, login, card, role string, w int) string {
	fixed := 16 + 16 + 22
	nameW := w - fixed
	if nameW < 10 {
		nameW = 10
	}
	return padRight(name, nameW) + padRight(login, 16) + padRight(card, 16) + padRight(role, 22)
}
