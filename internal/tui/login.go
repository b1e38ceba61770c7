package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/session"
)

type loginResultMsg struct {
	session *session.Session
	err     error
}

type loginForm struct {
	inputs []textinput.Model
	focus  int
	err    string
	busy   bool
}

func newLoginForm() loginForm {
	login := textinput.New()
	login.Prompt = "Login:    "
	login.Placeholder = "username"
	login.CharLimit = 64
	login.Focus()

	password := textinput.New()
	password.Prompt = "Password: "
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	return loginForm{inputs: []textinput.Model{login, password}}
}

func (f loginForm) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (f *loginForm) setFocus(i int) {
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.login.busy {
		return m, nil
	}

	// Letters belong to the text fields, so only non-printing keys navigate.
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.login.setFocus(m.login.focus + 1)
		return m, nil

	case tea.KeyShiftTab, tea.KeyUp:
		m.login.setFocus(m.login.focus - 1)
		return m, nil

	case tea.KeyEnter:
		if m.login.focus == 0 {
			m.login.setFocus(1)
			return m, nil
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.login.inputs[m.login.focus], cmd = m.login.inputs[m.login.focus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.sessions == nil {
		return m, nil
	}
	login := strings.TrimSpace(m.login.inputs[0].Value())
	password := m.login.inputs[1].Value()
	m.login.busy = true
	m.login.err = ""

	sessions, ctx := m.sessions, m.ctx
	return m, func() tea.Msg {
		s, err := sessions.Login(ctx, login, password)
		return loginResultMsg{session: s, err: err}
	}
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		m.login.err = loginErrorText(msg.err)
		m.login.inputs[1].SetValue("")
		return m, nil
	}
	return m.enterApp(), nil
}

func loginErrorText(err error) string {
	switch {
	case errors.Is(err, api.ErrValidation):
		return "Login and password are required."
	case errors.Is(err, api.ErrAuth):
		return "Invalid login or password."
	case errors.Is(err, api.ErrNetwork):
		return "Cannot reach the server: " + err.Error()
	default:
		return err.Error()
	}
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("mixwatch - sign in"))
	b.WriteString("\n\n")
	for _, in := range m.login.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case m.login.busy:
		b.WriteString(dimStyle.Render("Signing in..."))
	case m.login.err != "":
		b.WriteString(alertCriticalStyle.Render(m.login.err))
	default:
		b.WriteString(dimStyle.Render("Enter: Sign in  Tab: Next field  Ctrl+C: Quit"))
	}
	if !m.isPersistent {
		b.WriteString("\n" + dimStyle.Render("[No persistence] session will not be remembered"))
	}

	form := dialogStyle.Render(b.String())
	if m.width == 0 || m.height == 0 {
		return form
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}
