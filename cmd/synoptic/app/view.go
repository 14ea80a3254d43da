package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"synoptic/cmd/synoptic/ui"
	"synoptic/internal/route"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

func (m Model) View() string {
	var body, hotkeys string
	switch m.route.Page {
	case route.PageRegister:
		body, hotkeys = m.renderRegister(), "Tab: next field | Enter: submit | Esc: back to login | Ctrl+C: quit"
	case route.PagePatients:
		body, hotkeys = m.renderPatients(), "Enter: open | /: filter | Ctrl+R: refresh | Ctrl+L: logout | Ctrl+C: quit"
	case route.PageDashboard:
		if m.dash != nil {
			return m.renderDashboard()
		}
	default:
		body, hotkeys = m.renderLogin(), "Tab: next field | Enter: sign in | Ctrl+R: register | Ctrl+C: quit"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(""),
		m.styles.Content.Render(body),
		m.styles.Footer.Render(hotkeys),
	)
}

func (m Model) renderHeader(status string) string {
	title := m.styles.Header.Render(" Synoptic MD ")
	tagline := m.styles.Muted.Render(" The AI-Powered Clinical Co-Pilot")
	parts := []string{title, tagline}
	if m.user.Username != "" {
		parts = append(parts, "  ", m.styles.Badge.Render("Dr. "+m.user.Username))
	}
	if status != "" {
		parts = append(parts, "  ", status)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, parts...),
		m.styles.RenderDivider(m.layout.ContentWidth()),
	)
}

func (m Model) renderField(label string, ti textinput.Model, focused bool) string {
	style := m.styles.FieldUnfocused
	if focused {
		style = m.styles.FieldFocused
	}
	return m.styles.Muted.Render(label) + "\n" + style.Render(ti.View())
}

func (m Model) renderLogin() string {
	f := m.login
	var sb strings.Builder
	sb.WriteString(ui.Logo(m.styles) + "\n\n")
	sb.WriteString(m.styles.Title.Render("Synoptic MD Login") + "\n\n")
	sb.WriteString(m.renderField("Email Address", f.email, f.focus == 0) + "\n")
	sb.WriteString(m.renderField("Password", f.password, f.focus == 1) + "\n")
	if f.err != "" {
		sb.WriteString("\n" + m.styles.Error.Render(f.err) + "\n")
	}
	if f.slot != nil && f.slot.Busy() {
		sb.WriteString("\n" + m.spinner.View() + " Signing in...\n")
	}
	sb.WriteString("\n" + m.styles.Muted.Render("Don't have an account? Press Ctrl+R to sign up."))
	return sb.String()
}

func (m Model) renderRegister() string {
	f := m.register
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Create Doctor Account") + "\n\n")
	sb.WriteString(m.renderField("Username", f.username, f.focus == 0) + "\n")
	sb.WriteString(m.renderField("Email Address", f.email, f.focus == 1) + "\n")
	sb.WriteString(m.renderField("Password", f.password, f.focus == 2) + "\n")
	if f.err != "" {
		sb.WriteString("\n" + m.styles.Error.Render(f.err) + "\n")
	}
	if f.notice != "" {
		sb.WriteString("\n" + m.styles.Success.Render(f.notice) + "\n")
	}
	if f.slot != nil && f.slot.Busy() {
		sb.WriteString("\n" + m.spinner.View() + " Creating account...\n")
	}
	return sb.String()
}

func (m Model) renderPatients() string {
	p := m.patients
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(fmt.Sprintf("Welcome, Dr. %s", m.user.Username)) + "\n\n")
	if p.slot == nil {
		return sb.String()
	}
	if p.slot.Busy() {
		sb.WriteString(m.spinner.View() + " " + MsgPatientsLoading)
		return sb.String()
	}
	if msg := p.slot.Err(); msg != "" {
		sb.WriteString(m.styles.Error.Render(msg) + "\n")
	}
	sb.WriteString(p.list.View())
	return sb.String()
}
