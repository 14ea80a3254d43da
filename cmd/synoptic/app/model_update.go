package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"synoptic/internal/clinical"
	"synoptic/internal/logging"
	"synoptic/internal/route"
	"synoptic/internal/session"
	"synoptic/internal/voice"
	"synoptic/internal/workspace"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = newLayout(msg.Width, msg.Height)
		m = m.resize()
		m.refreshDashboard()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case navigateMsg:
		return m.navigate(msg.to)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Shutdown()
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case registerDoneMsg:
		if m.route.Page != route.PageRegister || !m.register.slot.Finish(msg.ticket, struct{}{}, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			logging.Get(logging.CategorySession).Warn("register: %v", msg.err)
			m.register.err = serverMessage(msg.err, MsgRegisterFailed)
			return m, nil
		}
		m.register.notice = MsgRegistered
		return m, m.registerRedirect(m.noticeGen)

	case registerRedirectMsg:
		if m.route.Page != route.PageRegister || msg.gen != m.noticeGen {
			return m, nil
		}
		return m.navigate(route.AfterRegister())

	case patientsMsg:
		if m.route.Page != route.PagePatients || !m.patients.slot.Finish(msg.ticket, msg.patients, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			logging.Get(logging.CategoryUI).Warn("list patients: %v", msg.err)
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.patients))
		for _, p := range msg.patients {
			items = append(items, patientItem{summary: p, chip: m.styles.RiskChip(p.RiskScore)})
		}
		cmd := m.patients.list.SetItems(items)
		logging.Audit().Log(logging.AuditEvent{
			EventType: logging.AuditPatientList,
			User:      m.user.Username,
			Success:   true,
		})
		return m, cmd

	case jobDoneMsg:
		if m.dash == nil || msg.dash != m.dash.d {
			logging.UIDebug("dropping %s result for a closed dashboard", msg.completion.Name)
			return m, nil
		}
		msg.completion.Apply()
		m.refreshDashboard()
		return m, nil

	case utteranceMsg:
		if m.dash == nil || msg.rec != m.dash.rec {
			return m, nil
		}
		matched, jobs := m.dash.d.HandleVoice(msg.text)
		if matched {
			m.dash.status = "Heard: " + msg.text
		}
		m.refreshDashboard()
		return m, tea.Batch(m.runJobs(m.dash.d, jobs...), waitUtterance(msg.rec))

	case recognizerClosedMsg:
		if m.dash != nil && msg.rec == m.dash.rec {
			logging.Voice("voice source closed")
			m.dash.d.StopListening()
			m.dash.rec = nil
			m.refreshDashboard()
		}
		return m, nil

	case sessionEventMsg:
		return m.handleSessionEvent(session.Event(msg))

	case logoutDoneMsg:
		if msg.err != nil {
			logging.SessionDebug("backend logout: %v", msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	if m.route.Page != route.PageLogin && m.route.Page != route.PageRoot {
		return m, nil
	}
	if !m.login.slot.Finish(msg.ticket, msg.user, msg.err) {
		return m, nil
	}
	email := m.login.email.Value()
	if msg.err != nil {
		logging.Get(logging.CategorySession).Warn("login %s: %v", email, msg.err)
		logging.Audit().SessionEvent(logging.AuditLogin, email, false)
		m.login.err = serverMessage(msg.err, MsgLoginFailed)
		return m, nil
	}
	if err := m.store.Save(msg.user); err != nil {
		logging.Get(logging.CategorySession).Error("save session: %v", err)
		m.login.err = MsgLoginFailed
		return m, nil
	}
	logging.AuditAs(msg.user.Username).SessionEvent(logging.AuditLogin, msg.user.Username, true)
	logging.Session("logged in as %s", msg.user.Username)
	return m.navigate(route.AfterLogin())
}

func (m Model) handleSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	next := m.waitSession()
	switch ev.Kind {
	case session.LoggedOut:
		if !m.route.Protected() {
			return m, next
		}
		logging.Session("session ended elsewhere; returning to login")
		logging.AuditAs(m.user.Username).SessionEvent(logging.AuditSessionExpire, m.user.Username, true)
		nm, cmd := m.navigate(route.Login)
		return nm, tea.Batch(cmd, next)
	case session.LoggedIn:
		if m.route.Protected() || m.route.Page == route.PageRegister {
			return m, next
		}
		logging.Session("session started elsewhere for %s", ev.User.Username)
		nm, cmd := m.navigate(route.AfterLogin())
		return nm, tea.Batch(cmd, next)
	}
	return m, next
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.route.Page {
	case route.PageRegister:
		return m.handleRegisterKey(msg)
	case route.PagePatients:
		return m.handlePatientsKey(msg)
	case route.PageDashboard:
		if m.dash == nil {
			return m, nil
		}
		return m.handleDashboardKey(msg)
	default:
		return m.handleLoginKey(msg)
	}
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.login
	switch msg.String() {
	case "ctrl+r":
		return m.navigate(route.Register)
	case "tab", "shift+tab", "down", "up":
		f.focus = 1 - f.focus
		focusFields(f.focus, &f.email, &f.password)
		return m, nil
	case "enter":
		if f.focus == 0 {
			f.focus = 1
			focusFields(f.focus, &f.email, &f.password)
			return m, nil
		}
		email, password := strings.TrimSpace(f.email.Value()), f.password.Value()
		if email == "" || password == "" || f.slot.Busy() {
			return m, nil
		}
		f.err = ""
		t := f.slot.Begin()
		return m, m.loginCmd(t, email, password)
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return m, cmd
}

func (m Model) handleRegisterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.register
	switch msg.String() {
	case "esc":
		return m.navigate(route.Login)
	case "tab", "down":
		f.focus = (f.focus + 1) % 3
		focusFields(f.focus, &f.username, &f.email, &f.password)
		return m, nil
	case "shift+tab", "up":
		f.focus = (f.focus + 2) % 3
		focusFields(f.focus, &f.username, &f.email, &f.password)
		return m, nil
	case "enter":
		if f.focus < 2 {
			f.focus++
			focusFields(f.focus, &f.username, &f.email, &f.password)
			return m, nil
		}
		username := strings.TrimSpace(f.username.Value())
		email := strings.TrimSpace(f.email.Value())
		password := f.password.Value()
		if username == "" || email == "" || password == "" || f.slot.Busy() || f.notice != "" {
			return m, nil
		}
		f.err = ""
		t := f.slot.Begin()
		return m, m.registerCmd(t, username, email, password)
	}

	var cmd tea.Cmd
	switch f.focus {
	case 0:
		f.username, cmd = f.username.Update(msg)
	case 1:
		f.email, cmd = f.email.Update(msg)
	default:
		f.password, cmd = f.password.Update(msg)
	}
	return m, cmd
}

func (m Model) handlePatientsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.patients.list.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+l":
			return m.logout()
		case "ctrl+r":
			return m.navigate(route.Patients)
		case "enter":
			if item, ok := m.patients.list.SelectedItem().(patientItem); ok {
				return m.navigate(route.Dashboard(item.summary.ID))
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.patients.list, cmd = m.patients.list.Update(msg)
	return m, cmd
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.dash
	d := p.d

	// The voice warning blocks the page until dismissed.
	if p.voiceWarning {
		switch msg.String() {
		case "enter", "esc", " ":
			p.voiceWarning = false
		}
		return m, nil
	}
	if p.dialog.open {
		return m.handleDialogKey(msg)
	}

	switch msg.String() {
	case "esc":
		return m.navigate(route.Patients)
	case "ctrl+l":
		return m.logout()
	case "tab":
		d.SwitchTab(1 - d.Tab())
		m.focusWorkspace()
		m.refreshDashboard()
		return m, nil
	case "shift+tab":
		if p.focus == focusWorkspace {
			p.focus = focusRecord
		} else {
			p.focus = focusWorkspace
		}
		m.focusWorkspace()
		return m, nil
	case "ctrl+p":
		return m, m.runAndRefresh(d.RunPrognosis())
	case "ctrl+f":
		d.SetDraft(p.notes.Value())
		return m, m.runAndRefresh(d.FormatNote())
	case "ctrl+s":
		return m, m.runAndRefresh(d.SaveNote())
	case "ctrl+o":
		p.dialog.open = true
		p.dialog.itemType = clinical.ItemPrescription
		p.dialog.desc.SetValue("")
		p.dialog.desc.Focus()
		p.notes.Blur()
		p.chat.Blur()
		return m, nil
	case "ctrl+v":
		if !d.VoiceSupported() {
			p.status = voice.UnsupportedMessage
			return m, nil
		}
		if d.ToggleListening() {
			p.status = "Listening..."
		} else {
			p.status = "Stopped listening."
		}
		m.refreshDashboard()
		return m, nil
	}

	var cmd tea.Cmd
	if p.focus == focusRecord {
		p.record, cmd = p.record.Update(msg)
		return m, cmd
	}

	if d.Tab() == workspace.TabChat {
		if msg.String() == "enter" {
			return m.submitChat()
		}
		p.chat, cmd = p.chat.Update(msg)
		d.SetChatInput(p.chat.Value())
		return m, cmd
	}

	p.notes, cmd = p.notes.Update(msg)
	d.SetDraft(p.notes.Value())
	return m, cmd
}

// submitChat sends the chat input. A leading slash routes the rest through
// the voice command table, so "/ask ..." and "/format note" work typed.
func (m Model) submitChat() (tea.Model, tea.Cmd) {
	p := m.dash
	d := p.d
	text := strings.TrimSpace(p.chat.Value())
	if cmdText, ok := strings.CutPrefix(text, "/"); ok {
		d.SetChatInput("")
		matched, jobs := d.HandleUtterance(cmdText)
		if !matched {
			p.status = MsgUnknownCommand
		} else {
			p.status = ""
		}
		m.refreshDashboard()
		return m, m.runJobs(d, jobs...)
	}
	d.SetChatInput(p.chat.Value())
	return m, m.runAndRefresh(d.SendChatInput())
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.dash
	dlg := &p.dialog
	switch msg.String() {
	case "esc":
		dlg.open = false
		m.focusWorkspace()
		return m, nil
	case "tab", "shift+tab", "left", "right":
		if dlg.itemType == clinical.ItemPrescription {
			dlg.itemType = clinical.ItemTest
		} else {
			dlg.itemType = clinical.ItemPrescription
		}
		return m, nil
	case "enter":
		job := p.d.AddCarePlanItem(dlg.itemType, dlg.desc.Value())
		if job == nil {
			return m, nil
		}
		dlg.open = false
		m.focusWorkspace()
		return m, m.runAndRefresh(job)
	}
	var cmd tea.Cmd
	dlg.desc, cmd = dlg.desc.Update(msg)
	return m, cmd
}

// runAndRefresh redraws the busy state and dispatches job. A nil job is a
// failed precondition and does nothing.
func (m Model) runAndRefresh(job *workspace.Job) tea.Cmd {
	m.refreshDashboard()
	if job == nil {
		return nil
	}
	return m.runJobs(m.dash.d, job)
}
