package app

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"synoptic/internal/action"
	"synoptic/internal/clinical"
	"synoptic/internal/logging"
	"synoptic/internal/route"
	"synoptic/internal/session"
	"synoptic/internal/voice"
	"synoptic/internal/workspace"
)

// =============================================================================
// NAVIGATION
// =============================================================================

// navigate leaves the current page and enters r, redirecting protected
// routes to login when no session is stored.
func (m Model) navigate(r route.Route) (Model, tea.Cmd) {
	u, err := m.store.Load()
	loggedIn := err == nil
	if loggedIn {
		m.user = u
	} else {
		m.user = session.User{}
	}

	target := route.Guard(r, loggedIn)
	if target != r {
		logging.UI("route %s redirected to %s", r, target)
	}
	m = m.leave()
	m.route = target
	logging.UIDebug("enter %s", target)

	switch target.Page {
	case route.PageRegister:
		m.register = m.newRegisterForm()
		return m, nil
	case route.PagePatients:
		return m.enterPatients()
	case route.PageDashboard:
		return m.enterDashboard(target.PatientID)
	default:
		m.login = m.newLoginForm()
		return m, nil
	}
}

// leave releases whatever the current page holds open.
func (m Model) leave() Model {
	if m.dash != nil {
		if m.dash.rec != nil {
			m.dash.rec.Stop()
		}
		logging.UIDebug("left dashboard for patient %s", m.dash.d.PatientID())
		m.dash = nil
	}
	m.noticeGen++
	return m
}

func (m Model) logout() (Model, tea.Cmd) {
	name := m.user.Username
	if err := m.store.Clear(); err != nil {
		logging.Get(logging.CategorySession).Error("clear session: %v", err)
	}
	logging.AuditAs(name).SessionEvent(logging.AuditLogout, name, true)
	logging.Session("logged out %s", name)
	m, cmd := m.navigate(route.Login)
	return m, tea.Batch(cmd, m.logoutCmd())
}

func newInput(placeholder string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "| "
	ti.CharLimit = 256
	ti.Width = width
	// Blink messages are not routed back to inputs.
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func (m Model) newLoginForm() loginForm {
	f := loginForm{
		email:    newInput("Email Address", 40),
		password: newInput("Password", 40),
		slot:     action.NewSlot[session.User](MsgLoginFailed),
	}
	f.password.EchoMode = textinput.EchoPassword
	f.email.Focus()
	return f
}

func (m Model) newRegisterForm() registerForm {
	f := registerForm{
		username: newInput("Username", 40),
		email:    newInput("Email Address", 40),
		password: newInput("Password", 40),
		slot:     action.NewSlot[struct{}](MsgRegisterFailed),
	}
	f.password.EchoMode = textinput.EchoPassword
	f.username.Focus()
	return f
}

func (m Model) enterPatients() (Model, tea.Cmd) {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, m.layout.ContentWidth(), m.layout.BodyHeight()-2)
	l.Title = "Your Patient Command Center"
	l.Styles.Title = m.styles.Title
	l.SetShowHelp(false)

	m.patients = patientsPage{
		list: l,
		slot: action.NewSlot[[]clinical.PatientSummary](MsgPatientsFailed),
	}
	t := m.patients.slot.Begin()
	return m, m.patientsCmd(t, m.user.ID)
}

func (m Model) enterDashboard(patientID string) (Model, tea.Cmd) {
	rec, err := m.detect(m.cfg.Voice)
	supported := err == nil && rec != nil
	if !supported {
		logging.Voice("voice unavailable for dashboard %s: %v", patientID, err)
		rec = nil
	}

	d, err := workspace.New(patientID, m.api,
		workspace.WithVoice(voice.NewCapture(supported)),
		workspace.WithWakeWord(m.cfg.Voice.WakeWord),
		workspace.WithUser(m.user.Username),
		workspace.WithClock(m.now),
	)
	if err != nil {
		if rec != nil {
			rec.Stop()
		}
		logging.Get(logging.CategoryUI).Error("open dashboard %s: %v", patientID, err)
		m.route = route.Patients
		return m.enterPatients()
	}

	page := &dashboardPage{
		d:            d,
		rec:          rec,
		notes:        textarea.New(),
		chat:         newInput("Ask about this patient, or /ask, /format note ...", 60),
		record:       viewport.New(0, 0),
		transcript:   viewport.New(0, 0),
		voiceWarning: !supported,
		dialog: carePlanDialog{
			itemType: clinical.ItemPrescription,
			desc:     newInput("Description (e.g., Metformin 500mg BID)", 50),
		},
	}
	page.notes.Placeholder = "Dictate or type clinical notes..."
	page.notes.ShowLineNumbers = false
	page.notes.CharLimit = 0
	page.notes.Cursor.SetMode(cursor.CursorStatic)
	page.notes.Focus()
	m.dash = page
	m = m.resize()
	m.refreshDashboard()

	cmds := []tea.Cmd{m.runJobs(d, d.Load())}
	if rec != nil {
		if err := rec.Start(m.ctx); err != nil {
			logging.Get(logging.CategoryVoice).Error("start recognizer: %v", err)
		}
		cmds = append(cmds, waitUtterance(rec))
	}
	return m, tea.Batch(cmds...)
}
