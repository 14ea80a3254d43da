// Package app provides the interactive Bubble Tea client: login, register,
// the patient list, and the per-patient dashboard.
package app

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"synoptic/cmd/synoptic/ui"
	"synoptic/internal/action"
	"synoptic/internal/clinical"
	"synoptic/internal/config"
	"synoptic/internal/route"
	"synoptic/internal/session"
	"synoptic/internal/voice"
	"synoptic/internal/workspace"
)

// User-facing messages outside the dashboard.
const (
	MsgLoginFailed     = "Login failed. Please try again."
	MsgRegisterFailed  = "Registration failed. Please try again."
	MsgRegistered      = "Registration successful! Redirecting to login..."
	MsgPatientsFailed  = "Could not fetch patient list."
	MsgPatientsLoading = "AI is analyzing patient risks..."
	MsgUnknownCommand  = "No command matched."
)

// Backend is everything the client asks of the remote API.
type Backend interface {
	workspace.Backend
	Login(ctx context.Context, email, password string) (session.User, error)
	Register(ctx context.Context, username, email, password string) error
	Logout(ctx context.Context) error
	ListPatients(ctx context.Context, userID string) ([]clinical.PatientSummary, error)
}

// DetectFunc opens the voice source when a dashboard is entered.
type DetectFunc func(config.VoiceConfig) (voice.Recognizer, error)

// Deps wires the model to its collaborators.
type Deps struct {
	Config *config.Config
	API    Backend
	Store  session.Store

	// Watcher reports logins and logouts made outside this process. Optional.
	Watcher *session.Watcher

	// DetectVoice defaults to voice.Detect.
	DetectVoice DetectFunc

	// Now defaults to time.Now.
	Now func() time.Time

	// NoticeDelay is how long the registration notice stays up. Defaults to
	// route.RegisterNoticeDelay.
	NoticeDelay time.Duration

	// Start is the first route. Defaults to the root route.
	Start route.Route
}

// Model is the Bubble Tea model for the whole client.
type Model struct {
	cfg         *config.Config
	api         Backend
	store       session.Store
	watcher     *session.Watcher
	detect      DetectFunc
	now         func() time.Time
	noticeDelay time.Duration
	start       route.Route

	ctx    context.Context
	cancel context.CancelFunc

	styles  ui.Styles
	md      *ui.Markdown
	layout  ui.LayoutConfig
	spinner spinner.Model

	route route.Route
	user  session.User

	login    loginForm
	register registerForm
	patients patientsPage
	dash     *dashboardPage

	// noticeGen invalidates registration redirects from an earlier visit
	noticeGen uint64
}

type loginForm struct {
	email    textinput.Model
	password textinput.Model
	focus    int
	slot     *action.Slot[session.User]
	err      string
}

type registerForm struct {
	username textinput.Model
	email    textinput.Model
	password textinput.Model
	focus    int
	slot     *action.Slot[struct{}]
	err      string
	notice   string
}

type patientsPage struct {
	list list.Model
	slot *action.Slot[[]clinical.PatientSummary]
}

// dashFocus selects which pane receives keys on the dashboard.
type dashFocus int

const (
	focusWorkspace dashFocus = iota
	focusRecord
)

type dashboardPage struct {
	d   *workspace.Dashboard
	rec voice.Recognizer

	notes      textarea.Model
	chat       textinput.Model
	record     viewport.Model
	transcript viewport.Model
	focus      dashFocus

	dialog       carePlanDialog
	voiceWarning bool
	status       string
}

type carePlanDialog struct {
	open     bool
	itemType string
	desc     textinput.Model
}

// patientItem is a list item for the patient list
type patientItem struct {
	summary clinical.PatientSummary
	chip    string
}

func (i patientItem) Title() string { return i.summary.Demographics.Name }
func (i patientItem) Description() string {
	return "Age: " + strconv.Itoa(i.summary.Demographics.Age) + " | Gender: " + i.summary.Demographics.Gender + "  " + i.chip
}
func (i patientItem) FilterValue() string { return i.summary.Demographics.Name }

// Messages for tea updates
type (
	loginDoneMsg struct {
		ticket action.Ticket
		user   session.User
		err    error
	}

	registerDoneMsg struct {
		ticket action.Ticket
		err    error
	}

	registerRedirectMsg struct{ gen uint64 }

	patientsMsg struct {
		ticket   action.Ticket
		patients []clinical.PatientSummary
		err      error
	}

	// jobDoneMsg carries a finished dashboard request. It is dropped when
	// the dashboard it belongs to is no longer shown.
	jobDoneMsg struct {
		dash       *workspace.Dashboard
		completion workspace.Completion
	}

	utteranceMsg struct {
		rec  voice.Recognizer
		text string
	}

	recognizerClosedMsg struct{ rec voice.Recognizer }

	sessionEventMsg session.Event

	logoutDoneMsg struct{ err error }
)
