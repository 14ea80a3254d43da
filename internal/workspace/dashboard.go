// Package workspace holds the per-patient dashboard state: the record, the
// note composer, the chat transcript, and the voice command table.
//
// A Dashboard is owned by one goroutine (the UI loop). Operations that need
// the network return a Job; the Job runs anywhere, and its Completion is
// applied back on the owning goroutine.
package workspace

import (
	"fmt"
	"strings"
	"time"

	"synoptic/internal/action"
	"synoptic/internal/clinical"
	"synoptic/internal/command"
	"synoptic/internal/logging"
	"synoptic/internal/voice"
)

// Tabs of the interactive workspace.
const (
	TabNotes = 0
	TabChat  = 1
)

// User-facing messages.
const (
	Greeting           = `How can I help you? Say "start listening" or type /ask <question>`
	MsgPrognosisFailed = "Failed to generate prognosis."
	MsgFormatFailed    = "Failed to format note."
	MsgSaveFailed      = "Failed to save note."
	MsgSaveSucceeded   = "Note saved successfully!"
	MsgChatFailed      = "Sorry, an error occurred."
	MsgCarePlanFailed  = "Failed to add item to care plan."
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript entry.
type ChatMessage struct {
	Role Role
	Text string
}

// Dashboard is the state of one patient view.
type Dashboard struct {
	patientID string
	api       Backend
	router    *command.Router
	capture   *voice.Capture
	audit     *logging.AuditLogger
	now       func() time.Time
	wakeWord  string

	patient clinical.Patient
	loaded  bool

	load      *action.Slot[clinical.Patient]
	prognosis *action.Slot[string]
	format    *action.Slot[string]
	save      *action.Slot[[]clinical.HistoryEvent]
	carePlan  *action.Slot[clinical.Patient]
	chat      *action.Slot[string]

	draft       string
	chatInput   string
	saveSuccess string
	transcript  []ChatMessage
	tab         int

	// jobs produced by the command action currently dispatching
	pending []*Job
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithClock sets the clock used for note dates.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// WithWakeWord sets the word that may prefix voice commands.
func WithWakeWord(word string) Option {
	return func(d *Dashboard) { d.wakeWord = word }
}

// WithVoice attaches a listening toggle. Without it voice is unsupported.
func WithVoice(c *voice.Capture) Option {
	return func(d *Dashboard) { d.capture = c }
}

// WithUser stamps audit events with the clinician's name.
func WithUser(username string) Option {
	return func(d *Dashboard) { d.audit = logging.AuditAs(username) }
}

// New creates the dashboard for patientID. It does not fetch anything; call
// Load and run the returned job.
func New(patientID string, api Backend, opts ...Option) (*Dashboard, error) {
	d := &Dashboard{
		patientID:  patientID,
		api:        api,
		audit:      logging.Audit(),
		now:        time.Now,
		wakeWord:   DefaultWakeWord,
		load:       action.NewSlot[clinical.Patient](fmt.Sprintf("Could not load data for patient %s.", patientID)),
		prognosis:  action.NewSlot[string](MsgPrognosisFailed),
		format:     action.NewSlot[string](MsgFormatFailed),
		save:       action.NewSlot[[]clinical.HistoryEvent](MsgSaveFailed),
		carePlan:   action.NewSlot[clinical.Patient](MsgCarePlanFailed),
		chat:       action.NewSlot[string](MsgChatFailed),
		transcript: []ChatMessage{{Role: RoleAssistant, Text: Greeting}},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.capture == nil {
		d.capture = voice.NewCapture(false)
	}

	router, err := command.NewRouter(d.commands()...)
	if err != nil {
		return nil, fmt.Errorf("build command table: %w", err)
	}
	d.router = router
	logging.Workspace("dashboard created for patient %s (voice supported: %v)", patientID, d.capture.Supported())
	return d, nil
}

// PatientID returns the patient this dashboard shows.
func (d *Dashboard) PatientID() string { return d.patientID }

// Patient returns the last committed record.
func (d *Dashboard) Patient() clinical.Patient { return d.patient }

// Loaded reports whether a record has been committed.
func (d *Dashboard) Loaded() bool { return d.loaded }

// Loading reports whether the record fetch is in flight.
func (d *Dashboard) Loading() bool { return d.load.Busy() }

// LoadErr returns the load failure message.
func (d *Dashboard) LoadErr() string { return d.load.Err() }

// PrognosisBusy reports whether a prognosis request is in flight.
func (d *Dashboard) PrognosisBusy() bool { return d.prognosis.Busy() }

// PrognosisReport returns the last report.
func (d *Dashboard) PrognosisReport() string { return d.prognosis.Result() }

// PrognosisErr returns the prognosis failure message.
func (d *Dashboard) PrognosisErr() string { return d.prognosis.Err() }

// Formatting reports whether the draft is being formatted.
func (d *Dashboard) Formatting() bool { return d.format.Busy() }

// FormattedNote returns the SOAP note awaiting save.
func (d *Dashboard) FormattedNote() string { return d.format.Result() }

// FormatErr returns the format failure message.
func (d *Dashboard) FormatErr() string { return d.format.Err() }

// Saving reports whether a save is in flight.
func (d *Dashboard) Saving() bool { return d.save.Busy() }

// SaveErr returns the save failure message.
func (d *Dashboard) SaveErr() string { return d.save.Err() }

// SaveSuccess returns the confirmation after a save.
func (d *Dashboard) SaveSuccess() string { return d.saveSuccess }

// CarePlanBusy reports whether a care plan order is in flight.
func (d *Dashboard) CarePlanBusy() bool { return d.carePlan.Busy() }

// CarePlanErr returns the care plan failure message.
func (d *Dashboard) CarePlanErr() string { return d.carePlan.Err() }

// ChatBusy reports whether the latest chat request is unanswered.
func (d *Dashboard) ChatBusy() bool { return d.chat.Busy() }

// Transcript returns a copy of the chat history.
func (d *Dashboard) Transcript() []ChatMessage {
	return append([]ChatMessage(nil), d.transcript...)
}

// Draft returns the raw note being composed.
func (d *Dashboard) Draft() string { return d.draft }

// ChatInput returns the unsent chat text.
func (d *Dashboard) ChatInput() string { return d.chatInput }

// Tab returns the selected workspace tab.
func (d *Dashboard) Tab() int { return d.tab }

// Listening reports whether voice utterances are being routed.
func (d *Dashboard) Listening() bool { return d.capture.Listening() }

// VoiceSupported reports whether voice input is available.
func (d *Dashboard) VoiceSupported() bool { return d.capture.Supported() }

// Router returns the command table.
func (d *Dashboard) Router() *command.Router { return d.router }

// =============================================================================
// LOCAL STATE
// =============================================================================

// SwitchTab selects a panel. Out-of-range indices are ignored; the other
// panel's state is never touched.
func (d *Dashboard) SwitchTab(i int) {
	if i != TabNotes && i != TabChat {
		return
	}
	d.tab = i
}

// AppendToDraft adds dictated text to the draft, space-separated.
func (d *Dashboard) AppendToDraft(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if d.draft == "" {
		d.draft = text
		return
	}
	d.draft = d.draft + " " + text
}

// ClearDraft empties the draft.
func (d *Dashboard) ClearDraft() { d.draft = "" }

// SetDraft replaces the draft (typed edits).
func (d *Dashboard) SetDraft(text string) { d.draft = text }

// SetChatInput replaces the unsent chat text.
func (d *Dashboard) SetChatInput(text string) { d.chatInput = text }

// StartListening turns voice routing on if supported.
func (d *Dashboard) StartListening() bool { return d.capture.Start() }

// StopListening turns voice routing off.
func (d *Dashboard) StopListening() { d.capture.Stop() }

// ToggleListening flips voice routing and returns the new state.
func (d *Dashboard) ToggleListening() bool { return d.capture.Toggle() }

// =============================================================================
// UTTERANCES
// =============================================================================

// HandleUtterance routes typed or recognized text through the command table.
// It returns whether a command matched and the jobs that command started.
func (d *Dashboard) HandleUtterance(text string) (bool, []*Job) {
	m, ok := d.router.Match(text)
	if !ok {
		logging.RoutingDebug("patient %s: no command for %q", d.patientID, strings.TrimSpace(text))
		return false, nil
	}
	logging.Routing("patient %s: %s via %q", d.patientID, m.Command.Name, m.Template.String())
	d.audit.VoiceCommand(m.Command.Name, true)

	d.pending = nil
	m.Command.Action(m.Capture)
	jobs := d.pending
	d.pending = nil
	return true, jobs
}

// HandleVoice routes a recognized utterance only while listening.
func (d *Dashboard) HandleVoice(text string) (bool, []*Job) {
	u, ok := d.capture.Accept(text)
	if !ok {
		return false, nil
	}
	return d.HandleUtterance(u)
}

func (d *Dashboard) enqueue(j *Job) {
	if j != nil {
		d.pending = append(d.pending, j)
	}
}
