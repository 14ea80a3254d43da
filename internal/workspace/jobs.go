package workspace

import (
	"context"
	"strings"
	"time"

	"synoptic/internal/clinical"
	"synoptic/internal/logging"
)

// NoteDateLayout is the date format sent with saved notes.
const NoteDateLayout = "2006-01-02"

// Backend is the subset of the API client the dashboard needs.
type Backend interface {
	GetPatient(ctx context.Context, id string) (clinical.Patient, error)
	Prognosis(ctx context.Context, id string) (string, error)
	StreamlineNote(ctx context.Context, notes string) (string, error)
	AddNote(ctx context.Context, id, content, date string) ([]clinical.HistoryEvent, error)
	AddCarePlanItem(ctx context.Context, id, itemType, description string) (clinical.Patient, error)
	Chat(ctx context.Context, question, patientID string) (string, error)
}

// Job is one outbound request. Run performs it and must not touch the
// dashboard; the returned Completion commits the outcome.
type Job struct {
	Name string
	run  func(ctx context.Context) Completion
}

// Run performs the request. It is safe to call off the UI loop.
func (j *Job) Run(ctx context.Context) Completion {
	return j.run(ctx)
}

// Completion is the outcome of a Job, applied on the UI loop.
type Completion struct {
	Name  string
	Err   error
	apply func()
}

// Apply commits the outcome to the dashboard.
func (c Completion) Apply() {
	if c.apply != nil {
		c.apply()
	}
}

// Execute runs jobs sequentially and applies each outcome. It is meant for
// headless callers that own the dashboard on the current goroutine.
func (d *Dashboard) Execute(ctx context.Context, jobs ...*Job) {
	for _, j := range jobs {
		if j == nil {
			continue
		}
		j.Run(ctx).Apply()
	}
}

// Load fetches the patient record.
func (d *Dashboard) Load() *Job {
	ticket := d.load.Begin()
	id := d.patientID
	return &Job{Name: "load", run: func(ctx context.Context) Completion {
		start := time.Now()
		p, err := d.api.GetPatient(ctx, id)
		return Completion{Name: "load", Err: err, apply: func() {
			d.audit.PatientAction(logging.AuditPatientView, id, start, err)
			if !d.load.Finish(ticket, p, err) {
				return
			}
			if err != nil {
				logging.Get(logging.CategoryWorkspace).Warn("load patient %s: %v", id, err)
				return
			}
			d.patient = p
			d.loaded = true
		}}
	}}
}

// RunPrognosis requests a prognosis report.
func (d *Dashboard) RunPrognosis() *Job {
	ticket := d.prognosis.Begin()
	id := d.patientID
	return &Job{Name: "prognosis", run: func(ctx context.Context) Completion {
		start := time.Now()
		report, err := d.api.Prognosis(ctx, id)
		return Completion{Name: "prognosis", Err: err, apply: func() {
			d.audit.PatientAction(logging.AuditPrognosis, id, start, err)
			if err != nil {
				logging.Get(logging.CategoryWorkspace).Warn("prognosis %s: %v", id, err)
			}
			d.prognosis.Finish(ticket, report, err)
		}}
	}}
}

// FormatNote sends the draft for SOAP formatting. A blank draft is a no-op
// and returns nil.
func (d *Dashboard) FormatNote() *Job {
	notes := d.draft
	if strings.TrimSpace(notes) == "" {
		return nil
	}
	d.saveSuccess = ""
	ticket := d.format.Begin()
	id := d.patientID
	return &Job{Name: "format", run: func(ctx context.Context) Completion {
		start := time.Now()
		formatted, err := d.api.StreamlineNote(ctx, notes)
		return Completion{Name: "format", Err: err, apply: func() {
			d.audit.Log(logging.AuditEvent{
				EventType:  logging.AuditNoteFormat,
				PatientID:  id,
				Success:    err == nil,
				Duration:   time.Since(start),
				TextLength: len(notes),
			})
			if err != nil {
				logging.Get(logging.CategoryWorkspace).Warn("format note: %v", err)
			}
			d.format.Finish(ticket, formatted, err)
		}}
	}}
}

// SaveNote appends the formatted note to the patient's history, dated today.
// With no formatted note it is a no-op and returns nil. A failed save keeps
// the draft and formatted note so the user can resubmit.
func (d *Dashboard) SaveNote() *Job {
	content := d.format.Result()
	if content == "" {
		return nil
	}
	d.saveSuccess = ""
	ticket := d.save.Begin()
	id := d.patientID
	date := d.now().UTC().Format(NoteDateLayout)
	return &Job{Name: "save", run: func(ctx context.Context) Completion {
		start := time.Now()
		history, err := d.api.AddNote(ctx, id, content, date)
		return Completion{Name: "save", Err: err, apply: func() {
			d.audit.PatientAction(logging.AuditNoteSave, id, start, err)
			if !d.save.Finish(ticket, history, err) {
				return
			}
			if err != nil {
				logging.Get(logging.CategoryWorkspace).Warn("save note for %s: %v", id, err)
				return
			}
			d.patient = d.patient.WithHistory(history)
			d.draft = ""
			d.format.Reset()
			d.saveSuccess = MsgSaveSucceeded
			logging.Workspace("note saved for %s (%d history entries)", id, len(history))
		}}
	}}
}

// SendChatInput sends the current chat input.
func (d *Dashboard) SendChatInput() *Job {
	return d.SendChat(d.chatInput)
}

// SendChat asks the assistant a question. Blank text is a no-op and returns
// nil. Replies are appended in arrival order; ChatBusy follows the latest
// question.
func (d *Dashboard) SendChat(text string) *Job {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	d.transcript = append(d.transcript, ChatMessage{Role: RoleUser, Text: text})
	d.chatInput = ""
	ticket := d.chat.Begin()
	id := d.patientID
	return &Job{Name: "chat", run: func(ctx context.Context) Completion {
		start := time.Now()
		answer, err := d.api.Chat(ctx, text, id)
		return Completion{Name: "chat", Err: err, apply: func() {
			d.audit.Log(logging.AuditEvent{
				EventType:  logging.AuditChatAsk,
				PatientID:  id,
				Success:    err == nil,
				Duration:   time.Since(start),
				TextLength: len(text),
			})
			reply := answer
			if err != nil {
				logging.Get(logging.CategoryWorkspace).Warn("chat for %s: %v", id, err)
				reply = MsgChatFailed
			}
			d.transcript = append(d.transcript, ChatMessage{Role: RoleAssistant, Text: reply})
			d.chat.Finish(ticket, answer, err)
		}}
	}}
}

// AddCarePlanItem orders a prescription or test. Unknown types and blank
// descriptions are no-ops returning nil.
func (d *Dashboard) AddCarePlanItem(itemType, description string) *Job {
	description = strings.TrimSpace(description)
	if description == "" || !clinical.ValidItemType(itemType) {
		return nil
	}
	ticket := d.carePlan.Begin()
	id := d.patientID
	return &Job{Name: "careplan", run: func(ctx context.Context) Completion {
		start := time.Now()
		p, err := d.api.AddCarePlanItem(ctx, id, itemType, description)
		return Completion{Name: "careplan", Err: err, apply: func() {
			d.audit.PatientAction(logging.AuditCarePlanAdd, id, start, err)
			if !d.carePlan.Finish(ticket, p, err) {
				return
			}
			if err != nil {
				logging.Get(logging.CategoryWorkspace).Warn("care plan for %s: %v", id, err)
				return
			}
			d.patient = p
			d.loaded = true
		}}
	}}
}
