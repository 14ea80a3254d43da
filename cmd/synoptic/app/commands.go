package app

import (
	"errors"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"synoptic/internal/action"
	"synoptic/internal/api"
	"synoptic/internal/logging"
	"synoptic/internal/voice"
	"synoptic/internal/workspace"
)

// =============================================================================
// ASYNC COMMANDS
// =============================================================================
// Each command performs I/O off the UI loop and returns a message that
// Update commits.

func (m Model) loginCmd(t action.Ticket, email, password string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		u, err := m.api.Login(ctx, email, password)
		return loginDoneMsg{ticket: t, user: u, err: err}
	}
}

func (m Model) registerCmd(t action.Ticket, username, email, password string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.api.Register(ctx, username, email, password)
		return registerDoneMsg{ticket: t, err: err}
	}
}

func (m Model) registerRedirect(gen uint64) tea.Cmd {
	return tea.Tick(m.noticeDelay, func(time.Time) tea.Msg {
		return registerRedirectMsg{gen: gen}
	})
}

func (m Model) patientsCmd(t action.Ticket, userID string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		patients, err := m.api.ListPatients(ctx, userID)
		return patientsMsg{ticket: t, patients: patients, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return logoutDoneMsg{err: m.api.Logout(ctx)}
	}
}

// runJobs runs each dashboard job concurrently. Completions come back
// tagged with the dashboard that issued them.
func (m Model) runJobs(d *workspace.Dashboard, jobs ...*workspace.Job) tea.Cmd {
	ctx := m.ctx
	cmds := make([]tea.Cmd, 0, len(jobs))
	for _, j := range jobs {
		if j == nil {
			continue
		}
		job := j
		logging.UIDebug("dispatch %s for patient %s", job.Name, d.PatientID())
		cmds = append(cmds, func() tea.Msg {
			return jobDoneMsg{dash: d, completion: job.Run(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func waitUtterance(rec voice.Recognizer) tea.Cmd {
	if rec == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-rec.Utterances()
		if !ok {
			return recognizerClosedMsg{rec: rec}
		}
		return utteranceMsg{rec: rec, text: text}
	}
}

func (m Model) waitSession() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	events := m.watcher.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg(ev)
	}
}

// serverMessage prefers the error text the backend sent in its body.
func serverMessage(err error, fallback string) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.Message == "" || apiErr.Message == http.StatusText(apiErr.Status) {
		return fallback
	}
	return apiErr.Message
}
