package workspace

import "synoptic/internal/command"

// DefaultWakeWord may precede any voice command, optionally after "hey".
const DefaultWakeWord = "synoptic"

// commands is the dashboard's command table, in evaluation order.
func (d *Dashboard) commands() []command.Command {
	w := d.wakeWord
	return []command.Command{
		{Name: "open-notes", Templates: command.Phrases(w, "open notes"), Action: func(string) {
			d.SwitchTab(TabNotes)
		}},
		{Name: "open-chat", Templates: command.Phrases(w, "open chat"), Action: func(string) {
			d.SwitchTab(TabChat)
		}},
		{Name: "run-prognosis", Templates: command.Phrases(w, "run prognosis"), Action: func(string) {
			d.enqueue(d.RunPrognosis())
		}},
		{Name: "format-note", Templates: command.Phrases(w, "format note"), Action: func(string) {
			d.enqueue(d.FormatNote())
		}},
		{Name: "save-note", Templates: command.Phrases(w, "save note"), Action: func(string) {
			d.enqueue(d.SaveNote())
		}},
		{Name: "ask", Templates: command.Phrases(w, "ask *"), Action: func(question string) {
			d.SwitchTab(TabChat)
			d.enqueue(d.SendChat(question))
		}},
		{Name: "new-note", Templates: dictation(w), Action: func(text string) {
			d.SwitchTab(TabNotes)
			d.AppendToDraft(text)
		}},
		{Name: "clear-note", Templates: command.Phrases(w, "clear note"), Action: func(string) {
			d.ClearDraft()
		}},
		{Name: "stop-listening", Templates: command.Phrases(w, "stop listening"), Action: func(string) {
			d.StopListening()
		}},
		{Name: "start-listening", Templates: command.Phrases(w, "start listening"), Action: func(string) {
			d.StartListening()
		}},
	}
}

// dictation accepts "hey <wake> new note ..." and the short form "note ...".
func dictation(wakeWord string) []command.Template {
	short := command.MustTemplate("note *")
	if wakeWord == "" {
		return []command.Template{short}
	}
	return []command.Template{command.MustTemplate("(hey) " + wakeWord + " new note *"), short}
}
