package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"synoptic/cmd/synoptic/ui"
	"synoptic/internal/clinical"
	"synoptic/internal/route"
	"synoptic/internal/voice"
	"synoptic/internal/workspace"
)

func newLayout(width, height int) ui.LayoutConfig {
	return ui.NewLayoutConfig(width, height)
}

// resize applies the current layout to every sized widget.
func (m Model) resize() Model {
	m.md.SetWidth(m.markdownWidth())
	if m.route.Page == route.PagePatients && m.patients.slot != nil {
		m.patients.list.SetSize(m.layout.ContentWidth(), m.layout.BodyHeight()-2)
	}
	if m.dash == nil {
		return m
	}

	recordW, workW := m.layout.Panes()
	h := m.layout.BodyHeight()
	recordH, workH := h, h
	if m.layout.IsCompact {
		recordH = h / 2
		workH = h - recordH
	}

	p := m.dash
	p.record.Width = ui.PanelContentWidth(recordW)
	p.record.Height = max(recordH-2, 3)

	inner := ui.PanelContentWidth(workW)
	p.notes.SetWidth(inner)
	p.notes.SetHeight(max(workH/3, ui.NoteEditorMin))
	p.chat.Width = max(inner-4, 10)
	p.transcript.Width = inner
	p.transcript.Height = max(workH-ui.TabBarHeight-ui.InputHeight-2, 3)
	return m
}

// refreshDashboard copies dashboard state into the widgets.
func (m Model) refreshDashboard() {
	p := m.dash
	if p == nil {
		return
	}
	d := p.d
	if p.notes.Value() != d.Draft() {
		p.notes.SetValue(d.Draft())
	}
	if p.chat.Value() != d.ChatInput() {
		p.chat.SetValue(d.ChatInput())
	}
	p.record.SetContent(m.renderRecord())
	p.transcript.SetContent(m.renderTranscript())
	p.transcript.GotoBottom()
}

// focusWorkspace focuses the input of the selected tab.
func (m Model) focusWorkspace() {
	p := m.dash
	p.notes.Blur()
	p.chat.Blur()
	p.dialog.desc.Blur()
	if p.focus != focusWorkspace || p.dialog.open {
		return
	}
	if p.d.Tab() == workspace.TabChat {
		p.chat.Focus()
	} else {
		p.notes.Focus()
	}
}

func focusFields(i int, fields ...*textinput.Model) {
	for n, f := range fields {
		if n == i {
			f.Focus()
		} else {
			f.Blur()
		}
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (m Model) renderDashboard() string {
	p := m.dash
	header := m.renderHeader(m.renderVoiceStatus())
	footer := m.styles.Footer.Render("Tab: notes/chat | Shift+Tab: record/workspace | Ctrl+P: prognosis | Ctrl+F: format | Ctrl+S: save | Ctrl+O: order | Ctrl+V: voice | Esc: patients | Ctrl+L: logout")

	var body string
	switch {
	case p.voiceWarning:
		body = m.renderOverlay(m.styles.Warning.Render(voice.UnsupportedMessage) + "\n\n" + m.styles.Muted.Render("Press Enter to continue."))
	case p.dialog.open:
		body = m.renderOverlay(m.renderCarePlanDialog())
	default:
		body = m.renderPanes()
	}
	if p.status != "" {
		footer = m.styles.Info.Render(p.status) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderVoiceStatus() string {
	d := m.dash.d
	switch {
	case !d.VoiceSupported():
		return m.styles.Muted.Render("voice unavailable")
	case d.Listening():
		return m.styles.Success.Render("● Listening")
	default:
		return m.styles.Muted.Render("○ Voice off")
	}
}

func (m Model) renderOverlay(content string) string {
	box := m.styles.Dialog.Width(ui.DialogWidth).Render(content)
	return lipgloss.Place(m.layout.ContentWidth(), m.layout.BodyHeight(), lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderPanes() string {
	p := m.dash
	recordW, workW := m.layout.Panes()

	recordStyle := m.styles.Panel.Width(recordW - ui.PanelBorderWidth*2)
	workStyle := m.styles.Panel.Width(workW - ui.PanelBorderWidth*2)
	if p.focus == focusRecord {
		recordStyle = recordStyle.BorderForeground(m.styles.Theme.Accent)
	} else {
		workStyle = workStyle.BorderForeground(m.styles.Theme.Accent)
	}

	record := recordStyle.Render(p.record.View())
	work := workStyle.Render(m.renderWorkspace())
	if m.layout.IsCompact {
		return lipgloss.JoinVertical(lipgloss.Left, record, work)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, record, " ", work)
}

func (m Model) renderWorkspace() string {
	p := m.dash
	d := p.d

	notesTab, chatTab := m.styles.TabInactive, m.styles.TabInactive
	if d.Tab() == workspace.TabChat {
		chatTab = m.styles.TabActive
	} else {
		notesTab = m.styles.TabActive
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Bottom, notesTab.Render("Clinical Notes"), chatTab.Render("AI Assistant"))

	var sb strings.Builder
	sb.WriteString(tabs + "\n\n")
	if d.Tab() == workspace.TabChat {
		sb.WriteString(p.transcript.View() + "\n")
		sb.WriteString(p.chat.View())
		return sb.String()
	}

	sb.WriteString(p.notes.View() + "\n")
	if d.Formatting() {
		sb.WriteString(m.spinner.View() + " Formatting note...\n")
	}
	if msg := d.FormatErr(); msg != "" {
		sb.WriteString(m.styles.Error.Render(msg) + "\n")
	}
	if note := d.FormattedNote(); note != "" {
		sb.WriteString("\n" + m.styles.Title.Render("Formatted SOAP Note") + "\n")
		sb.WriteString(m.md.Render(note))
		sb.WriteString(m.styles.Muted.Render("Ctrl+S: save to medical history") + "\n")
	}
	if d.Saving() {
		sb.WriteString(m.spinner.View() + " Saving note...\n")
	}
	if msg := d.SaveErr(); msg != "" {
		sb.WriteString(m.styles.Error.Render(msg) + "\n")
	}
	if msg := d.SaveSuccess(); msg != "" {
		sb.WriteString(m.styles.Success.Render(msg) + "\n")
	}
	return sb.String()
}

func (m Model) renderTranscript() string {
	d := m.dash.d
	var sb strings.Builder
	for _, msg := range d.Transcript() {
		if msg.Role == workspace.RoleUser {
			sb.WriteString(m.styles.Bold.Foreground(m.styles.Theme.Primary).Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(msg.Text) + "\n\n")
			continue
		}
		sb.WriteString(m.styles.Bold.Foreground(m.styles.Theme.Accent).Render("Synoptic") + "\n")
		sb.WriteString(m.md.Render(msg.Text) + "\n")
	}
	if d.ChatBusy() {
		sb.WriteString(m.spinner.View() + " Thinking...\n")
	}
	return sb.String()
}

func (m Model) renderCarePlanDialog() string {
	dlg := m.dash.dialog
	option := func(itemType, label string) string {
		if dlg.itemType == itemType {
			return m.styles.TabActive.Render("[x] " + label)
		}
		return m.styles.TabInactive.Render("[ ] " + label)
	}
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Add New Care Plan Order") + "\n\n")
	sb.WriteString(m.styles.Muted.Render("Order Type (Tab to change)") + "\n")
	sb.WriteString(option(clinical.ItemPrescription, "Prescription") + option(clinical.ItemTest, "Lab Test") + "\n\n")
	sb.WriteString(dlg.desc.View() + "\n\n")
	sb.WriteString(m.styles.Muted.Render("Enter: add order | Esc: cancel"))
	return sb.String()
}

// =============================================================================
// PATIENT RECORD
// =============================================================================

func (m Model) renderRecord() string {
	d := m.dash.d
	if !d.Loaded() {
		if msg := d.LoadErr(); msg != "" {
			return m.styles.Error.Render(msg)
		}
		return m.spinner.View() + " Loading patient data..."
	}
	p := d.Patient()

	var sb strings.Builder
	section := func(title string) {
		sb.WriteString("\n" + m.styles.Title.Render(title) + "\n")
	}

	// Header
	sb.WriteString(m.styles.Title.Render(p.Demographics.Name))
	if p.RiskScore != "" {
		sb.WriteString("  " + m.styles.RiskChip(p.RiskScore))
	}
	sb.WriteString("\n" + m.styles.Muted.Render(fmt.Sprintf("Age: %d | Gender: %s | ID: %s", p.Demographics.Age, p.Demographics.Gender, p.ID)) + "\n")

	section("AI Synopsis")
	if p.AISummary != "" {
		sb.WriteString(m.styles.Body.Render(p.AISummary) + "\n")
	}
	for _, line := range p.AIInsights {
		sb.WriteString("  • " + line + "\n")
	}

	section("Health Timeline")
	if len(p.MedicalHistory) == 0 {
		sb.WriteString(m.styles.Muted.Render("No history recorded.") + "\n")
	}
	for _, ev := range p.MedicalHistory {
		icon := clinical.Classify(ev.Event).Icon()
		sb.WriteString(fmt.Sprintf("  %s %s  %s\n", icon, m.styles.Muted.Render(ev.Date), ev.Event))
	}

	if table := ui.LabTrendTable(clinical.LabSeries(p.LabResults)); len(table.Rows) > 0 {
		sb.WriteString("\n" + table.View(m.styles))
	}

	section("Care Plan")
	writeList := func(label string, items []string) {
		sb.WriteString(m.styles.Bold.Render(label) + "\n")
		if len(items) == 0 {
			sb.WriteString(m.styles.Muted.Render("  none") + "\n")
		}
		for _, it := range items {
			sb.WriteString("  - " + it + "\n")
		}
	}
	writeList("Prescriptions", p.CarePlan.Prescriptions)
	writeList("Pending Tests", p.CarePlan.PendingTests)
	writeList("Upcoming Appointments", p.CarePlan.UpcomingAppointments)
	if d.CarePlanBusy() {
		sb.WriteString(m.spinner.View() + " Adding order...\n")
	}
	if msg := d.CarePlanErr(); msg != "" {
		sb.WriteString(m.styles.Error.Render(msg) + "\n")
	}

	section("Prognosis Engine")
	switch {
	case d.PrognosisBusy():
		sb.WriteString(m.spinner.View() + " Generating prognosis...\n")
	case d.PrognosisErr() != "":
		sb.WriteString(m.styles.Error.Render(d.PrognosisErr()) + "\n")
	case d.PrognosisReport() != "":
		sb.WriteString(m.md.Render(d.PrognosisReport()))
	default:
		sb.WriteString(m.styles.Muted.Render("Press Ctrl+P to run a prognosis.") + "\n")
	}
	return sb.String()
}
