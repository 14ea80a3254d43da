package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"synoptic/internal/clinical"
	"synoptic/internal/logging"
	"synoptic/internal/workspace"
)

var (
	noteDate string
	sayDraft string
	nowFunc  = time.Now
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Clinical note commands",
}

var noteFormatCmd = &cobra.Command{
	Use:   "format [notes...]",
	Short: "Format free-text notes as a SOAP note",
	Long:  `Formats the given notes, or stdin when no arguments are given.`,
	RunE:  runNoteFormat,
}

var noteSaveCmd = &cobra.Command{
	Use:   "save <patient-id> [note...]",
	Short: "Append a note to the patient's medical history",
	Long: `Appends the note (or stdin when only the patient ID is given) to the
patient's medical history, dated today unless --date is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNoteSave,
}

var careplanCmd = &cobra.Command{
	Use:   "careplan",
	Short: "Care plan commands",
}

var careplanAddCmd = &cobra.Command{
	Use:   "add <patient-id> <prescription|test> <description...>",
	Short: "Order a prescription or lab test",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runCareplanAdd,
}

var askCmd = &cobra.Command{
	Use:   "ask <patient-id> <question...>",
	Short: "Ask the AI assistant about a patient",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

var sayCmd = &cobra.Command{
	Use:   "say <patient-id> <utterance...>",
	Short: "Run a voice command against a patient dashboard",
	Long: `Routes an utterance through the same command table the interactive
dashboard uses for voice input, then prints what changed.

Examples:
  synoptic say p1 "hey synoptic run prognosis"
  synoptic say p1 ask what is her latest a1c
  synoptic say p1 --draft "bp 150/95, headache" format note`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSay,
}

func init() {
	noteSaveCmd.Flags().StringVar(&noteDate, "date", "", "Note date, YYYY-MM-DD (default: today)")
	sayCmd.Flags().StringVar(&sayDraft, "draft", "", "Seed the note draft before routing")

	noteCmd.AddCommand(noteFormatCmd)
	noteCmd.AddCommand(noteSaveCmd)
	careplanCmd.AddCommand(careplanAddCmd)
}

func readAllInput(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// noteText returns args joined, or stdin when args is empty.
func noteText(cmd *cobra.Command, args []string) (string, error) {
	if text := joinArgs(args); text != "" {
		return text, nil
	}
	text, err := readAllInput(cmd)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("note is empty")
	}
	return text, nil
}

func runNoteFormat(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.requireUser(); err != nil {
		return err
	}
	notes, err := noteText(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	formatted, err := e.client.StreamlineNote(ctx, notes)
	if err != nil {
		return describeError(workspace.MsgFormatFailed, err)
	}
	logger.Debug("note formatted", zap.Int("in", len(notes)), zap.Int("out", len(formatted)))
	fmt.Fprintln(cmd.OutOrStdout(), formatted)
	return nil
}

func runNoteSave(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.requireUser()
	if err != nil {
		return err
	}
	id := args[0]
	content, err := noteText(cmd, args[1:])
	if err != nil {
		return err
	}

	date := noteDate
	if date == "" {
		date = nowFunc().UTC().Format(workspace.NoteDateLayout)
	} else if _, err := time.Parse(workspace.NoteDateLayout, date); err != nil {
		return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	start := time.Now()
	history, err := e.client.AddNote(ctx, id, content, date)
	logging.AuditAs(u.Username).PatientAction(logging.AuditNoteSave, id, start, err)
	if err != nil {
		return describeError(workspace.MsgSaveFailed, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d history entries)\n", workspace.MsgSaveSucceeded, len(history))
	return nil
}

func runCareplanAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.requireUser()
	if err != nil {
		return err
	}
	id, itemType, desc := args[0], strings.ToLower(args[1]), joinArgs(args[2:])
	if !clinical.ValidItemType(itemType) {
		return fmt.Errorf("unknown order type %q (want %s or %s)", args[1], clinical.ItemPrescription, clinical.ItemTest)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	start := time.Now()
	p, err := e.client.AddCarePlanItem(ctx, id, itemType, desc)
	logging.AuditAs(u.Username).PatientAction(logging.AuditCarePlanAdd, id, start, err)
	if err != nil {
		return describeError(workspace.MsgCarePlanFailed, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Care plan for %s\n", p.Demographics.Name)
	writeItems(out, "Prescriptions", p.CarePlan.Prescriptions)
	writeItems(out, "Pending Tests", p.CarePlan.PendingTests)
	writeItems(out, "Upcoming Appointments", p.CarePlan.UpcomingAppointments)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.requireUser()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, question := args[0], joinArgs(args[1:])
	start := time.Now()
	answer, err := e.client.Chat(ctx, question, id)
	logging.AuditAs(u.Username).Log(logging.AuditEvent{
		EventType:  logging.AuditChatAsk,
		PatientID:  id,
		Success:    err == nil,
		Duration:   time.Since(start),
		TextLength: len(question),
	})
	if err != nil {
		return describeError(workspace.MsgChatFailed, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

// runSay drives a headless dashboard: load the record, route one utterance,
// run whatever it started, and report the resulting state.
func runSay(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	u, err := e.requireUser()
	if err != nil {
		return err
	}

	id, utterance := args[0], joinArgs(args[1:])
	d, err := workspace.New(id, e.client,
		workspace.WithWakeWord(e.cfg.Voice.WakeWord),
		workspace.WithUser(u.Username),
		workspace.WithClock(nowFunc),
	)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	d.Execute(ctx, d.Load())
	if !d.Loaded() {
		return fmt.Errorf("%s", d.LoadErr())
	}
	if sayDraft != "" {
		d.SetDraft(sayDraft)
	}

	before := len(d.Transcript())
	matched, jobs := d.HandleUtterance(utterance)
	out := cmd.OutOrStdout()
	if !matched {
		fmt.Fprintln(out, "No command matched.")
		return nil
	}
	d.Execute(ctx, jobs...)
	logger.Debug("utterance routed", zap.String("utterance", utterance), zap.Int("jobs", len(jobs)))

	writeDashboard(out, d, before)
	return nil
}

// writeDashboard prints the parts of d a command can change.
func writeDashboard(out io.Writer, d *workspace.Dashboard, transcriptFrom int) {
	tab := "notes"
	if d.Tab() == workspace.TabChat {
		tab = "chat"
	}
	fmt.Fprintf(out, "Tab: %s\n", tab)
	fmt.Fprintf(out, "Listening: %v\n", d.Listening())
	if draft := d.Draft(); draft != "" {
		fmt.Fprintf(out, "Draft: %s\n", draft)
	}

	for _, msg := range []string{d.FormatErr(), d.SaveErr(), d.PrognosisErr(), d.CarePlanErr(), d.SaveSuccess()} {
		if msg != "" {
			fmt.Fprintln(out, msg)
		}
	}
	if note := d.FormattedNote(); note != "" {
		fmt.Fprintf(out, "\n## Formatted SOAP Note\n\n%s\n", note)
	}
	if report := d.PrognosisReport(); report != "" {
		fmt.Fprintf(out, "\n## Prognosis\n\n%s\n", report)
	}
	for _, msg := range d.Transcript()[transcriptFrom:] {
		who := "You"
		if msg.Role == workspace.RoleAssistant {
			who = "Synoptic"
		}
		fmt.Fprintf(out, "%s: %s\n", who, msg.Text)
	}
}
