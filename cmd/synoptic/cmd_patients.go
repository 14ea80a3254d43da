package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"synoptic/cmd/synoptic/ui"
	"synoptic/internal/clinical"
	"synoptic/internal/logging"
)

var withPrognosis bool

// patientsCmd lists the logged-in doctor's patients
var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "List your patients",
	RunE:  runPatients,
}

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Patient record commands",
}

var patientShowCmd = &cobra.Command{
	Use:   "show <patient-id>",
	Short: "Show a patient's record",
	Long: `Prints the patient header, AI synopsis, health timeline, lab trends
and care plan. With --prognosis the prognosis report is fetched
concurrently and printed after the record.`,
	Args: cobra.ExactArgs(1),
	RunE: runPatientShow,
}

var prognosisCmd = &cobra.Command{
	Use:   "prognosis <patient-id>",
	Short: "Generate a prognosis report",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrognosis,
}

func init() {
	patientShowCmd.Flags().BoolVar(&withPrognosis, "prognosis", false, "Also run the prognosis engine")
	patientCmd.AddCommand(patientShowCmd)
}

func runPatients(cmd *cobra.Command, args []string) error {
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

	patients, err := e.client.ListPatients(ctx, u.ID)
	if err != nil {
		return describeError("failed to load patients", err)
	}
	logging.AuditAs(u.Username).Log(logging.AuditEvent{EventType: logging.AuditPatientList, User: u.Username, Success: true})
	logger.Debug("patients loaded", zap.Int("count", len(patients)))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Welcome, Dr. %s\n\n", u.DisplayName())
	if len(patients) == 0 {
		fmt.Fprintln(out, "No patients.")
		return nil
	}

	styles := ui.NewStyles(ui.ThemeFor(e.cfg.UI.Theme))
	table := ui.NewSimpleTable("Your Patient Command Center", []string{"ID", "Name", "Age", "Gender", "Risk"})
	for _, p := range patients {
		table.AddRow(p.ID, p.Demographics.Name, strconv.Itoa(p.Demographics.Age), p.Demographics.Gender, riskLabel(p.RiskScore))
	}
	fmt.Fprintln(out, table.View(styles))
	return nil
}

func riskLabel(score string) string {
	return string(clinical.ParseRisk(score))
}

func runPatientShow(cmd *cobra.Command, args []string) error {
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

	id := args[0]
	var (
		patient clinical.Patient
		report  string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := e.client.GetPatient(gctx, id)
		if err != nil {
			return describeError("Could not load data for patient "+id, err)
		}
		patient = p
		return nil
	})
	if withPrognosis {
		g.Go(func() error {
			r, err := e.client.Prognosis(gctx, id)
			if err != nil {
				return describeError("Failed to generate prognosis", err)
			}
			report = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logging.AuditAs(u.Username).Log(logging.AuditEvent{EventType: logging.AuditPatientView, User: u.Username, PatientID: id, Success: true})

	styles := ui.NewStyles(ui.ThemeFor(e.cfg.UI.Theme))
	out := cmd.OutOrStdout()
	writeRecord(out, styles, patient)
	if withPrognosis {
		fmt.Fprintf(out, "\n## Prognosis\n\n%s\n", report)
	}
	return nil
}

// writeRecord prints a patient record as plain text.
func writeRecord(out io.Writer, styles ui.Styles, p clinical.Patient) {
	fmt.Fprintf(out, "%s  [%s]\n", p.Demographics.Name, riskLabel(p.RiskScore))
	fmt.Fprintf(out, "Age: %d | Gender: %s | ID: %s\n", p.Demographics.Age, p.Demographics.Gender, p.ID)

	fmt.Fprintln(out, "\n## AI Synopsis")
	if p.AISummary != "" {
		fmt.Fprintln(out, p.AISummary)
	}
	for _, line := range p.AIInsights {
		fmt.Fprintf(out, "  - %s\n", line)
	}

	fmt.Fprintln(out, "\n## Health Timeline")
	for _, ev := range p.MedicalHistory {
		fmt.Fprintf(out, "  %s %s  %s\n", clinical.Classify(ev.Event).Icon(), ev.Date, ev.Event)
	}

	if table := ui.LabTrendTable(clinical.LabSeries(p.LabResults)); len(table.Rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, table.View(styles))
	}

	fmt.Fprintln(out, "\n## Care Plan")
	writeItems(out, "Prescriptions", p.CarePlan.Prescriptions)
	writeItems(out, "Pending Tests", p.CarePlan.PendingTests)
	writeItems(out, "Upcoming Appointments", p.CarePlan.UpcomingAppointments)
}

func writeItems(out io.Writer, label string, items []string) {
	fmt.Fprintf(out, "%s:\n", label)
	if len(items) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, it := range items {
		fmt.Fprintf(out, "  - %s\n", it)
	}
}

func runPrognosis(cmd *cobra.Command, args []string) error {
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

	report, err := e.client.Prognosis(ctx, args[0])
	logging.AuditAs(u.Username).Log(logging.AuditEvent{EventType: logging.AuditPrognosis, User: u.Username, PatientID: args[0], Success: err == nil})
	if err != nil {
		return describeError("Failed to generate prognosis", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), report)
	return nil
}
