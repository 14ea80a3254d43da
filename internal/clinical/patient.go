// Package clinical holds the patient record shapes returned by the Synoptic
// backend and the small derivations the dashboard renders from them.
package clinical

import (
	"encoding/json"
	"strings"
)

// Demographics identifies a patient for display.
type Demographics struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// HistoryEvent is one entry of the medical-history timeline.
type HistoryEvent struct {
	Date  string `json:"date"`
	Event string `json:"event"`
}

// CarePlan lists the active orders for a patient.
type CarePlan struct {
	Prescriptions        []string `json:"prescriptions"`
	PendingTests         []string `json:"pending_tests"`
	UpcomingAppointments []string `json:"upcoming_appointments"`
}

// Patient is the full record served by GET /api/patient/{id}.
// The client holds a transient copy that is replaced on every successful
// fetch or mutation response.
type Patient struct {
	ID             string         `json:"id"`
	Demographics   Demographics   `json:"demographics"`
	AISummary      string         `json:"ai_summary"`
	AIInsights     Insights       `json:"ai_insights"`
	MedicalHistory []HistoryEvent `json:"medical_history"`
	LabResults     []LabSample    `json:"lab_results"`
	CarePlan       CarePlan       `json:"care_plan"`
	RiskScore      string         `json:"riskScore,omitempty"`
}

// PatientSummary is one row of GET /api/patients/{userId}.
type PatientSummary struct {
	ID           string       `json:"id"`
	Demographics Demographics `json:"demographics"`
	RiskScore    string       `json:"riskScore"`
}

// WithHistory returns a copy of p whose history is replaced by history.
func (p Patient) WithHistory(history []HistoryEvent) Patient {
	p.MedicalHistory = append([]HistoryEvent(nil), history...)
	return p
}

// Insights is the list of AI insight lines. The backend sends either a JSON
// array or a single bulleted string; both decode to one line per entry.
type Insights []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (in *Insights) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*in = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		*in = lines
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*in = splitInsightLines(text)
	return nil
}

func splitInsightLines(text string) Insights {
	var out Insights
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
