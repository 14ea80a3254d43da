package clinical

import (
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePatient = `{
  "id": "p001",
  "demographics": {"name": "Jane Roe", "age": 67, "gender": "Female"},
  "ai_summary": "Stable CKD stage 3.",
  "ai_insights": "- Potassium trending up\n\n- Recheck creatinine",
  "medical_history": [
    {"date": "2019-03-01", "event": "Diagnosed with Type 2 Diabetes"},
    {"date": "2021-07-12", "event": "Coronary artery bypass graft"}
  ],
  "lab_results": [
    {"date": "2024-01-01", "potassium": 4.9, "creatinine": 1.2},
    {"date": "2024-02-01", "potassium": 5.6, "creatinine": 1.2},
    {"date": "2024-03-01", "potassium": 5.1}
  ],
  "care_plan": {
    "prescriptions": ["Metformin 500mg BID"],
    "pending_tests": ["HbA1c"],
    "upcoming_appointments": ["Nephrology 2024-04-02"]
  }
}`

func TestPatient_Decode(t *testing.T) {
	var p Patient
	require.NoError(t, json.Unmarshal([]byte(samplePatient), &p))

	assert.Equal(t, "p001", p.ID)
	assert.Equal(t, 67, p.Demographics.Age)
	assert.Equal(t, Insights{"- Potassium trending up", "- Recheck creatinine"}, p.AIInsights)
	assert.Len(t, p.MedicalHistory, 2)
	require.Len(t, p.LabResults, 3)
	assert.Equal(t, 5.6, p.LabResults[1].Measurements["potassium"])
	assert.Equal(t, []string{"HbA1c"}, p.CarePlan.PendingTests)
}

func TestInsights_AcceptsArrayAndNull(t *testing.T) {
	var in Insights
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &in))
	assert.Equal(t, Insights{"a", "b"}, in)

	require.NoError(t, json.Unmarshal([]byte(`null`), &in))
	assert.Nil(t, in)

	assert.Error(t, json.Unmarshal([]byte(`42`), &in))
}

func TestWithHistory_DoesNotAlias(t *testing.T) {
	p := Patient{ID: "p1"}
	history := []HistoryEvent{{Date: "2024-01-01", Event: "note"}}
	updated := p.WithHistory(history)
	history[0].Event = "mutated"

	assert.Equal(t, "note", updated.MedicalHistory[0].Event)
	assert.Empty(t, p.MedicalHistory)
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Potassium", labelFor("potassium"))
	assert.Equal(t, "Élastase", labelFor("élastase"))
	assert.Equal(t, "", labelFor(""))
	assert.True(t, utf8.ValidString(labelFor("ßcount")))
}

func TestLabSeries(t *testing.T) {
	var p Patient
	require.NoError(t, json.Unmarshal([]byte(samplePatient), &p))

	series := LabSeries(p.LabResults)
	want := []Series{
		{Key: "creatinine", Label: "Creatinine", Points: []Point{
			{Date: "2024-01-01", Value: 1.2, Valid: true},
			{Date: "2024-02-01", Value: 1.2, Valid: true},
			{Date: "2024-03-01"},
		}},
		{Key: "potassium", Label: "Potassium", Points: []Point{
			{Date: "2024-01-01", Value: 4.9, Valid: true},
			{Date: "2024-02-01", Value: 5.6, Valid: true},
			{Date: "2024-03-01", Value: 5.1, Valid: true},
		}},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Errorf("LabSeries mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, TrendFlat, series[0].Trend())
	assert.Equal(t, TrendDown, series[1].Trend())

	latest, ok := series[0].Latest()
	require.True(t, ok)
	assert.Equal(t, "2024-02-01", latest.Date)
}

func TestLabSeries_Empty(t *testing.T) {
	assert.Nil(t, LabSeries(nil))
	assert.Equal(t, TrendUnknown, Series{}.Trend())
}

func TestLabSample_MarshalRoundTrip(t *testing.T) {
	in := LabSample{Date: "2024-01-01", Measurements: map[string]float64{"hba1c": 7.5, "ldl": 101}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-01","hba1c":7.5,"ldl":101}`, string(data))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		event string
		want  EventKind
	}{
		{"Knee surgery", KindProcedure},
		{"Coronary artery bypass GRAFT", KindProcedure},
		{"Diagnosed with hypertension", KindDiagnosis},
		{"Annual physical", KindEvent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.event), tt.event)
	}
}

func TestParseRisk(t *testing.T) {
	assert.Equal(t, RiskHigh, ParseRisk("High"))
	assert.Equal(t, RiskLow, ParseRisk(" Low "))
	assert.Equal(t, RiskUnknown, ParseRisk(""))
	assert.Equal(t, RiskUnknown, ParseRisk("Critical"))
	assert.Equal(t, "warning", RiskModerate.Severity())
	assert.Equal(t, "default", RiskUnknown.Severity())
}

func TestValidItemType(t *testing.T) {
	assert.True(t, ValidItemType(ItemPrescription))
	assert.True(t, ValidItemType(ItemTest))
	assert.False(t, ValidItemType("appointment"))
}
