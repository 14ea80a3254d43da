package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synoptic/internal/api"
	"synoptic/internal/apitest"
	"synoptic/internal/clinical"
	"synoptic/internal/voice"
)

// fakeAPI counts calls and answers from its function fields.
type fakeAPI struct {
	calls map[string]int

	patient   func(id string) (clinical.Patient, error)
	prognosis func(id string) (string, error)
	format    func(notes string) (string, error)
	addNote   func(id, content, date string) ([]clinical.HistoryEvent, error)
	carePlan  func(id, t, desc string) (clinical.Patient, error)
	chat      func(q, id string) (string, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		patient: func(id string) (clinical.Patient, error) {
			return apitest.SamplePatient(id), nil
		},
		prognosis: func(string) (string, error) { return "Low risk.", nil },
		format:    func(notes string) (string, error) { return "SOAP: " + notes, nil },
		addNote: func(id, content, date string) ([]clinical.HistoryEvent, error) {
			return append(apitest.SamplePatient(id).MedicalHistory, clinical.HistoryEvent{Date: date, Event: content}), nil
		},
		carePlan: func(id, t, desc string) (clinical.Patient, error) {
			p := apitest.SamplePatient(id)
			p.CarePlan.Prescriptions = append(p.CarePlan.Prescriptions, desc)
			return p, nil
		},
		chat: func(q, id string) (string, error) { return "answer: " + q, nil },
	}
}

func (f *fakeAPI) GetPatient(_ context.Context, id string) (clinical.Patient, error) {
	f.calls["patient"]++
	return f.patient(id)
}

func (f *fakeAPI) Prognosis(_ context.Context, id string) (string, error) {
	f.calls["prognosis"]++
	return f.prognosis(id)
}

func (f *fakeAPI) StreamlineNote(_ context.Context, notes string) (string, error) {
	f.calls["format"]++
	return f.format(notes)
}

func (f *fakeAPI) AddNote(_ context.Context, id, content, date string) ([]clinical.HistoryEvent, error) {
	f.calls["save"]++
	return f.addNote(id, content, date)
}

func (f *fakeAPI) AddCarePlanItem(_ context.Context, id, t, desc string) (clinical.Patient, error) {
	f.calls["careplan"]++
	return f.carePlan(id, t, desc)
}

func (f *fakeAPI) Chat(_ context.Context, q, id string) (string, error) {
	f.calls["chat"]++
	return f.chat(q, id)
}

var errBackend = errors.New("backend down")

var fixedNow = func() time.Time { return time.Date(2024, 5, 2, 23, 30, 0, 0, time.UTC) }

func newDashboard(t *testing.T, backend Backend, opts ...Option) *Dashboard {
	t.Helper()
	opts = append([]Option{WithClock(fixedNow)}, opts...)
	d, err := New("p1", backend, opts...)
	require.NoError(t, err)
	return d
}

func run(d *Dashboard, j *Job) Completion {
	c := j.Run(context.Background())
	c.Apply()
	return c
}

func TestNew_InitialState(t *testing.T) {
	d := newDashboard(t, newFakeAPI())

	assert.Equal(t, TabNotes, d.Tab())
	assert.Equal(t, []ChatMessage{{Role: RoleAssistant, Text: Greeting}}, d.Transcript())
	assert.False(t, d.Loaded())
	assert.False(t, d.VoiceSupported())
	assert.False(t, d.Listening())
	assert.Len(t, d.Router().Commands(), 10)
}

func TestLoad(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)

	j := d.Load()
	assert.True(t, d.Loading())
	run(d, j)

	assert.False(t, d.Loading())
	assert.True(t, d.Loaded())
	assert.Empty(t, d.LoadErr())
	assert.Equal(t, "Maria Garcia", d.Patient().Demographics.Name)
}

func TestLoad_Failure(t *testing.T) {
	fake := newFakeAPI()
	fake.patient = func(string) (clinical.Patient, error) { return clinical.Patient{}, errBackend }
	d := newDashboard(t, fake)

	c := run(d, d.Load())
	assert.ErrorIs(t, c.Err, errBackend)
	assert.False(t, d.Loaded())
	assert.Equal(t, "Could not load data for patient p1.", d.LoadErr())
}

func TestPrognosis_Failure(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)
	run(d, d.RunPrognosis())
	require.Equal(t, "Low risk.", d.PrognosisReport())

	fake.prognosis = func(string) (string, error) { return "", errBackend }
	run(d, d.RunPrognosis())

	assert.False(t, d.PrognosisBusy())
	assert.Empty(t, d.PrognosisReport())
	assert.Equal(t, MsgPrognosisFailed, d.PrognosisErr())
}

func TestPrognosis_LatestRequestWins(t *testing.T) {
	fake := newFakeAPI()
	n := 0
	fake.prognosis = func(string) (string, error) {
		n++
		return []string{"first", "second"}[n-1], nil
	}
	d := newDashboard(t, fake)

	first := d.RunPrognosis()
	second := d.RunPrognosis()
	c1 := first.Run(context.Background())
	c2 := second.Run(context.Background())

	// The newer response resolves first; the older one arrives late.
	c2.Apply()
	c1.Apply()

	assert.Equal(t, "second", d.PrognosisReport())
	assert.False(t, d.PrognosisBusy())
}

func TestFormatNote_EmptyDraftIsNoOp(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)

	assert.Nil(t, d.FormatNote())
	d.SetDraft("   \n ")
	assert.Nil(t, d.FormatNote())
	assert.False(t, d.Formatting())
	assert.Zero(t, fake.calls["format"])
}

func TestFormatNote_Failure(t *testing.T) {
	fake := newFakeAPI()
	fake.format = func(string) (string, error) { return "", errBackend }
	d := newDashboard(t, fake)
	d.SetDraft("bp 150/95")

	run(d, d.FormatNote())
	assert.Equal(t, MsgFormatFailed, d.FormatErr())
	assert.Empty(t, d.FormattedNote())
	assert.Equal(t, "bp 150/95", d.Draft())
}

func TestSaveNote_Success(t *testing.T) {
	fake := newFakeAPI()
	var gotDate string
	fake.addNote = func(id, content, date string) ([]clinical.HistoryEvent, error) {
		gotDate = date
		return append(apitest.SamplePatient(id).MedicalHistory, clinical.HistoryEvent{Date: date, Event: content}), nil
	}
	d := newDashboard(t, fake)
	run(d, d.Load())

	assert.Nil(t, d.SaveNote(), "nothing formatted yet")

	d.SetDraft("pt reports dizziness")
	run(d, d.FormatNote())
	require.Equal(t, "SOAP: pt reports dizziness", d.FormattedNote())

	run(d, d.SaveNote())

	assert.Equal(t, "2024-05-02", gotDate)
	assert.Empty(t, d.Draft())
	assert.Empty(t, d.FormattedNote())
	assert.Equal(t, MsgSaveSucceeded, d.SaveSuccess())
	assert.False(t, d.Saving())

	history := d.Patient().MedicalHistory
	require.NotEmpty(t, history)
	assert.Equal(t, clinical.HistoryEvent{Date: "2024-05-02", Event: "SOAP: pt reports dizziness"}, history[len(history)-1])
}

func TestSaveNote_FailureKeepsDraft(t *testing.T) {
	fake := newFakeAPI()
	fake.addNote = func(string, string, string) ([]clinical.HistoryEvent, error) { return nil, errBackend }
	d := newDashboard(t, fake)
	run(d, d.Load())
	before := d.Patient().MedicalHistory

	d.SetDraft("draft text")
	run(d, d.FormatNote())
	run(d, d.SaveNote())

	assert.Equal(t, MsgSaveFailed, d.SaveErr())
	assert.Empty(t, d.SaveSuccess())
	assert.Equal(t, "draft text", d.Draft())
	assert.Equal(t, "SOAP: draft text", d.FormattedNote())
	if diff := cmp.Diff(before, d.Patient().MedicalHistory); diff != "" {
		t.Errorf("history changed on failed save (-want +got):\n%s", diff)
	}

	// Resubmit once the backend recovers.
	fake.addNote = newFakeAPI().addNote
	run(d, d.SaveNote())
	assert.Empty(t, d.SaveErr())
	assert.Equal(t, MsgSaveSucceeded, d.SaveSuccess())
}

func TestFormatClearsSaveSuccess(t *testing.T) {
	d := newDashboard(t, newFakeAPI())
	d.SetDraft("one")
	run(d, d.FormatNote())
	run(d, d.SaveNote())
	require.NotEmpty(t, d.SaveSuccess())

	d.SetDraft("two")
	d.FormatNote()
	assert.Empty(t, d.SaveSuccess())
}

func TestSendChat_EmptyIsNoOp(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)

	assert.Nil(t, d.SendChat(""))
	d.SetChatInput("  ")
	assert.Nil(t, d.SendChatInput())
	assert.Len(t, d.Transcript(), 1)
	assert.False(t, d.ChatBusy())
	assert.Zero(t, fake.calls["chat"])
}

func TestSendChat(t *testing.T) {
	d := newDashboard(t, newFakeAPI())
	d.SetChatInput("any allergies?")

	j := d.SendChatInput()
	assert.Empty(t, d.ChatInput())
	assert.True(t, d.ChatBusy())
	assert.Equal(t, ChatMessage{Role: RoleUser, Text: "any allergies?"}, d.Transcript()[1])

	run(d, j)
	assert.False(t, d.ChatBusy())
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Text: "answer: any allergies?"}, d.Transcript()[2])
}

func TestSendChat_Failure(t *testing.T) {
	fake := newFakeAPI()
	fake.chat = func(string, string) (string, error) { return "", errBackend }
	d := newDashboard(t, fake)

	run(d, d.SendChat("hello"))
	tr := d.Transcript()
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Text: MsgChatFailed}, tr[len(tr)-1])
	assert.False(t, d.ChatBusy())
}

func TestSendChat_OverlappingRequests(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)

	first := d.SendChat("ask about allergies")
	second := d.SendChat("ask about allergies")
	c1 := first.Run(context.Background())
	c2 := second.Run(context.Background())

	// The second reply resolves first.
	c2.Apply()
	assert.False(t, d.ChatBusy(), "latest request answered")
	c1.Apply()

	tr := d.Transcript()
	require.Len(t, tr, 5)
	assert.Equal(t, RoleUser, tr[1].Role)
	assert.Equal(t, RoleUser, tr[2].Role)
	assert.Equal(t, RoleAssistant, tr[3].Role)
	assert.Equal(t, RoleAssistant, tr[4].Role)
	assert.False(t, d.ChatBusy())
}

func TestSwitchTabKeepsState(t *testing.T) {
	d := newDashboard(t, newFakeAPI())
	d.SetDraft("draft")
	d.SetChatInput("typing")
	run(d, d.SendChat("hi"))
	transcript := d.Transcript()

	d.SwitchTab(TabChat)
	assert.Equal(t, TabChat, d.Tab())
	d.SwitchTab(TabNotes)
	d.SwitchTab(7)
	d.SwitchTab(-1)
	assert.Equal(t, TabNotes, d.Tab())

	assert.Equal(t, "draft", d.Draft())
	assert.Equal(t, "", d.ChatInput(), "sending cleared the input")
	assert.Equal(t, transcript, d.Transcript())

	d.SetChatInput("still here")
	d.SwitchTab(TabChat)
	d.SwitchTab(TabNotes)
	assert.Equal(t, "still here", d.ChatInput())
}

func TestAddCarePlanItem(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)
	run(d, d.Load())

	assert.Nil(t, d.AddCarePlanItem("surgery", "appendectomy"))
	assert.Nil(t, d.AddCarePlanItem(clinical.ItemPrescription, "  "))
	assert.Zero(t, fake.calls["careplan"])

	run(d, d.AddCarePlanItem(clinical.ItemPrescription, "Lisinopril 10mg"))
	assert.Contains(t, d.Patient().CarePlan.Prescriptions, "Lisinopril 10mg")

	fake.carePlan = func(string, string, string) (clinical.Patient, error) { return clinical.Patient{}, errBackend }
	before := d.Patient()
	run(d, d.AddCarePlanItem(clinical.ItemTest, "CBC"))
	assert.Equal(t, MsgCarePlanFailed, d.CarePlanErr())
	if diff := cmp.Diff(before, d.Patient()); diff != "" {
		t.Errorf("failed order mutated the record (-want +got):\n%s", diff)
	}
}

func TestAppendToDraft(t *testing.T) {
	d := newDashboard(t, newFakeAPI())
	d.AppendToDraft("patient")
	d.AppendToDraft("  reports pain ")
	d.AppendToDraft("")
	assert.Equal(t, "patient reports pain", d.Draft())
	d.ClearDraft()
	assert.Empty(t, d.Draft())
}

func TestListening(t *testing.T) {
	d := newDashboard(t, newFakeAPI(), WithVoice(voice.NewCapture(true)))
	assert.True(t, d.VoiceSupported())
	assert.True(t, d.ToggleListening())
	d.StopListening()
	assert.False(t, d.Listening())
	assert.True(t, d.StartListening())

	unsupported := newDashboard(t, newFakeAPI())
	assert.False(t, unsupported.StartListening())
}

func TestExecute(t *testing.T) {
	fake := newFakeAPI()
	d := newDashboard(t, fake)
	d.Execute(context.Background(), d.Load(), nil, d.RunPrognosis())
	assert.True(t, d.Loaded())
	assert.Equal(t, "Low risk.", d.PrognosisReport())
}

func TestAgainstFakeBackend(t *testing.T) {
	b := apitest.New()
	b.AddPatient("1", apitest.SamplePatient("p1"))
	srv := b.Start(t)

	d := newDashboard(t, api.New(srv.URL))
	ctx := context.Background()
	d.Execute(ctx, d.Load())
	require.True(t, d.Loaded())

	d.SetDraft("follow up in 2 weeks")
	d.Execute(ctx, d.FormatNote())
	d.Execute(ctx, d.SaveNote())
	assert.Equal(t, MsgSaveSucceeded, d.SaveSuccess())

	stored, _ := b.Patient("p1")
	assert.Equal(t, stored.MedicalHistory, d.Patient().MedicalHistory)
	assert.Equal(t, 1, b.Count(apitest.RouteNotes))
}
