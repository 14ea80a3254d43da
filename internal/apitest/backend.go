// Package apitest provides an in-memory Synoptic backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"synoptic/internal/clinical"
)

// Route names accepted by Fail.
const (
	RouteLogin      = "login"
	RouteRegister   = "register"
	RouteLogout     = "logout"
	RoutePatients   = "patients"
	RoutePatient    = "patient"
	RoutePrognosis  = "prognosis"
	RouteStreamline = "streamline"
	RouteNotes      = "notes"
	RouteCarePlan   = "careplan"
	RouteChat       = "chat"
)

type account struct {
	id       string
	username string
	email    string
	password string
}

type failure struct {
	status  int
	message string
}

// Request is one recorded call.
type Request struct {
	Route     string
	Method    string
	Path      string
	RequestID string
	Body      map[string]interface{}
}

// Backend mimics the REST API. The zero value is not usable; call New.
type Backend struct {
	mu        sync.Mutex
	accounts  []account
	patients  map[string]clinical.Patient
	owners    map[string]string // patient id -> doctor id
	order     []string
	prognosis map[string]string
	failures  map[string]failure
	requests  []Request

	// FormatNote and Answer produce AI responses.
	FormatNote func(notes string) string
	Answer     func(question, patientID string) string
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		patients:  make(map[string]clinical.Patient),
		owners:    make(map[string]string),
		prognosis: make(map[string]string),
		failures:  make(map[string]failure),
		FormatNote: func(notes string) string {
			return "**S:** " + notes + "\n\n**O:** -\n\n**A:** -\n\n**P:** -"
		},
		Answer: func(question, patientID string) string {
			return fmt.Sprintf("Answer about %s: %s", patientID, question)
		},
	}
}

// Start serves the backend until the test ends.
func (b *Backend) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// AddUser registers an account and returns its id.
func (b *Backend) AddUser(username, email, password string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email, password)
}

func (b *Backend) addUserLocked(username, email, password string) string {
	id := strconv.Itoa(len(b.accounts) + 1)
	b.accounts = append(b.accounts, account{id: id, username: username, email: email, password: password})
	return id
}

// AddPatient stores p under doctorID.
func (b *Backend) AddPatient(doctorID string, p clinical.Patient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.patients[p.ID]; !ok {
		b.order = append(b.order, p.ID)
	}
	b.patients[p.ID] = p
	b.owners[p.ID] = doctorID
}

// SetPrognosis sets the report returned for a patient.
func (b *Backend) SetPrognosis(patientID, report string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prognosis[patientID] = report
}

// Patient returns the stored record.
func (b *Backend) Patient(id string) (clinical.Patient, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.patients[id]
	return p, ok
}

// Fail makes every call to route answer status with {"error": message}
// until Recover is called.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

// Recover clears a failure set by Fail.
func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Requests returns the calls recorded so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many calls hit route.
func (b *Backend) Count(route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

// Handler returns the chi router.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", b.handle(RouteLogin, b.login))
		r.Post("/register", b.handle(RouteRegister, b.register))
		r.Post("/logout", b.handle(RouteLogout, b.logout))
		r.Get("/patients/{doctorID}", b.handle(RoutePatients, b.listPatients))
		r.Get("/patient/{id}", b.handle(RoutePatient, b.getPatient))
		r.Get("/patient/{id}/prognosis", b.handle(RoutePrognosis, b.getPrognosis))
		r.Post("/patient/{id}/notes", b.handle(RouteNotes, b.addNote))
		r.Post("/patient/{id}/careplan", b.handle(RouteCarePlan, b.addCarePlan))
		r.Post("/streamline_note", b.handle(RouteStreamline, b.streamline))
		r.Post("/chat", b.handle(RouteChat, b.chat))
	})
	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, body map[string]interface{})

func (b *Backend) handle(route string, h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Route:     route,
			Method:    r.Method,
			Path:      r.URL.Path,
			RequestID: r.Header.Get("X-Request-ID"),
			Body:      body,
		})
		f, failing := b.failures[route]
		b.mu.Unlock()

		if failing {
			writeError(w, f.status, f.message)
			return
		}
		h(w, r, body)
	}
}

func str(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	email, password := str(body, "email"), str(body, "password")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if a.email == email && a.password == password {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"message": "Login successful",
				"user":    map[string]string{"id": a.id, "username": a.username, "email": a.email},
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid email or password")
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	email := str(body, "email")
	for _, a := range b.accounts {
		if a.email == email {
			writeError(w, http.StatusConflict, "Email already exists")
			return
		}
	}
	b.addUserLocked(str(body, "username"), email, str(body, "password"))
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (b *Backend) listPatients(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
	doctorID := chi.URLParam(r, "doctorID")
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]clinical.Patient, 0)
	for _, id := range b.order {
		if b.owners[id] == doctorID {
			out = append(out, b.patients[id])
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) lookup(w http.ResponseWriter, r *http.Request) (clinical.Patient, bool) {
	p, ok := b.patients[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
	}
	return p, ok
}

func (b *Backend) getPatient(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, p)
	}
}

func (b *Backend) getPrognosis(w http.ResponseWriter, r *http.Request, _ map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.lookup(w, r)
	if !ok {
		return
	}
	report, ok := b.prognosis[p.ID]
	if !ok {
		report = "### Prognosis for " + p.Demographics.Name + "\n\nStable."
	}
	writeJSON(w, http.StatusOK, map[string]string{"prognosis_report": report})
}

func (b *Backend) addNote(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	content, date := str(body, "note_content"), str(body, "note_date")
	if content == "" || date == "" {
		writeError(w, http.StatusBadRequest, "Missing note content or date")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.lookup(w, r)
	if !ok {
		return
	}
	history := append(append([]clinical.HistoryEvent(nil), p.MedicalHistory...), clinical.HistoryEvent{Date: date, Event: content})
	b.patients[p.ID] = p.WithHistory(history)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Note added successfully", "new_history": history})
}

func (b *Backend) addCarePlan(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	itemType, desc := str(body, "type"), str(body, "description")
	if itemType == "" || desc == "" {
		writeError(w, http.StatusBadRequest, "Missing type or description")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.lookup(w, r)
	if !ok {
		return
	}
	plan := clinical.CarePlan{
		Prescriptions:        append([]string(nil), p.CarePlan.Prescriptions...),
		PendingTests:         append([]string(nil), p.CarePlan.PendingTests...),
		UpcomingAppointments: append([]string(nil), p.CarePlan.UpcomingAppointments...),
	}
	switch itemType {
	case clinical.ItemPrescription:
		plan.Prescriptions = append(plan.Prescriptions, desc)
	case clinical.ItemTest:
		plan.PendingTests = append(plan.PendingTests, desc)
	default:
		writeError(w, http.StatusBadRequest, "Invalid item type")
		return
	}
	p.CarePlan = plan
	b.patients[p.ID] = p
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) streamline(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	notes := str(body, "notes")
	if strings.TrimSpace(notes) == "" {
		writeError(w, http.StatusBadRequest, "No notes provided")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"formatted_note": b.FormatNote(notes)})
}

func (b *Backend) chat(w http.ResponseWriter, r *http.Request, body map[string]interface{}) {
	question, patientID := str(body, "question"), str(body, "patientId")
	if question == "" || patientID == "" {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	b.mu.Lock()
	_, ok := b.patients[patientID]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Patient not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": b.Answer(question, patientID)})
}

// SamplePatient returns a realistic record for tests.
func SamplePatient(id string) clinical.Patient {
	return clinical.Patient{
		ID:           id,
		Demographics: clinical.Demographics{Name: "Maria Garcia", Age: 67, Gender: "Female"},
		AISummary:    "67-year-old with type 2 diabetes and CKD stage 3.",
		AIInsights:   clinical.Insights{"HbA1c trending up", "Creatinine above range"},
		MedicalHistory: []clinical.HistoryEvent{
			{Date: "2019-03-02", Event: "Diagnosed with type 2 diabetes"},
			{Date: "2023-08-14", Event: "Kidney graft evaluation"},
		},
		LabResults: []clinical.LabSample{
			{Date: "2024-01-10", Measurements: map[string]float64{"hba1c": 7.1, "creatinine": 1.2}},
			{Date: "2024-04-10", Measurements: map[string]float64{"hba1c": 7.8, "creatinine": 1.4}},
		},
		CarePlan: clinical.CarePlan{
			Prescriptions:        []string{"Metformin 500mg BID"},
			PendingTests:         []string{"Renal panel"},
			UpcomingAppointments: []string{"2024-05-01 Nephrology"},
		},
		RiskScore: "High",
	}
}
