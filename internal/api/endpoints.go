package api

import (
	"context"
	"net/http"
	"net/url"

	"synoptic/internal/clinical"
	"synoptic/internal/session"
)

// Login exchanges credentials for the user record.
func (c *Client) Login(ctx context.Context, email, password string) (session.User, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	var res struct {
		User session.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", req, &res); err != nil {
		return session.User{}, err
	}
	return res.User, nil
}

// Register creates an account. The backend answers 201 with no user.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	req := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{username, email, password}
	return c.do(ctx, http.MethodPost, "/api/register", req, nil)
}

// Logout notifies the backend. Callers treat failure as best effort.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// ListPatients returns the patients assigned to a doctor.
func (c *Client) ListPatients(ctx context.Context, userID string) ([]clinical.PatientSummary, error) {
	var res []clinical.PatientSummary
	if err := c.do(ctx, http.MethodGet, "/api/patients/"+url.PathEscape(userID), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetPatient fetches the full record.
func (c *Client) GetPatient(ctx context.Context, id string) (clinical.Patient, error) {
	var p clinical.Patient
	if err := c.do(ctx, http.MethodGet, patientPath(id), nil, &p); err != nil {
		return clinical.Patient{}, err
	}
	return p, nil
}

// Prognosis returns the generated risk report as markdown.
func (c *Client) Prognosis(ctx context.Context, id string) (string, error) {
	var res struct {
		Report string `json:"prognosis_report"`
	}
	if err := c.do(ctx, http.MethodGet, patientPath(id)+"/prognosis", nil, &res); err != nil {
		return "", err
	}
	return res.Report, nil
}

// StreamlineNote turns dictated notes into a SOAP note.
func (c *Client) StreamlineNote(ctx context.Context, notes string) (string, error) {
	req := struct {
		Notes string `json:"notes"`
	}{notes}
	var res struct {
		FormattedNote string `json:"formatted_note"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/streamline_note", req, &res); err != nil {
		return "", err
	}
	return res.FormattedNote, nil
}

// AddNote appends a note dated date (YYYY-MM-DD) and returns the new history.
func (c *Client) AddNote(ctx context.Context, id, content, date string) ([]clinical.HistoryEvent, error) {
	req := struct {
		Content string `json:"note_content"`
		Date    string `json:"note_date"`
	}{content, date}
	var res struct {
		NewHistory []clinical.HistoryEvent `json:"new_history"`
	}
	if err := c.do(ctx, http.MethodPost, patientPath(id)+"/notes", req, &res); err != nil {
		return nil, err
	}
	return res.NewHistory, nil
}

// AddCarePlanItem adds a prescription or test order and returns the updated record.
func (c *Client) AddCarePlanItem(ctx context.Context, id, itemType, description string) (clinical.Patient, error) {
	req := struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}{itemType, description}
	var p clinical.Patient
	if err := c.do(ctx, http.MethodPost, patientPath(id)+"/careplan", req, &p); err != nil {
		return clinical.Patient{}, err
	}
	return p, nil
}

// Chat asks a question about a patient.
func (c *Client) Chat(ctx context.Context, question, patientID string) (string, error) {
	req := struct {
		Question  string `json:"question"`
		PatientID string `json:"patientId"`
	}{question, patientID}
	var res struct {
		Answer string `json:"answer"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &res); err != nil {
		return "", err
	}
	return res.Answer, nil
}

func patientPath(id string) string {
	return "/api/patient/" + url.PathEscape(id)
}
