package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synoptic/internal/api"
	"synoptic/internal/apitest"
	"synoptic/internal/clinical"
	"synoptic/internal/session"
)

func setup(t *testing.T) (*apitest.Backend, *api.Client, string) {
	t.Helper()
	b := apitest.New()
	doctor := b.AddUser("house", "house@ppth.org", "vicodin")
	b.AddPatient(doctor, apitest.SamplePatient("p1"))
	srv := b.Start(t)
	return b, api.New(srv.URL, api.WithTimeout(5*time.Second)), doctor
}

func TestLogin(t *testing.T) {
	_, c, doctor := setup(t)
	ctx := context.Background()

	u, err := c.Login(ctx, "house@ppth.org", "vicodin")
	require.NoError(t, err)
	assert.Equal(t, session.User{ID: doctor, Username: "house", Email: "house@ppth.org"}, u)

	_, err = c.Login(ctx, "house@ppth.org", "wrong")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestRegister(t *testing.T) {
	_, c, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "wilson", "wilson@ppth.org", "pw"))
	err := c.Register(ctx, "wilson", "wilson@ppth.org", "pw")
	assert.Equal(t, http.StatusConflict, api.StatusOf(err))

	_, err = c.Login(ctx, "wilson@ppth.org", "pw")
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	b, c, _ := setup(t)
	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, 1, b.Count(apitest.RouteLogout))
}

func TestPatients(t *testing.T) {
	_, c, doctor := setup(t)
	ctx := context.Background()

	list, err := c.ListPatients(ctx, doctor)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "High", list[0].RiskScore)

	empty, err := c.ListPatients(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	p, err := c.GetPatient(ctx, "p1")
	require.NoError(t, err)
	if diff := cmp.Diff(apitest.SamplePatient("p1"), p); diff != "" {
		t.Errorf("patient mismatch (-want +got):\n%s", diff)
	}

	_, err = c.GetPatient(ctx, "missing")
	assert.True(t, api.IsNotFound(err))
}

func TestPrognosisAndNotes(t *testing.T) {
	b, c, _ := setup(t)
	ctx := context.Background()
	b.SetPrognosis("p1", "High risk of readmission.")

	report, err := c.Prognosis(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "High risk of readmission.", report)

	note, err := c.StreamlineNote(ctx, "bp high")
	require.NoError(t, err)
	assert.Contains(t, note, "bp high")

	history, err := c.AddNote(ctx, "p1", note, "2024-05-02")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, clinical.HistoryEvent{Date: "2024-05-02", Event: note}, history[2])
}

func TestCarePlanAndChat(t *testing.T) {
	_, c, _ := setup(t)
	ctx := context.Background()

	p, err := c.AddCarePlanItem(ctx, "p1", clinical.ItemTest, "Lipid panel")
	require.NoError(t, err)
	assert.Equal(t, []string{"Renal panel", "Lipid panel"}, p.CarePlan.PendingTests)

	_, err = c.AddCarePlanItem(ctx, "p1", "surgery", "x")
	assert.Equal(t, http.StatusBadRequest, api.StatusOf(err))

	answer, err := c.Chat(ctx, "allergies?", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Answer about p1: allergies?", answer)
}

func TestRequestIDHeader(t *testing.T) {
	b := apitest.New()
	srv := b.Start(t)
	n := 0
	c := api.New(srv.URL, api.WithRequestIDs(func() string {
		n++
		return "req-" + string(rune('0'+n))
	}))

	_ = c.Logout(context.Background())
	_ = c.Logout(context.Background())

	reqs := b.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "req-1", reqs[0].RequestID)
	assert.Equal(t, "req-2", reqs[1].RequestID)
}

func TestDefaultRequestIDsAreUnique(t *testing.T) {
	b, c, _ := setup(t)
	_ = c.Logout(context.Background())
	_ = c.Logout(context.Background())
	reqs := b.Requests()
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := api.New(srv.URL).Prognosis(context.Background(), "p1")
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.New(url).GetPatient(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, 0, api.StatusOf(err))
}

func TestRateLimitHonoursContext(t *testing.T) {
	_, c0, _ := setup(t)
	c := api.New(c0.BaseURL(), api.WithRateLimit(0.001, 1))

	require.NoError(t, c.Logout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Logout(ctx)
	require.Error(t, err, "second call must wait for a token and give up")
}

func TestFailInjection(t *testing.T) {
	b, c, _ := setup(t)
	b.Fail(apitest.RouteChat, http.StatusInternalServerError, "Failed to get chat response.")

	_, err := c.Chat(context.Background(), "q", "p1")
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Failed to get chat response.", apiErr.Message)

	b.Recover(apitest.RouteChat)
	_, err = c.Chat(context.Background(), "q", "p1")
	assert.NoError(t, err)
}
