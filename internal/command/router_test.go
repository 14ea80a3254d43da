package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls    map[string]int
	captures map[string][]string
}

func newRecorder() *recorder {
	return &recorder{calls: map[string]int{}, captures: map[string][]string{}}
}

func (r *recorder) action(name string) Action {
	return func(capture string) {
		r.calls[name]++
		r.captures[name] = append(r.captures[name], capture)
	}
}

func testRouter(t *testing.T, rec *recorder) *Router {
	t.Helper()
	r, err := NewRouter(
		Command{Name: "open-notes", Templates: Phrases("synoptic", "open notes"), Action: rec.action("open-notes")},
		Command{Name: "run-prognosis", Templates: Phrases("synoptic", "run prognosis"), Action: rec.action("run-prognosis")},
		Command{Name: "ask", Templates: Phrases("synoptic", "ask *"), Action: rec.action("ask")},
		Command{Name: "note", Templates: []Template{MustTemplate("(hey) synoptic new note *"), MustTemplate("note *")}, Action: rec.action("note")},
		Command{Name: "clear-note", Templates: Phrases("synoptic", "clear note"), Action: rec.action("clear-note")},
	)
	require.NoError(t, err)
	return r
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("(hey) Synoptic ask *")
	require.NoError(t, err)
	assert.True(t, tmpl.Wildcard())
	assert.Equal(t, "(hey) synoptic ask *", tmpl.key())

	_, err = ParseTemplate("   ")
	assert.Error(t, err)

	_, err = ParseTemplate("ask * now")
	assert.Error(t, err)

	_, err = ParseTemplate("*")
	assert.Error(t, err)
}

func TestDispatch_Variations(t *testing.T) {
	utterances := []string{
		"run prognosis",
		"Run Prognosis",
		"  run    prognosis  ",
		"Hey Synoptic, run prognosis.",
		"synoptic run prognosis",
		"HEY SYNOPTIC RUN PROGNOSIS!",
	}
	for _, u := range utterances {
		t.Run(u, func(t *testing.T) {
			rec := newRecorder()
			r := testRouter(t, rec)
			assert.True(t, r.Dispatch(u))
			assert.Equal(t, 1, rec.calls["run-prognosis"])
			assert.Len(t, rec.calls, 1)
		})
	}
}

func TestDispatch_WildcardCapture(t *testing.T) {
	rec := newRecorder()
	r := testRouter(t, rec)

	assert.True(t, r.Dispatch("Hey Synoptic ask about Allergies"))
	assert.True(t, r.Dispatch("ask   what is the latest HbA1c"))
	assert.Equal(t, []string{"about Allergies", "what is the latest HbA1c"}, rec.captures["ask"])

	assert.True(t, r.Dispatch("hey synoptic new note patient reports dizziness"))
	assert.True(t, r.Dispatch("note BP 140/90"))
	assert.Equal(t, []string{"patient reports dizziness", "BP 140/90"}, rec.captures["note"])
}

func TestDispatch_NoMatch(t *testing.T) {
	rec := newRecorder()
	r := testRouter(t, rec)

	for _, u := range []string{"", "   ", "open", "open notes please", "ask", "hey", "prognosis run", "...", "hey synoptic"} {
		assert.False(t, r.Dispatch(u), u)
	}
	assert.Empty(t, rec.calls)
}

func TestMatch_FirstDeclaredWins(t *testing.T) {
	rec := newRecorder()
	r, err := NewRouter(
		Command{Name: "a", Templates: []Template{MustTemplate("status")}, Action: rec.action("a")},
		Command{Name: "b", Templates: []Template{MustTemplate("hey status")}, Action: rec.action("b")},
	)
	require.NoError(t, err)

	m, ok := r.Match("Status")
	require.True(t, ok)
	assert.Equal(t, "a", m.Command.Name)
	assert.Equal(t, "", m.Capture)
}

func TestNewRouter_RejectsDuplicates(t *testing.T) {
	rec := newRecorder()
	_, err := NewRouter(
		Command{Name: "one", Templates: []Template{MustTemplate("save note")}, Action: rec.action("one")},
		Command{Name: "two", Templates: []Template{MustTemplate("Save  Note")}, Action: rec.action("two")},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmbiguous))
}

func TestNewRouter_RejectsShadowedTemplates(t *testing.T) {
	rec := newRecorder()
	_, err := NewRouter(
		Command{Name: "ask", Templates: []Template{MustTemplate("ask *")}, Action: rec.action("ask")},
		Command{Name: "ask-allergies", Templates: []Template{MustTemplate("ask about allergies")}, Action: rec.action("x")},
	)
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = NewRouter(
		Command{Name: "note", Templates: []Template{MustTemplate("note *")}, Action: rec.action("note")},
		Command{Name: "note-long", Templates: []Template{MustTemplate("note urgent *")}, Action: rec.action("y")},
	)
	assert.ErrorIs(t, err, ErrAmbiguous)

	for _, later := range []string{"hey synoptic open notes", "synoptic open notes"} {
		_, err = NewRouter(
			Command{Name: "open-notes", Templates: []Template{MustTemplate("(hey) synoptic open notes")}, Action: rec.action("open")},
			Command{Name: "open-notes-again", Templates: []Template{MustTemplate(later)}, Action: rec.action("z")},
		)
		assert.ErrorIs(t, err, ErrAmbiguous, later)
	}

	// A longer phrase is still reachable behind an exact one.
	_, err = NewRouter(
		Command{Name: "open", Templates: []Template{MustTemplate("(hey) synoptic open")}, Action: rec.action("open")},
		Command{Name: "open-notes", Templates: []Template{MustTemplate("synoptic open notes")}, Action: rec.action("notes")},
	)
	assert.NoError(t, err)
}

func TestNewRouter_AllowsReachableOrder(t *testing.T) {
	rec := newRecorder()
	// The exact phrase comes first, so the wildcard cannot steal it.
	r, err := NewRouter(
		Command{Name: "ask-help", Templates: []Template{MustTemplate("ask help")}, Action: rec.action("help")},
		Command{Name: "ask", Templates: []Template{MustTemplate("ask *")}, Action: rec.action("ask")},
		Command{Name: "ask-bare", Templates: []Template{MustTemplate("ask")}, Action: rec.action("bare")},
	)
	require.NoError(t, err)

	r.Dispatch("ask help")
	r.Dispatch("ask anything")
	r.Dispatch("ask")
	assert.Equal(t, 1, rec.calls["help"])
	assert.Equal(t, 1, rec.calls["ask"])
	assert.Equal(t, 1, rec.calls["bare"])
}

func TestNewRouter_Validation(t *testing.T) {
	_, err := NewRouter(Command{Name: "nil-action", Templates: []Template{MustTemplate("x")}})
	assert.Error(t, err)

	_, err = NewRouter(Command{Name: "no-templates", Action: func(string) {}})
	assert.Error(t, err)
}

func TestPhrases_WithoutWakeWord(t *testing.T) {
	templates := Phrases("", "open chat")
	require.Len(t, templates, 1)
	assert.Equal(t, "open chat", templates[0].String())

	templates = Phrases("synoptic", "open chat")
	require.Len(t, templates, 2)
	assert.Equal(t, "(hey) synoptic open chat", templates[0].String())
}

func TestRouter_CommandsIsCopy(t *testing.T) {
	rec := newRecorder()
	r := testRouter(t, rec)
	cmds := r.Commands()
	cmds[0].Name = "changed"
	assert.Equal(t, "open-notes", r.Commands()[0].Name)
}
