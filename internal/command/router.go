package command

import (
	"errors"
	"fmt"
	"strings"

	"synoptic/internal/logging"
)

// ErrAmbiguous is returned by NewRouter when two commands can claim the same
// utterance.
var ErrAmbiguous = errors.New("ambiguous command table")

// Action is invoked with the wildcard capture, or "" for exact templates.
type Action func(capture string)

// Command binds one or more templates to an action.
type Command struct {
	Name      string
	Templates []Template
	Action    Action
}

// Match is the result of routing an utterance.
type Match struct {
	Command  *Command
	Template Template
	Capture  string
}

// Router evaluates commands in declaration order; the first match wins.
// The table is fixed once built.
type Router struct {
	commands []Command
}

// NewRouter validates the table. Duplicate templates across commands and
// templates made unreachable by an earlier template are rejected.
func NewRouter(commands ...Command) (*Router, error) {
	seen := make(map[string]string)
	for i, c := range commands {
		if c.Action == nil {
			return nil, fmt.Errorf("command %q has no action", c.Name)
		}
		if len(c.Templates) == 0 {
			return nil, fmt.Errorf("command %q has no templates", c.Name)
		}
		for _, t := range c.Templates {
			if owner, dup := seen[t.key()]; dup && owner != c.Name {
				return nil, fmt.Errorf("%w: %q is declared by both %q and %q", ErrAmbiguous, t.String(), owner, c.Name)
			}
			seen[t.key()] = c.Name
			for _, earlier := range commands[:i] {
				for _, et := range earlier.Templates {
					if et.shadows(t) {
						return nil, fmt.Errorf("%w: %q (%s) is unreachable behind %q (%s)",
							ErrAmbiguous, t.String(), c.Name, et.String(), earlier.Name)
					}
				}
			}
		}
	}
	return &Router{commands: append([]Command(nil), commands...)}, nil
}

// Commands returns the table in evaluation order.
func (r *Router) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

// Match finds the first command accepting the utterance. Matching ignores
// case, extra whitespace, and punctuation around words.
func (r *Router) Match(utterance string) (Match, bool) {
	tokens, original := tokenize(utterance)
	if len(tokens) == 0 {
		return Match{}, false
	}
	for i := range r.commands {
		c := &r.commands[i]
		for _, t := range c.Templates {
			if capture, ok := t.match(tokens, original); ok {
				return Match{Command: c, Template: t, Capture: capture}, true
			}
		}
	}
	return Match{}, false
}

// Dispatch routes the utterance and invokes the matched action once.
// It reports whether anything matched.
func (r *Router) Dispatch(utterance string) bool {
	m, ok := r.Match(utterance)
	if !ok {
		logging.RoutingDebug("no command for %q", strings.TrimSpace(utterance))
		return false
	}
	logging.Routing("dispatch %s via %q", m.Command.Name, m.Template.String())
	m.Command.Action(m.Capture)
	return true
}

// Phrases builds templates for a phrase accepted either with the wake phrase
// "hey <wakeWord>" (where "hey" is optional) or on its own.
func Phrases(wakeWord, phrase string) []Template {
	templates := []Template{MustTemplate(phrase)}
	if w := strings.TrimSpace(wakeWord); w != "" {
		templates = append([]Template{MustTemplate("(hey) " + w + " " + phrase)}, templates...)
	}
	return templates
}
