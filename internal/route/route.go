// Package route names the application's pages and guards protected ones.
package route

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Page identifies a screen.
type Page int

const (
	PageLogin Page = iota
	PageRegister
	PageRoot
	PagePatients
	PageDashboard
)

// RegisterNoticeDelay is how long the "registered" notice stays up before
// the register page navigates to login.
const RegisterNoticeDelay = 2 * time.Second

// Route is a parsed location.
type Route struct {
	Page      Page
	PatientID string
}

var (
	Login    = Route{Page: PageLogin}
	Register = Route{Page: PageRegister}
	Root     = Route{Page: PageRoot}
	Patients = Route{Page: PagePatients}
)

// Dashboard returns the route for one patient's dashboard.
func Dashboard(patientID string) Route {
	return Route{Page: PageDashboard, PatientID: patientID}
}

// Parse parses a path such as "/dashboard/p-1".
func Parse(path string) (Route, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return Root, nil
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	switch p {
	case "/":
		return Root, nil
	case "/login":
		return Login, nil
	case "/register":
		return Register, nil
	case "/patients":
		return Patients, nil
	}
	if rest, ok := strings.CutPrefix(p, "/dashboard/"); ok && rest != "" && !strings.Contains(rest, "/") {
		id, err := url.PathUnescape(rest)
		if err != nil {
			return Route{}, fmt.Errorf("bad patient id in %q: %w", path, err)
		}
		return Dashboard(id), nil
	}
	return Route{}, fmt.Errorf("unknown route %q", path)
}

// String renders the route as a path.
func (r Route) String() string {
	switch r.Page {
	case PageLogin:
		return "/login"
	case PageRegister:
		return "/register"
	case PagePatients:
		return "/patients"
	case PageDashboard:
		return "/dashboard/" + url.PathEscape(r.PatientID)
	default:
		return "/"
	}
}

// Protected reports whether the route needs a logged-in user.
func (r Route) Protected() bool {
	return r.Page == PagePatients || r.Page == PageDashboard
}

// Guard returns the route to actually show. Protected routes redirect to
// login without a session; the root route shows the login page.
func Guard(r Route, loggedIn bool) Route {
	if r.Protected() && !loggedIn {
		return Login
	}
	if r.Page == PageRoot {
		return Login
	}
	return r
}

// AfterLogin is where a successful login lands.
func AfterLogin() Route { return Patients }

// AfterRegister is where a successful registration lands once the notice
// has been shown.
func AfterRegister() Route { return Login }
