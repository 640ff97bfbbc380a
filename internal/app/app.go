// Package app is the top-level client shell.
//
// It decides which screen is showing: a loading notice until the saved session
// has been read, the auth form when nobody is signed in, and the dashboard
// otherwise. The dashboard is created on first use for each signed-in user
// and thrown away on logout.
package app

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/pollsphere/pollsphere/internal/authform"
	"github.com/pollsphere/pollsphere/internal/dashboard"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/render"
)

type Screen int

const (
	ScreenLoading Screen = iota
	ScreenAuth
	ScreenDashboard
)

func (s Screen) String() string {
	switch s {
	case ScreenAuth:
		return "auth"
	case ScreenDashboard:
		return "dashboard"
	default:
		return "loading"
	}
}

// Sessions is implemented by *session.Store.
type Sessions interface {
	authform.Sessions
	Loading() bool
	User() *model.User
	Logout()
}

type App struct {
	sessions Sessions
	api      dashboard.API
	logger   *slog.Logger

	mu     sync.Mutex
	form   *authform.Form
	dash   *dashboard.Dashboard
	dashID string
}

func New(sessions Sessions, api dashboard.API, logger *slog.Logger) *App {
	return &App{
		sessions: sessions,
		api:      api,
		logger:   logger,
		form:     authform.New(sessions),
	}
}

func (a *App) Screen() Screen {
	switch {
	case a.sessions.Loading():
		return ScreenLoading
	case a.sessions.User() == nil:
		return ScreenAuth
	default:
		return ScreenDashboard
	}
}

// User returns the signed-in user, or nil.
func (a *App) User() *model.User {
	return a.sessions.User()
}

func (a *App) AuthForm() *authform.Form {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.form
}

// Dashboard returns the dashboard of the signed-in user, mounting it the
// first time. It returns nil when nobody is signed in.
func (a *App) Dashboard(ctx context.Context) *dashboard.Dashboard {
	user := a.sessions.User()
	if user == nil {
		return nil
	}

	a.mu.Lock()
	if a.dash != nil && a.dashID == user.ID {
		d := a.dash
		a.mu.Unlock()
		return d
	}
	d := dashboard.New(a.api, a.logger, user.ID)
	a.dash, a.dashID = d, user.ID
	a.mu.Unlock()

	// A failed first fetch is logged by the dashboard and shows an empty list.
	_ = d.Mount(ctx)
	return d
}

// Logout signs out and returns to a blank auth form.
func (a *App) Logout() {
	a.sessions.Logout()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dash, a.dashID = nil, ""
	a.form = authform.New(a.sessions)
}

// Render draws the current screen.
func (a *App) Render(ctx context.Context, w io.Writer) error {
	switch a.Screen() {
	case ScreenLoading:
		return render.Loading(w)
	case ScreenAuth:
		return render.AuthForm(w, a.AuthForm().State())
	}

	user := a.sessions.User()
	d := a.Dashboard(ctx)
	if user == nil || d == nil {
		return render.AuthForm(w, a.AuthForm().State())
	}
	return render.Dashboard(w, *user, d)
}
