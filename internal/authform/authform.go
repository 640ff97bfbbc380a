// Package authform is the sign-in / sign-up form.
package authform

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pollsphere/pollsphere/internal/client"
	"github.com/pollsphere/pollsphere/internal/model"
)

type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "Register"
	}
	return "Login"
}

// ErrSubmitting is returned when Submit is called while a submit is pending.
var ErrSubmitting = errors.New("authform: submit already in progress")

// Sessions is implemented by *session.Store.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, username, email, password string) (*model.User, error)
}

// Form collects credentials and hands them to the session store. A failure
// is kept as inline text for the view; there is no other error channel.
type Form struct {
	sessions Sessions

	mu       sync.Mutex
	mode     Mode
	username string
	email    string
	password string
	pending  bool
	errText  string
}

func New(sessions Sessions) *Form {
	return &Form{sessions: sessions}
}

// State is a snapshot for rendering.
type State struct {
	Mode     Mode
	Username string
	Email    string
	Pending  bool
	Error    string
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State{
		Mode:     f.mode,
		Username: f.username,
		Email:    f.email,
		Pending:  f.pending,
		Error:    f.errText,
	}
}

func (f *Form) SetMode(m Mode) {
	f.mu.Lock()
	f.mode = m
	f.mu.Unlock()
}

func (f *Form) SetUsername(v string) { f.set(&f.username, v) }
func (f *Form) SetEmail(v string)    { f.set(&f.email, v) }
func (f *Form) SetPassword(v string) { f.set(&f.password, v) }

func (f *Form) set(field *string, v string) {
	f.mu.Lock()
	*field = v
	f.mu.Unlock()
}

// Submit signs in or registers, depending on the mode.
//
// Required fields are checked first; a missing one sets the inline error and
// sends nothing. The previous error is cleared as soon as a submit starts.
func (f *Form) Submit(ctx context.Context) (*model.User, error) {
	f.mu.Lock()
	if f.pending {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.errText = ""

	mode, username, email, password := f.mode, strings.TrimSpace(f.username), strings.TrimSpace(f.email), f.password
	if missing := missingField(mode, username, email, password); missing != "" {
		err := errors.New(missing + " is required")
		f.errText = err.Error()
		f.mu.Unlock()
		return nil, err
	}
	f.pending = true
	f.mu.Unlock()

	var (
		user *model.User
		err  error
	)
	if mode == ModeRegister {
		user, err = f.sessions.Register(ctx, username, email, password)
	} else {
		user, err = f.sessions.Login(ctx, email, password)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if err != nil {
		f.errText = client.Detail(err)
		return nil, err
	}
	f.password = ""
	return user, nil
}

func missingField(mode Mode, username, email, password string) string {
	switch {
	case mode == ModeRegister && username == "":
		return "Username"
	case email == "":
		return "Email"
	case password == "":
		return "Password"
	}
	return ""
}
