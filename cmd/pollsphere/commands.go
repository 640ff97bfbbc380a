package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pollsphere/pollsphere/internal/authform"
	"github.com/pollsphere/pollsphere/internal/client"
	"github.com/pollsphere/pollsphere/internal/dashboard"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/pollcard"
	"github.com/pollsphere/pollsphere/internal/render"
)

type command struct {
	summary string
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"login":        {"sign in with email and password", runLogin},
	"register":     {"create an account", runRegister},
	"logout":       {"forget the saved session", runLogout},
	"whoami":       {"show the signed-in user", runWhoami},
	"polls":        {"list polls", runPolls},
	"create":       {"create a poll", runCreate},
	"vote":         {"vote on a poll", runVote},
	"leaderboard":  {"show the XP leaderboard", runLeaderboard},
	"profile":      {"show a user's profile", runProfile},
	"achievements": {"list a user's achievements", runAchievements},
	"shell":        {"interactive dashboard", runShell},
}

var commandOrder = []string{
	"login", "register", "logout", "whoami", "polls", "create", "vote",
	"leaderboard", "profile", "achievements", "shell",
}

// errNotSignedIn is returned by commands that need a session.
var errNotSignedIn = errors.New("not signed in (run: pollsphere login)")

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func newFlagSet(c *cli, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("pollsphere "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) requireUser() (*model.User, error) {
	user := c.store.User()
	if user == nil {
		return nil, errNotSignedIn
	}
	return user, nil
}

// =========================================================================
// SESSION
// =========================================================================

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.submitAuth(ctx, authform.ModeLogin, "", *email, *password)
}

func runRegister(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "register")
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.submitAuth(ctx, authform.ModeRegister, *username, *email, *password)
}

func (c *cli) submitAuth(ctx context.Context, mode authform.Mode, username, email, password string) error {
	if password == "" {
		fmt.Fprint(c.stdout, "Password: ")
		line, err := readLine(c.stdin)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = line
	}

	form := c.app.AuthForm()
	form.SetMode(mode)
	form.SetUsername(username)
	form.SetEmail(email)
	form.SetPassword(password)

	user, err := form.Submit(ctx)
	if err != nil {
		return errors.New(form.State().Error)
	}
	fmt.Fprintf(c.stdout, "Signed in as %s (%d XP)\n", user.Username, user.XP)
	return nil
}

func runLogout(_ context.Context, c *cli, args []string) error {
	if err := newFlagSet(c, "logout").Parse(args); err != nil {
		return err
	}
	c.app.Logout()
	fmt.Fprintln(c.stdout, "Signed out")
	return nil
}

func runWhoami(_ context.Context, c *cli, args []string) error {
	if err := newFlagSet(c, "whoami").Parse(args); err != nil {
		return err
	}
	user, err := c.requireUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s <%s> | %d XP | id %s\n", user.Username, user.Email, user.XP, user.ID)
	return nil
}

// =========================================================================
// POLLS
// =========================================================================

func runPolls(ctx context.Context, c *cli, args []string) error {
	if err := newFlagSet(c, "polls").Parse(args); err != nil {
		return err
	}
	if _, err := c.requireUser(); err != nil {
		return err
	}
	return c.app.Render(ctx, c.stdout)
}

func runCreate(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "create")
	title := fs.String("title", "", "poll question")
	description := fs.String("description", "", "poll description")
	tags := fs.String("tags", "", "comma separated tags")
	var options stringList
	fs.Var(&options, "option", "an answer (repeat for each option)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := c.requireUser(); err != nil {
		return err
	}

	d := c.app.Dashboard(ctx)
	comp := d.Composer()
	comp.SetTitle(*title)
	comp.SetDescription(*description)
	comp.SetTags(*tags)
	for i, opt := range options {
		if i >= len(comp.Draft().Options) {
			comp.AddOption()
		}
		comp.SetOption(i, opt)
	}

	created, err := d.CreatePoll(ctx)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.stdout, "Created poll %s\n", created.Poll.ID)
	return nil
}

func runVote(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet(c, "vote")
	pollID := fs.String("poll", "", "poll id")
	option := fs.String("option", "", "option number (1-based) or option id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pollID == "" || *option == "" {
		return fmt.Errorf("%w: vote -poll ID -option N", errUsage)
	}
	if _, err := c.requireUser(); err != nil {
		return err
	}

	d := c.app.Dashboard(ctx)
	card, ok := d.Card(*pollID)
	if !ok {
		return fmt.Errorf("poll %q not found", *pollID)
	}
	if err := selectOption(card, *option); err != nil {
		return err
	}
	if _, err := d.Vote(ctx, *pollID); err != nil {
		return describe(err)
	}

	card, _ = d.Card(*pollID)
	return render.PollCard(c.stdout, 1, card.View())
}

// selectOption accepts a 1-based choice number or an option id.
func selectOption(card *pollcard.Card, option string) error {
	var err error
	if n, convErr := strconv.Atoi(option); convErr == nil {
		err = card.SelectIndex(n - 1)
	} else {
		err = card.Select(option)
	}
	switch {
	case errors.Is(err, pollcard.ErrAlreadyVoted):
		return errors.New("you have already voted on this poll")
	case errors.Is(err, pollcard.ErrUnknownOption):
		return fmt.Errorf("no option %q", option)
	}
	return err
}

// =========================================================================
// USERS
// =========================================================================

func runLeaderboard(ctx context.Context, c *cli, args []string) error {
	if err := newFlagSet(c, "leaderboard").Parse(args); err != nil {
		return err
	}
	if _, err := c.requireUser(); err != nil {
		return err
	}
	d := c.app.Dashboard(ctx)
	d.SetTab(ctx, dashboard.TabLeaderboard)
	board := d.Leaderboard()
	return render.Leaderboard(c.stdout, board.Rows(), board.Loading())
}

func (c *cli) targetUser(fs *flag.FlagSet, args []string) (string, error) {
	id := fs.String("user", "", "user id (default: yourself)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *id != "" {
		return *id, nil
	}
	user, err := c.requireUser()
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func runProfile(ctx context.Context, c *cli, args []string) error {
	id, err := c.targetUser(newFlagSet(c, "profile"), args)
	if err != nil {
		return err
	}
	u, err := c.api.Profile(ctx, id)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.stdout, "%s <%s>\n", u.Username, u.Email)
	fmt.Fprintf(c.stdout, "  %d XP | %d polls created | %d votes cast\n", u.XP, u.TotalPollsCreated, u.TotalVotesCast)
	fmt.Fprintf(c.stdout, "  member since %s\n", u.CreatedAt.Format("2006-01-02"))
	return nil
}

func runAchievements(ctx context.Context, c *cli, args []string) error {
	id, err := c.targetUser(newFlagSet(c, "achievements"), args)
	if err != nil {
		return err
	}
	list, err := c.api.Achievements(ctx, id)
	if err != nil {
		return describe(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(c.stdout, "No achievements yet.")
		return nil
	}
	for _, a := range list {
		fmt.Fprintf(c.stdout, "%s %s (+%d XP) - %s\n", a.BadgeIcon, a.Title, a.XPBonus, a.Description)
	}
	return nil
}

// describe turns a backend error into its detail text and passes local
// validation errors through.
func describe(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		return errors.New(client.Detail(err))
	}
	return err
}

// readLine reads one line without its trailing newline.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
