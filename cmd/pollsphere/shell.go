package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pollsphere/pollsphere/internal/app"
	"github.com/pollsphere/pollsphere/internal/authform"
	"github.com/pollsphere/pollsphere/internal/client"
	"github.com/pollsphere/pollsphere/internal/dashboard"
	"github.com/pollsphere/pollsphere/internal/pollcard"
)

const shellHelp = `auth screen:
  login | register          switch form mode
  username|email|password X set a field
  submit                    sign in or register
dashboard:
  polls | leaderboard       switch tab
  refresh                   re-fetch polls
  select <card> <choice>    pick an option
  vote <card>               submit the picked option
  new                       show or hide the poll composer
  title|desc|tags X         edit the draft
  opt <n> X | addopt | rmopt <n>
  post                      create the drafted poll
  logout
anywhere:
  help | quit
`

// runShell is a line-oriented version of the dashboard. It redraws the
// current screen after every command.
func runShell(ctx context.Context, c *cli, args []string) error {
	if err := newFlagSet(c, "shell").Parse(args); err != nil {
		return err
	}

	sc := bufio.NewScanner(c.stdin)
	for {
		if err := c.app.Render(ctx, c.stdout); err != nil {
			return err
		}
		fmt.Fprint(c.stdout, "> ")
		if !sc.Scan() {
			fmt.Fprintln(c.stdout)
			return sc.Err()
		}

		verb, rest, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		rest = strings.TrimSpace(rest)

		var err error
		switch {
		case verb == "":
			continue
		case verb == "quit" || verb == "exit":
			return nil
		case verb == "help":
			io.WriteString(c.stdout, shellHelp)
		case c.app.Screen() == app.ScreenDashboard:
			err = c.dashboardCommand(ctx, verb, rest)
		default:
			err = c.authCommand(ctx, verb, rest)
		}
		if err != nil {
			fmt.Fprintln(c.stdout, "!", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *cli) authCommand(ctx context.Context, verb, rest string) error {
	form := c.app.AuthForm()
	switch verb {
	case "login":
		form.SetMode(authform.ModeLogin)
	case "register":
		form.SetMode(authform.ModeRegister)
	case "username":
		form.SetUsername(rest)
	case "email":
		form.SetEmail(rest)
	case "password":
		form.SetPassword(rest)
	case "submit":
		// The form shows its own inline error.
		_, _ = form.Submit(ctx)
	default:
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
	return nil
}

func (c *cli) dashboardCommand(ctx context.Context, verb, rest string) error {
	d := c.app.Dashboard(ctx)
	comp := d.Composer()

	switch verb {
	case "polls":
		d.SetTab(ctx, dashboard.TabPolls)
	case "leaderboard", "lb":
		d.SetTab(ctx, dashboard.TabLeaderboard)
	case "refresh":
		return d.Refresh(ctx)
	case "select":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return errors.New("usage: select <card> <choice>")
		}
		card, err := cardAt(d, fields[0])
		if err != nil {
			return err
		}
		return selectOption(card, fields[1])
	case "vote":
		card, err := cardAt(d, rest)
		if err != nil {
			return err
		}
		_, err = d.Vote(ctx, card.Poll().ID)
		if errors.Is(err, pollcard.ErrNoSelection) {
			return errors.New("select an option first")
		}
		return localOnly(err)
	case "new":
		d.ToggleComposer()
	case "title":
		comp.SetTitle(rest)
	case "desc":
		comp.SetDescription(rest)
	case "tags":
		comp.SetTags(rest)
	case "addopt":
		comp.AddOption()
	case "opt", "rmopt":
		numStr, text, _ := strings.Cut(rest, " ")
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return fmt.Errorf("usage: %s <n>", verb)
		}
		if verb == "rmopt" {
			comp.RemoveOption(n - 1)
		} else {
			comp.SetOption(n-1, strings.TrimSpace(text))
		}
	case "post":
		_, err := d.CreatePoll(ctx)
		return localOnly(err)
	case "logout":
		c.app.Logout()
	default:
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
	return nil
}

func cardAt(d *dashboard.Dashboard, s string) (*pollcard.Card, error) {
	n, err := strconv.Atoi(s)
	cards := d.Cards()
	if err != nil || n < 1 || n > len(cards) {
		return nil, fmt.Errorf("no poll #%s", s)
	}
	return cards[n-1], nil
}

// localOnly drops backend failures, which the card or composer has already
// logged, and keeps local ones such as a missing title.
func localOnly(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		return nil
	}
	return err
}
