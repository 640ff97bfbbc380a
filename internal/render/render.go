// Package render draws the client views as plain text for a terminal.
//
// Each view has one template under templates/. The functions here only pick
// the template and shape its data; all state lives in the view packages.
package render

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pollsphere/pollsphere/internal/authform"
	"github.com/pollsphere/pollsphere/internal/composer"
	"github.com/pollsphere/pollsphere/internal/dashboard"
	"github.com/pollsphere/pollsphere/internal/leaderboard"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/pollcard"
)

// GaugeWidth is the number of cells in a result bar.
const GaugeWidth = 20

//go:embed templates/*.tmpl
var files embed.FS

var templates = template.Must(
	template.New("pollsphere").Funcs(template.FuncMap{
		"gauge": func(percent float64) string { return Gauge(percent, GaugeWidth) },
		"pct":   func(percent float64) string { return fmt.Sprintf("%.1f%%", percent) },
		"medal": medal,
		"join":  strings.Join,
		"inc":   func(i int) int { return i + 1 },
	}).ParseFS(files, "templates/*.tmpl"),
)

// Gauge draws percent (0-100) as a bar of width cells. Out of range values
// are clamped.
func Gauge(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(percent/100*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func medal(t leaderboard.Tier) string {
	switch t {
	case leaderboard.Gold:
		return "🥇"
	case leaderboard.Silver:
		return "🥈"
	case leaderboard.Bronze:
		return "🥉"
	default:
		return "  "
	}
}

func Loading(w io.Writer) error {
	return templates.ExecuteTemplate(w, "loading", nil)
}

func AuthForm(w io.Writer, s authform.State) error {
	return templates.ExecuteTemplate(w, "auth", s)
}

func Header(w io.Writer, user model.User, tab dashboard.Tab) error {
	return templates.ExecuteTemplate(w, "header", struct {
		User model.User
		Tab  string
	}{user, tab.String()})
}

// PollCard draws one card. index is the 1-based number shown to the user.
func PollCard(w io.Writer, index int, v pollcard.View) error {
	return templates.ExecuteTemplate(w, "pollcard", struct {
		Index int
		View  pollcard.View
	}{index, v})
}

func Leaderboard(w io.Writer, rows []leaderboard.Row, loading bool) error {
	return templates.ExecuteTemplate(w, "leaderboard", struct {
		Rows    []leaderboard.Row
		Loading bool
	}{rows, loading})
}

func Composer(w io.Writer, d composer.Draft) error {
	return templates.ExecuteTemplate(w, "composer", d)
}

// Dashboard draws the header followed by the active tab. The composer is
// shown above the poll list while it is open.
func Dashboard(w io.Writer, user model.User, d *dashboard.Dashboard) error {
	tab := d.Tab()
	if err := Header(w, user, tab); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if tab == dashboard.TabLeaderboard {
		board := d.Leaderboard()
		return Leaderboard(w, board.Rows(), board.Loading())
	}

	if d.ComposerVisible() {
		if err := Composer(w, d.Composer().Draft()); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if d.Loading() {
		return Loading(w)
	}
	cards := d.Cards()
	if len(cards) == 0 {
		_, err := fmt.Fprintln(w, "No polls yet. Create the first one!")
		return err
	}
	for i, c := range cards {
		if err := PollCard(w, i+1, c.View()); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
