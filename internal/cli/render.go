package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/progress"
)

var (
	colorAccent = lipgloss.Color("#74c7ec")
	colorGood   = lipgloss.Color("#a6e3a1")
	colorWarn   = lipgloss.Color("#fab387")
	colorMuted  = lipgloss.Color("#a6adc8")
	colorBorder = lipgloss.Color("#45475a")
)

// styles are bound to one renderer so color detection follows the output
// stream: a pipe or a file gets plain text.
type styles struct {
	r      *lipgloss.Renderer
	title  lipgloss.Style
	muted  lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	big    lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	box    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		r:      r,
		title:  r.NewStyle().Foreground(colorAccent).Bold(true),
		muted:  r.NewStyle().Foreground(colorMuted),
		good:   r.NewStyle().Foreground(colorGood).Bold(true),
		warn:   r.NewStyle().Foreground(colorWarn).Bold(true),
		big:    r.NewStyle().Bold(true).Padding(0, 1),
		header: r.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		box:    r.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1),
	}
}

// renderDashboard draws one dashboard snapshot.
func renderDashboard(w io.Writer, v progress.View) string {
	s := newStyles(w)

	mode := "Values"
	if v.Mode == domain.KindVice {
		mode = "Vices"
	}
	title := s.title.Render(fmt.Sprintf("%s · %s", mode, v.Timeframe))
	window := s.muted.Render(fmt.Sprintf("%s → %s", v.Start.Local().Format("Jan 2 15:04"), v.End.Local().Format("Jan 2 15:04")))

	body := progress.MatchValuesState(v.Values,
		func() string { return s.muted.Render("Loading values…") },
		func(values []domain.Value) string { return renderLoaded(s, v, values) },
		func(msg string) string { return s.warn.Render(msg) },
	)

	parts := []string{lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", window), "", body}
	if v.Source == progress.SourceDefaults {
		parts = append(parts, "", s.warn.Render(progress.FetchWarning))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func renderLoaded(s styles, v progress.View, values []domain.Value) string {
	active := domain.ActiveValues(values)
	if len(active) == 0 {
		return s.muted.Render("No active values yet. Add one with `tug values add`.")
	}

	alignStyle := s.muted
	if v.Alignment.Available {
		alignStyle = s.warn
		if v.Alignment.Percent >= 50 {
			alignStyle = s.good
		}
	}
	summary := s.box.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.muted.Render("Alignment"),
		alignStyle.Inherit(s.big).Render(v.Alignment.String()),
	))
	stats := s.box.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.muted.Render("Activities"),
		s.big.Render(fmt.Sprintf("%d · %s", v.Statistics.TotalActivities, formatMinutes(v.Statistics.TotalMinutes))),
	))

	byName := make(map[string]domain.ValueAlignment, len(v.ValueAlignments))
	for _, va := range v.ValueAlignments {
		byName[va.ValueName] = va
	}

	rows := make([][]string, 0, len(active))
	for _, val := range active {
		agg := v.Data[val.Name]
		va := byName[val.Name]
		mark := s.warn.Render("✗")
		if va.Aligned {
			mark = s.good.Render("✓")
		}
		rows = append(rows, []string{
			val.Name,
			strings.Repeat("●", val.Importance),
			formatMinutes(agg.Minutes),
			formatMinutes(agg.CommunityAvg),
			fmt.Sprintf("%.0f%%", va.StatedPercent),
			fmt.Sprintf("%.0f%%", va.ActualPercent),
			mark,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.r.NewStyle().Foreground(colorBorder)).
		Headers("Value", "Importance", "You", "Community", "Stated", "Actual", "").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return s.cell
		})

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, summary, " ", stats),
		t.Render(),
		"",
		v.Insight,
	)
}

// formatMinutes renders minutes as "45m" or "2h 05m".
func formatMinutes(m int) string {
	if m < 60 {
		return strconv.Itoa(m) + "m"
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}
