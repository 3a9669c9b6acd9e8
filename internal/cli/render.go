package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/specialistvlad/gridmake/internal/app"
	"github.com/specialistvlad/gridmake/internal/graph"
	"github.com/specialistvlad/gridmake/internal/history"
)

var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorSuccess = lipgloss.Color("#00E676")
	colorDanger  = lipgloss.Color("#FF5252")
	colorMuted   = lipgloss.Color("#636363")
)

const (
	iconFresh  = "✓"
	iconStale  = "✗"
	iconFailed = "!"
)

var (
	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleFresh = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleStale = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleDim = lipgloss.NewStyle().
			Foreground(colorMuted)
)

func renderStatus(w io.Writer, statuses []app.SegmentStatus) error {
	width := 0
	for _, s := range statuses {
		width = max(width, len(s.Title))
	}

	var b strings.Builder
	fmt.Fprintln(&b, styleTitle.Render("Pipeline status"))
	stale := 0
	for _, s := range statuses {
		icon, state := styleFresh.Render(iconFresh), styleFresh.Render("up to date")
		if s.Stale {
			stale++
			icon, state = styleStale.Render(iconStale), styleStale.Render("stale     ")
		}
		fmt.Fprintf(&b, "  %s %3d  %-*s  %s  %s\n",
			icon, s.ID, width, s.Title, state, styleDim.Render(strings.Join(s.Targets, ", ")))
	}
	fmt.Fprintln(&b, styleDim.Render(fmt.Sprintf("%d segment(s), %d stale", len(statuses), stale)))

	_, err := io.WriteString(w, b.String())
	return err
}

func renderHistory(w io.Writer, entries []history.Entry) error {
	var b strings.Builder
	fmt.Fprintln(&b, styleTitle.Render("Recent executions"))
	if len(entries) == 0 {
		fmt.Fprintln(&b, styleDim.Render("  No executions recorded."))
	}
	for _, e := range entries {
		run := e.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		var outcome string
		switch {
		case e.Error != "":
			outcome = styleStale.Render(iconFailed + " failed: " + e.Error)
		case e.Executed:
			outcome = styleFresh.Render(iconFresh+" ran") + " " + e.Duration.Round(time.Millisecond).String()
		default:
			outcome = styleDim.Render("– skipped")
		}
		fmt.Fprintf(&b, "  %s  %s  %3d  %s  %s\n",
			styleDim.Render(run), e.StartedAt.Local().Format(time.DateTime), e.SegmentID, e.Title, outcome)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeDOT renders p as a Graphviz digraph. Outdated edges are drawn red,
// package edges dashed.
func writeDOT(w io.Writer, p graph.Projection) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph gridmake {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	for _, n := range p.Nodes {
		var attrs []string
		if n.Label != "" {
			attrs = append(attrs, "label="+strconv.Quote(n.Label))
		}
		switch {
		case n.IsInstruction:
			attrs = append(attrs, "shape=box")
		case n.IsPackage:
			attrs = append(attrs, "shape=component")
		case n.IsSource:
			attrs = append(attrs, "shape=note")
		default:
			attrs = append(attrs, "shape=ellipse")
		}
		fmt.Fprintf(bw, "  %s [%s];\n", strconv.Quote(n.ID), strings.Join(attrs, ", "))
	}
	for _, e := range p.Edges {
		var attrs []string
		if e.Outdated {
			attrs = append(attrs, "color=red")
		}
		if e.IsPackage {
			attrs = append(attrs, "style=dashed")
		}
		line := fmt.Sprintf("  %s -> %s", strconv.Quote(e.From), strconv.Quote(e.To))
		if len(attrs) > 0 {
			line += " [" + strings.Join(attrs, ", ") + "]"
		}
		fmt.Fprintln(bw, line+";")
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
