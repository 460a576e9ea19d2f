package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/chazu/geoview/pkg/app"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
)

// report is the result of a check, as printed or serialized.
type report struct {
	Scene      string            `json:"scene"`
	Placements int               `json:"placements"`
	Checked    bool              `json:"checked"`
	Summary    *summary          `json:"summary,omitempty"`
	Overlaps   []app.OverlapData `json:"overlaps"`
	Warnings   []string          `json:"warnings"`
}

type summary struct {
	Checked       int     `json:"checked"`
	Samples       int     `json:"samples"`
	Overlaps      int     `json:"overlaps"`
	Mother        int     `json:"mother"`
	Sibling       int     `json:"sibling"`
	Flagged       int     `json:"flagged"`
	FailedRegions int     `json:"failedRegions"`
	Seconds       float64 `json:"seconds"`
}

func newReport(path string, checked bool, con *app.Construction) report {
	r := report{
		Scene:      path,
		Placements: con.Root.Count() - len(con.Highlights),
		Checked:    checked,
		Overlaps:   app.Overlaps(con.Registry),
		Warnings:   []string{},
	}
	for _, w := range con.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	if checked {
		s := con.Summary
		r.Summary = &summary{
			Checked:       s.Placements,
			Samples:       s.Samples,
			Overlaps:      s.Overlaps,
			Mother:        s.Mother,
			Sibling:       s.Sibling,
			Flagged:       s.Flagged,
			FailedRegions: s.FailedRegions,
			Seconds:       s.Duration.Seconds(),
		}
	}
	return r
}

// renderReport formats r for a terminal.
func renderReport(r report) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(r.Scene))
	b.WriteString(styleDim.Render(fmt.Sprintf("  %d placements", r.Placements)))
	b.WriteString("\n")

	for _, w := range r.Warnings {
		b.WriteString(styleWarning.Render(iconWarning+" "+w) + "\n")
	}

	if !r.Checked {
		b.WriteString(styleDim.Render("overlap check not run (use --overlap)") + "\n")
		return b.String()
	}

	s := r.Summary
	if len(r.Overlaps) == 0 {
		b.WriteString(styleSuccess.Render(fmt.Sprintf("%s no overlaps in %d placements", iconSuccess, s.Checked)) + "\n")
	} else {
		b.WriteString(overlapTable(r.Overlaps) + "\n")
		b.WriteString(styleError.Render(fmt.Sprintf("%s %d overlaps (%d mother, %d sibling), %d of %d placements flagged",
			iconError, s.Overlaps, s.Mother, s.Sibling, s.Flagged, s.Checked)) + "\n")
	}
	if s.FailedRegions > 0 {
		b.WriteString(styleWarning.Render(fmt.Sprintf("%s %d overlap regions could not be built", iconWarning, s.FailedRegions)) + "\n")
	}
	return b.String()
}

func overlapTable(overlaps []app.OverlapData) string {
	rows := make([][]string, 0, len(overlaps))
	for i, o := range overlaps {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			o.Placement,
			o.Kind,
			o.Partner,
			strconv.FormatFloat(o.Depth, 'g', 4, 64),
			fmt.Sprintf("(%.4g, %.4g, %.4g)", o.Point[0], o.Point[1], o.Point[2]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Placement", "Kind", "Partner", "Depth", "Point").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 2 && row >= 0 && row < len(overlaps) && overlaps[row].Kind == "mother" {
				return base.Foreground(colorYellow)
			}
			return base
		})
	return t.String()
}
