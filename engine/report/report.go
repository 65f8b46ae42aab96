package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/tzprobe/engine/moment"
	"github.com/compozy/tzprobe/engine/probe"
	"github.com/mattn/go-isatty"
)

const (
	MarkMatch    = "✓"
	MarkMismatch = "✘"

	separatorWidth = 120
	headerLabel    = "%-22s%s\n"
	typeWidth      = 27
	valueWidth     = 27
)

var separator = strings.Repeat("-", separatorWidth)

// Reporter prints the human-readable comparison. It implements probe.Reporter.
type Reporter struct {
	out       io.Writer
	color     bool
	matchMark lipgloss.Style
	failMark  lipgloss.Style
}

// New writes to out, coloring marks when out is a terminal.
func New(out io.Writer) *Reporter {
	r := NewPlain(out)
	if !ShouldUseColor(out) {
		return r
	}
	renderer := lipgloss.NewRenderer(out)
	r.color = true
	r.matchMark = renderer.NewStyle().Foreground(lipgloss.Color("#4ECB71")).Bold(true)
	r.failMark = renderer.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	return r
}

// NewPlain writes to out without any styling.
func NewPlain(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// ShouldUseColor reports whether w is an interactive terminal that accepts
// colors.
func ShouldUseColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

// WriteHeader prints the zones involved and the reference in every
// rendering, followed by a separator.
func (r *Reporter) WriteHeader(h probe.Header) error {
	var b strings.Builder
	ref := h.Reference

	fmt.Fprintf(&b, headerLabel, "Process zone:", zoneName(h.ProcessZone))
	fmt.Fprintf(&b, headerLabel, "Session zone:", sessionZone(h.ServerZone))
	fmt.Fprintf(&b, headerLabel, "Application zone:", zoneName(h.AppZone))
	b.WriteString("\n")
	fmt.Fprintf(&b, headerLabel, "Instant:", ref.Instant.Format(time.RFC3339Nano)+
		"  <-- this (or its equivalent) is what we want again after writing and reading")
	b.WriteString("\n")
	fmt.Fprintf(&b, headerLabel, "Zoned:", ref.Zoned().Format(time.RFC3339Nano)+"["+zoneName(ref.Zone)+"]")
	fmt.Fprintf(&b, headerLabel, "Offset:", ref.Offset().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, headerLabel, "Wall clock:", ref.Wall.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, headerLabel, "Legacy:", legacy(ref, h.ProcessZone))
	b.WriteString("\n")
	b.WriteString(separator + "\n\n")

	_, err := io.WriteString(r.out, b.String())
	return err
}

// WriteRows prints every representation of every row and marks whether it
// denotes the reference instant.
func (r *Reporter) WriteRows(ref moment.Reference, rows []probe.Row) error {
	var b strings.Builder
	b.WriteString("\n" + separator + "\n\n")
	b.WriteString("<id> (Inserted as <Go type>)\n\n")
	b.WriteString(line("<column type>", "<Go type>", "<formatted value>", "<equivalent instant>", "?") + "\n")

	for _, row := range rows {
		fmt.Fprintf(&b, "\n%d (%s)\n", row.ID, row.Info)
		column := ""
		for _, cell := range row.Cells {
			if cell.Column.Name != column {
				column = cell.Column.Name
				b.WriteString("\n")
			}
			b.WriteString(r.cellLine(ref, cell) + "\n")
		}
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Reporter) cellLine(ref moment.Reference, cell probe.Cell) string {
	v := cell.Value
	return line(cell.Column.Type, cell.Kind.Label(), v.Format(),
		v.Instant().Format(time.RFC3339Nano), r.mark(v.Matches(ref)))
}

func (r *Reporter) mark(ok bool) string {
	switch {
	case ok && r.color:
		return r.matchMark.Render(MarkMatch)
	case ok:
		return MarkMatch
	case r.color:
		return r.failMark.Render(MarkMismatch)
	default:
		return MarkMismatch
	}
}

func line(columnType, goType, value, instant, mark string) string {
	return fmt.Sprintf("    %-*s read as %-*s = %-*s (%s)   %s",
		typeWidth, columnType, labelWidth(), goType, valueWidth, value, instant, mark)
}

func labelWidth() int {
	width := 0
	for _, k := range moment.Kinds() {
		width = max(width, len(k.Label()))
	}
	return width
}

func sessionZone(zone string) string {
	if zone == "" {
		return "unavailable"
	}
	return zone + " (usually matches the process zone)"
}

func zoneName(loc *time.Location) string {
	if loc == nil {
		return "unavailable"
	}
	return loc.String()
}

// legacy renders the reference the way a process-zone calendar shows it.
func legacy(ref moment.Reference, process *time.Location) string {
	if process == nil {
		process = time.UTC
	}
	return moment.FormatDense(ref.Instant.In(process))
}
