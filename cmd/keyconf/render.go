package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/snapshot"
	"github.com/dshills/keyconf/internal/config/theme"
)

// styles renders terminal output. Colors are dropped when the writer is
// not a terminal.
type styles struct {
	r *lipgloss.Renderer

	heading lipgloss.Style
	faint   lipgloss.Style
	error   lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	ok      lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		r:       r,
		heading: r.NewStyle().Bold(true).Underline(true),
		faint:   r.NewStyle().Faint(true),
		error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		info:    r.NewStyle().Foreground(lipgloss.Color("12")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

func (s *styles) severity(sev diag.Severity) lipgloss.Style {
	switch sev {
	case diag.SeverityError:
		return s.error
	case diag.SeverityWarning:
		return s.warning
	default:
		return s.info
	}
}

// swatch renders a block in the given color.
func (s *styles) swatch(c theme.Color) string {
	return s.r.NewStyle().Background(lipgloss.Color(c.Hex()[:7])).Render("    ")
}

func renderLayers(w io.Writer, st *styles, snap *snapshot.Config) {
	fmt.Fprintln(w, st.heading.Render("Layers"))
	for _, l := range snap.Layers() {
		origin := l.Origin
		if origin == "" {
			origin = "-"
		}
		status := st.ok.Render("ok")
		if l.Failed {
			status = st.error.Render("failed")
		}
		fmt.Fprintf(w, "  %-12s %5d  %s  %s\n", l.Name, l.Priority, status, st.faint.Render(origin))
	}
}

func renderDiagnostics(w io.Writer, st *styles, ds []diag.Diagnostic) {
	fmt.Fprintln(w, st.heading.Render("Diagnostics"))
	if len(ds) == 0 {
		fmt.Fprintf(w, "  %s\n", st.ok.Render("none"))
		return
	}
	for _, d := range ds {
		fmt.Fprintf(w, "  %s %s\n", st.severity(d.Severity).Render(fmt.Sprintf("%-7s", d.Severity)), describe(d))
	}
}

// describe renders a diagnostic without its severity.
func describe(d diag.Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", d.Kind)
	if p := d.Path(); p != "" {
		fmt.Fprintf(&b, " %s", p)
	}
	if d.Layer != "" {
		fmt.Fprintf(&b, " (layer %s)", d.Layer)
	}
	fmt.Fprintf(&b, ": %s", d.Message)
	if d.HasFallback {
		fmt.Fprintf(&b, " (using %v)", d.Fallback)
	}
	return b.String()
}

// summary renders the diagnostic counts on one line.
func summary(st *styles, snap *snapshot.Config) string {
	ds := snap.Diagnostics()
	errs := diag.Count(ds, diag.SeverityError)
	warns := diag.Count(ds, diag.SeverityWarning) - errs
	infos := len(ds) - errs - warns
	line := fmt.Sprintf("generation %d: %d errors, %d warnings, %d notes", snap.Generation(), errs, warns, infos)
	switch {
	case errs > 0:
		return st.error.Render(line)
	case warns > 0:
		return st.warning.Render(line)
	default:
		return st.ok.Render(line)
	}
}

func renderPalette(w io.Writer, st *styles, p *theme.Palette) {
	fmt.Fprintln(w, st.heading.Render(fmt.Sprintf("Palette (%s)", p.Kind())))
	for _, slot := range p.Slots() {
		c, _ := p.Color(slot)
		fmt.Fprintf(w, "  %s %-28s %s\n", st.swatch(c), slot, c.Hex())
	}
}
