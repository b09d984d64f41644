package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	locColor     = color.New(color.Bold)
	noteColor    = color.New(color.FgBlue)
)

func severityColor(s Severity) *color.Color {
	switch s {
	case SevError:
		return errorColor
	case SevWarning:
		return warningColor
	}
	return infoColor
}

// ShortLine renders d on a single line:
//
//	error LOW6001 file:line:col [func] message
//
// The location and function parts are omitted when unknown.
func ShortLine(d Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(d.Severity.String()))
	sb.WriteByte(' ')
	sb.WriteString(d.Code.ID())
	if !d.Primary.IsZero() {
		sb.WriteByte(' ')
		sb.WriteString(d.Primary.String())
	}
	if d.Func != "" {
		sb.WriteString(" [")
		sb.WriteString(d.Func)
		sb.WriteByte(']')
	}
	sb.WriteByte(' ')
	sb.WriteString(d.Message)
	return sb.String()
}

// FormatShort renders diagnostics one per line, notes indented below
// their diagnostic. The order of diags is kept; call Bag.Sort first for
// deterministic output.
func FormatShort(diags []Diagnostic) string {
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(ShortLine(d))
		sb.WriteByte('\n')
		for _, n := range d.Notes {
			sb.WriteString("  note")
			if !n.Span.IsZero() {
				sb.WriteByte(' ')
				sb.WriteString(n.Span.String())
			}
			sb.WriteByte(' ')
			sb.WriteString(n.Msg)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// PrettyOpts controls Pretty output.
type PrettyOpts struct {
	Color bool
	// Titles appends the code title after the code id.
	Titles bool
}

// Pretty writes d in human-readable form:
//
//	<loc>: <SEV> <CODE>: <message> (in <func>)
//	  note: <loc>: <msg>
func Pretty(w io.Writer, d Diagnostic, opts PrettyOpts) error {
	sev := severityColor(d.Severity)
	loc := locColor
	note := noteColor
	if !opts.Color {
		sev, loc, note = plain(sev), plain(loc), plain(note)
	}

	var sb strings.Builder
	if !d.Primary.IsZero() {
		sb.WriteString(loc.Sprint(d.Primary.String()))
		sb.WriteString(": ")
	}
	sb.WriteString(sev.Sprint(d.Severity.String()))
	sb.WriteByte(' ')
	sb.WriteString(d.Code.ID())
	if opts.Titles {
		fmt.Fprintf(&sb, " (%s)", d.Code.Title())
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if d.Func != "" {
		fmt.Fprintf(&sb, " (in %s)", d.Func)
	}
	sb.WriteByte('\n')
	for _, n := range d.Notes {
		sb.WriteString("  ")
		sb.WriteString(note.Sprint("note"))
		sb.WriteString(": ")
		if !n.Span.IsZero() {
			sb.WriteString(n.Span.String())
			sb.WriteString(": ")
		}
		sb.WriteString(n.Msg)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// PrettyBag writes every diagnostic of bag with Pretty.
func PrettyBag(w io.Writer, bag *Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	for _, d := range bag.Items() {
		if err := Pretty(w, d, opts); err != nil {
			return err
		}
	}
	return nil
}

func plain(c *color.Color) *color.Color {
	p := *c
	p.DisableColor()
	return &p
}
