package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/junian/homebrew-dotnet/internal/reconcile"
)

const (
	channelWidth = 9
	stateWidth   = 12
	versionWidth = 24
)

//nolint:gochecknoglobals // Styles are immutable values shared by every render.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)

	stateStyles = map[reconcile.State]lipgloss.Style{
		reconcile.Done:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		reconcile.UpToDate: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		reconcile.Stale:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		reconcile.Skipped:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		reconcile.Failed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

var errNilReport = errors.New("nil report")

// Render writes a table of outcomes followed by a one-line tally.
func Render(w io.Writer, r *reconcile.Report) error {
	if r == nil {
		return errNilReport
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s %s %s",
		pad("CHANNEL", channelWidth), pad("STATE", stateWidth), pad("VERSION", versionWidth), "DETAIL")))
	b.WriteByte('\n')

	for i := range r.Outcomes {
		o := &r.Outcomes[i]

		b.WriteString(pad(o.Channel, channelWidth))
		b.WriteByte(' ')
		b.WriteString(stateStyle(o.State).Render(pad(o.State.String(), stateWidth)))
		b.WriteByte(' ')
		b.WriteString(pad(versionColumn(o), versionWidth))
		b.WriteByte(' ')
		b.WriteString(labelStyle.Render(detail(o)))
		b.WriteByte('\n')
	}

	b.WriteString(hintStyle.Render(tally(r)))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())

	return err
}

func stateStyle(s reconcile.State) lipgloss.Style {
	if style, ok := stateStyles[s]; ok {
		return style
	}

	return labelStyle
}

func versionColumn(o *reconcile.Outcome) string {
	switch o.State {
	case reconcile.Done, reconcile.Stale:
		return o.Previous.Version + " -> " + o.Latest
	default:
		if o.Current.Version == "" {
			return "-"
		}

		return o.Current.Version
	}
}

func detail(o *reconcile.Outcome) string {
	switch o.State {
	case reconcile.Failed:
		return fmt.Sprintf("%s: %v", o.FailedAt, o.Err)
	case reconcile.Skipped:
		return fmt.Sprintf("feed unavailable: %v", o.Err)
	case reconcile.Done:
		return "arm " + short(o.Current.SHA256Arm) + " intel " + short(o.Current.SHA256Intel)
	default:
		return ""
	}
}

func tally(r *reconcile.Report) string {
	parts := make([]string, 0, 5)

	for _, s := range []reconcile.State{
		reconcile.Done, reconcile.Stale, reconcile.UpToDate, reconcile.Skipped, reconcile.Failed,
	} {
		if n := r.Count(s); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}

	if len(parts) == 0 {
		return "no channels"
	}

	summary := strings.Join(parts, ", ")

	if !r.Finished.IsZero() {
		summary += fmt.Sprintf(" in %s", r.Finished.Sub(r.Started).Round(10*time.Millisecond))
	}

	return summary
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}

	return sum
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}
