package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/quantum-grit/your-sofia/signal-service/internal/models"
)

func newRenderer(w io.Writer, noColor bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// renderCatalog prints one line per container state, colored with its catalog color.
func renderCatalog(w io.Writer, noColor bool) error {
	r := newRenderer(w, noColor)
	header := r.NewStyle().Bold(true)

	if _, err := fmt.Fprintln(w, header.Render(fmt.Sprintf("%-3s %-12s %s", "#", "STATE", "COLOR"))); err != nil {
		return err
	}
	for _, entry := range models.Catalog() {
		swatch := r.NewStyle().Foreground(lipgloss.Color(entry.Color)).Bold(true)
		line := fmt.Sprintf("%-3d %s %s", entry.Priority, swatch.Render(fmt.Sprintf("%-12s", entry.State)), entry.Color)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func renderProgress(w io.Writer, progress *models.AssignmentProgress, noColor bool) error {
	r := newRenderer(w, noColor)
	done := r.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	pending := r.NewStyle().Foreground(lipgloss.Color("#DC2626"))

	var b strings.Builder
	fmt.Fprintf(&b, "Assignment %s: %d/%d containers, %d%%\n",
		progress.AssignmentID,
		progress.CompletedContainers,
		progress.TotalContainers,
		progress.PercentageComplete,
	)

	for _, status := range progress.ContainerStatuses {
		name := status.ContainerID
		if status.PublicNumber != "" {
			name = fmt.Sprintf("%s (%s)", status.PublicNumber, status.ContainerID)
		}

		if status.IsComplete {
			fmt.Fprintf(&b, "  %s %s\n", done.Render("done"), name)
			continue
		}
		fmt.Fprintf(&b, "  %s %s pending: %s\n",
			pending.Render("open"),
			name,
			strings.Join(status.PendingActivities.Strings(), ", "),
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
