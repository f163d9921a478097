package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docchat/internal/models"
)

type styles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	failed    lipgloss.Style
	muted     lipgloss.Style
	notice    lipgloss.Style
	input     lipgloss.Style
	statuses  map[models.UploadStatus]lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		input:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		statuses: map[models.UploadStatus]lipgloss.Style{
			models.UploadPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
			models.UploadUploading: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			models.UploadSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			models.UploadFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		},
	}
}

// statusLabel is the marker shown next to an upload entry.
func statusLabel(s models.UploadStatus) string {
	switch s {
	case models.UploadUploading:
		return "Uploading..."
	case models.UploadSucceeded:
		return "Uploaded"
	case models.UploadFailed:
		return "Failed"
	default:
		return "Pending"
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(m.styles.header.Render("docchat"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if list := m.renderUploads(); list != "" {
		b.WriteString(list)
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	if m.picking {
		b.WriteString(m.styles.input.Render(m.picker.View()))
	} else {
		b.WriteString(m.styles.input.Render(m.textarea.View()))
	}
	return b.String()
}

func (m Model) renderTranscript() string {
	msgs := m.deps.Transcript.Snapshot()
	if len(msgs) == 0 {
		return m.styles.muted.Render("No messages yet. Upload a document with /upload <path> or Ctrl+O, then ask a question.")
	}
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	body := lipgloss.NewStyle().Width(width - 2).PaddingLeft(2)

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case msg.Role == models.RoleUser:
			b.WriteString(m.styles.user.Render("You"))
		case msg.Failed:
			b.WriteString(m.styles.failed.Render("Assistant (error)"))
		default:
			b.WriteString(m.styles.assistant.Render("Assistant"))
		}
		b.WriteString("\n")
		content := body.Render(msg.Content)
		if msg.Failed {
			content = m.styles.failed.Render(content)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderUploads() string {
	entries := m.deps.Tracker.ListEntries()
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		st := m.styles.statuses[e.Status]
		line := fmt.Sprintf("  %s  %s", e.FileName, st.Render(statusLabel(e.Status)))
		if e.Status == models.UploadFailed && e.Reason != "" {
			line += m.styles.muted.Render(" (" + e.Reason + ")")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) uploadsHeight() int {
	return len(m.deps.Tracker.ListEntries())
}

func (m Model) renderStatusLine() string {
	if m.notice != "" {
		return m.styles.notice.Render(m.notice)
	}
	if m.deps.Controller.Busy() {
		return m.spinner.View() + m.styles.muted.Render(" waiting for an answer...")
	}
	if n := m.deps.Tracker.Active(); n > 0 {
		return m.spinner.View() + m.styles.muted.Render(fmt.Sprintf(" %d upload(s) in progress...", n))
	}
	return m.styles.muted.Render("enter: send  alt+enter: new line  ctrl+o: upload  esc: quit")
}
