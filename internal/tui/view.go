package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/core/styles"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	if m.comment != nil {
		return overlay(m.comment.View(), m.width, m.height)
	}
	if m.confirm != nil {
		return overlay(m.confirm.View(), m.width, m.height)
	}
	if m.showHelp {
		return overlay(m.renderHelp(), m.width, m.height)
	}

	var body string
	switch {
	case m.loading:
		body = m.renderLoading()
	case m.record == nil:
		body = lipgloss.NewStyle().
			Foreground(styles.ColorMuted).
			Padding(2, 4).
			Render("No section loaded. Press l to load the first section.")
	default:
		body = m.renderSection()
	}

	view := m.renderHeader() + "\n" + body + "\n" + m.renderStatusBar()

	if m.toasts.HasToasts() {
		toasts := m.toasts.renderToasts()
		view += "\n" + lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toasts)
	}

	return view
}

func (m *Model) renderHeader() string {
	title := styles.CommandHeaderStyle.Render(m.session.DocumentName)

	position := ""
	if m.session.CurrentIndex != review.NoSection {
		position = fmt.Sprintf("section %d/%d", m.session.CurrentIndex+1, len(m.session.Sections))
	}

	stats := m.app.Review.Statistics()
	summary := fmt.Sprintf("%s %d  %s %d  %s %d",
		styles.AcceptedStyle.Render("✓"), stats.Accepted,
		styles.RejectedStyle.Render("✗"), stats.Rejected,
		styles.PendingStyle.Render("•"), stats.Pending,
	)

	left := title
	if position != "" {
		left += styles.DividerStyle.Render("  "+position)
	}

	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(summary))
	return left + strings.Repeat(" ", gap) + summary
}

func (m *Model) renderLoading() string {
	msg := fmt.Sprintf("%s Analyzing %q...", m.spinner.View(), m.loadingSection)
	return lipgloss.Place(m.width, max(1, m.height-4), lipgloss.Center, lipgloss.Center, msg)
}

func (m *Model) renderSection() string {
	doc := m.viewport.View()

	if m.width < 100 {
		return doc
	}

	panelWidth := m.width - m.documentWidth() - 1
	panel := m.renderFeedbackPanel(panelWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top, doc, " ", panel)
}

func (m *Model) renderFeedbackPanel(width int) string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(styles.ColorForeground)
	b.WriteString(header.Render(fmt.Sprintf("Feedback (%d)", len(m.record.Feedback))))
	b.WriteString("\n\n")

	if len(m.record.Feedback) == 0 {
		b.WriteString(styles.PendingStyle.Render("No feedback for this section."))
	}

	for i, item := range m.record.Feedback {
		b.WriteString(m.renderFeedbackItem(item, i == m.cursor, width))
		b.WriteString("\n")
	}

	customs := m.app.Review.CustomFeedbackFor(m.record.Name)
	if len(customs) > 0 {
		b.WriteString("\n")
		b.WriteString(header.Render(fmt.Sprintf("Your comments (%d)", len(customs))))
		b.WriteString("\n")
		noteStyle := lipgloss.NewStyle().Foreground(styles.ColorSecondary).Width(width - 2)
		for _, c := range customs {
			b.WriteString(noteStyle.Render("▸ " + c.Description))
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

func (m *Model) renderFeedbackItem(item review.FeedbackItem, selected bool, width int) string {
	marker := "  "
	if selected {
		marker = styles.SelectedBorderStyle.Render("┃ ")
	}

	typeStyle := lipgloss.NewStyle().Foreground(styles.TypeColor(item.Type)).Bold(true)
	head := typeStyle.Render(string(item.Type))
	if item.Category != "" {
		head += styles.DividerStyle.Render(" · " + item.Category)
	}

	status := styles.StatusStyle(item.Status).Render(string(item.Status))
	if count := m.app.Review.CustomCountForAIItem(item.ID); count > 0 {
		status += styles.DividerStyle.Render(fmt.Sprintf("  %d note(s)", count))
	}

	bodyStyle := lipgloss.NewStyle().Foreground(styles.ColorForeground).Width(width - 4)
	if !selected {
		bodyStyle = bodyStyle.Foreground(styles.ColorMuted)
	}

	lines := []string{
		marker + head + "  " + status,
		"  " + bodyStyle.Render(item.Description),
	}
	if selected && item.Suggestion != "" {
		suggestion := lipgloss.NewStyle().Foreground(styles.ColorSecondary).Width(width - 4)
		lines = append(lines, "  "+suggestion.Render("→ "+item.Suggestion))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatusBar() string {
	mode := styles.StatusBarModeStyle.Render("REVIEW")
	if m.showHighlights {
		mode = styles.StatusBarModeStyle.Render("HIGHLIGHTS")
	}

	help := styles.StatusBarStyle.Render("a:accept • r:reject • u:revert • c:comment • h/l:sections • C:complete • ?:help")

	gap := max(0, m.width-lipgloss.Width(mode)-lipgloss.Width(help))
	filler := lipgloss.NewStyle().Background(styles.ColorSurface).Render(strings.Repeat(" ", gap))
	return mode + help + filler
}

func (m *Model) renderHelp() string {
	rows := []struct{ key, desc string }{
		{"h / l", "previous / next section"},
		{"j / k", "move between feedback items"},
		{"ctrl+u / ctrl+d", "scroll the document"},
		{"a", "accept selected feedback"},
		{"r", "reject selected feedback"},
		{"u", "revert selected feedback to pending"},
		{"R", "revert all feedback (confirms first)"},
		{"c", "add a custom comment"},
		{"H", "toggle highlight view"},
		{"C", "complete the review"},
		{"q", "quit"},
	}

	keyStyle := lipgloss.NewStyle().Foreground(styles.ColorPrimary).Width(18)
	descStyle := lipgloss.NewStyle().Foreground(styles.ColorForeground)

	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Keybindings"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(keyStyle.Render(row.key))
		b.WriteString(descStyle.Render(row.desc))
		b.WriteString("\n")
	}
	b.WriteString(styles.ModalHelpStyle.Render("press ? to close"))

	return styles.ModalStyle.Render(b.String())
}
