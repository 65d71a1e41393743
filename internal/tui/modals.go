package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/prism/internal/core/styles"
)

// ConfirmModal is a simple yes/no confirmation dialog.
type ConfirmModal struct {
	message   string
	confirmed bool
	cancelled bool
}

// NewConfirmModal creates a new confirmation modal.
func NewConfirmModal(message string) ConfirmModal {
	return ConfirmModal{message: message}
}

// Update handles input for the confirmation modal.
func (m ConfirmModal) Update(msg tea.Msg) (ConfirmModal, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "y", "Y", "enter":
		m.confirmed = true
	case "n", "N", "esc":
		m.cancelled = true
	}
	return m, nil
}

// Confirmed returns whether the user confirmed.
func (m ConfirmModal) Confirmed() bool { return m.confirmed }

// Cancelled returns whether the user cancelled.
func (m ConfirmModal) Cancelled() bool { return m.cancelled }

// View renders the modal content.
func (m ConfirmModal) View() string {
	title := styles.ModalTitleStyle.Render(m.message)
	help := styles.ModalHelpStyle.Render("y: confirm • n/esc: cancel")
	return styles.ModalStyle.Render(title + "\n" + help)
}

// CommentModal collects a custom feedback note, optionally anchored to an AI
// feedback item.
type CommentModal struct {
	input     textarea.Model
	title     string
	anchor    string // description of the anchored AI item, if any
	submitted bool
	cancelled bool
}

// NewCommentModal creates a comment entry modal.
func NewCommentModal(section, anchor string, width int) CommentModal {
	ta := textarea.New()
	ta.Placeholder = "Write your feedback..."
	ta.CharLimit = 2000
	ta.SetWidth(max(20, width-10))
	ta.SetHeight(5)
	ta.Focus()

	return CommentModal{
		input:  ta,
		title:  fmt.Sprintf("Custom feedback for %q", section),
		anchor: anchor,
	}
}

// Update handles input for the comment modal.
func (m CommentModal) Update(msg tea.Msg) (CommentModal, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "ctrl+s":
			m.submitted = true
			return m, nil
		case "esc":
			m.cancelled = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Submitted returns whether the user submitted the comment.
func (m CommentModal) Submitted() bool { return m.submitted }

// Cancelled returns whether the user cancelled.
func (m CommentModal) Cancelled() bool { return m.cancelled }

// Value returns the entered comment text.
func (m CommentModal) Value() string { return m.input.Value() }

// View renders the modal content.
func (m CommentModal) View() string {
	title := styles.ModalTitleStyle.Render(m.title)
	body := title
	if m.anchor != "" {
		anchorStyle := lipgloss.NewStyle().Foreground(styles.ColorMuted).Italic(true)
		body += "\n" + anchorStyle.Render("re: "+truncate(m.anchor, 60))
	}
	body += "\n\n" + m.input.View()
	body += "\n" + styles.ModalHelpStyle.Render("ctrl+s: submit • esc: cancel")
	return styles.ModalStyle.Render(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// overlay centers modal content within the window, replacing the base view
// while the modal is active.
func overlay(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
