// Package tui implements the Bubble Tea review interface for prism.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/core/notify"
	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/core/styles"
	"github.com/colonyops/prism/internal/prism"
	tuinotify "github.com/colonyops/prism/internal/tui/notify"
)

// confirmAction identifies what a pending confirmation will do.
type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmRevertAll
	confirmComplete
)

// Model is the root Bubble Tea model for the review TUI.
type Model struct {
	app  *prism.App
	keys keyMap
	bus  *tuinotify.Bus

	width  int
	height int

	session  review.Session
	record   *review.SectionRecord
	cursor   int // selected feedback item in the current section
	viewport viewport.Model
	renderer *glamour.TermRenderer

	spinner        spinner.Model
	loading        bool
	loadingSection string

	showHighlights bool
	showHelp       bool

	toasts        *ToastController
	confirm       *ConfirmModal
	pendingAction confirmAction
	comment       *CommentModal
	commentAnchor string // AI feedback id the comment refers to, if any

	quitting bool
}

// New creates the review TUI model. The service must already hold a live
// session.
func New(app *prism.App, session review.Session) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SelectedBorderStyle

	m := &Model{
		app:     app,
		keys:    defaultKeyMap(),
		session: session,
		spinner: sp,
		toasts:  NewToastController(),
		bus:     tuinotify.NewBus(app.Notifications),
	}

	m.bus.Subscribe(func(n notify.Notification) {
		m.toasts.Push(n)
	})

	return m
}

// Init loads the first unvisited section.
func (m *Model) Init() tea.Cmd {
	index := m.session.CurrentIndex
	if index == review.NoSection {
		index = 0
	}
	return tea.Batch(m.startLoading(index), m.spinner.Tick)
}

// startLoading marks a section load in progress and returns its command.
func (m *Model) startLoading(index int) tea.Cmd {
	if !m.session.ValidIndex(index) {
		return nil
	}
	m.loading = true
	m.loadingSection = m.session.Sections[index]
	return loadSectionCmd(m.app.Review, index)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case toastTickMsg:
		m.toasts.Tick(toastTickInterval)
		if m.toasts.HasToasts() {
			return m, toastTick()
		}
		m.toasts.SetTicking(false)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sectionLoadedMsg:
		return m.handleSectionLoaded(msg)

	case statusChangedMsg:
		return m.handleStatusChanged(msg)

	case revertAllDoneMsg:
		if msg.err != nil {
			return m, m.notifyError(msg.err)
		}
		m.refreshRecord()
		m.bus.Successf("Reverted %d feedback item(s)", msg.reverted)
		return m, m.ensureToastTick()

	case customAddedMsg:
		if msg.err != nil {
			return m, m.notifyError(msg.err)
		}
		m.bus.Successf("Feedback added to %s", msg.item.Section)
		return m, m.ensureToastTick()

	case completeDoneMsg:
		if msg.err != nil {
			return m, m.notifyError(msg.err)
		}
		m.bus.Successf("Review complete: %s", msg.result.Filename)
		return m, m.ensureToastTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleSectionLoaded(msg sectionLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	m.loadingSection = ""

	if msg.err != nil {
		log.Warn().Err(msg.err).Int("index", msg.index).Msg("section load failed")
		return m, m.notifyError(msg.err)
	}

	m.session.CurrentIndex = msg.index
	record := msg.record
	m.record = &record
	m.cursor = 0
	m.renderDocument()
	return m, nil
}

func (m *Model) handleStatusChanged(msg statusChangedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.notifyError(msg.err)
	}
	m.refreshRecord()
	if msg.changed {
		m.bus.Infof("Feedback %s", msg.action)
		return m, m.ensureToastTick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modals swallow all input while active.
	if m.comment != nil {
		modal, cmd := m.comment.Update(msg)
		m.comment = &modal

		if m.comment.Submitted() {
			params := prism.CustomFeedbackParams{
				Section:       m.currentSectionName(),
				Description:   m.comment.Value(),
				AIReferenceID: m.commentAnchor,
			}
			m.comment = nil
			m.commentAnchor = ""
			return m, addCustomCmd(m.app.Review, params)
		}
		if m.comment.Cancelled() {
			m.comment = nil
			m.commentAnchor = ""
		}
		return m, cmd
	}

	if m.confirm != nil {
		modal, cmd := m.confirm.Update(msg)
		m.confirm = &modal

		if m.confirm.Confirmed() {
			action := m.pendingAction
			m.confirm = nil
			m.pendingAction = confirmNone
			switch action {
			case confirmRevertAll:
				return m, revertAllCmd(m.app.Review)
			case confirmComplete:
				return m, completeCmd(m.app.Review)
			}
			return m, nil
		}
		if m.confirm.Cancelled() {
			m.confirm = nil
			m.pendingAction = confirmNone
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.NextSection):
		if m.loading {
			return m, nil
		}
		return m, tea.Batch(m.startLoading(m.session.CurrentIndex+1), m.spinner.Tick)

	case key.Matches(msg, m.keys.PrevSection):
		if m.loading {
			return m, nil
		}
		return m, tea.Batch(m.startLoading(m.session.CurrentIndex-1), m.spinner.Tick)

	case key.Matches(msg, m.keys.CursorDown):
		if m.record != nil && m.cursor < len(m.record.Feedback)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.CursorUp):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.Accept):
		if item, ok := m.selectedFeedback(); ok {
			return m, acceptCmd(m.app.Review, item.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Reject):
		if item, ok := m.selectedFeedback(); ok {
			return m, rejectCmd(m.app.Review, item.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Revert):
		if item, ok := m.selectedFeedback(); ok {
			return m, revertCmd(m.app.Review, item.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.RevertAll):
		modal := NewConfirmModal("Revert ALL feedback across every section? This returns every item to pending.")
		m.confirm = &modal
		m.pendingAction = confirmRevertAll
		return m, nil

	case key.Matches(msg, m.keys.Comment):
		section := m.currentSectionName()
		if section == "" {
			return m, nil
		}
		anchor := ""
		if item, ok := m.selectedFeedback(); ok {
			m.commentAnchor = item.ID
			anchor = item.Description
		}
		modal := NewCommentModal(section, anchor, m.width)
		m.comment = &modal
		return m, nil

	case key.Matches(msg, m.keys.Complete):
		stats := m.app.Review.Statistics()
		if stats.Accepted == 0 && len(m.app.Review.CustomFeedback()) == 0 {
			m.bus.Warnf("Nothing accepted yet; accept feedback or add a comment first")
			return m, m.ensureToastTick()
		}
		modal := NewConfirmModal("Complete the review and generate the final document?")
		m.confirm = &modal
		m.pendingAction = confirmComplete
		return m, nil

	case key.Matches(msg, m.keys.Highlights):
		m.showHighlights = !m.showHighlights
		m.renderDocument()
		return m, nil
	}

	return m, nil
}

// refreshRecord re-reads the cached record so statuses render current.
func (m *Model) refreshRecord() {
	if record, ok := m.app.Review.CurrentSection(); ok {
		m.record = &record
	}
}

func (m *Model) selectedFeedback() (review.FeedbackItem, bool) {
	if m.record == nil || m.cursor >= len(m.record.Feedback) {
		return review.FeedbackItem{}, false
	}
	return m.record.Feedback[m.cursor], true
}

func (m *Model) currentSectionName() string {
	if m.record != nil {
		return m.record.Name
	}
	return ""
}

func (m *Model) notifyError(err error) tea.Cmd {
	m.bus.Errorf("%s", api.UserMessage(err))
	return m.ensureToastTick()
}

func (m *Model) ensureToastTick() tea.Cmd {
	if m.toasts.Ticking() {
		return nil
	}
	m.toasts.SetTicking(true)
	return toastTick()
}

func (m *Model) resize() {
	docWidth := m.documentWidth()
	m.viewport = viewport.New(docWidth, max(1, m.height-4))

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(max(20, docWidth-2)),
	)
	if err == nil {
		m.renderer = renderer
	}
	m.renderDocument()
}

// documentWidth returns the width of the document pane; the feedback panel
// takes the remainder.
func (m *Model) documentWidth() int {
	if m.width < 100 {
		return m.width
	}
	return m.width * 6 / 10
}

// renderDocument fills the viewport with the current section content.
// With highlights on, the raw content is shown with highlight spans styled;
// otherwise the content renders as markdown.
func (m *Model) renderDocument() {
	if m.record == nil {
		return
	}

	if m.showHighlights {
		rendered, err := m.app.Review.RenderSection(context.Background(), m.record.Name, func(text string, c highlight.Color) string {
			return styles.HighlightStyle(c).Render(text)
		})
		if err == nil {
			m.viewport.SetContent(rendered)
			return
		}
		log.Warn().Err(err).Str("section", m.record.Name).Msg("highlight render failed")
	}

	if m.renderer != nil {
		if out, err := m.renderer.Render(m.record.Content); err == nil {
			m.viewport.SetContent(out)
			return
		}
	}
	m.viewport.SetContent(m.record.Content)
}

// Run starts the TUI and blocks until exit.
func Run(app *prism.App, session review.Session) error {
	model := New(app, session)
	program := tea.NewProgram(model, tea.WithAltScreen())

	start := time.Now()
	_, err := program.Run()
	log.Info().Dur("elapsed", time.Since(start)).Msg("review tui closed")
	return err
}
