package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/prism"
)

// Messages produced by async service commands. Every backend round-trip runs
// in a tea.Cmd so the Update loop never blocks on the network.

type sectionLoadedMsg struct {
	index  int
	record review.SectionRecord
	err    error
}

type statusChangedMsg struct {
	feedbackID string
	action     string
	changed    bool
	err        error
}

type revertAllDoneMsg struct {
	reverted int
	err      error
}

type customAddedMsg struct {
	item review.CustomFeedbackItem
	err  error
}

type completeDoneMsg struct {
	result api.CompleteResult
	err    error
}

func loadSectionCmd(svc *prism.Service, index int) tea.Cmd {
	return func() tea.Msg {
		record, err := svc.LoadSection(context.Background(), index)
		return sectionLoadedMsg{index: index, record: record, err: err}
	}
}

func acceptCmd(svc *prism.Service, feedbackID string) tea.Cmd {
	return func() tea.Msg {
		changed, err := svc.Accept(context.Background(), feedbackID)
		return statusChangedMsg{feedbackID: feedbackID, action: "accepted", changed: changed, err: err}
	}
}

func rejectCmd(svc *prism.Service, feedbackID string) tea.Cmd {
	return func() tea.Msg {
		changed, err := svc.Reject(context.Background(), feedbackID)
		return statusChangedMsg{feedbackID: feedbackID, action: "rejected", changed: changed, err: err}
	}
}

func revertCmd(svc *prism.Service, feedbackID string) tea.Cmd {
	return func() tea.Msg {
		changed, err := svc.Revert(context.Background(), feedbackID)
		return statusChangedMsg{feedbackID: feedbackID, action: "reverted", changed: changed, err: err}
	}
}

func revertAllCmd(svc *prism.Service) tea.Cmd {
	return func() tea.Msg {
		n, err := svc.RevertAll(context.Background())
		return revertAllDoneMsg{reverted: n, err: err}
	}
}

func addCustomCmd(svc *prism.Service, params prism.CustomFeedbackParams) tea.Cmd {
	return func() tea.Msg {
		item, err := svc.AddCustomFeedback(context.Background(), params)
		return customAddedMsg{item: item, err: err}
	}
}

func completeCmd(svc *prism.Service) tea.Cmd {
	return func() tea.Msg {
		result, err := svc.CompleteReview(context.Background())
		return completeDoneMsg{result: result, err: err}
	}
}
