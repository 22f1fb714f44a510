// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/ui/styles"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.resize()
		m.refreshChat()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case turnDoneMsg:
		return m.onTurnDone(msg)

	case reviewDoneMsg:
		return m.onReviewDone(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			m.statusMsg = "Exported " + msg.path
			m.errMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	return m, nil
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) onTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false

	if msg.err != nil {
		m.errMsg = msg.err.Error()
		m.refreshChat()
		m.chatView.GotoBottom()
		return m, nil
	}

	m.errMsg = ""
	m.lastOutcome = msg.outcome

	switch msg.outcome.Decision {
	case risk.AutoSend:
		m.statusMsg = "Reply auto-sent"
	case risk.HumanReview:
		m.statusMsg = "Draft held for review"
		if item := m.engine.Queue().Pending(); item != nil {
			m.review.SetValue(item.Draft)
		}
		m.focus = focusReview
		m.input.Blur()
		m.review.Focus()
	case risk.EscalateBlock:
		m.statusMsg = "Blocked and escalated"
	}

	m.refreshChat()
	m.chatView.GotoBottom()
	return m, nil
}

func (m Model) onReviewDone(msg reviewDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errMsg = fmt.Sprintf("resolve failed: %v", msg.err)
		return m, nil
	}

	m.errMsg = ""
	m.statusMsg = "Review resolved: " + msg.res.Action
	m.review.Reset()
	m.review.Blur()
	m.focus = focusChat
	m.input.Focus()
	m.refreshChat()
	m.chatView.GotoBottom()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {

	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+e":
		return m, exportLedgerCmd(m.engine.Ledger(), m.exportDir)

	case "ctrl+j":
		m.showRawEval = !m.showRawEval
		return m, nil

	case "tab":
		// Focus only cycles while a review is actually pending.
		if m.engine.ReviewPending() {
			if m.focus == focusChat {
				m.focus = focusReview
				m.input.Blur()
				m.review.Focus()
			} else {
				m.focus = focusChat
				m.review.Blur()
				m.input.Focus()
			}
		}
		return m, nil

	case "pgup":
		m.chatView.HalfViewUp()
		return m, nil

	case "pgdown":
		m.chatView.HalfViewDown()
		return m, nil
	}

	if m.focus == focusReview {
		return m.onReviewKey(msg)
	}
	return m.onChatKey(msg)
}

func (m Model) onChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if m.busy || m.engine.ReviewPending() {
			return m, nil
		}
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			return m, nil
		}
		m.input.Reset()
		m.busy = true
		m.statusMsg = ""
		return m, tea.Batch(m.spin.Tick, submitQueryCmd(m.engine, query))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) onReviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+s" {
		edited := strings.TrimSpace(m.review.Value())
		if edited == "" {
			m.errMsg = "cannot approve an empty response"
			return m, nil
		}
		return m, resolveReviewCmd(m.engine, edited)
	}

	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

// chatPaneWidth returns the width of the left pane for the current layout.
func (m *Model) chatPaneWidth() int {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return m.width
	}
	return m.width * 3 / 5
}

func (m *Model) resize() {
	chatW := m.chatPaneWidth()
	if chatW < 20 {
		chatW = 20
	}

	contentH := m.height - 6 // header, input row, status bar, borders
	if contentH < 5 {
		contentH = 5
	}

	m.chatView.Width = chatW - 4
	m.chatView.Height = contentH
	m.input.Width = chatW - 8
	m.review.SetWidth(m.width - chatW - 6)
}
