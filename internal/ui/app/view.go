// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/session"
	"github.com/jeranaias/riskgate/internal/ui/styles"
	"github.com/jeranaias/riskgate/internal/util"
)

// auditTableRows caps how many ledger rows the control plane shows. Older
// rows remain available through export.
const auditTableRows = 8

// =============================================================================
// VIEW
// =============================================================================

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 {
		return "Starting..."
	}

	chat := m.renderChatPane()

	var body string
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		body = chat
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, chat, m.renderControlPlane())
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

// =============================================================================
// CHAT PANE
// =============================================================================

func (m Model) renderChatPane() string {
	title := m.theme.PaneTitle.Render("Customer Chat")

	var inputRow string
	switch {
	case m.busy:
		inputRow = m.spin.View() + " " + m.theme.ThinkingText.Render("Routing...")
	case m.engine.ReviewPending():
		inputRow = m.theme.InputDisabled.Render(ReviewHoldNotice)
	default:
		inputRow = m.input.View()
	}
	inputRow = m.theme.InputContainer.Width(m.chatPaneWidth() - 4).Render(inputRow)

	pane := m.theme.Pane
	if m.focus == focusChat {
		pane = m.theme.PaneActive
	}

	return pane.Width(m.chatPaneWidth() - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, m.chatView.View(), inputRow),
	)
}

// refreshChat rebuilds the viewport content from the session transcript.
func (m *Model) refreshChat() {
	turns := m.engine.Session().Turns()
	bubbleW := m.chatView.Width - 8
	if bubbleW < 16 {
		bubbleW = 16
	}

	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(turn, bubbleW))
		b.WriteString("\n")
	}
	m.chatView.SetContent(b.String())
}

func (m *Model) renderTurn(turn session.Turn, width int) string {
	if turn.Role == session.RoleUser {
		bubble := m.theme.UserBubble.MaxWidth(width).Render(turn.Content)
		return lipgloss.PlaceHorizontal(m.chatView.Width, lipgloss.Right, bubble)
	}
	return m.theme.AssistantBubble.MaxWidth(width).Render(turn.Content)
}

// =============================================================================
// CONTROL PLANE
// =============================================================================

func (m Model) renderControlPlane() string {
	width := m.width - m.chatPaneWidth()

	sections := []string{
		m.theme.PaneTitle.Render("Control Plane"),
		m.renderEvalBanner(width - 6),
	}

	if item := m.engine.Queue().Pending(); item != nil {
		sections = append(sections, m.renderReviewBox())
	}

	sections = append(sections, m.renderAuditTable(width-6))

	pane := m.theme.Pane
	if m.focus == focusReview {
		pane = m.theme.PaneActive
	}
	return pane.Width(width - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderEvalBanner shows the latest risk evaluation: classification banner,
// display fields and optionally the raw evaluator JSON.
func (m Model) renderEvalBanner(width int) string {
	if m.lastOutcome == nil {
		return m.theme.ShortcutDesc.Render("No evaluations yet.")
	}

	eval := m.lastOutcome.Eval
	banner := m.theme.Banner(eval.Classification).Render("RISK: " + string(eval.Classification))
	badge := m.theme.DecisionBadge(eval.Decision).Render(eval.Decision.String())

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Center, banner, "  ", badge),
		m.evalRow("Vector", eval.FlaggedVector.Display()),
		m.evalRow("Flagged text", util.TruncateWidth(util.FirstLine(eval.HighlightedText), width-16)),
		m.evalRow("Explanation", util.TruncateWidth(util.FirstLine(eval.Explanation), width-16)),
	}

	if m.showRawEval {
		if raw, err := eval.ToJSON(); err == nil {
			rows = append(rows, m.theme.RawJSON.Width(width).Render(raw))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) evalRow(label, value string) string {
	return m.theme.EvalLabel.Render(label) + m.theme.EvalValue.Render(value)
}

func (m Model) renderReviewBox() string {
	title := m.theme.ReviewTitle.Render("Review held draft (ctrl+s to approve)")
	return m.theme.ReviewBox.Render(
		lipgloss.JoinVertical(lipgloss.Left, title, m.review.View()),
	)
}

// =============================================================================
// AUDIT TABLE
// =============================================================================

// renderAuditTable shows the most recent ledger rows, newest last.
func (m Model) renderAuditTable(width int) string {
	rows := m.engine.Ledger().Projection()
	if len(rows) == 0 {
		return m.theme.ShortcutDesc.Render("Audit log is empty.")
	}
	if len(rows) > auditTableRows {
		rows = rows[len(rows)-auditTableRows:]
	}

	lines := []string{
		m.theme.TableHeader.Render(formatAuditRow(audit.ProjectionRow{
			Time: "TIME", ID: "ID", Risk: "RISK", Decision: "DECISION", FlaggedVector: "VECTOR",
		}, width)),
	}
	for i, row := range rows {
		style := m.theme.TableRow
		if i%2 == 1 {
			style = m.theme.TableRowAlt
		}
		lines = append(lines, style.Render(formatAuditRow(row, width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// formatAuditRow lays out one projection row in fixed-width columns.
func formatAuditRow(row audit.ProjectionRow, width int) string {
	vectorW := width - (9 + 9 + 8 + 22)
	if vectorW < 6 {
		vectorW = 6
	}
	return util.PadWidth(row.Time, 9) +
		util.PadWidth(row.ID, 9) +
		util.PadWidth(row.Risk, 8) +
		util.PadWidth(util.TruncateWidth(row.Decision, 21), 22) +
		util.TruncateWidth(row.FlaggedVector, vectorW)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.errMsg != "":
		left = m.theme.StatusError.Render(styles.StatusIndicators.Error + " " + m.errMsg)
	case m.statusMsg != "":
		left = m.statusMsg
	case m.engine.ReviewPending():
		left = m.theme.StatusError.Render(styles.StatusIndicators.Warning + " review pending")
	default:
		left = "ready"
	}

	shortcuts := strings.Join([]string{
		m.theme.ShortcutKey.Render("tab") + m.theme.ShortcutDesc.Render(" focus"),
		m.theme.ShortcutKey.Render("ctrl+j") + m.theme.ShortcutDesc.Render(" raw eval"),
		m.theme.ShortcutKey.Render("ctrl+e") + m.theme.ShortcutDesc.Render(" export"),
		m.theme.ShortcutKey.Render("ctrl+c") + m.theme.ShortcutDesc.Render(" quit"),
	}, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(shortcuts) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + shortcuts)
}
