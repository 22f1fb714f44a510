// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/gate"
	"github.com/jeranaias/riskgate/internal/review"
	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/session"
	"github.com/jeranaias/riskgate/internal/ui/styles"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fixedDrafter struct{ reply string }

func (d fixedDrafter) Draft(ctx context.Context, query string) (string, error) {
	return d.reply, nil
}

type fixedEvaluator struct{ eval *risk.Evaluation }

func (e fixedEvaluator) Evaluate(ctx context.Context, draft string) (*risk.Evaluation, error) {
	eval := *e.eval
	return &eval, nil
}

type fixedRewriter struct{ out string }

func (r fixedRewriter) Rewrite(ctx context.Context, draft, reason string) (string, error) {
	return r.out, nil
}

func newTestModel(t *testing.T, decision risk.Decision) (Model, *gate.Engine) {
	t.Helper()

	classification := risk.Low
	if decision != risk.AutoSend {
		classification = risk.High
	}
	eval := &risk.Evaluation{
		Classification:  classification,
		FlaggedVector:   risk.VectorNone,
		HighlightedText: "None",
		Explanation:     "Test rationale.",
		Decision:        decision,
	}
	if classification != risk.Low {
		eval.FlaggedVector = risk.VectorRegulatory
		eval.HighlightedText = "flagged"
	}

	sess := session.New()
	ledger := audit.NewLedger()
	queue := review.NewQueue(ledger, sess)
	caps := &gate.Capabilities{
		Drafter:   fixedDrafter{reply: "Here is an answer."},
		Evaluator: fixedEvaluator{eval: eval},
		Rewriter:  fixedRewriter{out: "softened"},
	}
	engine := gate.NewEngine(caps, sess, ledger, queue)

	m := New(styles.NewTheme(), engine, t.TempDir())
	resized, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return resized.(Model), engine
}

func runTurn(t *testing.T, m Model, engine *gate.Engine, query string) Model {
	t.Helper()
	outcome, err := engine.SubmitQuery(context.Background(), query)
	next, _ := m.Update(turnDoneMsg{outcome: outcome, err: err})
	return next.(Model)
}

// =============================================================================
// TESTS
// =============================================================================

func TestGreetingVisibleOnStart(t *testing.T) {
	m, _ := newTestModel(t, risk.AutoSend)
	if !strings.Contains(m.View(), "How can I help you today?") {
		t.Error("view should show the greeting turn")
	}
}

func TestAutoSendKeepsChatFocus(t *testing.T) {
	m, engine := newTestModel(t, risk.AutoSend)
	m = runTurn(t, m, engine, "hello")

	if m.focus != focusChat {
		t.Error("auto_send should keep focus on the chat input")
	}
	if !strings.Contains(m.View(), "Here is an answer.") {
		t.Error("auto-sent reply should appear in the transcript")
	}
}

func TestHumanReviewMovesFocusAndDisablesInput(t *testing.T) {
	m, engine := newTestModel(t, risk.HumanReview)
	m = runTurn(t, m, engine, "risky question")

	if m.focus != focusReview {
		t.Error("held draft should move focus to the review editor")
	}
	if m.review.Value() != "Here is an answer." {
		t.Errorf("review editor prefill = %q", m.review.Value())
	}
	if !strings.Contains(m.View(), ReviewHoldNotice) {
		t.Error("chat input should show the hold notice while review is pending")
	}

	// Enter on the chat pane must not start a new turn.
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if cmd != nil {
		t.Error("tab should not emit a command")
	}
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd != nil {
		t.Error("enter while review pending should be inert")
	}
}

func TestReviewResolutionRestoresChatFocus(t *testing.T) {
	m, engine := newTestModel(t, risk.HumanReview)
	m = runTurn(t, m, engine, "risky question")

	res, err := engine.ResolveReview("Edited final answer.")
	if err != nil {
		t.Fatalf("ResolveReview failed: %v", err)
	}
	next, _ := m.Update(reviewDoneMsg{res: res})
	m = next.(Model)

	if m.focus != focusChat {
		t.Error("resolution should restore chat focus")
	}
	if !strings.Contains(m.View(), "Edited final answer.") {
		t.Error("approved text should appear in the transcript")
	}
	if !strings.Contains(m.statusMsg, audit.HumanEditedAndApproved) {
		t.Errorf("statusMsg = %q, want the resolution action", m.statusMsg)
	}
}

func TestEscalateShowsBlockedBadge(t *testing.T) {
	m, engine := newTestModel(t, risk.EscalateBlock)
	m = runTurn(t, m, engine, "dangerous question")

	view := m.View()
	if !strings.Contains(view, gate.EscalationMessage) {
		t.Error("escalation copy should appear in the transcript")
	}
	if !strings.Contains(view, risk.EscalateBlock.String()) {
		t.Error("control plane should show the blocked badge")
	}
}

func TestFormatAuditRowColumns(t *testing.T) {
	row := audit.ProjectionRow{
		Time:          "10:30:00",
		ID:            "a1b2c3d4",
		Risk:          "HIGH",
		Decision:      "Blocked & Escalated",
		FlaggedVector: "Urgency/Harm",
	}
	got := formatAuditRow(row, 80)

	for _, want := range []string{"10:30:00", "a1b2c3d4", "HIGH", "Blocked & Escalated", "Urgency/Harm"} {
		if !strings.Contains(got, want) {
			t.Errorf("row %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "\n") {
		t.Error("row must be a single line")
	}
}

func TestRawEvalToggle(t *testing.T) {
	m, engine := newTestModel(t, risk.AutoSend)
	m = runTurn(t, m, engine, "hello")

	if strings.Contains(m.View(), "risk_classification") {
		t.Error("raw evaluator JSON should be hidden by default")
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlJ})
	m = next.(Model)
	if !strings.Contains(m.View(), "risk_classification") {
		t.Error("ctrl+j should reveal the raw evaluator JSON")
	}
}
