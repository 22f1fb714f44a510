// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/review"
	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/session"
)

// =============================================================================
// STUB CAPABILITIES
// =============================================================================

type stubDrafter struct {
	reply string
	err   error
	calls int
}

func (d *stubDrafter) Draft(ctx context.Context, query string) (string, error) {
	d.calls++
	return d.reply, d.err
}

// stubEvaluator returns queued evaluations in order; the second call
// serves the post-rewrite evaluation.
type stubEvaluator struct {
	evals []*risk.Evaluation
	errs  []error
	calls int
}

func (e *stubEvaluator) Evaluate(ctx context.Context, draft string) (*risk.Evaluation, error) {
	i := e.calls
	e.calls++
	if i < len(e.errs) && e.errs[i] != nil {
		return nil, e.errs[i]
	}
	if i >= len(e.evals) {
		return nil, errors.New("stub: no evaluation queued")
	}
	// Copy so MarkRewritten does not mutate the fixture.
	eval := *e.evals[i]
	return &eval, nil
}

type stubRewriter struct {
	out   string
	err   error
	calls int
}

func (r *stubRewriter) Rewrite(ctx context.Context, draft, reason string) (string, error) {
	r.calls++
	return r.out, r.err
}

// =============================================================================
// FIXTURES
// =============================================================================

func evalFixture(c risk.Classification, d risk.Decision) *risk.Evaluation {
	vector := risk.VectorNone
	highlighted := "None"
	if c != risk.Low {
		vector = risk.VectorRegulatory
		highlighted = "You should buy index funds now."
	}
	return &risk.Evaluation{
		Classification:  c,
		FlaggedVector:   vector,
		HighlightedText: highlighted,
		Explanation:     "Stub rationale.",
		Decision:        d,
	}
}

func newTestEngine(d Drafter, e Evaluator, r Rewriter) *Engine {
	sess := session.NewEmpty()
	ledger := audit.NewLedger()
	queue := review.NewQueue(ledger, sess)
	caps := &Capabilities{Drafter: d, Evaluator: e, Rewriter: r}
	return NewEngine(caps, sess, ledger, queue)
}

// =============================================================================
// AUTO-SEND PATH
// =============================================================================

func TestAutoSendPath(t *testing.T) {
	drafter := &stubDrafter{reply: "Here are the transfer steps."}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{evalFixture(risk.Low, risk.AutoSend)}}
	rewriter := &stubRewriter{}
	engine := newTestEngine(drafter, evaluator, rewriter)

	outcome, err := engine.SubmitQuery(context.Background(), "How do I transfer to my TFSA?")
	if err != nil {
		t.Fatalf("SubmitQuery failed: %v", err)
	}

	if outcome.Decision != risk.AutoSend {
		t.Errorf("Decision = %q", outcome.Decision)
	}
	if outcome.Entry.FinalResponse == nil || *outcome.Entry.FinalResponse != outcome.Entry.AIDraft {
		t.Error("auto_send entry must have FinalResponse == AIDraft")
	}
	if rewriter.calls != 0 {
		t.Errorf("rewriter called %d times for LOW risk", rewriter.calls)
	}
	if engine.ReviewPending() {
		t.Error("auto_send must not create a review item")
	}

	last := engine.Session().Last()
	if last.Content != "Here are the transfer steps." {
		t.Errorf("customer saw %q, want the draft", last.Content)
	}
	if engine.Ledger().Len() != 1 {
		t.Errorf("ledger entries = %d, want 1", engine.Ledger().Len())
	}
}

// =============================================================================
// SELF-CORRECTION PATH
// =============================================================================

func TestMediumTriggersExactlyOneRewrite(t *testing.T) {
	drafter := &stubDrafter{reply: "Buy index funds now."}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{
		evalFixture(risk.Medium, risk.HumanReview),
		evalFixture(risk.Low, risk.AutoSend),
	}}
	rewriter := &stubRewriter{out: "Index funds are one option you could research."}
	engine := newTestEngine(drafter, evaluator, rewriter)

	outcome, err := engine.SubmitQuery(context.Background(), "What should I invest in?")
	if err != nil {
		t.Fatalf("SubmitQuery failed: %v", err)
	}

	if rewriter.calls != 1 {
		t.Errorf("rewriter calls = %d, want exactly 1", rewriter.calls)
	}
	if evaluator.calls != 2 {
		t.Errorf("evaluator calls = %d, want 2", evaluator.calls)
	}
	if !outcome.Eval.Rewritten() {
		t.Error("final evaluation must carry the [Rewritten] marker")
	}
	if !strings.HasPrefix(outcome.Entry.Explanation, "[Rewritten] ") {
		t.Errorf("Explanation = %q", outcome.Entry.Explanation)
	}
	if outcome.Entry.AIDraft != rewriter.out {
		t.Errorf("AIDraft = %q, want the rewritten draft", outcome.Entry.AIDraft)
	}
	// Second evaluation cleared it to LOW, so it auto-sends.
	if outcome.Decision != risk.AutoSend {
		t.Errorf("Decision = %q", outcome.Decision)
	}
}

func TestMediumRewriteStillFlaggedIsFinal(t *testing.T) {
	// The second evaluation is final regardless of classification - no
	// recursive retry.
	drafter := &stubDrafter{reply: "Buy index funds now."}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{
		evalFixture(risk.Medium, risk.HumanReview),
		evalFixture(risk.Medium, risk.HumanReview),
	}}
	rewriter := &stubRewriter{out: "Still pushy advice."}
	engine := newTestEngine(drafter, evaluator, rewriter)

	outcome, err := engine.SubmitQuery(context.Background(), "What should I invest in?")
	if err != nil {
		t.Fatalf("SubmitQuery failed: %v", err)
	}

	if rewriter.calls != 1 {
		t.Errorf("rewriter calls = %d, want exactly 1 (no recursive retry)", rewriter.calls)
	}
	if outcome.Decision != risk.HumanReview {
		t.Errorf("Decision = %q", outcome.Decision)
	}
	if !outcome.Eval.Rewritten() {
		t.Error("marker must survive a still-flagged rewrite")
	}
	if !engine.ReviewPending() {
		t.Error("still-flagged rewrite should land in review")
	}
}

// =============================================================================
// HUMAN-REVIEW PATH
// =============================================================================

func TestHumanReviewBlocksInputUntilResolve(t *testing.T) {
	drafter := &stubDrafter{reply: "Buy index funds now."}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{
		evalFixture(risk.High, risk.HumanReview),
		evalFixture(risk.Low, risk.AutoSend),
	}}
	engine := newTestEngine(drafter, evaluator, &stubRewriter{})

	if _, err := engine.SubmitQuery(context.Background(), "Should I sell everything?"); err != nil {
		t.Fatalf("SubmitQuery failed: %v", err)
	}

	// Customer sees only the interception copy, never risk metadata.
	last := engine.Session().Last()
	if last.Content != InterceptionMessage {
		t.Errorf("customer saw %q, want interception copy", last.Content)
	}

	// New input is rejected at the boundary without touching capabilities.
	_, err := engine.SubmitQuery(context.Background(), "Hello?")
	if !errors.Is(err, ErrReviewPending) {
		t.Errorf("error = %v, want ErrReviewPending", err)
	}
	if drafter.calls != 1 {
		t.Errorf("drafter calls = %d; blocked turn must not draft", drafter.calls)
	}

	// Resolution unblocks input.
	if _, err := engine.ResolveReview("Buy index funds now."); err != nil {
		t.Fatalf("ResolveReview failed: %v", err)
	}
	if _, err := engine.SubmitQuery(context.Background(), "Thanks!"); err != nil {
		t.Fatalf("SubmitQuery after resolve failed: %v", err)
	}
}

func TestResolveSecondTimeFails(t *testing.T) {
	drafter := &stubDrafter{reply: "draft"}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{evalFixture(risk.High, risk.HumanReview)}}
	engine := newTestEngine(drafter, evaluator, &stubRewriter{})

	if _, err := engine.SubmitQuery(context.Background(), "q"); err != nil {
		t.Fatalf("SubmitQuery failed: %v", err)
	}
	if _, err := engine.ResolveReview("draft"); err != nil {
		t.Fatalf("first ResolveReview failed: %v", err)
	}
	if _, err := engine.ResolveReview("draft"); !errors.Is(err, review.ErrNothingPending) {
		t.Errorf("second ResolveReview error = %v, want ErrNothingPending", err)
	}
}

func TestHumanActionClassification(t *testing.T) {
	const draft = "Buy index funds now."

	tests := []struct {
		name   string
		edited string
		want   string
	}{
		{"approved as-is", "Buy index funds now.", audit.HumanApprovedAsIs},
		{"edited", "Consider researching index funds; this is not financial advice.", audit.HumanEditedAndApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafter := &stubDrafter{reply: draft}
			evaluator := &stubEvaluator{evals: []*risk.Evaluation{evalFixture(risk.High, risk.HumanReview)}}
			engine := newTestEngine(drafter, evaluator, &stubRewriter{})

			outcome, err := engine.SubmitQuery(context.Background(), "What should I buy?")
			if err != nil {
				t.Fatalf("SubmitQuery failed: %v", err)
			}

			res, err := engine.ResolveReview(tt.edited)
			if err != nil {
				t.Fatalf("ResolveReview failed: %v", err)
			}
			if res.Action != tt.want {
				t.Errorf("Action = %q, want %q", res.Action, tt.want)
			}
			if outcome.Entry.Decision != tt.want {
				t.Errorf("entry.Decision = %q, want %q", outcome.Entry.Decision, tt.want)
			}
			if last := engine.Session().Last(); last.Content != tt.edited {
				t.Errorf("customer saw %q, want the approved text", last.Content)
			}
		})
	}
}

// =============================================================================
// ESCALATE PATH
// =============================================================================

func TestEscalateBlockIsTerminal(t *testing.T) {
	drafter := &stubDrafter{reply: "Sell everything immediately."}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{
		evalFixture(risk.High, risk.EscalateBlock),
		evalFixture(risk.Low, risk.AutoSend),
	}}
	engine := newTestEngine(drafter, evaluator, &stubRewriter{})

	outcome, err := engine.SubmitQuery(context.Background(), "Market is crashing, what do I do?")
	if err != nil {
		t.Fatalf("SubmitQuery failed: %v", err)
	}

	if outcome.Entry.FinalResponse != nil {
		t.Error("escalate_block entry must never have FinalResponse set")
	}
	if engine.ReviewPending() {
		t.Error("escalate_block must not create a review item")
	}
	if last := engine.Session().Last(); last.Content != EscalationMessage {
		t.Errorf("customer saw %q, want escalation copy", last.Content)
	}

	// No later action can touch the entry: the next turn proceeds and the
	// blocked entry stays unresolved.
	if _, err := engine.SubmitQuery(context.Background(), "ok"); err != nil {
		t.Fatalf("followup SubmitQuery failed: %v", err)
	}
	if outcome.Entry.FinalResponse != nil || outcome.Entry.HumanAction != nil {
		t.Error("escalate_block entry mutated by a later turn")
	}
}

// =============================================================================
// FAILURE SEMANTICS
// =============================================================================

func TestCapabilityFailuresAbortTurn(t *testing.T) {
	boom := errors.New("upstream unavailable")

	tests := []struct {
		name      string
		drafter   *stubDrafter
		evaluator *stubEvaluator
		rewriter  *stubRewriter
	}{
		{
			"drafter fails",
			&stubDrafter{err: boom},
			&stubEvaluator{},
			&stubRewriter{},
		},
		{
			"evaluator fails",
			&stubDrafter{reply: "draft"},
			&stubEvaluator{errs: []error{boom}},
			&stubRewriter{},
		},
		{
			"evaluator returns schema violation",
			&stubDrafter{reply: "draft"},
			&stubEvaluator{errs: []error{risk.ErrSchema}},
			&stubRewriter{},
		},
		{
			"rewriter fails",
			&stubDrafter{reply: "draft"},
			&stubEvaluator{evals: []*risk.Evaluation{evalFixture(risk.Medium, risk.HumanReview)}},
			&stubRewriter{err: boom},
		},
		{
			"re-evaluation fails",
			&stubDrafter{reply: "draft"},
			&stubEvaluator{
				evals: []*risk.Evaluation{evalFixture(risk.Medium, risk.HumanReview)},
				errs:  []error{nil, boom},
			},
			&stubRewriter{out: "rewritten"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.drafter, tt.evaluator, tt.rewriter)

			_, err := engine.SubmitQuery(context.Background(), "query")
			if err == nil {
				t.Fatal("SubmitQuery should fail")
			}
			if engine.Ledger().Len() != 0 {
				t.Error("failed turn must not create an audit entry")
			}
			if engine.ReviewPending() {
				t.Error("failed turn must not create a review item")
			}
			if last := engine.Session().Last(); last == nil || last.Content != FailureMessage {
				t.Errorf("transcript should end with the generic failure turn, got %+v", last)
			}
		})
	}
}

// =============================================================================
// CONCURRENT RENDER-PATH READS
// =============================================================================

func TestSubmitQueryConcurrentWithRenderReads(t *testing.T) {
	// The TUI runs SubmitQuery on a background goroutine while the render
	// loop keeps reading ReviewPending and the transcript. Run with -race
	// to exercise the session and queue locking.
	drafter := &stubDrafter{reply: "Here are the transfer steps."}
	evaluator := &stubEvaluator{evals: []*risk.Evaluation{evalFixture(risk.Low, risk.AutoSend)}}
	engine := newTestEngine(drafter, evaluator, &stubRewriter{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := engine.SubmitQuery(context.Background(), "How do I transfer funds?"); err != nil {
			t.Errorf("SubmitQuery failed: %v", err)
		}
	}()
	for i := 0; i < 500; i++ {
		engine.ReviewPending()
		engine.Session().Turns()
	}
	wg.Wait()

	if got := engine.Session().Len(); got != 2 {
		t.Errorf("transcript length = %d, want 2", got)
	}
}
